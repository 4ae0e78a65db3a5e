package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteDir lays ds out under dir in the format Load reads and returns the
// paths it wrote. Observation batches go to dir/observation, one file per
// step with zero-padded names so lexical order matches step order.
func WriteDir(dir string, ds *Dataset) (Paths, error) {
	p := Paths{
		Map:          filepath.Join(dir, "map_data.txt"),
		Observations: filepath.Join(dir, "observation"),
		Controls:     filepath.Join(dir, "control_data.txt"),
	}
	if err := os.MkdirAll(p.Observations, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create observation dir: %w", err)
	}

	err := writeLines(p.Map, len(ds.Landmarks), func(i int) string {
		lm := ds.Landmarks[i]
		return ff(lm.X) + "\t" + ff(lm.Y) + "\t" + strconv.Itoa(lm.ID)
	})
	if err != nil {
		return Paths{}, err
	}

	err = writeLines(p.Controls, len(ds.Controls), func(i int) string {
		c := ds.Controls[i]
		return ff(c.Velocity) + " " + ff(c.Yawrate)
	})
	if err != nil {
		return Paths{}, err
	}

	for step, batch := range ds.Observations {
		name := filepath.Join(p.Observations, fmt.Sprintf("observations_%06d.txt", step+1))
		err := writeLines(name, len(batch), func(i int) string {
			return ff(batch[i].X) + " " + ff(batch[i].Y)
		})
		if err != nil {
			return Paths{}, err
		}
	}

	if ds.HasGroundTruth() {
		p.GroundTruth = filepath.Join(dir, "ground_truth_data.txt")
		err = writeLines(p.GroundTruth, len(ds.GroundTruth), func(i int) string {
			g := ds.GroundTruth[i]
			return ff(g.X) + " " + ff(g.Y) + " " + ff(g.Phi)
		})
		if err != nil {
			return Paths{}, err
		}
	}
	return p, nil
}

func writeLines(path string, n int, line func(i int) string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for i := 0; i < n; i++ {
		if _, err := w.WriteString(line(i) + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
