// Package dataset reads the landmark map, control, observation and ground
// truth files that drive a localization run.
//
// All files are plain text with whitespace separated numeric columns, one
// record per line. Blank lines are skipped.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	particlefilter "github.com/jhoydich/landmark-pf"
)

var (
	// ErrMalformed is wrapped by every parse failure.
	ErrMalformed = errors.New("malformed record")
	// ErrInconsistent is returned when the loaded sources do not line up.
	ErrInconsistent = errors.New("inconsistent dataset")
)

// Paths names the input sources. GroundTruth may be empty.
type Paths struct {
	Map          string
	Observations string
	Controls     string
	GroundTruth  string
}

// Dataset holds everything a run consumes.
type Dataset struct {
	Landmarks []particlefilter.Landmark
	// Controls[i] moves the vehicle from step i to step i+1.
	Controls []particlefilter.Controls
	// Observations[i] is the batch seen at step i, in the vehicle frame.
	Observations [][]particlefilter.Landmark
	GroundTruth  []particlefilter.Pose
}

// Steps returns the number of filter steps the dataset drives.
func (d *Dataset) Steps() int {
	return len(d.Observations)
}

// HasGroundTruth reports whether ground truth poses were loaded.
func (d *Dataset) HasGroundTruth() bool {
	return len(d.GroundTruth) > 0
}

// Load reads every source named in p and checks that they are consistent.
func Load(p Paths) (*Dataset, error) {
	ds := &Dataset{}
	var err error

	if ds.Landmarks, err = ReadMapFile(p.Map); err != nil {
		return nil, err
	}
	if ds.Observations, err = ReadObservationDir(p.Observations); err != nil {
		return nil, err
	}
	if p.Controls != "" {
		if ds.Controls, err = ReadControlsFile(p.Controls); err != nil {
			return nil, err
		}
	}
	if p.GroundTruth != "" {
		if ds.GroundTruth, err = ReadGroundTruthFile(p.GroundTruth); err != nil {
			return nil, err
		}
	}

	if err := ds.Check(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Check verifies that there is at least one step, a control sample for
// every step after the first and, if present, a ground truth pose for
// every step.
func (d *Dataset) Check() error {
	steps := d.Steps()
	if steps == 0 {
		return fmt.Errorf("%w: no observation steps", ErrInconsistent)
	}
	if len(d.Controls) < steps-1 {
		return fmt.Errorf("%w: %d observation steps need %d controls, have %d",
			ErrInconsistent, steps, steps-1, len(d.Controls))
	}
	if d.HasGroundTruth() && len(d.GroundTruth) < steps {
		return fmt.Errorf("%w: %d observation steps need %d ground truth poses, have %d",
			ErrInconsistent, steps, steps, len(d.GroundTruth))
	}
	return nil
}

// ReadMapFile reads landmarks as "x y id" records.
func ReadMapFile(path string) ([]particlefilter.Landmark, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map: %w", err)
	}
	defer f.Close()
	return ReadMap(f, path)
}

// ReadMap reads landmarks as "x y id" records from r. name is used in
// error messages.
func ReadMap(r io.Reader, name string) ([]particlefilter.Landmark, error) {
	var out []particlefilter.Landmark
	err := scanRecords(r, name, 3, func(fields []string) error {
		vals, err := parseFloats(fields[:2])
		if err != nil {
			return err
		}
		id, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("landmark id %q: %w", fields[2], err)
		}
		out = append(out, particlefilter.Landmark{X: vals[0], Y: vals[1], ID: id})
		return nil
	})
	return out, err
}

// ReadControlsFile reads "velocity yawrate" records.
func ReadControlsFile(path string) ([]particlefilter.Controls, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open controls: %w", err)
	}
	defer f.Close()
	return ReadControls(f, path)
}

// ReadControls reads "velocity yawrate" records from r.
func ReadControls(r io.Reader, name string) ([]particlefilter.Controls, error) {
	var out []particlefilter.Controls
	err := scanRecords(r, name, 2, func(fields []string) error {
		vals, err := parseFloats(fields[:2])
		if err != nil {
			return err
		}
		out = append(out, particlefilter.Controls{Velocity: vals[0], Yawrate: vals[1]})
		return nil
	})
	return out, err
}

// ReadGroundTruthFile reads "x y phi" records.
func ReadGroundTruthFile(path string) ([]particlefilter.Pose, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ground truth: %w", err)
	}
	defer f.Close()
	return ReadGroundTruth(f, path)
}

// ReadGroundTruth reads "x y phi" records from r.
func ReadGroundTruth(r io.Reader, name string) ([]particlefilter.Pose, error) {
	var out []particlefilter.Pose
	err := scanRecords(r, name, 3, func(fields []string) error {
		vals, err := parseFloats(fields[:3])
		if err != nil {
			return err
		}
		out = append(out, particlefilter.Pose{X: vals[0], Y: vals[1], Phi: vals[2]})
		return nil
	})
	return out, err
}

// ReadObservations reads one batch of vehicle-frame "x y" observations.
func ReadObservations(r io.Reader, name string) ([]particlefilter.Landmark, error) {
	out := []particlefilter.Landmark{}
	err := scanRecords(r, name, 2, func(fields []string) error {
		vals, err := parseFloats(fields[:2])
		if err != nil {
			return err
		}
		out = append(out, particlefilter.Landmark{X: vals[0], Y: vals[1]})
		return nil
	})
	return out, err
}

// ReadObservationDir reads one observation batch per regular file in dir,
// ordered by file name.
func ReadObservationDir(dir string) ([][]particlefilter.Landmark, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read observation dir: %w", err)
	}

	var out [][]particlefilter.Landmark
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		batch, err := readObservationFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, batch)
	}
	return out, nil
}

func readObservationFile(path string) ([]particlefilter.Landmark, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open observations: %w", err)
	}
	defer f.Close()
	return ReadObservations(f, path)
}

// scanRecords calls fn with the fields of every non-blank line in r. Lines
// with fewer than minFields fields, and errors returned by fn, are
// reported as ErrMalformed with the source name and line number.
func scanRecords(r io.Reader, name string, minFields int, fn func(fields []string) error) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < minFields {
			return fmt.Errorf("%s:%d: %w: want %d fields, got %d", name, line, ErrMalformed, minFields, len(fields))
		}
		if err := fn(fields); err != nil {
			return fmt.Errorf("%s:%d: %w: %v", name, line, ErrMalformed, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
