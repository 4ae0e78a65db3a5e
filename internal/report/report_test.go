package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	particlefilter "github.com/jhoydich/landmark-pf"
	"github.com/jhoydich/landmark-pf/internal/runner"
)

func sampleRecords() []runner.Record {
	return []runner.Record{
		{
			Step:     1,
			Pred:     particlefilter.Pose{X: 6.25, Y: 1.5, Phi: 0.01},
			Truth:    particlefilter.Pose{X: 6.2785, Y: 1.9598, Phi: 0},
			Err:      particlefilter.Pose{X: 0.0285, Y: 0.4598, Phi: 0.01},
			HasTruth: true,
		},
		{
			Step:     2,
			Pred:     particlefilter.Pose{X: 7.5, Y: 2, Phi: -0.5},
			Truth:    particlefilter.Pose{X: 7.4, Y: 2.1, Phi: -0.45},
			Err:      particlefilter.Pose{X: 0.1, Y: 0.1, Phi: 0.05},
			HasTruth: true,
		},
	}
}

func TestCSVWriterWithTruth(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewCSVWriter(&buf, true)
	for _, r := range sampleRecords() {
		require.NoError(t, w.WriteRecord(r))
	}
	require.NoError(t, w.Flush())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"pred_x", "pred_y", "pred_phi", "true_x", "true_y", "true_phi"}, rows[0])
	assert.Equal(t, []string{"6.25", "1.5", "0.01", "6.2785", "1.9598", "0"}, rows[1])
	assert.Equal(t, []string{"7.5", "2", "-0.5", "7.4", "2.1", "-0.45"}, rows[2])
}

func TestCSVWriterWithoutTruth(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewCSVWriter(&buf, false)
	require.NoError(t, w.WriteRecord(runner.Record{Step: 1, Pred: particlefilter.Pose{X: 1, Y: 2, Phi: 3}}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "pred_x,pred_y,pred_phi\n1,2,3\n", buf.String())
}

func TestCSVWriterEmptyRunWritesNothing(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(&buf, true).Flush())
	assert.Empty(t, buf.String())
}

func TestSaveTrajectoryPlot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trajectory.png")
	landmarks := []particlefilter.Landmark{{X: 5, Y: 5, ID: 1}, {X: 10, Y: -3, ID: 2}}
	require.NoError(t, SaveTrajectoryPlot(path, sampleRecords(), landmarks))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestTrajectoryPlotWithoutRecords(t *testing.T) {
	t.Parallel()

	p, err := TrajectoryPlot(nil, []particlefilter.Landmark{{X: 1, Y: 1, ID: 1}})
	require.NoError(t, err)
	assert.Equal(t, "Particle Filter Localization", p.Title.Text)
}

func TestWriteErrorChart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteErrorChart(&buf, "run errors", sampleRecords()))

	html := buf.String()
	assert.True(t, strings.Contains(html, "<html"), "expected an HTML document")
	assert.Contains(t, html, "run errors")
	assert.Contains(t, html, "|dphi| (rad)")
}

func TestWriteErrorChartRequiresTruth(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteErrorChart(&buf, "x", []runner.Record{{Step: 1}})
	assert.Error(t, err)
}
