// Package report renders run records as a CSV log, a trajectory plot and
// an HTML error chart.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jhoydich/landmark-pf/internal/runner"
)

// CSVWriter is a runner.Sink writing one row per step.
type CSVWriter struct {
	w         *csv.Writer
	withTruth bool
	header    bool
}

// NewCSVWriter returns a CSVWriter on w. Ground truth columns are written
// only when withTruth is set.
func NewCSVWriter(w io.Writer, withTruth bool) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), withTruth: withTruth}
}

// Header returns the column names for the writer's layout.
func (c *CSVWriter) Header() []string {
	h := []string{"pred_x", "pred_y", "pred_phi"}
	if c.withTruth {
		h = append(h, "true_x", "true_y", "true_phi")
	}
	return h
}

// WriteRecord writes r, preceded by the header on the first call.
func (c *CSVWriter) WriteRecord(r runner.Record) error {
	if !c.header {
		if err := c.w.Write(c.Header()); err != nil {
			return err
		}
		c.header = true
	}
	row := []string{ff(r.Pred.X), ff(r.Pred.Y), ff(r.Pred.Phi)}
	if c.withTruth {
		row = append(row, ff(r.Truth.X), ff(r.Truth.Y), ff(r.Truth.Phi))
	}
	return c.w.Write(row)
}

// Flush writes any buffered rows and reports the first write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
