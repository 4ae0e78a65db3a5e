// Package runstore persists run configurations, per-step estimates and
// summaries in a SQLite database.
package runstore

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	particlefilter "github.com/jhoydich/landmark-pf"
	"github.com/jhoydich/landmark-pf/internal/runner"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

//go:embed schema.sql
var schemaSQL string

// Store wraps the run database.
type Store struct {
	*sql.DB
}

// Run is a stored run row.
type Run struct {
	ID         string
	CreatedAt  time.Time
	ConfigJSON string
	Finished   bool
	Summary    runner.Summary
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared between calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	runner.Logf("opened run store %s", path)
	return &Store{db}, nil
}

// StartRun inserts a new run with the given configuration and returns its id.
func (s *Store) StartRun(configJSON []byte) (string, error) {
	id := uuid.New().String()
	_, err := s.Exec(
		`INSERT INTO runs (run_id, created_at, config_json) VALUES (?, ?, ?)`,
		id, time.Now().UnixNano(), string(configJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// RecordStep stores one step of runID.
func (s *Store) RecordStep(runID string, r runner.Record) error {
	var tx, ty, tphi, ex, ey, ephi sql.NullFloat64
	if r.HasTruth {
		tx, ty, tphi = nullFloat(r.Truth.X), nullFloat(r.Truth.Y), nullFloat(r.Truth.Phi)
		ex, ey, ephi = nullFloat(r.Err.X), nullFloat(r.Err.Y), nullFloat(r.Err.Phi)
	}
	_, err := s.Exec(`
		INSERT INTO run_steps (run_id, step, pred_x, pred_y, pred_phi, weight, ess,
			true_x, true_y, true_phi, err_x, err_y, err_phi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Step, r.Pred.X, r.Pred.Y, r.Pred.Phi, r.Weight, r.ESS,
		tx, ty, tphi, ex, ey, ephi,
	)
	if err != nil {
		return fmt.Errorf("failed to insert step %d: %w", r.Step, err)
	}
	return nil
}

// FinishRun stores the summary of runID and marks it finished.
func (s *Store) FinishRun(runID string, sum runner.Summary) error {
	var rx, ry, rphi, mx, my, mphi sql.NullFloat64
	if sum.HasTruth {
		rx, ry, rphi = nullFloat(sum.RMSE.X), nullFloat(sum.RMSE.Y), nullFloat(sum.RMSE.Phi)
		mx, my, mphi = nullFloat(sum.MeanError.X), nullFloat(sum.MeanError.Y), nullFloat(sum.MeanError.Phi)
	}
	res, err := s.Exec(`
		UPDATE runs SET finished = 1, steps = ?, duration_ns = ?, has_truth = ?,
			rmse_x = ?, rmse_y = ?, rmse_phi = ?,
			mean_err_x = ?, mean_err_y = ?, mean_err_phi = ?
		WHERE run_id = ?`,
		sum.Steps, sum.Duration.Nanoseconds(), sum.HasTruth,
		rx, ry, rphi, mx, my, mphi, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun loads the run row for runID.
func (s *Store) GetRun(runID string) (Run, error) {
	var (
		run                 Run
		created, durationNs int64
		rx, ry, rphi        sql.NullFloat64
		mx, my, mphi        sql.NullFloat64
	)
	err := s.QueryRow(`
		SELECT run_id, created_at, config_json, finished, steps, duration_ns, has_truth,
			rmse_x, rmse_y, rmse_phi, mean_err_x, mean_err_y, mean_err_phi
		FROM runs WHERE run_id = ?`, runID,
	).Scan(&run.ID, &created, &run.ConfigJSON, &run.Finished, &run.Summary.Steps,
		&durationNs, &run.Summary.HasTruth, &rx, &ry, &rphi, &mx, &my, &mphi)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to query run: %w", err)
	}
	run.CreatedAt = time.Unix(0, created)
	run.Summary.Duration = time.Duration(durationNs)
	run.Summary.RMSE = particlefilter.Pose{X: rx.Float64, Y: ry.Float64, Phi: rphi.Float64}
	run.Summary.MeanError = particlefilter.Pose{X: mx.Float64, Y: my.Float64, Phi: mphi.Float64}
	return run, nil
}

// ListRuns returns run ids, newest first.
func (s *Store) ListRuns() ([]string, error) {
	rows, err := s.Query(`SELECT run_id FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Steps returns the stored records of runID in step order.
func (s *Store) Steps(runID string) ([]runner.Record, error) {
	rows, err := s.Query(`
		SELECT step, pred_x, pred_y, pred_phi, weight, ess,
			true_x, true_y, true_phi, err_x, err_y, err_phi
		FROM run_steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var out []runner.Record
	for rows.Next() {
		var (
			r            runner.Record
			tx, ty, tphi sql.NullFloat64
			ex, ey, ephi sql.NullFloat64
		)
		if err := rows.Scan(&r.Step, &r.Pred.X, &r.Pred.Y, &r.Pred.Phi, &r.Weight, &r.ESS,
			&tx, &ty, &tphi, &ex, &ey, &ephi); err != nil {
			return nil, err
		}
		if tx.Valid {
			r.HasTruth = true
			r.Truth = particlefilter.Pose{X: tx.Float64, Y: ty.Float64, Phi: tphi.Float64}
			r.Err = particlefilter.Pose{X: ex.Float64, Y: ey.Float64, Phi: ephi.Float64}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sink returns a runner.Sink that stores each record under runID.
func (s *Store) Sink(runID string) runner.Sink {
	return stepSink{store: s, runID: runID}
}

type stepSink struct {
	store *Store
	runID string
}

func (k stepSink) WriteRecord(r runner.Record) error {
	return k.store.RecordStep(k.runID, r)
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}
