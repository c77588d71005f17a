package sweepdb

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/overlay.report/internal/hud/sweep"
	"github.com/banshee-data/overlay.report/internal/monitoring"
)

// SweepDB persists parameter-sweep runs and results to SQLite.
type SweepDB struct {
	*sql.DB
}

// schema.sql defines the sweep_runs and sweep_results tables.
//
//go:embed schema.sql
var schemaSQL string

// NewSweepDB opens (creating if needed) the sweep database at path.
// Use ":memory:" for an ephemeral store.
func NewSweepDB(path string) (*SweepDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, err
	}

	monitoring.Logf("sweepdb: initialized schema at %s", path)
	return &SweepDB{db}, nil
}

// StartRun records a new sweep run and returns its row ID.
func (sdb *SweepDB) StartRun(spec sweep.RunSpec, notes string) (int64, error) {
	query := `
		INSERT INTO sweep_runs (run_uuid, viewport_w, viewport_h, frames, seeds, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sdb.Exec(query, uuid.NewString(), spec.Width, spec.Height, spec.Frames, len(spec.Seeds), notes)
	if err != nil {
		return 0, fmt.Errorf("failed to start sweep run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// RecordResult stores one parameter combination's metrics for a run.
func (sdb *SweepDB) RecordResult(runID int64, r sweep.Result) error {
	query := `
		INSERT INTO sweep_results (
			run_id,
			lane_spacing_px, slot_step_px, congestion_limit, lane_penalty_px,
			reassign_rate_mean, reassign_rate_stddev,
			clamp_rate_mean, clamp_rate_stddev,
			occupancy_stddev_mean
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sdb.Exec(query,
		runID,
		r.Params.LaneSpacingPx, r.Params.SlotStepPx, r.Params.CongestionLimit, r.Params.LanePenaltyPx,
		r.Metrics.ReassignRateMean, r.Metrics.ReassignRateStddev,
		r.Metrics.ClampRateMean, r.Metrics.ClampRateStddev,
		r.Metrics.OccupancyStddevMean,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sweep result: %w", err)
	}
	return nil
}

// ListResults returns all stored results for a run, best (lowest mean
// reassignment rate) first.
func (sdb *SweepDB) ListResults(runID int64) ([]sweep.Result, error) {
	query := `
		SELECT lane_spacing_px, slot_step_px, congestion_limit, lane_penalty_px,
		       reassign_rate_mean, reassign_rate_stddev,
		       clamp_rate_mean, clamp_rate_stddev,
		       occupancy_stddev_mean
		FROM sweep_results
		WHERE run_id = ?
		ORDER BY reassign_rate_mean ASC, clamp_rate_mean ASC
	`

	rows, err := sdb.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep results: %w", err)
	}
	defer rows.Close()

	var results []sweep.Result
	for rows.Next() {
		var r sweep.Result
		err := rows.Scan(
			&r.Params.LaneSpacingPx, &r.Params.SlotStepPx, &r.Params.CongestionLimit, &r.Params.LanePenaltyPx,
			&r.Metrics.ReassignRateMean, &r.Metrics.ReassignRateStddev,
			&r.Metrics.ClampRateMean, &r.Metrics.ClampRateStddev,
			&r.Metrics.OccupancyStddevMean,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sweep result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Run describes a stored sweep run.
type Run struct {
	ID        int64   `json:"id"`
	RunUUID   string  `json:"run_uuid"`
	StartedAt float64 `json:"started_at"`
	ViewportW int     `json:"viewport_w"`
	ViewportH int     `json:"viewport_h"`
	Frames    int     `json:"frames"`
	Seeds     int     `json:"seeds"`
	Notes     string  `json:"notes"`
}

// ListRuns returns stored runs, newest first.
func (sdb *SweepDB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := sdb.Query(`
		SELECT id, run_uuid, started_at, viewport_w, viewport_h, frames, seeds, notes
		FROM sweep_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.RunUUID, &r.StartedAt, &r.ViewportW, &r.ViewportH, &r.Frames, &r.Seeds, &r.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan sweep run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
