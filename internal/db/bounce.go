package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/marcus/dtf/internal/models"
)

// RecordBounceRun stores a bounce tracking mitigations run.
func (db *DB) RecordBounceRun(run models.BounceRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	sites, err := json.Marshal(nonNil(run.DeletedSites))
	if err != nil {
		return fmt.Errorf("marshal deleted sites: %w", err)
	}
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`INSERT INTO bounce_runs (id, deleted_sites, created_at) VALUES (?, ?, ?)`,
			run.ID, string(sites), formatTime(run.RanAt))
		if err != nil {
			return fmt.Errorf("insert bounce run: %w", err)
		}
		return nil
	})
}

// LastBounceRun returns the most recent run. ok is false when none exists.
func (db *DB) LastBounceRun() (run models.BounceRun, ok bool, err error) {
	var sites, createdAt string
	err = db.conn.QueryRow(`
		SELECT id, deleted_sites, created_at FROM bounce_runs
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`).Scan(&run.ID, &sites, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BounceRun{}, false, nil
	}
	if err != nil {
		return models.BounceRun{}, false, fmt.Errorf("query last bounce run: %w", err)
	}
	if err := json.Unmarshal([]byte(sites), &run.DeletedSites); err != nil {
		return models.BounceRun{}, false, fmt.Errorf("decode deleted sites: %w", err)
	}
	run.RanAt = parseTime(createdAt)
	return run, true, nil
}
