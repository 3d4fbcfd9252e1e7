package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcus/dtf/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

const defaultListLimit = 50

// RecordAddressFormFilled stores a forwarded autofill event. An empty ID is
// replaced with a new one.
func (db *DB) RecordAddressFormFilled(ev models.AddressFormFilledEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	fields, err := json.Marshal(nonNil(ev.FilledFields))
	if err != nil {
		return fmt.Errorf("marshal filled fields: %w", err)
	}
	matches, err := json.Marshal(nonNil(ev.Matches))
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}

	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO autofill_events (id, target_id, address, filled_fields, matches, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, ev.ID, ev.TargetID, ev.Address, string(fields), string(matches), formatTime(ev.Timestamp))
		if err != nil {
			return fmt.Errorf("insert autofill event: %w", err)
		}
		return nil
	})
}

// ListAddressFormFilled returns recorded events, newest first.
// limit <= 0 uses the default of 50.
func (db *DB) ListAddressFormFilled(limit int) ([]models.AddressFormFilledEvent, error) {
	return db.ListAddressFormFilledSince(time.Time{}, limit)
}

// ListAddressFormFilledSince returns events recorded at or after since,
// newest first. A zero since lists everything.
func (db *DB) ListAddressFormFilledSince(since time.Time, limit int) ([]models.AddressFormFilledEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	// created_at holds variable-width RFC 3339 text, so since is checked
	// on the decoded time.
	rows, err := db.conn.Query(`
		SELECT id, target_id, address, filled_fields, matches, created_at
		FROM autofill_events
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query autofill events: %w", err)
	}
	defer rows.Close()

	var out []models.AddressFormFilledEvent
	for rows.Next() && len(out) < limit {
		ev, err := scanAutofillEvent(rows)
		if err != nil {
			return nil, err
		}
		if !since.IsZero() && ev.Timestamp.Before(since) {
			continue
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// GetAddressFormFilled returns one recorded event.
func (db *DB) GetAddressFormFilled(id string) (models.AddressFormFilledEvent, error) {
	row := db.conn.QueryRow(`
		SELECT id, target_id, address, filled_fields, matches, created_at
		FROM autofill_events WHERE id = ?
	`, id)
	ev, err := scanAutofillEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AddressFormFilledEvent{}, fmt.Errorf("autofill event %s: %w", id, ErrNotFound)
	}
	return ev, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAutofillEvent(s scanner) (models.AddressFormFilledEvent, error) {
	var ev models.AddressFormFilledEvent
	var fields, matches, createdAt string
	if err := s.Scan(&ev.ID, &ev.TargetID, &ev.Address, &fields, &matches, &createdAt); err != nil {
		return ev, err
	}
	if err := json.Unmarshal([]byte(fields), &ev.FilledFields); err != nil {
		return ev, fmt.Errorf("decode filled fields of %s: %w", ev.ID, err)
	}
	if err := json.Unmarshal([]byte(matches), &ev.Matches); err != nil {
		return ev, fmt.Errorf("decode matches of %s: %w", ev.ID, err)
	}
	ev.Timestamp = parseTime(createdAt)
	return ev, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
