package db

import (
	"fmt"

	"github.com/marcus/dtf/internal/models"
)

// BlockedURLCount is how often one URL was blocked.
type BlockedURLCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// RecordBlockedRequest stores a request the browser blocked. pattern is the
// blocking pattern that matched it, if known.
func (db *DB) RecordBlockedRequest(req models.NetworkRequest, pattern string) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO blocked_requests (request_id, url, pattern, target_id, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, req.RequestID, req.URL, pattern, req.TargetID, formatTime(req.FinishedAt))
		if err != nil {
			return fmt.Errorf("insert blocked request: %w", err)
		}
		return nil
	})
}

// CountBlockedRequests counts blocked requests for a pattern, or all of
// them when pattern is empty.
func (db *DB) CountBlockedRequests(pattern string) (int, error) {
	var n int
	var err error
	if pattern == "" {
		err = db.conn.QueryRow(`SELECT COUNT(*) FROM blocked_requests`).Scan(&n)
	} else {
		err = db.conn.QueryRow(`SELECT COUNT(*) FROM blocked_requests WHERE pattern = ?`, pattern).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count blocked requests: %w", err)
	}
	return n, nil
}

// TopBlockedURLs returns the most blocked URLs, most blocked first.
func (db *DB) TopBlockedURLs(limit int) ([]BlockedURLCount, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := db.conn.Query(`
		SELECT url, COUNT(*) AS n FROM blocked_requests
		GROUP BY url ORDER BY n DESC, url ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query blocked urls: %w", err)
	}
	defer rows.Close()

	var out []BlockedURLCount
	for rows.Next() {
		var c BlockedURLCount
		if err := rows.Scan(&c.URL, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
