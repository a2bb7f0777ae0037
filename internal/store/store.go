// Package store keeps privacy-conscious site analytics in SQLite: hashed
// visitor records and the outcome of each resume request. Raw IPs and email
// addresses are never written.
package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Retention is how long visitor data is kept.
const Retention = 12 * 30 * 24 * time.Hour

const schema = `
CREATE TABLE IF NOT EXISTS visitors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,
	user_agent TEXT,
	path TEXT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp);
CREATE TABLE IF NOT EXISTS resume_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_email TEXT,
	company TEXT,
	succeeded INTEGER NOT NULL,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// Visitor is one tracked page view.
type Visitor struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// ResumeRequest is one recorded resume request attempt.
type ResumeRequest struct {
	ID          int       `json:"id"`
	HashedEmail string    `json:"hashed_email"`
	Company     string    `json:"company"`
	Succeeded   bool      `json:"succeeded"`
	Timestamp   time.Time `json:"timestamp"`
}

// Stats backs the admin dashboard.
type Stats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	ResumeRequests   int64           `json:"resume_requests"`
	ResumeFailures   int64           `json:"resume_failures"`
	RecentVisitors   []Visitor       `json:"recent_visitors"`
	RecentRequests   []ResumeRequest `json:"recent_requests"`
}

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	salt string
	now  func() time.Time
}

// Open creates or migrates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_time_format=sqlite"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	salt, err := randomHex(32)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, salt: salt, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("store: generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Hash returns a salted, truncated digest of an identifier such as an IP or
// email. It is stable for the lifetime of the Store.
func (s *Store) Hash(identifier string) string {
	h := sha256.New()
	h.Write([]byte(identifier + s.salt))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// RecordVisit stores a page view under the visitor's hashed IP.
func (s *Store) RecordVisit(ctx context.Context, ip, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)
	`, s.Hash(ip), userAgent, path, s.now().UTC())
	if err != nil {
		return fmt.Errorf("store: record visit: %w", err)
	}
	return nil
}

// RecordResumeRequest stores the outcome of a submission. The email is
// hashed; an empty email is kept empty.
func (s *Store) RecordResumeRequest(ctx context.Context, email, company string, succeeded bool) error {
	hashed := ""
	if email != "" {
		hashed = s.Hash(strings.ToLower(strings.TrimSpace(email)))
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resume_requests (hashed_email, company, succeeded, timestamp)
		VALUES (?, ?, ?, ?)
	`, hashed, company, succeeded, s.now().UTC())
	if err != nil {
		return fmt.Errorf("store: record resume request: %w", err)
	}
	return nil
}

// Cleanup deletes visitor and request rows older than retention.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention)
	var total int64
	for _, table := range []string{"visitors", "resume_requests"} {
		res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE timestamp < ?", cutoff)
		if err != nil {
			return total, fmt.Errorf("store: cleanup %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// Stats gathers dashboard numbers.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, "SELECT COUNT(*) FROM visitors", nil},
		{&stats.UniqueVisitors, "SELECT COUNT(DISTINCT hashed_ip) FROM visitors", nil},
		{&stats.VisitorsToday, "SELECT COUNT(*) FROM visitors WHERE timestamp >= ?", []any{startOfDay}},
		{&stats.VisitorsThisWeek, "SELECT COUNT(*) FROM visitors WHERE timestamp >= ?", []any{now.Add(-7 * 24 * time.Hour)}},
		{&stats.ResumeRequests, "SELECT COUNT(*) FROM resume_requests", nil},
		{&stats.ResumeFailures, "SELECT COUNT(*) FROM resume_requests WHERE succeeded = 0", nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("store: stats: %w", err)
		}
	}

	var err error
	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	if stats.RecentRequests, err = s.RecentResumeRequests(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

// RecentVisitors lists the newest page views.
func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]Visitor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent visitors: %w", err)
	}
	defer rows.Close()

	var visitors []Visitor
	for rows.Next() {
		var v Visitor
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan visitor: %w", err)
		}
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

// RecentResumeRequests lists the newest resume request attempts.
func (s *Store) RecentResumeRequests(ctx context.Context, limit int) ([]ResumeRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(hashed_email, ''), COALESCE(company, ''), succeeded, timestamp
		FROM resume_requests
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent resume requests: %w", err)
	}
	defer rows.Close()

	var reqs []ResumeRequest
	for rows.Next() {
		var r ResumeRequest
		if err := rows.Scan(&r.ID, &r.HashedEmail, &r.Company, &r.Succeeded, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan resume request: %w", err)
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}
