package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobharvest/internal/model"
)

var (
	_ model.IDStore     = (*SQLiteStore)(nil)
	_ model.RunRecorder = (*SQLiteStore)(nil)
)

// SQLiteStore tracks seen job IDs per site and the run history in a SQLite
// database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS seen_jobs (
	site       TEXT NOT NULL,
	job_id     TEXT NOT NULL,
	first_seen INTEGER NOT NULL,
	PRIMARY KEY (site, job_id)
);
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	sites       INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	records     INTEGER NOT NULL,
	output_path TEXT NOT NULL
);`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// Site runs share the store; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// HasSeen returns true if the job ID has already been recorded for site.
func (s *SQLiteStore) HasSeen(site, jobID string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM seen_jobs WHERE site = ? AND job_id = ?", site, jobID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking seen status for %s/%s: %w", site, jobID, err)
	}
	return true, nil
}

// MarkSeen records a job ID as seen. If it already exists the call is a no-op.
func (s *SQLiteStore) MarkSeen(site, jobID string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO seen_jobs (site, job_id, first_seen) VALUES (?, ?, ?)",
		site, jobID, s.now().Unix())
	if err != nil {
		return fmt.Errorf("marking job %s/%s as seen: %w", site, jobID, err)
	}
	return nil
}

// Cleanup deletes seen-job entries and runs older than the given duration.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := s.now().Add(-olderThan).Unix()
	if _, err := s.db.Exec("DELETE FROM seen_jobs WHERE first_seen < ?", cutoff); err != nil {
		return fmt.Errorf("cleaning up seen jobs older than %v: %w", olderThan, err)
	}
	if _, err := s.db.Exec("DELETE FROM runs WHERE finished_at < ?", cutoff); err != nil {
		return fmt.Errorf("cleaning up runs older than %v: %w", olderThan, err)
	}
	return nil
}

// IsEmpty returns true if no job has been recorded for site.
func (s *SQLiteStore) IsEmpty(site string) (bool, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM seen_jobs WHERE site = ?", site).Scan(&count); err != nil {
		return false, fmt.Errorf("checking if store is empty for %s: %w", site, err)
	}
	return count == 0, nil
}

// RecordRun stores a run summary.
func (s *SQLiteStore) RecordRun(run model.RunRecord) error {
	_, err := s.db.Exec(`INSERT INTO runs (id, started_at, finished_at, sites, failed, records, output_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Sites, run.Failed, run.Records, run.OutputPath)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteStore) RecentRuns(limit int) ([]model.RunRecord, error) {
	rows, err := s.db.Query(`SELECT id, started_at, finished_at, sites, failed, records, output_path
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		var r model.RunRecord
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Sites, &r.Failed, &r.Records, &r.OutputPath); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
