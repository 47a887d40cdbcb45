package server

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Job statuses, mirrored into the API as-is.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// Job is one processing request and its lifecycle bookkeeping.
type Job struct {
	ID         string
	Status     string
	InputPath  string
	OutputPath string
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Store persists jobs and their log lines in SQLite so status and logs
// survive across requests (and restarts) instead of living in one
// process's memory.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the job database and runs migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open job store: %v", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot enable WAL: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	input_path TEXT NOT NULL,
	output_path TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	started_at INTEGER,
	finished_at INTEGER
);
CREATE TABLE IF NOT EXISTS job_logs (
	job_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	line TEXT NOT NULL,
	PRIMARY KEY (job_id, seq)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot migrate job store: %v", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateJob inserts a queued job.
func (s *Store) CreateJob(job *Job) error {
	_, err := s.db.Exec(
		"INSERT INTO jobs (id, status, input_path, output_path, created_at) VALUES (?, ?, ?, ?, ?)",
		job.ID, StatusQueued, job.InputPath, job.OutputPath, job.CreatedAt.Unix())
	return err
}

// GetJob fetches one job by id, or nil when unknown.
func (s *Store) GetJob(id string) (*Job, error) {
	row := s.db.QueryRow(
		"SELECT id, status, input_path, output_path, error, created_at, started_at, finished_at FROM jobs WHERE id = ?", id)

	var job Job
	var created int64
	var started, finished sql.NullInt64
	err := row.Scan(&job.ID, &job.Status, &job.InputPath, &job.OutputPath, &job.Error, &created, &started, &finished)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	job.CreatedAt = time.Unix(created, 0)
	if started.Valid {
		t := time.Unix(started.Int64, 0)
		job.StartedAt = &t
	}
	if finished.Valid {
		t := time.Unix(finished.Int64, 0)
		job.FinishedAt = &t
	}
	return &job, nil
}

// MarkRunning transitions a job to running.
func (s *Store) MarkRunning(id string) error {
	_, err := s.db.Exec("UPDATE jobs SET status = ?, started_at = ? WHERE id = ?",
		StatusRunning, time.Now().Unix(), id)
	return err
}

// MarkFinished records a terminal status. errMsg is empty on success.
func (s *Store) MarkFinished(id, status, errMsg string) error {
	_, err := s.db.Exec("UPDATE jobs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		status, errMsg, time.Now().Unix(), id)
	return err
}

// AppendLog adds one log line to a job's stream.
func (s *Store) AppendLog(id, line string) error {
	_, err := s.db.Exec(
		"INSERT INTO job_logs (job_id, seq, line) VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM job_logs WHERE job_id = ?), ?)",
		id, id, line)
	return err
}

// LogsSince returns log lines with seq > after, in order.
func (s *Store) LogsSince(id string, after int) ([]string, int, error) {
	rows, err := s.db.Query(
		"SELECT seq, line FROM job_logs WHERE job_id = ? AND seq > ? ORDER BY seq", id, after)
	if err != nil {
		return nil, after, err
	}
	defer rows.Close()

	var lines []string
	last := after
	for rows.Next() {
		var seq int
		var line string
		if err := rows.Scan(&seq, &line); err != nil {
			return lines, last, err
		}
		lines = append(lines, line)
		last = seq
	}
	return lines, last, rows.Err()
}
