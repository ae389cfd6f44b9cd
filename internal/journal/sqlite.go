package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	closed bool
}

// NewSQLiteStore creates a new SQLite journal store. The journal usually
// lives on a shared mount so a later gc run can see entries from tasks
// scheduled on other hosts.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=60000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS transfers (
		task_id TEXT NOT NULL PRIMARY KEY,
		source_url TEXT NOT NULL,
		tmp_path TEXT NOT NULL,
		final_path TEXT NOT NULL,
		status TEXT NOT NULL,
		last_error TEXT,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers(status);
	CREATE INDEX IF NOT EXISTS idx_transfers_updated_at ON transfers(updated_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// Get retrieves a transfer entry by task id
func (s *SQLiteStore) Get(taskID string) (*Entry, error) {
	if s.closed {
		return nil, fmt.Errorf("journal store is closed")
	}

	query := `
	SELECT task_id, source_url, tmp_path, final_path, status, last_error, updated_at
	FROM transfers WHERE task_id = ?
	`

	row := s.db.QueryRow(query, taskID)

	entry, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Save inserts or updates a transfer entry
func (s *SQLiteStore) Save(entry *Entry) error {
	if s.closed {
		return fmt.Errorf("journal store is closed")
	}

	entry.UpdatedAt = time.Now().UTC()

	return s.retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		query := `
		INSERT INTO transfers
		(task_id, source_url, tmp_path, final_path, status, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			source_url = excluded.source_url,
			tmp_path = excluded.tmp_path,
			final_path = excluded.final_path,
			status = excluded.status,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
		`

		_, err = tx.Exec(query,
			entry.TaskID,
			entry.SourceURL,
			entry.TmpPath,
			entry.FinalPath,
			entry.Status,
			entry.LastError,
			entry.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to execute insert: %w", err)
		}

		return tx.Commit()
	})
}

// ListStagedBefore returns entries that never reached committed and have
// not been touched since cutoff.
func (s *SQLiteStore) ListStagedBefore(cutoff time.Time) ([]*Entry, error) {
	if s.closed {
		return nil, fmt.Errorf("journal store is closed")
	}

	query := `
	SELECT task_id, source_url, tmp_path, final_path, status, last_error, updated_at
	FROM transfers
	WHERE status IN (?, ?) AND updated_at < ?
	ORDER BY updated_at ASC
	`

	rows, err := s.db.Query(query, StatusStaged, StatusFailed, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(scan func(dest ...any) error) (*Entry, error) {
	var entry Entry
	var lastError sql.NullString

	err := scan(
		&entry.TaskID,
		&entry.SourceURL,
		&entry.TmpPath,
		&entry.FinalPath,
		&entry.Status,
		&lastError,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastError.Valid {
		entry.LastError = lastError.String
	}

	return &entry, nil
}

// retryOnBusy retries the operation if SQLite is busy. Concurrent tasks on
// the same host may share one journal file.
func (s *SQLiteStore) retryOnBusy(operation func() error) error {
	const maxRetries = 10
	baseDelay := 50 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil || !isSQLiteBusyError(err) {
			return err
		}

		time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
	}

	return err
}

// isSQLiteBusyError checks if the error is a SQLite busy error
func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	errorStr := err.Error()
	return strings.Contains(errorStr, "database is locked") ||
		strings.Contains(errorStr, "SQLITE_BUSY")
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.closed = true
	return s.db.Close()
}
