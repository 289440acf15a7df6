package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/contre95/mailwatch/src/features/history"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteHistory is a SQLite implementation of the history.Store interface.
type SqliteHistory struct {
	db *sql.DB
}

// NewSqliteHistory opens (or creates) the history database at path.
func NewSqliteHistory(path string) (*SqliteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SqliteHistory{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS dispatches (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			sent_at TEXT NOT NULL,
			recipient TEXT NOT NULL,
			sender TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT
		);

		CREATE TABLE IF NOT EXISTS dispatch_files (
			dispatch_id TEXT,
			position INTEGER,
			name TEXT NOT NULL,
			PRIMARY KEY (dispatch_id, position),
			FOREIGN KEY (dispatch_id) REFERENCES dispatches(id)
		);

		CREATE INDEX IF NOT EXISTS idx_dispatches_sent_at ON dispatches(sent_at);
	`)
	return err
}

// Close closes the underlying database.
func (d *SqliteHistory) Close() error {
	return d.db.Close()
}

// AddDispatch stores a dispatch record and its file names.
func (d *SqliteHistory) AddDispatch(ctx context.Context, record *history.Record) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dispatches (id, session_id, sent_at, recipient, sender, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.Session, record.SentAt.UTC().Format(time.RFC3339Nano), record.Recipient, record.Sender, record.Status, record.Error)
	if err != nil {
		return fmt.Errorf("failed to insert dispatch: %w", err)
	}

	for i, name := range record.Files {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO dispatch_files (dispatch_id, position, name) VALUES (?, ?, ?)
		`, record.ID, i, name)
		if err != nil {
			return fmt.Errorf("failed to insert dispatch file: %w", err)
		}
	}

	return tx.Commit()
}

// RecentDispatches returns up to limit records, newest first.
func (d *SqliteHistory) RecentDispatches(ctx context.Context, limit int) ([]history.Record, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, COALESCE(session_id, ''), sent_at, recipient, sender, status, COALESCE(error, '')
		FROM dispatches
		ORDER BY sent_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		var r history.Record
		var sentAt string
		if err := rows.Scan(&r.ID, &r.Session, &sentAt, &r.Recipient, &r.Sender, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		if r.SentAt, err = time.Parse(time.RFC3339Nano, sentAt); err != nil {
			return nil, fmt.Errorf("bad sent_at for dispatch %s: %w", r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		files, err := d.dispatchFiles(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Files = files
	}
	return records, nil
}

func (d *SqliteHistory) dispatchFiles(ctx context.Context, id string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT name FROM dispatch_files WHERE dispatch_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	return files, rows.Err()
}

// CountDispatches returns totals grouped by status.
func (d *SqliteHistory) CountDispatches(ctx context.Context) (history.Totals, error) {
	var totals history.Totals
	err := d.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM dispatches
	`, history.StatusSent, history.StatusFailed).Scan(&totals.Sent, &totals.Failed)
	return totals, err
}
