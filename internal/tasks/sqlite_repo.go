package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	keyTaskLists  = "task_lists"
	keyCredential = "api_key"
)

// SQLiteRepo stores each value as a JSON document under a fixed key.
type SQLiteRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteRepo(dsn string, logger *slog.Logger) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer; the collection is always replaced as a whole.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{db: db, logger: logger}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

// ApplyMigrations ensures schema exists
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
	`)
	return err
}

func (r *SQLiteRepo) LoadCollection(ctx context.Context) ([]TaskList, error) {
	raw, ok, err := r.get(ctx, keyTaskLists)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []TaskList{}, nil
	}
	var lists []TaskList
	if err := json.Unmarshal([]byte(raw), &lists); err != nil {
		r.logger.Warn("collection_corrupt", slog.String("error", err.Error()))
		return []TaskList{}, nil
	}
	return lists, nil
}

func (r *SQLiteRepo) SaveCollection(ctx context.Context, lists []TaskList) error {
	if lists == nil {
		lists = []TaskList{}
	}
	data, err := json.Marshal(lists)
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	return r.put(ctx, keyTaskLists, string(data))
}

func (r *SQLiteRepo) LoadCredential(ctx context.Context) (string, bool, error) {
	return r.get(ctx, keyCredential)
}

func (r *SQLiteRepo) SaveCredential(ctx context.Context, credential string) error {
	return r.put(ctx, keyCredential, credential)
}

func (r *SQLiteRepo) get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return v, true, nil
}

func (r *SQLiteRepo) put(ctx context.Context, key, value string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return tx.Commit()
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
