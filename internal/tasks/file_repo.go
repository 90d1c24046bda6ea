package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	collectionFile = "task_lists.json"
	credentialFile = "credential"
	lockFile       = ".lock"

	lockRetryDelay = 50 * time.Millisecond
)

// FileRepo keeps the collection and credential as files in one directory.
// Writes go to a temp file that is synced and renamed over the target while
// holding an exclusive lock on the directory's lock file. The flock guards
// against other processes. A flock.Flock handle is not safe to share between
// lockers in one process, so mu serializes every use of it.
type FileRepo struct {
	dir    string
	mu     sync.Mutex
	lock   *flock.Flock
	logger *slog.Logger
}

func NewFileRepo(dir string, logger *slog.Logger) (*FileRepo, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileRepo{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, lockFile)),
		logger: logger,
	}, nil
}

func (r *FileRepo) LoadCollection(ctx context.Context) ([]TaskList, error) {
	data, ok, err := r.read(ctx, collectionFile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []TaskList{}, nil
	}
	var lists []TaskList
	if err := json.Unmarshal(data, &lists); err != nil {
		r.logger.Warn("collection_corrupt",
			slog.String("path", filepath.Join(r.dir, collectionFile)),
			slog.String("error", err.Error()),
		)
		return []TaskList{}, nil
	}
	return lists, nil
}

func (r *FileRepo) SaveCollection(ctx context.Context, lists []TaskList) error {
	if lists == nil {
		lists = []TaskList{}
	}
	data, err := json.MarshalIndent(lists, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	return r.write(ctx, collectionFile, data, 0o644)
}

func (r *FileRepo) LoadCredential(ctx context.Context) (string, bool, error) {
	data, ok, err := r.read(ctx, credentialFile)
	if err != nil || !ok {
		return "", false, err
	}
	return strings.TrimSpace(string(data)), true, nil
}

func (r *FileRepo) SaveCredential(ctx context.Context, credential string) error {
	return r.write(ctx, credentialFile, []byte(credential), 0o600)
}

func (r *FileRepo) read(ctx context.Context, name string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	locked, err := r.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", r.dir, err)
	}
	if !locked {
		return nil, false, fmt.Errorf("lock %s: not acquired", r.dir)
	}
	defer func() { _ = r.lock.Unlock() }()

	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

func (r *FileRepo) write(ctx context.Context, name string, data []byte, perm os.FileMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	locked, err := r.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", r.dir, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", r.dir)
	}
	defer func() { _ = r.lock.Unlock() }()

	return writeFileAtomic(filepath.Join(r.dir, name), data, perm)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true

	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
