package tasks

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrEmptyName    = errors.New("name required")
	ErrNoActiveList = errors.New("no active task list")
	ErrNotFound     = errors.New("not found")
	ErrStorage      = errors.New("storage write failed")
)

// Repository is the durable key-value surface behind a Store.
//
// LoadCollection treats absent or unparsable data as an empty collection;
// an error means the storage itself could not be read.
type Repository interface {
	LoadCollection(ctx context.Context) ([]TaskList, error)
	SaveCollection(ctx context.Context, lists []TaskList) error
	LoadCredential(ctx context.Context) (string, bool, error)
	SaveCredential(ctx context.Context, credential string) error
}

// InMemoryRepo keeps everything in process memory. Stored values are copied
// in and out so callers never share slices with the repo.
type InMemoryRepo struct {
	mu         sync.Mutex
	lists      []TaskList
	credential *string
	saves      int

	// FailWrites makes SaveCollection and SaveCredential return this error.
	FailWrites error
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

func (r *InMemoryRepo) LoadCollection(context.Context) ([]TaskList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneLists(r.lists), nil
}

func (r *InMemoryRepo) SaveCollection(_ context.Context, lists []TaskList) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites != nil {
		return r.FailWrites
	}
	r.lists = cloneLists(lists)
	r.saves++
	return nil
}

func (r *InMemoryRepo) LoadCredential(context.Context) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.credential == nil {
		return "", false, nil
	}
	return *r.credential, true, nil
}

func (r *InMemoryRepo) SaveCredential(_ context.Context, credential string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites != nil {
		return r.FailWrites
	}
	r.credential = &credential
	return nil
}

// Saves reports how many times the collection has been written.
func (r *InMemoryRepo) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func cloneLists(lists []TaskList) []TaskList {
	out := make([]TaskList, len(lists))
	for i := range lists {
		out[i] = lists[i].clone()
	}
	return out
}
