package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const nameWords = 4

// Store owns the saved collection of task lists and the single active list.
//
// The active list is either a draft (not yet saved) or the very same entry
// held in the collection, so mutating a loaded list updates the saved one.
// Every committing mutation writes the whole collection back to the
// Repository before returning.
type Store struct {
	mu         sync.Mutex
	repo       Repository
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	collection []*TaskList
	active     *TaskList
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the UUID generator used for list and task ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// NewStore loads the collection from repo once and returns a Store with no
// active list.
func NewStore(ctx context.Context, repo Repository, opts ...Option) (*Store, error) {
	s := &Store{
		repo:   repo,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	lists, err := repo.LoadCollection(ctx)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	s.collection = make([]*TaskList, 0, len(lists))
	for i := range lists {
		l := lists[i].clone()
		s.collection = append(s.collection, &l)
	}
	s.logger.Info("collection_loaded", slog.Int("lists", len(s.collection)))
	return s, nil
}

// Adopt turns drafts into a new active list named after source. The list is
// a draft: neither the collection nor the repository is touched.
func (s *Store) Adopt(drafts []Draft, source string) TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &TaskList{
		ID:        s.newID(),
		Name:      DeriveName(source),
		Tasks:     make([]Task, 0, len(drafts)),
		CreatedAt: s.now(),
	}
	for _, d := range drafts {
		title := validText(d.Title)
		if title == "" {
			continue
		}
		p, _ := ParsePriority(string(d.Priority))
		l.Tasks = append(l.Tasks, Task{
			ID:       s.newID(),
			Title:    title,
			Priority: p,
			Deadline: validText(d.Deadline),
		})
	}
	s.active = l
	return l.clone()
}

// Save names the active list and commits it to the collection, replacing
// an existing entry with the same id in place or appending otherwise.
func (s *Store) Save(ctx context.Context, name string) (TaskList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return TaskList{}, ErrNoActiveList
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return TaskList{}, ErrEmptyName
	}

	s.active.Name = name
	if i := s.indexOf(s.active.ID); i >= 0 {
		s.collection[i] = s.active
	} else {
		s.collection = append(s.collection, s.active)
	}
	s.logger.Debug("list_saved", slog.String("list_id", s.active.ID), slog.String("name", name))

	if err := s.persist(ctx); err != nil {
		return TaskList{}, err
	}
	return s.active.clone(), nil
}

// Load makes the saved list with the given id active.
func (s *Store) Load(id string) (TaskList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return TaskList{}, fmt.Errorf("list %q: %w", id, ErrNotFound)
	}
	s.active = s.collection[i]
	return s.active.clone(), nil
}

func (s *Store) ToggleTask(ctx context.Context, taskID string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.activeTask(taskID)
	if err != nil {
		return Task{}, err
	}
	s.active.Tasks[i].Completed = !s.active.Tasks[i].Completed
	t := s.active.Tasks[i]

	if err := s.persistIfSaved(ctx); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (s *Store) EditTask(ctx context.Context, taskID, title string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyName
	}
	i, err := s.activeTask(taskID)
	if err != nil {
		return Task{}, err
	}
	s.active.Tasks[i].Title = title
	t := s.active.Tasks[i]

	if err := s.persistIfSaved(ctx); err != nil {
		return Task{}, err
	}
	return t, nil
}

// DeleteTask removes a task from the active list. A missing task is not an
// error.
func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return ErrNoActiveList
	}
	i := s.active.taskIndex(taskID)
	if i < 0 {
		return nil
	}
	s.active.Tasks = append(s.active.Tasks[:i], s.active.Tasks[i+1:]...)
	return s.persistIfSaved(ctx)
}

// DeleteList removes a saved list and clears the active list if it was the
// one removed.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("list %q: %w", id, ErrNotFound)
	}
	s.collection = append(s.collection[:i], s.collection[i+1:]...)
	if s.active != nil && s.active.ID == id {
		s.active = nil
	}
	s.logger.Debug("list_deleted", slog.String("list_id", id))
	return s.persist(ctx)
}

// Summaries lists the saved collection in stored order.
func (s *Store) Summaries() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.collection))
	for _, l := range s.collection {
		out = append(out, l.summary())
	}
	return out
}

// Active returns a copy of the active list.
func (s *Store) Active() (TaskList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return TaskList{}, false
	}
	return s.active.clone(), true
}

// IsDraft reports whether there is an active list that has not been saved.
func (s *Store) IsDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDraft()
}

func (s *Store) isDraft() bool {
	return s.active != nil && s.indexOf(s.active.ID) < 0
}

func (s *Store) indexOf(id string) int {
	for i, l := range s.collection {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) activeTask(taskID string) (int, error) {
	if s.active == nil {
		return -1, fmt.Errorf("task %q: %w", taskID, ErrNotFound)
	}
	i := s.active.taskIndex(taskID)
	if i < 0 {
		return -1, fmt.Errorf("task %q: %w", taskID, ErrNotFound)
	}
	return i, nil
}

func (s *Store) persistIfSaved(ctx context.Context) error {
	if s.isDraft() {
		return nil
	}
	return s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	lists := make([]TaskList, 0, len(s.collection))
	for _, l := range s.collection {
		lists = append(lists, l.clone())
	}
	if err := s.repo.SaveCollection(ctx, lists); err != nil {
		s.logger.Error("collection_save_failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// validText trims s and replaces invalid UTF-8, which encoding/json would
// otherwise rewrite on save.
func validText(s string) string {
	return strings.TrimSpace(strings.ToValidUTF8(s, "\uFFFD"))
}

// DeriveName builds a list name from the first words of source, each with
// its first letter upper-cased.
func DeriveName(source string) string {
	words := strings.Fields(strings.ToValidUTF8(source, "\uFFFD"))
	if len(words) > nameWords {
		words = words[:nameWords]
	}
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
