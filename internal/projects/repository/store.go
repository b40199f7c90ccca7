package repository

import (
	"context"
	"sync"

	"github.com/appforge/appforge-backend/internal/projects/domain"
)

// Store is the key-value contract the orchestrators depend on.
// Put replaces the whole record, last write wins per id.
type Store interface {
	Get(ctx context.Context, id string) (*domain.Project, error)
	Put(ctx context.Context, project *domain.Project) error
	List(ctx context.Context) ([]domain.ProjectSummary, error)
	Delete(ctx context.Context, id string) error
}

// Locker hands out one mutex per project id so read-modify-write cycles on a
// record do not interleave. Different ids never contend.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocker creates an empty Locker
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry)}
}

// Lock blocks until the id is free and returns the matching unlock func.
func (l *Locker) Lock(id string) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of ids currently locked or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
