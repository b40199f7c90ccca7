package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/appforge/appforge-backend/internal/projects/domain"
)

// MemoryRepository keeps projects in process memory. Records are cloned on the
// way in and out so callers never share state with the map.
type MemoryRepository struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
}

// NewMemoryRepository creates an empty MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{projects: make(map[string]*domain.Project)}
}

// Get returns a copy of the project or domain.ErrProjectNotFound
func (r *MemoryRepository) Get(_ context.Context, id string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p.Clone(), nil
}

// Put stores a copy of the project
func (r *MemoryRepository) Put(_ context.Context, project *domain.Project) error {
	if project == nil || project.ID == "" {
		return domain.ErrInvalidProject
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.projects[project.ID] = project.Clone()
	return nil
}

// List returns summaries ordered by most recent update first
func (r *MemoryRepository) List(_ context.Context) ([]domain.ProjectSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ProjectSummary, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Delete removes a project
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[id]; !ok {
		return domain.ErrProjectNotFound
	}
	delete(r.projects, id)
	return nil
}

// EvictIdle drops projects not updated since cutoff and returns how many went.
func (r *MemoryRepository) EvictIdle(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, p := range r.projects {
		if p.UpdatedAt.Before(cutoff) {
			delete(r.projects, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored projects
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}
