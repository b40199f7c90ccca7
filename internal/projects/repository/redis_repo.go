package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/appforge/appforge-backend/internal/projects/domain"
	"github.com/redis/go-redis/v9"
)

const (
	projectKeyPrefix = "appforge:project:" // Project record: appforge:project:{id}
	projectIndexKey  = "appforge:projects" // Set of all project ids
)

// RedisRepository stores each project as one JSON document
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration // 0 keeps records forever
}

// NewRedisRepository creates a new RedisRepository
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

// Get retrieves a project by its ID
func (r *RedisRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	data, err := r.client.Get(ctx, r.projectKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project data: %w", err)
	}
	if p.Messages == nil {
		p.Messages = []domain.Message{}
	}
	return &p, nil
}

// Put replaces the stored record in one MULTI/EXEC
func (r *RedisRepository) Put(ctx context.Context, project *domain.Project) error {
	if project == nil || project.ID == "" {
		return domain.ErrInvalidProject
	}

	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to marshal project data: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.projectKey(project.ID), data, r.ttl)
	pipe.SAdd(ctx, projectIndexKey, project.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// List returns summaries for every indexed project. Ids whose record expired
// are pruned from the index on the way.
func (r *RedisRepository) List(ctx context.Context) ([]domain.ProjectSummary, error) {
	ids, err := r.client.SMembers(ctx, projectIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if len(ids) == 0 {
		return []domain.ProjectSummary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.projectKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	out := make([]domain.ProjectSummary, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var p domain.Project
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal project data: %w", err)
		}
		out = append(out, p.Summary())
	}

	if len(stale) > 0 {
		r.client.SRem(ctx, projectIndexKey, stale...)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Delete deletes a project
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, r.projectKey(id))
	pipe.SRem(ctx, projectIndexKey, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if del.Val() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// Ping checks the connection, used by the health endpoint
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) projectKey(id string) string {
	return fmt.Sprintf("%s%s", projectKeyPrefix, id)
}
