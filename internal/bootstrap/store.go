package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/appforge/appforge-backend/config"
	httpapi "github.com/appforge/appforge-backend/internal/api/http"
	cronjob "github.com/appforge/appforge-backend/internal/projects/cron"
	"github.com/appforge/appforge-backend/internal/projects/repository"
)

// Store is the opened project store plus what main needs to run and close it.
type Store struct {
	Backend  string
	Projects repository.Store
	// Pinger is nil for the memory backend.
	Pinger  httpapi.Pinger
	sweeper *cronjob.Sweeper
	closers []func() error
}

// OpenStore opens the configured backend. For the memory backend with an idle
// TTL, a sweeper is started that evicts stale projects.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	s := &Store{Backend: cfg.Store.Backend}

	switch cfg.Store.Backend {
	case config.StoreRedis:
		client, err := OpenRedis(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		repo := repository.NewRedisRepository(client, cfg.Redis.TTL)
		s.Projects, s.Pinger = repo, repo
		s.closers = append(s.closers, client.Close)

	case config.StorePostgres:
		db, err := OpenDB(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		repo := repository.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		s.Projects, s.Pinger = repo, repo
		s.closers = append(s.closers, db.Close)

	default:
		repo := repository.NewMemoryRepository()
		s.Projects = repo
		if cfg.Store.IdleTTL > 0 {
			s.sweeper = cronjob.NewSweeper(repo, cfg.Store.IdleTTL, cfg.Store.SweepSchedule, log)
			if err := s.sweeper.Start(); err != nil {
				return nil, fmt.Errorf("start sweeper: %w", err)
			}
		}
	}

	log.Info().Str("backend", s.Backend).Msg("project store ready")
	return s, nil
}

// Close stops the sweeper and closes backend connections.
func (s *Store) Close() error {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
