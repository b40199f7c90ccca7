package cronjob

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Evictor is implemented by stores that keep records in process memory.
type Evictor interface {
	EvictIdle(cutoff time.Time) int
}

// Sweeper periodically drops projects that have been idle longer than ttl.
type Sweeper struct {
	store    Evictor
	ttl      time.Duration
	schedule string
	log      zerolog.Logger
	now      func() time.Time
	cron     *cron.Cron
}

// NewSweeper creates a Sweeper; schedule uses the six-field cron syntax.
func NewSweeper(store Evictor, ttl time.Duration, schedule string, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		schedule: schedule,
		log:      log.With().Str("component", "sweeper").Logger(),
		now:      time.Now,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	c := cron.New(cron.WithSeconds())

	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce() }); err != nil {
		return err
	}

	s.cron = c
	c.Start()
	s.log.Info().Str("schedule", s.schedule).Dur("idle_ttl", s.ttl).Msg("project sweeper started")
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce evicts idle projects and returns how many were removed.
func (s *Sweeper) RunOnce() int {
	n := s.store.EvictIdle(s.now().Add(-s.ttl))
	if n > 0 {
		s.log.Info().Int("evicted", n).Msg("evicted idle projects")
	}
	return n
}
