package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/appforge/appforge-backend/internal/apperr"
	"github.com/appforge/appforge-backend/internal/generation/llm"
	"github.com/appforge/appforge-backend/internal/generation/splitter"
	"github.com/appforge/appforge-backend/internal/logger"
	"github.com/appforge/appforge-backend/internal/metrics"
	"github.com/appforge/appforge-backend/internal/projects/domain"
	"github.com/appforge/appforge-backend/internal/projects/repository"
)

// GenerateRequest is one user turn
type GenerateRequest struct {
	ProjectID   string `json:"projectId"`
	Message     string `json:"message"`
	CurrentCode string `json:"currentCode"`
}

// GenerationService runs generation turns against the model provider and keeps
// the project record in step with them.
type GenerationService struct {
	store    repository.Store
	locks    *repository.Locker
	provider llm.Provider
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewGenerationService creates a new GenerationService. locks is shared with
// every other writer of project records.
func NewGenerationService(store repository.Store, locks *repository.Locker, provider llm.Provider, m *metrics.Metrics) *GenerationService {
	if locks == nil {
		locks = repository.NewLocker()
	}
	return &GenerationService{
		store:    store,
		locks:    locks,
		provider: provider,
		metrics:  m,
		now:      time.Now,
	}
}

// Preflight rejects a request that cannot start: an empty message or a
// provider without credentials. It has no side effects.
func (s *GenerationService) Preflight(req GenerateRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return apperr.Validation("Message is required")
	}
	return s.provider.Ready()
}

// Generate runs one turn and reports it through emit.
//
// Errors returned before the first emit are request-level failures. Once
// streaming has begun, provider failures are absorbed into an apology text
// event and Generate returns nil; only a failing emit (the caller went away)
// is returned.
func (s *GenerationService) Generate(ctx context.Context, req GenerateRequest, emit EmitFunc) error {
	log := logger.FromContext(ctx, "generate")

	if err := s.Preflight(req); err != nil {
		return err
	}

	project, isNew, err := s.resolve(ctx, req.ProjectID)
	if err != nil {
		return err
	}

	userContent := userTurn(req.Message, req.CurrentCode)
	history := make([]llm.ChatMessage, 0, len(project.Messages)+1)
	for _, m := range project.Messages {
		history = append(history, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	history = append(history, llm.ChatMessage{Role: string(domain.RoleUser), Content: userContent})

	done := s.metrics.GenerationStarted()
	defer done()

	if isNew {
		if err := emit(Event{Type: EventProjectID, ID: project.ID}); err != nil {
			return err
		}
	}

	log.Info().
		Str("project_id", project.ID).
		Str("provider", s.provider.Name()).
		Int("history", len(history)).
		Bool("new_project", isNew).
		Msg("generation started")

	var buf strings.Builder
	var emitErr error
	streamErr := s.provider.Stream(ctx, llm.StreamRequest{System: SystemPrompt, Messages: history}, func(token string) error {
		buf.WriteString(token)
		s.metrics.TokenRelayed()
		if err := emit(Event{Type: EventText, Content: token}); err != nil {
			emitErr = err
			return err
		}
		return nil
	})

	if emitErr != nil {
		s.metrics.RecordGeneration(metrics.OutcomeProviderError)
		log.Warn().Err(emitErr).Str("project_id", project.ID).Msg("client went away, turn discarded")
		return emitErr
	}
	if streamErr != nil {
		s.metrics.RecordGeneration(metrics.OutcomeProviderError)
		log.Error().Err(streamErr).Str("project_id", project.ID).Int("bytes", buf.Len()).Msg("provider stream failed")
		return s.apologize(emit)
	}

	raw := buf.String()
	code, found := splitter.Extract(raw)

	if err := s.commit(ctx, project, userContent, raw, code, found); err != nil {
		s.metrics.RecordGeneration(metrics.OutcomeProviderError)
		log.Error().Err(err).Str("project_id", project.ID).Msg("failed to save project")
		return s.apologize(emit)
	}

	if found {
		s.metrics.RecordGeneration(metrics.OutcomeArtifact)
		if err := emit(Event{Type: EventCode, Content: code}); err != nil {
			return err
		}
	} else {
		s.metrics.RecordGeneration(metrics.OutcomeNoArtifact)
	}

	log.Info().
		Str("project_id", project.ID).
		Bool("artifact", found).
		Int("bytes", len(raw)).
		Msg("generation finished")

	return emit(Event{Type: EventDone})
}

func (s *GenerationService) apologize(emit EmitFunc) error {
	if err := emit(Event{Type: EventText, Content: ErrorApology}); err != nil {
		return err
	}
	return emit(Event{Type: EventDone})
}

// resolve loads the project, or starts a new one when the id is absent or
// unknown. A new project is not stored until its first turn commits.
func (s *GenerationService) resolve(ctx context.Context, id string) (*domain.Project, bool, error) {
	if id != "" {
		p, err := s.store.Get(ctx, id)
		switch {
		case err == nil:
			return p, false, nil
		case !errors.Is(err, domain.ErrProjectNotFound):
			return nil, false, err
		}
	}
	return domain.NewProject(s.now()), true, nil
}

// commit appends the turn to the record under the project lock. The record is
// re-read inside the lock so a publish that finished meanwhile is kept.
func (s *GenerationService) commit(ctx context.Context, base *domain.Project, userContent, raw, code string, found bool) error {
	unlock := s.locks.Lock(base.ID)
	defer unlock()

	current, err := s.store.Get(ctx, base.ID)
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		current = base.Clone()
	case err != nil:
		return err
	}

	current.Messages = append(current.Messages,
		domain.Message{Role: domain.RoleUser, Content: userContent},
		domain.Message{Role: domain.RoleAssistant, Content: raw},
	)
	if found {
		current.Code = code
	}
	current.UpdatedAt = s.now()

	return s.store.Put(ctx, current)
}
