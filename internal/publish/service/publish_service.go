package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/appforge/appforge-backend/internal/apperr"
	"github.com/appforge/appforge-backend/internal/logger"
	"github.com/appforge/appforge-backend/internal/metrics"
	"github.com/appforge/appforge-backend/internal/projects/domain"
	"github.com/appforge/appforge-backend/internal/projects/repository"
	"github.com/appforge/appforge-backend/internal/publish/hosting"
)

// Branches of a publish, used in logs and metrics
const (
	BranchCreate = "create"
	BranchUpdate = "update"
)

// Host is the part of the hosting client a publish needs
type Host interface {
	Create(ctx context.Context, files []hosting.File) (*hosting.PublishResponse, error)
	Update(ctx context.Context, slug string, files []hosting.File, claimToken string) (*hosting.PublishResponse, error)
	Upload(ctx context.Context, target hosting.UploadTarget, body []byte) error
	Finalize(ctx context.Context, slug, versionID string) error
}

// PublishRequest asks for code to be published for a project. ProjectID may be
// empty or unknown, in which case nothing is persisted.
type PublishRequest struct {
	ProjectID string `json:"projectId"`
	Code      string `json:"code"`
}

// PublishResult is what the caller gets back from a successful publish
type PublishResult struct {
	URL        string
	ClaimURL   string
	ExpiresAt  string
	DeployedAt time.Time
}

// PublishService publishes project code to the hosting provider.
type PublishService struct {
	store   repository.Store
	locks   *repository.Locker
	host    Host
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewPublishService creates a new PublishService. locks is shared with the
// generation service so both serialize their writes to a record.
func NewPublishService(store repository.Store, locks *repository.Locker, host Host, m *metrics.Metrics) *PublishService {
	if locks == nil {
		locks = repository.NewLocker()
	}
	return &PublishService{
		store:   store,
		locks:   locks,
		host:    host,
		metrics: m,
		now:     time.Now,
	}
}

// attempt carries one run of the state machine
type attempt struct {
	state   publishState
	project *domain.Project // snapshot taken at start, nil for unknown projects
	code    []byte
	files   []hosting.File
	branch  string
	slug    string
	resp    *hosting.PublishResponse
	result  *PublishResult
	err     error
	log     zerolog.Logger
}

func (a *attempt) fail(err error) publishState {
	a.err = err
	return stateFailed
}

// Publish runs CREATE or UPDATE, UPLOAD and FINALIZE in order. The record's
// deployment is only written when all three succeeded.
func (s *PublishService) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if req.Code == "" {
		return nil, apperr.Validation("No code to deploy")
	}

	project, err := s.snapshot(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	code := []byte(req.Code)
	a := &attempt{
		state:   stateIdle,
		project: project,
		code:    code,
		files:   []hosting.File{hosting.IndexFile(code)},
		log:     logger.FromContext(ctx, "publish").With().Str("project_id", req.ProjectID).Logger(),
	}

	start := s.now()
	for !a.state.terminal() {
		prev := a.state
		a.state = s.step(ctx, a)
		a.log.Debug().Str("from", prev.String()).Str("to", a.state.String()).Msg("publish transition")
	}
	elapsed := s.now().Sub(start)

	if a.state == stateFailed {
		s.metrics.RecordPublish(a.branch, metrics.OutcomeFailure, elapsed)
		a.log.Error().Err(a.err).Str("branch", a.branch).Str("slug", a.slug).Msg("publish failed")
		return nil, a.err
	}

	s.metrics.RecordPublish(a.branch, metrics.OutcomeSuccess, elapsed)
	a.log.Info().
		Str("branch", a.branch).
		Str("slug", a.slug).
		Str("site_url", a.result.URL).
		Dur("elapsed", elapsed).
		Msg("publish finished")
	return a.result, nil
}

func (s *PublishService) snapshot(ctx context.Context, id string) (*domain.Project, error) {
	if id == "" {
		return nil, nil
	}
	p, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrProjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	return p, nil
}

func (s *PublishService) step(ctx context.Context, a *attempt) publishState {
	switch a.state {
	case stateIdle:
		if a.project != nil && a.project.Published() {
			a.branch = BranchUpdate
			a.slug = a.project.Deployment.ExternalSlug
			return stateUpdating
		}
		a.branch = BranchCreate
		return stateCreating

	case stateCreating:
		resp, err := s.host.Create(ctx, a.files)
		if err != nil {
			return a.fail(err)
		}
		if resp.Slug == "" {
			return a.fail(apperr.Protocol(hosting.StepCreate, "no slug returned"))
		}
		a.resp = resp
		a.slug = resp.Slug
		return stateUploading

	case stateUpdating:
		resp, err := s.host.Update(ctx, a.slug, a.files, a.project.Deployment.ClaimToken)
		if err != nil {
			return a.fail(err)
		}
		a.resp = resp
		return stateUploading

	case stateUploading:
		target, ok := a.resp.FirstUpload()
		if !ok {
			return a.fail(apperr.Protocol(hosting.StepUpload, "no upload URL returned"))
		}
		if a.resp.Upload.VersionID == "" {
			return a.fail(apperr.Protocol(hosting.StepUpload, "no version id returned"))
		}
		if err := s.host.Upload(ctx, target, a.code); err != nil {
			return a.fail(err)
		}
		return stateFinalizing

	case stateFinalizing:
		if err := s.host.Finalize(ctx, a.slug, a.resp.Upload.VersionID); err != nil {
			return a.fail(err)
		}
		if err := s.commit(ctx, a); err != nil {
			return a.fail(err)
		}
		return stateDone
	}
	return a.fail(fmt.Errorf("publish: unexpected state %s", a.state))
}

// commit builds the result and, for known projects, writes the deployment
// under the project lock.
func (s *PublishService) commit(ctx context.Context, a *attempt) error {
	now := s.now().UTC()

	var deployment domain.Deployment
	if a.branch == BranchCreate {
		deployment = domain.Deployment{
			ExternalSlug: a.slug,
			ClaimToken:   a.resp.ClaimToken,
			ClaimURL:     a.resp.ClaimURL,
			SiteURL:      a.resp.SiteURL,
			ExpiresAt:    a.resp.ExpiresAt,
		}
	} else {
		deployment = *a.project.Deployment
		deployment.SiteURL = a.resp.SiteURL
		if deployment.SiteURL == "" {
			deployment.SiteURL = fmt.Sprintf("https://%s.here.now", a.slug)
		}
	}
	deployment.LastDeployedAt = now

	a.result = &PublishResult{
		URL:        deployment.SiteURL,
		ClaimURL:   deployment.ClaimURL,
		DeployedAt: now,
	}
	if a.branch == BranchCreate {
		a.result.ExpiresAt = a.resp.ExpiresAt
	}

	if a.project == nil {
		return nil
	}

	unlock := s.locks.Lock(a.project.ID)
	defer unlock()

	current, err := s.store.Get(ctx, a.project.ID)
	if errors.Is(err, domain.ErrProjectNotFound) {
		a.log.Warn().Msg("project deleted during publish, deployment not recorded")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload project: %w", err)
	}

	current.Deployment = &deployment
	current.UpdatedAt = now
	if err := s.store.Put(ctx, current); err != nil {
		return fmt.Errorf("save deployment: %w", err)
	}
	return nil
}
