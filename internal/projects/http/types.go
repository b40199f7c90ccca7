package http

import (
	"time"

	"github.com/appforge/appforge-backend/internal/projects/domain"
	"github.com/appforge/appforge-backend/internal/projects/repository"
)

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	store repository.Store
	locks *repository.Locker
}

func New(store repository.Store, locks *repository.Locker) *Handler {
	if locks == nil {
		locks = repository.NewLocker()
	}
	return &Handler{store: store, locks: locks}
}

// deploymentView is the public part of a deployment; the claim token never
// leaves the server.
type deploymentView struct {
	ExternalSlug   string    `json:"externalSlug"`
	ClaimURL       string    `json:"claimUrl,omitempty"`
	SiteURL        string    `json:"siteUrl"`
	ExpiresAt      string    `json:"expiresAt,omitempty"`
	LastDeployedAt time.Time `json:"lastDeployedAt"`
}

type projectView struct {
	ID         string           `json:"id"`
	Messages   []domain.Message `json:"messages"`
	Code       string           `json:"code"`
	Deployment *deploymentView  `json:"deployment"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

func toView(p *domain.Project) projectView {
	v := projectView{
		ID:        p.ID,
		Messages:  p.Messages,
		Code:      p.Code,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if v.Messages == nil {
		v.Messages = []domain.Message{}
	}
	if d := p.Deployment; d != nil {
		v.Deployment = &deploymentView{
			ExternalSlug:   d.ExternalSlug,
			ClaimURL:       d.ClaimURL,
			SiteURL:        d.SiteURL,
			ExpiresAt:      d.ExpiresAt,
			LastDeployedAt: d.LastDeployedAt,
		}
	}
	return v
}
