package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a project's conversation history
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Deployment is the hosting metadata of a published project.
//
// ExternalSlug, ClaimToken and ClaimURL are assigned by the first publish and
// never replaced; republishes only move SiteURL and LastDeployedAt.
type Deployment struct {
	ExternalSlug   string    `json:"externalSlug"`
	ClaimToken     string    `json:"claimToken,omitempty"`
	ClaimURL       string    `json:"claimUrl,omitempty"`
	SiteURL        string    `json:"siteUrl"`
	ExpiresAt      string    `json:"expiresAt,omitempty"`
	LastDeployedAt time.Time `json:"lastDeployedAt"`
}

// Project is the record kept per generated site.
// It is storage-agnostic and shared by the repository, service and HTTP layers.
//
// Zero values:
//   - ID: "" (invalid, minted with NewProjectID)
//   - Messages: nil (no turns yet)
//   - Code: "" (no artifact generated yet)
//   - Deployment: nil (never published)
type Project struct {
	ID         string      `json:"id"`
	Messages   []Message   `json:"messages"`
	Code       string      `json:"code"`
	Deployment *Deployment `json:"deployment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// ProjectSummary is the listing view of a project
type ProjectSummary struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"messageCount"`
	HasCode      bool      `json:"hasCode"`
	SiteURL      string    `json:"siteUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewProjectID mints a project identifier.
func NewProjectID() string {
	return uuid.New().String()
}

// NewProject returns an empty project with a fresh id.
func NewProject(now time.Time) *Project {
	return &Project{
		ID:        NewProjectID(),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Published reports whether the project has a stable hosting slug.
func (p *Project) Published() bool {
	return p.Deployment != nil && p.Deployment.ExternalSlug != ""
}

// Clone returns a deep copy so callers can mutate a record without touching
// the stored one.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Messages = append([]Message(nil), p.Messages...)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	if p.Deployment != nil {
		d := *p.Deployment
		out.Deployment = &d
	}
	return &out
}

// Summary builds the listing view.
func (p *Project) Summary() ProjectSummary {
	s := ProjectSummary{
		ID:           p.ID,
		MessageCount: len(p.Messages),
		HasCode:      p.Code != "",
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.Deployment != nil {
		s.SiteURL = p.Deployment.SiteURL
	}
	return s
}
