// Package hosting is the client of the here.now static hosting API.
//
// A publish is three round trips: CREATE (or UPDATE for a known slug) declares
// the files and returns one-time upload instructions, the bytes are sent to
// the upload URL, and FINALIZE activates the uploaded version.
package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/appforge/appforge-backend/internal/apperr"
	"github.com/appforge/appforge-backend/internal/metrics"
)

const (
	DefaultBaseURL = "https://here.now/api/v1"

	IndexPath       = "index.html"
	HTMLContentType = "text/html; charset=utf-8"
)

// Steps, used in errors and metrics
const (
	StepCreate   = "create"
	StepUpdate   = "update"
	StepUpload   = "upload"
	StepFinalize = "finalize"
)

// File declares one file of a publish
type File struct {
	Path        string `json:"path"`
	Size        int    `json:"size"`
	ContentType string `json:"contentType"`
}

// IndexFile declares code as the site's index.html.
func IndexFile(code []byte) File {
	return File{Path: IndexPath, Size: len(code), ContentType: HTMLContentType}
}

// UploadTarget is a one-time upload instruction
type UploadTarget struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

// UploadPlan is the upload section of a CREATE or UPDATE response
type UploadPlan struct {
	VersionID string         `json:"versionId"`
	Uploads   []UploadTarget `json:"uploads"`
}

// PublishResponse is returned by CREATE and UPDATE. UPDATE leaves the claim
// fields empty.
type PublishResponse struct {
	Slug       string     `json:"slug"`
	SiteURL    string     `json:"siteUrl"`
	ClaimToken string     `json:"claimToken"`
	ClaimURL   string     `json:"claimUrl"`
	ExpiresAt  string     `json:"expiresAt"`
	Upload     UploadPlan `json:"upload"`
}

// FirstUpload returns the first upload instruction, if any.
func (r *PublishResponse) FirstUpload() (UploadTarget, bool) {
	if len(r.Upload.Uploads) == 0 || r.Upload.Uploads[0].URL == "" {
		return UploadTarget{}, false
	}
	return r.Upload.Uploads[0], true
}

type publishRequest struct {
	Files      []File `json:"files"`
	ClaimToken string `json:"claimToken,omitempty"`
}

type finalizeRequest struct {
	VersionID string `json:"versionId"`
}

// Config configures Client
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Client talks to the hosting API. All calls share one token bucket.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

// NewClient creates a new hosting client
func NewClient(cfg Config, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		metrics:    m,
	}
}

// Create requests a new anonymous site for files.
func (c *Client) Create(ctx context.Context, files []File) (*PublishResponse, error) {
	var out PublishResponse
	url := fmt.Sprintf("%s/publish", c.baseURL)
	if err := c.doJSON(ctx, StepCreate, http.MethodPost, url, publishRequest{Files: files}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update requests a new version of an existing site. claimToken is sent only
// when non-empty.
func (c *Client) Update(ctx context.Context, slug string, files []File, claimToken string) (*PublishResponse, error) {
	var out PublishResponse
	url := fmt.Sprintf("%s/publish/%s", c.baseURL, slug)
	body := publishRequest{Files: files, ClaimToken: claimToken}
	if err := c.doJSON(ctx, StepUpdate, http.MethodPut, url, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload sends body to a one-time upload URL. Method defaults to PUT and
// headers to the html content type.
func (c *Client) Upload(ctx context.Context, target UploadTarget, body []byte) error {
	if target.URL == "" {
		return apperr.Protocol(StepUpload, "no upload URL returned")
	}
	method := target.Method
	if method == "" {
		method = http.MethodPut
	}
	headers := target.Headers
	if len(headers) == 0 {
		headers = map[string]string{"Content-Type": HTMLContentType}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return apperr.Provider(StepUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.URL, bytes.NewReader(body))
	if err != nil {
		return apperr.Protocol(StepUpload, fmt.Sprintf("invalid upload instruction: %v", err))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.ContentLength = int64(len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordHostingCall(StepUpload, "error")
		return apperr.Provider(StepUpload, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordHostingCall(StepUpload, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.Provider(StepUpload, fmt.Errorf("status %d: %s", resp.StatusCode, string(b)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Finalize activates an uploaded version.
func (c *Client) Finalize(ctx context.Context, slug, versionID string) error {
	if versionID == "" {
		return apperr.Protocol(StepFinalize, "no version id returned")
	}
	url := fmt.Sprintf("%s/publish/%s/finalize", c.baseURL, slug)
	return c.doJSON(ctx, StepFinalize, http.MethodPost, url, finalizeRequest{VersionID: versionID}, nil)
}

// maxResponseBytes caps how much of a publish API response is read.
const maxResponseBytes = 1 << 20

func (c *Client) doJSON(ctx context.Context, step, method, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return apperr.Provider(step, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordHostingCall(step, "error")
		return apperr.Provider(step, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordHostingCall(step, strconv.Itoa(resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperr.Provider(step, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Provider(step, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 512)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Protocol(step, fmt.Sprintf("malformed response: %v", err))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
