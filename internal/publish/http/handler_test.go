package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/appforge-backend/internal/projects/domain"
	"github.com/appforge/appforge-backend/internal/projects/repository"
	"github.com/appforge/appforge-backend/internal/publish/hosting"
	"github.com/appforge/appforge-backend/internal/publish/service"
)

// hereNow is a minimal stand-in for the hosting API.
type hereNow struct {
	mu        sync.Mutex
	server    *httptest.Server
	versions  int
	creates   []map[string]any
	updates   []map[string]any
	uploads   map[string]string
	finalized []string
	failStep  string
}

func newHereNow(t *testing.T) *hereNow {
	h := &hereNow{uploads: map[string]string{}}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/publish", func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		h.creates = append(h.creates, body)
		if h.failStep == "create" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		h.versions++
		json.NewEncoder(w).Encode(h.publishResponse("quiet-river", true))
	})
	mux.HandleFunc("PUT /api/v1/publish/{slug}", func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["slug"] = r.PathValue("slug")
		h.updates = append(h.updates, body)
		h.versions++
		json.NewEncoder(w).Encode(h.publishResponse(r.PathValue("slug"), false))
	})
	mux.HandleFunc("PUT /uploads/{version}", func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.failStep == "upload" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		b, _ := io.ReadAll(r.Body)
		h.uploads[r.PathValue("version")] = string(b)
	})
	mux.HandleFunc("POST /api/v1/publish/{slug}/finalize", func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.failStep == "finalize" {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"version not uploaded"}`))
			return
		}
		var body struct {
			VersionID string `json:"versionId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		h.finalized = append(h.finalized, body.VersionID)
		w.Write([]byte(`{"success":true}`))
	})

	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)
	return h
}

func (h *hereNow) publishResponse(slug string, withClaim bool) map[string]any {
	version := "v" + string(rune('0'+h.versions))
	resp := map[string]any{
		"siteUrl": "https://" + slug + ".here.now/",
		"upload": map[string]any{
			"versionId": version,
			"uploads": []map[string]any{{
				"url":     h.server.URL + "/uploads/" + version,
				"method":  "PUT",
				"headers": map[string]string{"Content-Type": hosting.HTMLContentType},
			}},
		},
	}
	if withClaim {
		resp["slug"] = slug
		resp["claimToken"] = "claim-secret"
		resp["claimUrl"] = "https://here.now/claim?token=claim-secret"
		resp["expiresAt"] = "2026-03-02T12:00:00.000Z"
	}
	return resp
}

func setup(t *testing.T) (*gin.Engine, *hereNow, *repository.MemoryRepository) {
	gin.SetMode(gin.TestMode)
	host := newHereNow(t)
	store := repository.NewMemoryRepository()
	client := hosting.NewClient(hosting.Config{BaseURL: host.server.URL + "/api/v1", Timeout: 5 * time.Second}, nil)
	svc := service.NewPublishService(store, repository.NewLocker(), client, nil)

	r := gin.New()
	New(svc).Register(r.Group("/api"))
	return r, host, store
}

func deploy(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/deploy", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestDeploy_FirstThenRepublish(t *testing.T) {
	r, host, store := setup(t)
	p := domain.NewProject(time.Now())
	require.NoError(t, store.Put(context.Background(), p))

	code := "<html>...</html>"
	w := deploy(r, `{"projectId":"`+p.ID+`","code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var first map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, true, first["success"])
	assert.Equal(t, "https://quiet-river.here.now/", first["url"])
	assert.Equal(t, "https://here.now/claim?token=claim-secret", first["claimUrl"])
	assert.Equal(t, "2026-03-02T12:00:00.000Z", first["expiresAt"])
	_, err := time.Parse(time.RFC3339Nano, first["deployedAt"].(string))
	assert.NoError(t, err)

	require.Len(t, host.creates, 1)
	files := host.creates[0]["files"].([]any)
	require.Len(t, files, 1)
	file := files[0].(map[string]any)
	assert.Equal(t, "index.html", file["path"])
	assert.Equal(t, float64(len(code)), file["size"])
	assert.Equal(t, code, host.uploads["v1"])
	assert.Equal(t, []string{"v1"}, host.finalized)

	saved, err := store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.Deployment)
	assert.Equal(t, "quiet-river", saved.Deployment.ExternalSlug)
	assert.Equal(t, "claim-secret", saved.Deployment.ClaimToken)
	assert.Equal(t, "https://here.now/claim?token=claim-secret", saved.Deployment.ClaimURL)
	assert.Equal(t, "https://quiet-river.here.now/", saved.Deployment.SiteURL)
	assert.False(t, saved.Deployment.LastDeployedAt.IsZero())

	w = deploy(r, `{"projectId":"`+p.ID+`","code":"<html>v2</html>"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Len(t, host.creates, 1)
	require.Len(t, host.updates, 1)
	assert.Equal(t, "quiet-river", host.updates[0]["slug"])
	assert.Equal(t, "claim-secret", host.updates[0]["claimToken"])
	assert.Equal(t, "<html>v2</html>", host.uploads["v2"])
	assert.Equal(t, []string{"v1", "v2"}, host.finalized)

	var second map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, "https://here.now/claim?token=claim-secret", second["claimUrl"])
	assert.Nil(t, second["expiresAt"])

	after, err := store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Deployment.ExternalSlug, after.Deployment.ExternalSlug)
	assert.Equal(t, saved.Deployment.ClaimToken, after.Deployment.ClaimToken)
	assert.Equal(t, saved.Deployment.ClaimURL, after.Deployment.ClaimURL)
}

func TestDeploy_Errors(t *testing.T) {
	t.Run("no code", func(t *testing.T) {
		r, host, _ := setup(t)
		w := deploy(r, `{"projectId":"p1","code":""}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"No code to deploy"}`, w.Body.String())
		assert.Empty(t, host.creates)
	})

	t.Run("upload rejected", func(t *testing.T) {
		r, host, store := setup(t)
		host.failStep = "upload"
		p := domain.NewProject(time.Now())
		require.NoError(t, store.Put(context.Background(), p))

		w := deploy(r, `{"projectId":"`+p.ID+`","code":"<html></html>"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Deployment failed. Please try again."}`, w.Body.String())
		assert.NotContains(t, w.Body.String(), "403")
		assert.Empty(t, host.finalized)

		saved, err := store.Get(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Nil(t, saved.Deployment)
	})

	t.Run("finalize rejected", func(t *testing.T) {
		r, host, store := setup(t)
		host.failStep = "finalize"
		p := domain.NewProject(time.Now())
		require.NoError(t, store.Put(context.Background(), p))

		w := deploy(r, `{"projectId":"`+p.ID+`","code":"<html></html>"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		saved, err := store.Get(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Nil(t, saved.Deployment)
	})
}
