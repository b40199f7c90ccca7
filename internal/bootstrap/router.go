package bootstrap

import (
	"github.com/gin-gonic/gin"

	"github.com/appforge/appforge-backend/config"
	httpapi "github.com/appforge/appforge-backend/internal/api/http"
	"github.com/appforge/appforge-backend/internal/api/http/middleware"
	genhttp "github.com/appforge/appforge-backend/internal/generation/http"
	"github.com/appforge/appforge-backend/internal/generation/llm"
	gensvc "github.com/appforge/appforge-backend/internal/generation/service"
	"github.com/appforge/appforge-backend/internal/metrics"
	projhttp "github.com/appforge/appforge-backend/internal/projects/http"
	"github.com/appforge/appforge-backend/internal/projects/repository"
	"github.com/appforge/appforge-backend/internal/publish/hosting"
	pubhttp "github.com/appforge/appforge-backend/internal/publish/http"
	pubsvc "github.com/appforge/appforge-backend/internal/publish/service"
)

type RouterDeps struct {
	ServiceName string
	Config      *config.Config
	Store       *Store
	Metrics     *metrics.Metrics
	// Provider overrides the configured model provider, for tests.
	Provider llm.Provider
	// Host overrides the hosting client, for tests.
	Host pubsvc.Host
}

// NewProvider builds the configured model provider.
func NewProvider(cfg *config.LLMConfig) llm.Provider {
	if cfg.Provider == config.ProviderOllama {
		return llm.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel)
	}
	return llm.NewAnthropicProvider(llm.AnthropicConfig{
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.Model,
		MaxTokens: int64(cfg.MaxTokens),
	})
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	cfg := dep.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, cfg.App.Version, dep.Store.Backend, dep.Store.Pinger)
	healthHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(dep.Metrics.Handler()))

	provider := dep.Provider
	if provider == nil {
		provider = NewProvider(&cfg.LLM)
	}
	host := dep.Host
	if host == nil {
		host = hosting.NewClient(hosting.Config{
			BaseURL:       cfg.Hosting.BaseURL,
			Timeout:       cfg.Hosting.Timeout,
			RatePerSecond: cfg.Hosting.RatePerSecond,
			Burst:         cfg.Hosting.Burst,
		}, dep.Metrics)
	}

	// one lock table for every writer of project records
	locks := repository.NewLocker()

	generation := gensvc.NewGenerationService(dep.Store.Projects, locks, provider, dep.Metrics)
	publish := pubsvc.NewPublishService(dep.Store.Projects, locks, host, dep.Metrics)

	api := r.Group("/api")
	genhttp.New(generation).Register(api)
	pubhttp.New(publish).Register(api)
	projhttp.New(dep.Store.Projects, locks).Register(api.Group("/projects"))

	return r
}
