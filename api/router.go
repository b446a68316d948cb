package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uselens/pagelens/api/handler"
	"github.com/uselens/pagelens/api/middleware"
	"github.com/uselens/pagelens/config"
	"github.com/uselens/pagelens/pipeline"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(p *pipeline.Pipeline, st handler.ScrapeStore, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(st, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Scrape
	protected.POST("/scrape", handler.Scrape(p))

	// Scrape history (append-only: read endpoints only)
	protected.GET("/scrapes", handler.ListScrapes(st, cfg.Store.ListLimit))
	protected.GET("/scrapes/:id", handler.GetScrape(st))

	return r
}
