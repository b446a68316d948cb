package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/genai"

	"github.com/uselens/pagelens/analyzer"
	"github.com/uselens/pagelens/api"
	"github.com/uselens/pagelens/config"
	"github.com/uselens/pagelens/extractor"
	"github.com/uselens/pagelens/fetcher"
	"github.com/uselens/pagelens/pipeline"
	"github.com/uselens/pagelens/store"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pagelens starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"db", cfg.Store.Path,
	)

	// ── 3. Open the scrape history store ────────────────────────────
	st := store.New(cfg.Store.Path)
	if err := st.Open(); err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// ── 4. Initialise analyzer (optional) ───────────────────────────
	// Without a key, nerd-mode requests still succeed; analysis degrades
	// to the fixed placeholder.
	var annotator pipeline.Annotator
	if cfg.Analyzer.APIKey != "" {
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  cfg.Analyzer.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			slog.Error("failed to initialise gemini client", "error", err)
			os.Exit(1)
		}
		annotator = analyzer.NewGemini(client, cfg.Analyzer.Model)
		slog.Info("AI analysis enabled", "model", cfg.Analyzer.Model)
	} else {
		slog.Warn("GEMINI_API_KEY not set, AI analysis disabled")
	}

	// ── 5. Assemble the pipeline ────────────────────────────────────
	p := pipeline.New(
		fetcher.New(cfg.Fetcher),
		extractor.New(),
		annotator,
		st,
		pipeline.Options{Budget: cfg.Pipeline.Budget},
	)

	// ── 6. Setup router and HTTP server ─────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(p, st, cfg, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("pagelens stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
