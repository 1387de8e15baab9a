package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/recipelens/internal/config"
	"github.com/vbonduro/recipelens/internal/db"
	"github.com/vbonduro/recipelens/internal/logging"
	"github.com/vbonduro/recipelens/internal/session"
	"github.com/vbonduro/recipelens/internal/store"
	"github.com/vbonduro/recipelens/internal/vision"
	claudevision "github.com/vbonduro/recipelens/internal/vision/claude"
	geminivision "github.com/vbonduro/recipelens/internal/vision/gemini"
	ollamavision "github.com/vbonduro/recipelens/internal/vision/ollama"
	"github.com/vbonduro/recipelens/internal/web"
	"github.com/vbonduro/recipelens/internal/web/templates"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	journal := store.NewAnalysisStore(database)
	analyzer := vision.NewAnalyzer(newBackend(cfg, logger), logger)
	manager := session.NewManager(analyzer, session.Config{
		MaxImageBytes: cfg.MaxUploadBytes,
		Recorder:      journal,
		Logger:        logger,
	}, cfg.SessionTTL)
	server := web.NewServer(manager, journal, templates.FS, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// newBackend selects the vision backend. A missing credential is reported
// now and again on every analysis, without any network call.
func newBackend(cfg *config.Config, logger *slog.Logger) vision.Backend {
	switch cfg.VisionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
			return vision.Unconfigured("claude", "CLAUDE_API_KEY")
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeBackend(cfg.ClaudeAPIKey, cfg.ClaudeModel, "")
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaBackend(cfg.OllamaHost, cfg.OllamaModel)
	default:
		if cfg.VisionBackend != "gemini" {
			logger.Warn("unknown VISION_BACKEND, using gemini", "value", cfg.VisionBackend)
		}
		if cfg.GeminiAPIKey == "" {
			logger.Error("GEMINI_API_KEY is required when VISION_BACKEND=gemini")
			return vision.Unconfigured("gemini", "GEMINI_API_KEY")
		}
		logger.Info("using Gemini vision backend", "model", cfg.GeminiModel)
		return geminivision.NewGeminiBackend(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	}
}
