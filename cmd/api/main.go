package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dentalchat/intake-agent/internal/api/router"
	appconfig "github.com/dentalchat/intake-agent/internal/config"
	"github.com/dentalchat/intake-agent/internal/dentalchat"
	"github.com/dentalchat/intake-agent/internal/intake"
	"github.com/dentalchat/intake-agent/internal/observability/metrics"
	"github.com/dentalchat/intake-agent/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting intake-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	intakeMetrics := metrics.NewIntakeMetrics(nil)

	chatLLM, extractionLLM := buildLLMClients(cfg, logger, intakeMetrics)
	if extractionLLM == nil {
		logger.Error("no LLM backend configured, set OPENAI_API_KEY or GEMINI_API_KEY")
		os.Exit(1)
	}

	registry := intake.NewRegistry(logger)
	extractor := intake.NewExtractor(extractionLLM, logger, cfg.PainEmergencyThreshold, intakeMetrics.ExtractionFailure)
	questions := intake.NewQuestionGenerator(chatLLM, logger)
	postClient := dentalchat.New(cfg, logger)

	serviceOpts := []intake.ServiceOption{
		intake.WithMaxTurns(cfg.MaxConversationTurns),
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		serviceOpts = append(serviceOpts, intake.WithTurnStore(intake.NewTurnStore(redisClient)))
		logger.Info("transcript persistence enabled", "addr", cfg.RedisAddr)
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		archive := intake.NewArchiveStore(db)
		if err := archive.EnsureSchema(context.Background()); err != nil {
			logger.Error("failed to ensure archive schema", "error", err)
			os.Exit(1)
		}
		serviceOpts = append(serviceOpts, intake.WithArchive(archive))
		logger.Info("completed-intake archive enabled")
	}

	service := intake.NewService(registry, extractor, questions, chatLLM, postClient, intakeMetrics, logger, serviceOpts...)

	queue := intake.NewMemoryQueue(256)
	dispatcher := intake.NewOrchestrator(service, queue, logger,
		intake.WithWorkerCount(cfg.WorkerCount),
	)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runSessionSweeper(sweepCtx, registry, cfg.SessionMaxAge, logger)

	intakeHandler := intake.NewHandler(dispatcher, logger)
	r := router.New(&router.Config{
		Logger:         logger,
		IntakeHandler:  intakeHandler,
		MetricsHandler: promhttp.Handler(),
		EnableDebug:    cfg.Env != "production",
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// buildLLMClients wires the conversational and extraction backends: OpenAI
// as primary with Gemini as fallback when both keys are configured.
func buildLLMClients(cfg *appconfig.Config, logger *logging.Logger, m *metrics.IntakeMetrics) (chat, extraction intake.LLMClient) {
	var primary, fallback intake.LLMClient

	if cfg.OpenAIAPIKey != "" {
		client, err := intake.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			logger.Error("failed to build OpenAI client", "error", err)
		} else {
			primary = client
			logger.Info("OpenAI backend configured", "model", cfg.OpenAIModel)
		}
	}

	if cfg.GeminiAPIKey != "" {
		client, err := intake.NewGeminiLLMClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to build Gemini client", "error", err)
		} else if primary == nil {
			primary = client
			logger.Info("Gemini backend configured as primary", "model", cfg.GeminiModel)
		} else {
			fallback = client
			logger.Info("Gemini backend configured as fallback", "model", cfg.GeminiModel)
		}
	}

	if primary == nil {
		return nil, nil
	}
	if fallback == nil {
		return primary, primary
	}

	combined := intake.NewFallbackLLMClient(primary, fallback, logger, m.LLMFallback)
	return combined, combined
}

// runSessionSweeper periodically drops sessions idle past maxAge.
func runSessionSweeper(ctx context.Context, registry *intake.Registry, maxAge time.Duration, logger *logging.Logger) {
	if maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := registry.CleanupExpired(maxAge); removed > 0 {
				logger.Info("session sweep complete", "removed", removed)
			}
		}
	}
}
