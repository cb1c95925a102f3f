package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/agent"
	"github.com/searchlab/examgen-backend/internal/config"
	"github.com/searchlab/examgen-backend/internal/database"
	"github.com/searchlab/examgen-backend/internal/gate"
	"github.com/searchlab/examgen-backend/internal/handler"
	"github.com/searchlab/examgen-backend/internal/ingest"
	"github.com/searchlab/examgen-backend/internal/llm"
	"github.com/searchlab/examgen-backend/internal/logger"
	"github.com/searchlab/examgen-backend/internal/pipeline"
	"github.com/searchlab/examgen-backend/internal/registry"
	"github.com/searchlab/examgen-backend/internal/router"
	"github.com/searchlab/examgen-backend/internal/service"
	"github.com/searchlab/examgen-backend/internal/validator"
	"github.com/searchlab/examgen-backend/internal/vectorstore"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamGen Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── LLM and Semantic Store ────────────────────────────────────────
	llmClient := llm.New(cfg, log)
	store := vectorstore.New(rdb, llmClient, cfg, log)

	// ─── Agents ────────────────────────────────────────────────────────
	contexts := agent.NewContextBuilder(store, cfg)
	queryGen := agent.NewQueryGenerator(llmClient, log)
	questionGen := agent.NewQuestionGenerator(llmClient, contexts, log)
	mathSolver := agent.NewMathSolver(llmClient, log)
	generalSolver := agent.NewGeneralSolver(llmClient, log)
	compiler := agent.NewCompiler(llmClient, log)
	specGen := agent.NewSpecGenerator(llmClient, log)

	// ─── Ingestion ─────────────────────────────────────────────────────
	searcher := ingest.NewSearcher(cfg, log)
	crawler := ingest.NewCrawler(cfg, log)
	processor := ingest.NewProcessor(cfg, log)
	ingestor := ingest.NewService(queryGen, searcher, crawler, processor, store, cfg, log)

	// ─── Generation Pipeline and Service ───────────────────────────────
	pipe := pipeline.New(questionGen, mathSolver, generalSolver, compiler, cfg, log)
	examService := service.NewExamService(gate.New(), registry.New(), ingestor, specGen, pipe, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam: handler.NewExamHandler(examService, cfg, log),
		WS:   handler.NewWSHandler(examService, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// Stop accepting new HTTP requests; in-flight SSE streams get a short
	// window to finish. A running generation job is lost on shutdown since
	// the registry is memory-only.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
