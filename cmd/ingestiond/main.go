package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"ingestpipe/internal/config"
	"ingestpipe/internal/embedclient"
	"ingestpipe/internal/httpapi"
	"ingestpipe/internal/jobmanager"
	"ingestpipe/internal/llmclient"
	"ingestpipe/internal/observability"
	"ingestpipe/internal/orchestrator"
	"ingestpipe/internal/parser"
	"ingestpipe/internal/store"
	"ingestpipe/internal/summarize"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("ingestiond")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.Obs.LogPath, cfg.Obs.LogLevel)

	baseCtx := context.Background()

	if cfg.Obs.OTLPEndpoint != "" {
		shutdown, err := observability.InitOTel(baseCtx, cfg.Obs)
		if err != nil {
			log.Warn().Err(err).Msg("otel init failed, continuing without observability")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Connect(ctx, cfg.Mongo)
	if err != nil {
		return fmt.Errorf("connect storage gateway: %w", err)
	}
	defer func() {
		if cerr := st.Close(context.Background()); cerr != nil {
			log.Error().Err(cerr).Msg("error closing mongo client")
		}
	}()

	embedder := embedclient.New(cfg.Embedding)
	llm := llmclient.New(cfg.LLM)
	summarizer := summarize.New(llm, cfg.LLM.SmallModel)
	docParser := parser.New(cfg.Parser)
	jobs := jobmanager.New(st)

	pool := orchestrator.New(ctx, cfg, st, jobs, docParser, embedder, llm, summarizer)

	server := httpapi.NewServer(pool, jobs, st)
	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error during http server shutdown")
		}
	}()

	log.Info().Str("addr", cfg.HTTP.Addr).Int("workers", cfg.Orchestrator.Workers).Msg("starting ingestiond")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	log.Info().Msg("ingestiond stopped")
	return nil
}
