package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Noesis/internal/adapters/http"
	wssignal "github.com/dkeye/Noesis/internal/adapters/signal"
	"github.com/dkeye/Noesis/internal/app"
	"github.com/dkeye/Noesis/internal/assist"
	"github.com/dkeye/Noesis/internal/config"
	"github.com/dkeye/Noesis/internal/metrics"
	"github.com/dkeye/Noesis/internal/stt"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console logger first so config.Load can report what it found.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Log)

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogger(lc config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if lc.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()

	factory, err := stt.NewFactory(cfg.STT.Provider, cfg.STT.Queue)
	if err != nil {
		return err
	}
	policy, err := app.PolicyFromName(cfg.Backpressure)
	if err != nil {
		return err
	}

	rt := &app.Router{
		Registry:  app.NewRegistry(m),
		STT:       factory,
		Policy:    policy,
		Metrics:   m,
		AudioMime: cfg.AudioMime,
	}

	var assistHandlers *router.AssistHandlers
	if cfg.Assist.Enabled {
		assistHandlers = newAssist(cfg.Assist)
		rt.Assist = assistHandlers.Assistant
		rt.AssistTimeout = cfg.Assist.Timeout
	}

	limiter := wssignal.NewRateLimiter(cfg.ControlRate.Limit, cfg.ControlRate.Interval)
	ctl := wssignal.NewSignalWSController(rt, m, limiter, wssignal.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		IdleTimeout:  cfg.IdleTimeout,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
	})

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Router:  rt,
		Signal:  ctl,
		Metrics: m,
		Assist:  assistHandlers,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Noesis relay started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		for _, info := range rt.Registry.Snapshot() {
			rt.Registry.Delete(info.SessionID)
		}
		return nil
	})
	return g.Wait()
}

func newAssist(ac config.AssistConfig) *router.AssistHandlers {
	classifier := &assist.HuggingFace{URL: ac.HFURL, Token: ac.HFToken}
	return &router.AssistHandlers{
		Assistant: &assist.Assistant{
			Suggester:  &assist.Ollama{URL: ac.OllamaURL, Model: ac.OllamaModel},
			Classifier: classifier,
			Timeout:    ac.Timeout,
		},
		Classifier: classifier,
		Searcher:   &assist.Index{Dir: ac.DocsDir},
	}
}
