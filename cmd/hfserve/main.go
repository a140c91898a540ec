package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tabbas97/hf-codecomplete-server/internal/config"
	"github.com/tabbas97/hf-codecomplete-server/internal/engine"
	"github.com/tabbas97/hf-codecomplete-server/internal/generate"
	"github.com/tabbas97/hf-codecomplete-server/internal/httpapi"
)

func defaults() config.Config {
	return config.Config{
		Addr:                    ":8000",
		EngineConnectTimeoutSec: 10,
		SessionIdleTimeoutSec:   300,
		MaxBodyBytes:            1 << 20,
		LogLevel:                "info",
	}
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfgPath := flag.String("config", os.Getenv("HFSERVE_CONFIG"), "Optional config file (.yaml/.json/.toml)")
	addr := flag.String("addr", "", "HTTP listen address, e.g. :8000")
	engineURL := flag.String("engine-url", "", "Base URL of the generation engine backend")
	engineAPIKey := flag.String("engine-api-key", "", "Bearer token for the engine backend")
	engineReqTimeout := flag.Int("engine-request-timeout-sec", 0, "Per-generation timeout in seconds (0=unbounded)")
	sessionIdleSec := flag.Int("session-idle-timeout-sec", 0, "Idle seconds before an in-flight session is aborted")
	logLevel := flag.String("log-level", "", "Log level: debug|info|warn|error")
	flag.Parse()

	cfg := defaults()
	if *cfgPath != "" {
		fileCfg, err := config.Load(*cfgPath)
		if err != nil {
			zerolog.New(os.Stderr).Fatal().Err(err).Str("path", *cfgPath).Msg("failed to load config file")
		}
		cfg = config.Merge(cfg, fileCfg)
	}
	envCfg, err := config.FromEnv()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to read environment config")
	}
	cfg = config.Merge(cfg, envCfg)
	// Flags take precedence over file and environment.
	cfg = config.Merge(cfg, config.Config{
		Addr:                    *addr,
		EngineURL:               *engineURL,
		EngineAPIKey:            *engineAPIKey,
		EngineRequestTimeoutSec: *engineReqTimeout,
		SessionIdleTimeoutSec:   *sessionIdleSec,
		LogLevel:                *logLevel,
	})

	level, lerr := zerolog.ParseLevel(cfg.LogLevel)
	if lerr != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "hfserve").Logger()
	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins,
		[]string{"GET", "POST", "OPTIONS"}, []string{"Accept", "Content-Type", "Authorization", "X-Log-Level"})

	var eng engine.Engine
	if cfg.EngineURL != "" {
		eng = engine.NewRemote(
			cfg.EngineURL,
			cfg.EngineAPIKey,
			time.Duration(cfg.EngineRequestTimeoutSec)*time.Second,
			time.Duration(cfg.EngineConnectTimeoutSec)*time.Second,
		)
		logger.Info().Str("engine_url", cfg.EngineURL).Msg("engine backend configured")
	} else {
		logger.Warn().Msg("no engine backend configured; generate requests will return 503")
	}

	svc := generate.NewWithConfig(eng, generate.Config{
		SessionIdleTTL: time.Duration(cfg.SessionIdleTimeoutSec) * time.Second,
	})
	defer svc.Close()

	// Base context lets shutdown cancel in-flight generations.
	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(svc)}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("hfserve listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	baseCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}
