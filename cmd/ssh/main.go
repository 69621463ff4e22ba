package main

import (
	"context"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"slices"
	"syscall"
	"time"

	"quant-sandbox/internal/backtest"
	"quant-sandbox/internal/cache"
	"quant-sandbox/internal/config"
	"quant-sandbox/internal/db"
	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/insight"
	"quant-sandbox/internal/ml/anomaly"
	"quant-sandbox/internal/ml/cluster"
	"quant-sandbox/internal/ml/predictor"
	"quant-sandbox/internal/repository"
	"quant-sandbox/internal/store"
	"quant-sandbox/internal/tui"
	"quant-sandbox/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	gossh "golang.org/x/crypto/ssh"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initPostgresFunc  = db.InitPostgres
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// The dashboard runs in its own process, so its in-memory store starts
	// empty. Hydrate it from the archive before serving sessions.
	resultStore := store.NewResultStore()
	var (
		resultArchiver   backtest.ResultArchiver
		predictionLister tui.PredictionLister
	)
	if db.Pool != nil {
		backtestRepo := repository.NewBacktestRepository(db.Pool, tracer)
		resultArchiver = backtestRepo
		hydrateResults(ctx, resultStore, backtestRepo)
		predictionLister = repository.NewPredictionRepository(db.Pool, tracer)
	}

	var resultCache backtest.ResultCache
	if cache.Client != nil {
		resultCache = cache.NewResultCache(cache.Client, time.Duration(cfg.ResultCacheTTLSecs)*time.Second)
	}

	backtestService := backtest.NewService(
		tracer,
		backtest.NewGenerator(nil),
		insight.NewNarrator(cfg.OpenAIAPIKey, cfg.OpenAIModel),
		anomaly.NewDetector(),
		resultStore,
		resultCache,
		resultArchiver,
		backtest.Defaults{
			Symbol:         cfg.DefaultSymbol,
			Interval:       cfg.DefaultInterval,
			InitialBalance: cfg.DefaultInitialBalance,
		},
	)
	predictorService := predictor.NewService(tracer, cluster.NewClusterer(nil), nil, cluster.Options{
		K:             cfg.ClusterK,
		MaxIterations: cfg.ClusterMaxIterations,
	})

	// Build Wish SSH server
	addr := fmt.Sprintf("%s:%d", cfg.SSHBind, cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			fingerprint := gossh.FingerprintSHA256(key)
			if len(cfg.SSHAllowedKeyFps) > 0 && !slices.Contains(cfg.SSHAllowedKeyFps, fingerprint) {
				log.Printf("SSH auth denied: user=%s fingerprint=%s", ctx.User(), fingerprint)
				return false
			}
			log.Printf("SSH auth accepted: user=%s fingerprint=%s", ctx.User(), fingerprint)
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				model := tui.NewAppModel(tui.Services{
					Backtests:   backtestService,
					Predictor:   predictorService,
					Predictions: predictionLister,
					Username:    s.User(),
				})
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.Printf("SSH server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("SSH server stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SSH server shutdown error: %v", err)
		}
	}

	log.Println("SSH server exited")
}

const resultHydrateLimit = 100

type resultLister interface {
	ListResults(ctx context.Context, limit int) ([]*domain.BacktestResult, error)
}

func hydrateResults(ctx context.Context, results *store.ResultStore, lister resultLister) {
	archived, err := lister.ListResults(ctx, resultHydrateLimit)
	if err != nil {
		log.Printf("failed to load archived backtest results: %v", err)
		return
	}
	for _, r := range archived {
		results.Put(r)
	}
	log.Printf("loaded %d archived backtest results", len(archived))
}
