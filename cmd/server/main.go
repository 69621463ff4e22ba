package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quant-sandbox/internal/backtest"
	"quant-sandbox/internal/cache"
	"quant-sandbox/internal/config"
	"quant-sandbox/internal/db"
	"quant-sandbox/internal/handler"
	"quant-sandbox/internal/insight"
	"quant-sandbox/internal/ml/anomaly"
	"quant-sandbox/internal/ml/cluster"
	"quant-sandbox/internal/ml/features"
	"quant-sandbox/internal/ml/predictor"
	"quant-sandbox/internal/repository"
	"quant-sandbox/internal/scenario"
	"quant-sandbox/internal/store"
	"quant-sandbox/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "quant-sandbox/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newBacktestRepoFunc    = repository.NewBacktestRepository
	newScenarioRepoFunc    = repository.NewScenarioRepository
	newPredictionRepoFunc  = repository.NewPredictionRepository
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Quant Sandbox API
// @version         1.0
// @description     DeFi agent backtesting and pattern-recognition sandbox with OpenTelemetry tracing.

// @host      localhost:8080
// @BasePath  /
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

	// Create repositories and run migrations. Without Postgres the services
	// fall back to their in-memory stores only.
	var (
		resultArchiver     backtest.ResultArchiver
		runArchiver        scenario.Archiver
		predictionArchiver predictor.Archiver
	)
	if db.Pool != nil {
		backtestRepo := newBacktestRepoFunc(db.Pool, tracer)
		scenarioRepo := newScenarioRepoFunc(db.Pool, tracer)
		predictionRepo := newPredictionRepoFunc(db.Pool, tracer)
		if err := backtestRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		if err := scenarioRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		if err := predictionRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		resultArchiver = backtestRepo
		runArchiver = scenarioRepo
		predictionArchiver = predictionRepo
	}

	var resultCache backtest.ResultCache
	if cache.Client != nil {
		resultCache = cache.NewResultCache(cache.Client, time.Duration(cfg.ResultCacheTTLSecs)*time.Second)
	}

	// Create the simulation and pattern services
	narrator := insight.NewNarrator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	backtestService := backtest.NewService(
		tracer,
		backtest.NewGenerator(nil),
		narrator,
		anomaly.NewDetector(),
		store.NewResultStore(),
		resultCache,
		resultArchiver,
		backtest.Defaults{
			Symbol:         cfg.DefaultSymbol,
			Interval:       cfg.DefaultInterval,
			InitialBalance: cfg.DefaultInitialBalance,
		},
	)
	scenarioService := scenario.NewService(
		tracer,
		scenario.NewDataGenerator(nil),
		store.NewScenarioStore(),
		store.NewRunStore(),
		runArchiver,
	)
	predictorService := predictor.NewService(tracer, cluster.NewClusterer(nil), predictionArchiver, cluster.Options{
		K:             cfg.ClusterK,
		MaxIterations: cfg.ClusterMaxIterations,
	})

	// Create handlers and routes
	h := newHandlerFunc(tracer, backtestService, scenarioService, features.NewExtractor(), predictorService, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("quant-sandbox"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
