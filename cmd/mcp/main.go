package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quant-sandbox/internal/backtest"
	"quant-sandbox/internal/config"
	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/insight"
	"quant-sandbox/internal/ml/anomaly"
	"quant-sandbox/internal/ml/cluster"
	"quant-sandbox/internal/ml/predictor"
	"quant-sandbox/internal/store"
	"quant-sandbox/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initTracerFunc = tracing.InitTracer
	runServerFunc  = func(ctx context.Context, server *mcp.Server) error {
		return server.Run(ctx, &mcp.StdioTransport{})
	}
)

type quickBacktestInput struct {
	Symbol         string   `json:"symbol,omitempty" jsonschema:"trading pair, e.g. BTC-USD"`
	Interval       string   `json:"interval,omitempty" jsonschema:"candle interval: 5m, 15m, 1h, 4h or 1d"`
	From           string   `json:"from" jsonschema:"range start, YYYY-MM-DD"`
	To             string   `json:"to" jsonschema:"range end, YYYY-MM-DD"`
	Agents         []string `json:"agents,omitempty" jsonschema:"agent names, one strategy archetype each"`
	InitialBalance float64  `json:"initial_balance,omitempty"`
}

type backtestIDInput struct {
	ID string `json:"id" jsonschema:"backtest result id"`
}

type predictInput struct {
	OpportunityID    string  `json:"opportunity_id"`
	PriceVolatility  float64 `json:"price_volatility"`
	TVLChange        float64 `json:"tvl_change"`
	GasPrice         float64 `json:"gas_price"`
	AgentPerformance float64 `json:"agent_performance"`
	MarketSentiment  float64 `json:"market_sentiment"`
	LiquidityDepth   float64 `json:"liquidity_depth"`
	VolumeChange     float64 `json:"volume_change"`
}

type emptyInput struct{}

type clustersOutput struct {
	Clusters []domain.MarketCluster `json:"clusters"`
}

func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	backtests := backtest.NewService(
		tracer,
		backtest.NewGenerator(nil),
		insight.NewNarrator(cfg.OpenAIAPIKey, cfg.OpenAIModel),
		anomaly.NewDetector(),
		store.NewResultStore(),
		nil,
		nil,
		backtest.Defaults{
			Symbol:         cfg.DefaultSymbol,
			Interval:       cfg.DefaultInterval,
			InitialBalance: cfg.DefaultInitialBalance,
		},
	)
	predictions := predictor.NewService(tracer, cluster.NewClusterer(nil), nil, cluster.Options{
		K:             cfg.ClusterK,
		MaxIterations: cfg.ClusterMaxIterations,
	})

	server := mcp.NewServer(&mcp.Implementation{Name: "quant-sandbox", Version: "1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_quick_backtest",
		Description: "Run every requested agent strategy against one synthetic candle series and return the ranked result.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in quickBacktestInput) (*mcp.CallToolResult, *domain.BacktestResult, error) {
		from, err := time.Parse("2006-01-02", in.From)
		if err != nil {
			return nil, nil, err
		}
		to, err := time.Parse("2006-01-02", in.To)
		if err != nil {
			return nil, nil, err
		}
		result := backtests.RunQuickBacktest(ctx, domain.QuickBacktestRequest{
			Symbol:         in.Symbol,
			Interval:       in.Interval,
			From:           from,
			To:             to,
			Agents:         in.Agents,
			InitialBalance: in.InitialBalance,
		})
		return nil, result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_backtest",
		Description: "Fetch a previously completed backtest result by id.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in backtestIDInput) (*mcp.CallToolResult, *domain.BacktestResult, error) {
		result, err := backtests.Result(ctx, in.ID)
		if err != nil {
			return nil, nil, err
		}
		return nil, result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "predict_opportunity",
		Description: "Score a DeFi opportunity's success probability from its seven-dimensional feature vector.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in predictInput) (*mcp.CallToolResult, *domain.Prediction, error) {
		fv := domain.FeatureVector{
			PriceVolatility:  in.PriceVolatility,
			TVLChange:        in.TVLChange,
			GasPrice:         in.GasPrice,
			AgentPerformance: in.AgentPerformance,
			MarketSentiment:  in.MarketSentiment,
			LiquidityDepth:   in.LiquidityDepth,
			VolumeChange:     in.VolumeChange,
			Timestamp:        time.Now().UTC(),
		}
		return nil, predictions.Predict(ctx, in.OpportunityID, fv), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_market_clusters",
		Description: "Return the current market regime clusters with labels and confidence.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, clustersOutput, error) {
		return nil, clustersOutput{Clusters: predictions.Clusters(ctx)}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_model_metrics",
		Description: "Return current prediction model metrics: accuracy, precision, recall, f1 and version.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, domain.ModelMetrics, error) {
		return nil, predictions.Metrics(ctx), nil
	})

	log.Println("Starting MCP server on stdio")
	if err := runServerFunc(ctx, server); err != nil {
		log.Fatalf("mcp server: %v", err)
	}
}
