// Package features turns raw agent telemetry into the fixed feature vectors
// consumed by clustering and prediction.
package features

import (
	"math"
	"strings"
	"time"

	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/ta"
)

const (
	// creditWindow bounds how much transaction history feeds agent performance.
	creditWindow = 100
	// memoryWindow bounds how far back sentiment looks.
	memoryWindow = 24 * time.Hour

	sentimentBase = 50.0
	sentimentStep = 2.0

	neutralScore = 50.0
)

// Extractor is stateless; a single instance serves all callers.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract builds one feature vector from an agent's memory entries, its credit
// history and an optional market snapshot. Missing market data yields neutral
// market dimensions rather than an error.
func (e *Extractor) Extract(memories []domain.MemoryEntry, credits []domain.CreditTransaction, market *domain.MarketData) domain.FeatureVector {
	fv := domain.FeatureVector{
		AgentPerformance: agentPerformance(credits),
		MarketSentiment:  marketSentiment(memories, time.Now().UTC()),
		Timestamp:        time.Now().UTC(),
	}

	if market == nil {
		fv.GasPrice = neutralScore
		fv.LiquidityDepth = neutralScore
		return fv
	}

	fv.PriceVolatility = math.Abs(ta.PctChange(market.PreviousPrice, market.Price))
	fv.TVLChange = ta.PctChange(market.PreviousTVL, market.TVL) * 100
	fv.VolumeChange = ta.PctChange(market.PreviousVolume, market.Volume) * 100
	fv.GasPrice = market.GasPrice
	fv.LiquidityDepth = liquidityDepth(market.Volume, market.TVL)
	return fv
}

// agentPerformance is the share of positive credit magnitude over the trailing
// window, on a 0-100 scale. No history scores neutral.
func agentPerformance(credits []domain.CreditTransaction) float64 {
	if len(credits) > creditWindow {
		credits = credits[len(credits)-creditWindow:]
	}
	positive := 0.0
	total := 0.0
	for _, tx := range credits {
		total += math.Abs(tx.Amount)
		if tx.Amount > 0 {
			positive += tx.Amount
		}
	}
	if total == 0 {
		return neutralScore
	}
	return clampScore(positive / total * 100)
}

// marketSentiment starts neutral and is nudged by recent tagged memories.
func marketSentiment(memories []domain.MemoryEntry, now time.Time) float64 {
	score := sentimentBase
	cutoff := now.Add(-memoryWindow)
	for _, m := range memories {
		if m.CreatedAt.Before(cutoff) {
			continue
		}
		for _, tag := range m.Tags {
			switch strings.ToLower(tag) {
			case "successful":
				score += sentimentStep
			case "high-risk":
				score -= sentimentStep
			}
		}
	}
	return clampScore(score)
}

// liquidityDepth maps the volume/TVL ratio onto a 0-100 scale where a thin
// pool (high ratio) scores low. Unknown TVL scores neutral.
func liquidityDepth(volume, tvl float64) float64 {
	if tvl <= 0 {
		return neutralScore
	}
	return clampScore(100 - volume/tvl*100)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
