package backtest

import (
	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/ta"
)

const (
	defaultPositionFraction = 0.95
	drawdownEventThreshold  = 0.05
)

// Account is one strategy's isolated ledger for one run. Mutated tick by tick
// during the forward pass, read-only afterwards.
type Account struct {
	InitialBalance float64
	Cash           float64
	Position       *domain.Position
	Trades         []domain.ClosedTrade
	PeakEquity     float64
	MaxDrawdown    float64 // fraction of peak equity
	DrawdownEvents int

	inDrawdown bool
}

func NewAccount(initialBalance float64) *Account {
	return &Account{
		InitialBalance: initialBalance,
		Cash:           initialBalance,
		PeakEquity:     initialBalance,
	}
}

// Equity is cash plus the open position marked at the given price.
func (a *Account) Equity(price float64) float64 {
	if a.Position == nil {
		return a.Cash
	}
	return a.Cash + a.Position.Size*price
}

// Simulator replays candles through a strategy against its own account in a
// single forward pass, applying at most one open or close per tick.
type Simulator struct {
	positionFraction float64
}

func NewSimulator(positionFraction float64) *Simulator {
	if positionFraction <= 0 || positionFraction > 1 {
		positionFraction = defaultPositionFraction
	}
	return &Simulator{positionFraction: positionFraction}
}

// Run executes the strategy over the candle series. Any position still open at
// the final tick is force-closed at the last close price.
func (s *Simulator) Run(strategy Strategy, agent string, candles []domain.Candle, initialBalance float64) (*Account, []domain.TradeDecision) {
	acct := NewAccount(initialBalance)
	var decisions []domain.TradeDecision

	for i := 1; i < len(candles); i++ {
		prev := candles[i-1]
		cur := candles[i]
		d := strategy.Evaluate(prev, cur, acct, candles[:i+1])

		switch d.Action {
		case domain.ActionBuy:
			if acct.Position == nil {
				s.open(acct, cur)
				decisions = append(decisions, decisionLog(agent, cur, d))
			}
		case domain.ActionSell:
			if acct.Position != nil {
				s.close(acct, cur)
				decisions = append(decisions, decisionLog(agent, cur, d))
			}
		}

		s.markEquity(acct, cur.Close)
	}

	if acct.Position != nil && len(candles) > 0 {
		last := candles[len(candles)-1]
		s.close(acct, last)
		decisions = append(decisions, decisionLog(agent, last, Decision{
			Action:     domain.ActionSell,
			Confidence: 1,
			Rationale:  "position force-closed at end of run",
		}))
		s.markEquity(acct, last.Close)
	}

	return acct, decisions
}

func (s *Simulator) open(acct *Account, c domain.Candle) {
	spend := acct.Cash * s.positionFraction
	if spend <= 0 || c.Close <= 0 {
		return
	}
	size := spend / c.Close
	acct.Cash -= size * c.Close
	acct.Position = &domain.Position{
		EntryPrice: c.Close,
		Size:       size,
		EntryTime:  c.OpenTime,
	}
}

func (s *Simulator) close(acct *Account, c domain.Candle) {
	pos := acct.Position
	acct.Cash += pos.Size * c.Close
	acct.Trades = append(acct.Trades, domain.ClosedTrade{
		EntryPrice: pos.EntryPrice,
		ExitPrice:  c.Close,
		Size:       pos.Size,
		PnL:        pos.Size * (c.Close - pos.EntryPrice),
		ROI:        ta.PctChange(pos.EntryPrice, c.Close),
		EntryTime:  pos.EntryTime,
		ExitTime:   c.OpenTime,
	})
	acct.Position = nil
}

func (s *Simulator) markEquity(acct *Account, price float64) {
	equity := acct.Equity(price)
	if equity > acct.PeakEquity {
		acct.PeakEquity = equity
	}
	if acct.PeakEquity <= 0 {
		return
	}
	dd := (acct.PeakEquity - equity) / acct.PeakEquity
	if dd > acct.MaxDrawdown {
		acct.MaxDrawdown = dd
	}
	if dd > drawdownEventThreshold {
		if !acct.inDrawdown {
			acct.DrawdownEvents++
			acct.inDrawdown = true
		}
	} else {
		acct.inDrawdown = false
	}
}

func decisionLog(agent string, c domain.Candle, d Decision) domain.TradeDecision {
	return domain.TradeDecision{
		Timestamp:  c.OpenTime,
		Agent:      agent,
		Action:     d.Action,
		Price:      c.Close,
		Confidence: d.Confidence,
		Rationale:  d.Rationale,
	}
}
