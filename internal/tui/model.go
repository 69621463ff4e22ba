package tui

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"quant-sandbox/internal/backtest"
	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/ml/predictor"
)

const (
	refreshEvery        = 5 * time.Second
	predictionTailLimit = 50
)

// PredictionLister reads archived predictions, newest first. An empty
// opportunity id means all opportunities.
type PredictionLister interface {
	ListPredictions(ctx context.Context, opportunityID string, limit int) ([]*domain.Prediction, error)
}

// Services bundles everything the dashboard reads from.
type Services struct {
	Backtests   *backtest.Service
	Predictor   *predictor.Service
	Predictions PredictionLister
	Username    string
}

type tab int

const (
	tabResults tab = iota
	tabMetrics
	tabClusters
	tabPredictions
	tabCount
)

type (
	refreshMsg struct {
		results     []*domain.BacktestResult
		metrics     domain.ModelMetrics
		clusters    []domain.MarketCluster
		predictions []*domain.Prediction
	}
	tickMsg time.Time
)

// AppModel is the root bubbletea model served over SSH.
type AppModel struct {
	svc    Services
	active tab

	results     []*domain.BacktestResult
	metrics     domain.ModelMetrics
	clusters    []domain.MarketCluster
	predictions []*domain.Prediction

	resultTable table.Model

	width  int
	height int
	ready  bool
}

func NewAppModel(svc Services) AppModel {
	cols := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Symbol", Width: 9},
		{Title: "Status", Width: 10},
		{Title: "Best Agent", Width: 12},
		{Title: "Trades", Width: 7},
		{Title: "Avg Return", Width: 11},
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	return AppModel{svc: svc, resultTable: t}
}

// SetSize is called before the program starts with the client's pty size.
func (m *AppModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.ready = width > 0 && height > 0
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m AppModel) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		msg := refreshMsg{}
		if m.svc.Backtests != nil {
			msg.results = m.svc.Backtests.Results(ctx)
		}
		if m.svc.Predictor != nil {
			msg.metrics = m.svc.Predictor.Metrics(ctx)
			msg.clusters = m.svc.Predictor.Clusters(ctx)
		}
		if m.svc.Predictions != nil {
			predictions, err := m.svc.Predictions.ListPredictions(ctx, "", predictionTailLimit)
			if err != nil {
				log.Printf("failed to list archived predictions: %v", err)
			} else {
				msg.predictions = predictions
			}
		}
		return msg
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.active = (m.active + 1) % tabCount
			return m, nil
		case "r":
			return m, m.refresh()
		}
		var cmd tea.Cmd
		m.resultTable, cmd = m.resultTable.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case refreshMsg:
		m.results = msg.results
		m.metrics = msg.metrics
		m.clusters = msg.clusters
		m.predictions = msg.predictions
		m.resultTable.SetRows(resultRows(msg.results))
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())
	}
	return m, nil
}

func resultRows(results []*domain.BacktestResult) []table.Row {
	rows := make([]table.Row, 0, len(results))
	for _, r := range results {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		bestAgent := r.BestAgent
		if bestAgent == "" {
			bestAgent = "-"
		}
		rows = append(rows, table.Row{
			id,
			r.Request.Symbol,
			string(r.Status),
			bestAgent,
			fmt.Sprintf("%d", r.TotalTrades),
			fmt.Sprintf("%.2f%%", r.AvgReturnPct),
		})
	}
	return rows
}
