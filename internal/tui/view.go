package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	styleTabActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			Padding(0, 1)

	styleTabIdle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	styleGood = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleBad  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var tabNames = []string{"Backtests", "Model", "Clusters", "Predictions"}

func (m AppModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch m.active {
	case tabResults:
		body = m.renderResults()
	case tabMetrics:
		body = m.renderMetrics()
	case tabClusters:
		body = m.renderClusters()
	case tabPredictions:
		body = m.renderPredictions()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTabs(),
		body,
		styleDim.Render(" tab: switch · r: refresh · q: quit"),
	)
}

func (m AppModel) renderHeader() string {
	user := m.svc.Username
	if user == "" {
		user = "guest"
	}
	return styleHeader.Render(fmt.Sprintf("quant-sandbox │ user=%s", user))
}

func (m AppModel) renderTabs() string {
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.active {
			parts[i] = styleTabActive.Render("[" + name + "]")
		} else {
			parts[i] = styleTabIdle.Render(name)
		}
	}
	return strings.Join(parts, " ")
}

func (m AppModel) renderResults() string {
	if len(m.results) == 0 {
		return stylePanel.Render("No backtests yet.")
	}
	return stylePanel.Render(m.resultTable.View())
}

func (m AppModel) renderMetrics() string {
	acc := styleBad.Render(fmt.Sprintf("%.1f%%", m.metrics.Accuracy))
	if m.metrics.Accuracy >= 50 {
		acc = styleGood.Render(fmt.Sprintf("%.1f%%", m.metrics.Accuracy))
	}
	lines := []string{
		fmt.Sprintf("Version:    %d", m.metrics.Version),
		fmt.Sprintf("Accuracy:   %s", acc),
		fmt.Sprintf("Precision:  %.1f%%", m.metrics.Precision),
		fmt.Sprintf("Recall:     %.1f%%", m.metrics.Recall),
		fmt.Sprintf("F1:         %.1f%%", m.metrics.F1),
		fmt.Sprintf("Training:   %d samples", m.metrics.TrainingSetSize),
	}
	if !m.metrics.LastTrained.IsZero() {
		lines = append(lines, fmt.Sprintf("Trained:    %s", m.metrics.LastTrained.Format("2006-01-02 15:04:05")))
	}
	return stylePanel.Render(strings.Join(lines, "\n"))
}

func (m AppModel) renderPredictions() string {
	if len(m.predictions) == 0 {
		return stylePanel.Render("No archived predictions yet.")
	}
	lines := make([]string, 0, len(m.predictions))
	for _, p := range m.predictions {
		prob := styleBad.Render(fmt.Sprintf("%5.1f%%", p.SuccessProbability*100))
		if p.SuccessProbability >= 0.5 {
			prob = styleGood.Render(fmt.Sprintf("%5.1f%%", p.SuccessProbability*100))
		}
		lines = append(lines, fmt.Sprintf("%-14s p=%s ret=%+6.2f%% %-9s v%d",
			p.OpportunityID, prob, p.ExpectedReturn, p.ClusterLabel, p.ModelVersion))
	}
	return stylePanel.Render(strings.Join(lines, "\n"))
}

func (m AppModel) renderClusters() string {
	if len(m.clusters) == 0 {
		return stylePanel.Render("No clusters yet.")
	}
	lines := make([]string, 0, len(m.clusters))
	for _, c := range m.clusters {
		lines = append(lines, fmt.Sprintf("%-10s members=%-4d confidence=%.1f%%",
			c.Label, len(c.Members), c.Confidence))
	}
	return stylePanel.Render(strings.Join(lines, "\n"))
}
