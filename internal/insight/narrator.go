package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Stats are the aggregate observations a backtest hands to the narrator.
type Stats struct {
	Agents            int
	TotalTrades       int
	AvgReturnPct      float64
	ReturnSpreadPct   float64
	DrawdownEvents    int
	EstimatedClusters int
	DominantPattern   string
	AnomalyShare      float64
}

type ChatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// Narrator renders aggregate statistics into a small set of narrative
// insights. The heuristic rendering always runs; when an LLM client is
// configured its rewrite replaces the heuristic lines, and any LLM failure
// falls back silently.
type Narrator struct {
	llm   ChatClient
	model string
}

func NewNarrator(apiKey, model string) *Narrator {
	n := &Narrator{model: model}
	if strings.TrimSpace(model) == "" {
		n.model = "gpt-4o-mini"
	}
	if strings.TrimSpace(apiKey) != "" {
		client := openai.NewClient(option.WithAPIKey(apiKey))
		n.llm = &openAIClient{client: client}
	}
	return n
}

// NewNarratorWithClient is used by tests to inject a stub LLM.
func NewNarratorWithClient(llm ChatClient, model string) *Narrator {
	return &Narrator{llm: llm, model: model}
}

func (n *Narrator) Insights(ctx context.Context, stats Stats) []string {
	heuristic := heuristicInsights(stats)
	if n == nil || n.llm == nil {
		return heuristic
	}
	polished, err := n.polish(ctx, stats, heuristic)
	if err != nil || len(polished) == 0 {
		return heuristic
	}
	return polished
}

func heuristicInsights(stats Stats) []string {
	out := []string{
		fmt.Sprintf("detected approximately %d behavioral clusters across %d strategies", stats.EstimatedClusters, stats.Agents),
		fmt.Sprintf("dominant market pattern: %s (avg return %.2f%%)", stats.DominantPattern, stats.AvgReturnPct),
		fmt.Sprintf("return spread between best and worst strategy: %.2f%%", stats.ReturnSpreadPct),
	}
	if stats.DrawdownEvents > 0 {
		out = append(out, fmt.Sprintf("%d drawdown events exceeded the 5%% threshold", stats.DrawdownEvents))
	} else {
		out = append(out, "no drawdown event exceeded the 5% threshold")
	}
	if stats.AnomalyShare > 0.2 {
		out = append(out, fmt.Sprintf("%.0f%% of observed market states scored as anomalous", stats.AnomalyShare*100))
	}
	return out
}

func (n *Narrator) polish(ctx context.Context, stats Stats, heuristic []string) ([]string, error) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}

	systemPrompt := "You summarize trading simulation statistics. Return ONLY a JSON array of short insight strings, one observation each. No markdown."
	userPrompt := fmt.Sprintf("Statistics: %s\nDraft insights: %s", payload, strings.Join(heuristic, "; "))

	completion, err := n.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: n.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty narrator completion")
	}

	raw := trimCodeFence(completion.Choices[0].Message.Content)
	var lines []string
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("parse narrator json: %w", err)
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimPrefix(v, "```")
		v = strings.TrimSpace(v)
		if strings.HasPrefix(strings.ToLower(v), "json") {
			v = strings.TrimSpace(v[4:])
		}
		v = strings.TrimSuffix(v, "```")
		v = strings.TrimSpace(v)
	}
	return v
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
