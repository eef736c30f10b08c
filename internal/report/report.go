// Package report produces market reports and network health snapshots for
// the protocol router. The scoring rules are deliberately simple and
// deterministic; the router only depends on the interfaces.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

// Generator produces a market report for a list of asset symbols and an
// optional focus label.
type Generator interface {
	Generate(ctx context.Context, assets []string, focus string) (*models.MarketReport, error)
}

// HealthReporter returns a health snapshot for the underlying ledger
// network.
type HealthReporter interface {
	Snapshot(ctx context.Context) (*models.NetworkHealth, error)
}

// MarketGenerator builds reports from a quote source using fixed-threshold
// narrative scoring.
type MarketGenerator struct {
	quotes QuoteSource
}

// NewMarketGenerator creates a generator backed by the given quote source.
func NewMarketGenerator(quotes QuoteSource) *MarketGenerator {
	return &MarketGenerator{quotes: quotes}
}

// Generate fetches quotes for the requested assets and derives figures,
// ranked narrative signals, and recommended actions.
func (g *MarketGenerator) Generate(ctx context.Context, assets []string, focus string) (*models.MarketReport, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("no assets requested")
	}

	quotes, err := g.quotes.Quotes(ctx, assets)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no quotes available for %s", strings.Join(assets, ","))
	}

	rep := &models.MarketReport{
		Focus:       focus,
		GeneratedAt: time.Now().UTC(),
	}

	for _, q := range quotes {
		rep.Figures = append(rep.Figures, models.AssetFigure{
			Symbol:        q.Symbol,
			PriceUSD:      q.PriceUSD,
			Change24hPct:  q.Change24hPct,
			Volume24hUSD:  q.Volume24hUSD,
			MarketCapRank: q.MarketCapRank,
		})
		rep.Narratives = append(rep.Narratives, scoreNarratives(q)...)
	}

	// Rank narratives strongest first
	sort.SliceStable(rep.Narratives, func(i, j int) bool {
		return rep.Narratives[i].Score > rep.Narratives[j].Score
	})

	rep.Actions = recommendActions(rep.Narratives)
	rep.Summary = summarize(quotes, focus)

	return rep, nil
}

// Narrative scoring thresholds. Arbitrary business rules; any deterministic
// function of the quotes would do.
const (
	breakoutThresholdPct = 5.0
	slideThresholdPct    = -5.0
	volumeSpikeUSD       = 1e9
)

func scoreNarratives(q Quote) []models.NarrativeSignal {
	var signals []models.NarrativeSignal

	switch {
	case q.Change24hPct >= breakoutThresholdPct:
		signals = append(signals, models.NarrativeSignal{
			Label:    "breakout momentum",
			Score:    q.Change24hPct / 10,
			Assets:   []string{q.Symbol},
			Evidence: fmt.Sprintf("%s up %.1f%% in 24h", q.Symbol, q.Change24hPct),
		})
	case q.Change24hPct <= slideThresholdPct:
		signals = append(signals, models.NarrativeSignal{
			Label:    "risk-off slide",
			Score:    -q.Change24hPct / 10,
			Assets:   []string{q.Symbol},
			Evidence: fmt.Sprintf("%s down %.1f%% in 24h", q.Symbol, -q.Change24hPct),
		})
	}

	if q.Volume24hUSD >= volumeSpikeUSD {
		signals = append(signals, models.NarrativeSignal{
			Label:    "volume spike",
			Score:    q.Volume24hUSD / volumeSpikeUSD,
			Assets:   []string{q.Symbol},
			Evidence: fmt.Sprintf("%s 24h volume $%.1fB", q.Symbol, q.Volume24hUSD/1e9),
		})
	}

	return signals
}

func recommendActions(signals []models.NarrativeSignal) []string {
	var actions []string
	for _, s := range signals {
		switch s.Label {
		case "breakout momentum":
			actions = append(actions, fmt.Sprintf("watch %s for continuation", strings.Join(s.Assets, ",")))
		case "risk-off slide":
			actions = append(actions, fmt.Sprintf("review exposure to %s", strings.Join(s.Assets, ",")))
		}
	}
	if len(actions) == 0 {
		actions = append(actions, "hold and monitor")
	}
	return actions
}

func summarize(quotes []Quote, focus string) string {
	var parts []string
	for _, q := range quotes {
		parts = append(parts, fmt.Sprintf("%s $%.2f (%+.1f%%)", q.Symbol, q.PriceUSD, q.Change24hPct))
	}
	summary := strings.Join(parts, ", ")
	if focus != "" {
		summary = fmt.Sprintf("[%s] %s", focus, summary)
	}
	return summary
}
