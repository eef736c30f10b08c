package models

import "time"

// AssetFigure holds the per-asset numbers included in a market report.
type AssetFigure struct {
	Symbol        string  `json:"symbol"`
	PriceUSD      float64 `json:"price_usd"`
	Change24hPct  float64 `json:"change_24h_pct"`
	Volume24hUSD  float64 `json:"volume_24h_usd"`
	MarketCapRank int     `json:"market_cap_rank,omitempty"`
}

// NarrativeSignal is one ranked narrative detected across the requested
// assets.
type NarrativeSignal struct {
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
	Assets   []string `json:"assets"`
	Evidence string  `json:"evidence,omitempty"`
}

// MarketReport is the structured value returned by the report generator.
type MarketReport struct {
	Summary     string            `json:"summary"`
	Focus       string            `json:"focus,omitempty"`
	Figures     []AssetFigure     `json:"figures"`
	Narratives  []NarrativeSignal `json:"narratives,omitempty"`
	Actions     []string          `json:"actions,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// NetworkHealth is a snapshot of the underlying ledger network's condition.
type NetworkHealth struct {
	Network       string        `json:"network"`
	Status        string        `json:"status"` // "healthy" or "degraded"
	MirrorLatency time.Duration `json:"mirror_latency_ns"`
	CheckedAt     time.Time     `json:"checked_at"`
}
