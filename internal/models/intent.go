package models

// Operation is the closed set of queries a peer can ask this agent to run.
type Operation string

const (
	OpPriceCheck         Operation = "price_check"
	OpNarrativeDetection Operation = "narrative_detection"
	OpNetworkHealth      Operation = "network_health"
	OpCapabilities       Operation = "capabilities"
	OpFullReport         Operation = "full_report"
)

// QueryIntent is the resolved operation plus the asset symbols referenced by
// a query. Derived fresh per inbound message, never persisted. An empty
// Assets slice means the caller should apply its default basket.
type QueryIntent struct {
	Operation Operation `json:"operation"`
	Assets    []string  `json:"assets"`
}
