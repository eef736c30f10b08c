package report

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

// Latency above this marks the snapshot degraded even when the mirror node
// answers.
const degradedLatency = 2 * time.Second

// mirrorURLs maps network names to their public mirror node REST endpoints.
var mirrorURLs = map[string]string{
	"mainnet":    "https://mainnet-public.mirrornode.hedera.com",
	"testnet":    "https://testnet.mirrornode.hedera.com",
	"previewnet": "https://previewnet.mirrornode.hedera.com",
}

// MirrorHealthReporter probes the network's mirror node REST API and turns
// the result into a health snapshot.
type MirrorHealthReporter struct {
	network string
	baseURL string
	client  *http.Client
}

// NewMirrorHealthReporter creates a reporter for the named network.
func NewMirrorHealthReporter(network string) *MirrorHealthReporter {
	base, ok := mirrorURLs[network]
	if !ok {
		base = mirrorURLs["testnet"]
	}
	return &MirrorHealthReporter{
		network: network,
		baseURL: base,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Snapshot pings the mirror node and reports status and latency.
func (r *MirrorHealthReporter) Snapshot(ctx context.Context) (*models.NetworkHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/v1/network/nodes?limit=1", nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("mirror node unreachable: %w", err)
	}
	defer resp.Body.Close()

	status := "healthy"
	if resp.StatusCode != http.StatusOK || latency > degradedLatency {
		status = "degraded"
	}

	return &models.NetworkHealth{
		Network:       r.network,
		Status:        status,
		MirrorLatency: latency,
		CheckedAt:     time.Now().UTC(),
	}, nil
}

// StaticHealthReporter returns a fixed snapshot; used in tests.
type StaticHealthReporter struct {
	Health models.NetworkHealth
	Err    error
}

// Snapshot returns the configured snapshot or error.
func (r *StaticHealthReporter) Snapshot(ctx context.Context) (*models.NetworkHealth, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	h := r.Health
	h.CheckedAt = time.Now().UTC()
	return &h, nil
}
