package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

func TestResolveOperations(t *testing.T) {
	cases := []struct {
		text string
		want models.Operation
	}{
		{"what is the price of bitcoin?", models.OpPriceCheck},
		{"how much is eth trading at", models.OpPriceCheck},
		{"any interesting narratives forming?", models.OpNarrativeDetection},
		{"show me the current trend", models.OpNarrativeDetection},
		{"is the network healthy", models.OpNetworkHealth},
		{"ledger status please", models.OpNetworkHealth},
		{"what can you do", models.OpCapabilities},
		{"help", models.OpCapabilities},
		{"give me a report", models.OpFullReport},
		{"", models.OpFullReport},
		{"morning update on the markets", models.OpFullReport},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := Resolve(tc.text)
			assert.Equal(t, tc.want, got.Operation)
		})
	}
}

func TestResolvePriorityOrder(t *testing.T) {
	// First-match priority: price > narrative > network > capabilities.
	cases := []struct {
		text string
		want models.Operation
	}{
		{"price trend for btc", models.OpPriceCheck},
		{"price and network health", models.OpPriceCheck},
		{"narrative around network congestion", models.OpNarrativeDetection},
		{"help me read this trend", models.OpNarrativeDetection},
		{"network help", models.OpNetworkHealth},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.text).Operation)
		})
	}
}

func TestResolveAssetExtraction(t *testing.T) {
	got := Resolve("price of bitcoin and ethereum")
	assert.Equal(t, []string{"BTC", "ETH"}, got.Assets)

	got = Resolve("give me a report")
	assert.Empty(t, got.Assets)
}

func TestAssetAliasesCanonicalize(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"compare eth to ether and ethereum", []string{"ETH"}},
		{"hbar vs sol", []string{"HBAR", "SOL"}},
		{"doge, ada, dot", []string{"DOGE", "ADA", "DOT"}},
		{"XRP then BTC", []string{"XRP", "BTC"}},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.text).Assets)
		})
	}
}

func TestAssetExtractionRespectsWordBoundaries(t *testing.T) {
	// "whether" must not match eth, "adapter" must not match ada,
	// "dotted" must not match dot.
	got := Resolve("whether the adapter is dotted")
	assert.Empty(t, got.Assets)
}

func TestResolveIsDeterministic(t *testing.T) {
	text := "price of btc, eth, sol and hbar please"
	first := Resolve(text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Resolve(text))
	}
}
