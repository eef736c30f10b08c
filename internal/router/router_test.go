package router

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noopy420/hedera-intel-agent/internal/chunk"
	"github.com/Noopy420/hedera-intel-agent/internal/models"
	"github.com/Noopy420/hedera-intel-agent/internal/registry"
	"github.com/Noopy420/hedera-intel-agent/internal/report"
	"github.com/Noopy420/hedera-intel-agent/internal/transport"
)

type stubGenerator struct {
	fail  bool
	pad   int
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, assets []string, focus string) (*models.MarketReport, error) {
	g.calls++
	if g.fail {
		return nil, errors.New("quote backend down")
	}
	return &models.MarketReport{
		Summary:     focus + ": " + strings.Join(assets, ",") + strings.Repeat(" pad", g.pad),
		Focus:       focus,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

type testHarness struct {
	router    *Router
	transport *transport.MemoryTransport
	registry  *registry.Registry
	generator *stubGenerator
	inbound   string
	outbound  string
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	tr := transport.NewMemoryTransport()
	ctx := context.Background()

	inbound, err := tr.CreateTopic(ctx, "inbound")
	require.NoError(t, err)
	outbound, err := tr.CreateTopic(ctx, "outbound")
	require.NoError(t, err)

	reg := registry.New(tr)
	gen := &stubGenerator{}

	r := New(Config{
		Transport: tr,
		Registry:  reg,
		Generator: gen,
		Health: &report.StaticHealthReporter{
			Health: models.NetworkHealth{Network: "testnet", Status: "healthy"},
		},
		Logger:           zerolog.Nop(),
		OperatorID:       inbound + "@0.0.999",
		InboundTopic:     inbound,
		OutboundTopic:    outbound,
		DefaultAssets:    []string{"BTC", "ETH", "HBAR"},
		GeneratorTimeout: 5 * time.Second,
	})

	return &testHarness{
		router:    r,
		transport: tr,
		registry:  reg,
		generator: gen,
		inbound:   inbound,
		outbound:  outbound,
	}
}

// decodeEnvelopes reads every publishable on the topic back as envelopes,
// reassembling chunk frames along the way.
func decodeEnvelopes(t *testing.T, tr *transport.MemoryTransport, topic string) []models.Envelope {
	t.Helper()
	assembler := chunk.NewAssembler()

	var envs []models.Envelope
	for _, raw := range tr.Log(topic) {
		if c, ok := chunk.Parse(raw); ok {
			payload, err := assembler.Ingest(c)
			require.NoError(t, err)
			if payload == nil {
				continue
			}
			raw = payload
		}
		var env models.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		envs = append(envs, env)
	}
	return envs
}

func envelopeBytes(t *testing.T, env models.Envelope) []byte {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func TestConnectionLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	peer := "0.0.500@0.0.600"

	h.router.HandleInbound(ctx, envelopeBytes(t, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpConnectionRequest,
		OperatorID: peer,
	}), h.inbound)

	conn, ok := h.registry.Lookup(peer)
	require.True(t, ok)
	firstTopic := conn.TopicID

	// Acceptance envelope answered on the topic the request arrived on
	envs := decodeEnvelopes(t, h.transport, h.inbound)
	require.NotEmpty(t, envs)
	accept := envs[len(envs)-1]
	assert.Equal(t, models.OpResponse, accept.Op)
	assert.Contains(t, accept.Data, firstTopic)

	h.router.HandleInbound(ctx, envelopeBytes(t, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpCloseConnection,
		OperatorID: peer,
	}), h.inbound)

	_, ok = h.registry.Lookup(peer)
	assert.False(t, ok, "close must remove the registry entry")

	// Reconnect after close gets a fresh topic
	h.router.HandleInbound(ctx, envelopeBytes(t, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpConnectionRequest,
		OperatorID: peer,
	}), h.inbound)

	conn, ok = h.registry.Lookup(peer)
	require.True(t, ok)
	assert.NotEqual(t, firstTopic, conn.TopicID)
}

func TestDuplicateConnectionRequestReplaces(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	peer := "0.0.500@0.0.600"

	req := envelopeBytes(t, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpConnectionRequest,
		OperatorID: peer,
	})
	h.router.HandleInbound(ctx, req, h.inbound)
	first, _ := h.registry.Lookup(peer)

	h.router.HandleInbound(ctx, req, h.inbound)
	second, ok := h.registry.Lookup(peer)
	require.True(t, ok)
	assert.NotEqual(t, first.TopicID, second.TopicID)
	assert.Equal(t, 1, h.registry.Count())
}

func TestConnectionRequestBadOperatorIDDropped(t *testing.T) {
	h := newHarness(t)

	h.router.HandleInbound(context.Background(), envelopeBytes(t, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpConnectionRequest,
		OperatorID: "not-an-operator-id",
	}), h.inbound)

	assert.Equal(t, 0, h.registry.Count())
	assert.Empty(t, h.transport.Log(h.inbound), "no acceptance for a malformed request")
}

func TestMessageEnvelopeAnsweredOnArrivalTopic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	peer := "0.0.500@0.0.600"

	h.router.HandleInbound(ctx, envelopeBytes(t, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpConnectionRequest,
		OperatorID: peer,
	}), h.inbound)
	conn, _ := h.registry.Lookup(peer)

	h.router.HandleInbound(ctx, envelopeBytes(t, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpMessage,
		OperatorID: peer,
		Data:       "price of bitcoin please",
	}), conn.TopicID)

	envs := decodeEnvelopes(t, h.transport, conn.TopicID)
	require.Len(t, envs, 1)
	assert.Equal(t, models.OpResponse, envs[0].Op)
	assert.Contains(t, envs[0].Data, "price check: BTC")
}

func TestGeneratorFailureYieldsErrorResponseAndLoopSurvives(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.generator.fail = true

	msg := envelopeBytes(t, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpMessage,
		OperatorID: "0.0.500@0.0.600",
		Data:       "full report please",
	})
	h.router.HandleInbound(ctx, msg, h.inbound)

	envs := decodeEnvelopes(t, h.transport, h.inbound)
	require.Len(t, envs, 1)

	var errPayload models.ErrorPayload
	require.NoError(t, json.Unmarshal([]byte(envs[0].Data), &errPayload))
	assert.Equal(t, "error", errPayload.Status)
	assert.Contains(t, errPayload.Message, "quote backend down")

	// A valid message right after gets a normal response
	h.generator.fail = false
	h.router.HandleInbound(ctx, msg, h.inbound)

	envs = decodeEnvelopes(t, h.transport, h.inbound)
	require.Len(t, envs, 2)
	assert.NotContains(t, envs[1].Data, `"status":"error"`)
}

func TestUnknownOperationProducesNoResponse(t *testing.T) {
	h := newHarness(t)

	h.router.HandleInbound(context.Background(), envelopeBytes(t, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         "bogus",
		OperatorID: "0.0.500@0.0.600",
	}), h.inbound)

	assert.Empty(t, h.transport.Log(h.inbound))
	assert.Empty(t, h.transport.Log(h.outbound))
}

func TestNaturalLanguageAnsweredOnOutboundTopic(t *testing.T) {
	h := newHarness(t)

	h.router.HandleInbound(context.Background(),
		[]byte("what's the price of hbar today?"), h.inbound)

	envs := decodeEnvelopes(t, h.transport, h.outbound)
	require.Len(t, envs, 1)
	assert.Equal(t, models.OpResponse, envs[0].Op)
	assert.Contains(t, envs[0].Data, "price check: HBAR")
}

func TestDirectQueryHandlerTable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.router.HandleInbound(ctx, []byte(`{"query":"capabilities"}`), h.inbound)

	envs := decodeEnvelopes(t, h.transport, h.outbound)
	require.Len(t, envs, 1)
	assert.Contains(t, envs[0].Data, "price_check")
	assert.Contains(t, envs[0].Data, h.router.cfg.OperatorID)

	h.router.HandleInbound(ctx, []byte(`{"query":"price_check","assets":["ETH"]}`), h.inbound)
	envs = decodeEnvelopes(t, h.transport, h.outbound)
	require.Len(t, envs, 2)
	assert.Contains(t, envs[1].Data, "price check: ETH")
}

func TestDirectQueryUnknownTypeGetsErrorResponse(t *testing.T) {
	h := newHarness(t)

	h.router.HandleInbound(context.Background(), []byte(`{"query":"teleport"}`), h.inbound)

	envs := decodeEnvelopes(t, h.transport, h.outbound)
	require.Len(t, envs, 1)

	var errPayload models.ErrorPayload
	require.NoError(t, json.Unmarshal([]byte(envs[0].Data), &errPayload))
	assert.Equal(t, "error", errPayload.Status)
	assert.Contains(t, errPayload.Message, "teleport")
}

func TestOversizedResponseIsChunked(t *testing.T) {
	h := newHarness(t)
	h.transport.SetMaxMessageSize(512)
	h.generator.pad = 300 // inflate the summary well past the ceiling

	h.router.HandleInbound(context.Background(), []byte("morning report"), h.inbound)

	raws := h.transport.Log(h.outbound)
	require.Greater(t, len(raws), 1, "response should travel as fragments")
	for _, raw := range raws {
		assert.LessOrEqual(t, len(raw), 512)
	}

	// decodeEnvelopes reassembles the fragments back into one envelope
	envs := decodeEnvelopes(t, h.transport, h.outbound)
	require.Len(t, envs, 1)
	assert.Equal(t, models.OpResponse, envs[0].Op)
}

func TestChunkedInboundReassembledBeforeClassify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	big := models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpMessage,
		OperatorID: "0.0.500@0.0.600",
		Data:       "price of bitcoin " + strings.Repeat("with padding ", 120),
	}
	raw := envelopeBytes(t, big)
	require.Greater(t, len(raw), transport.MaxMessageBytes)

	chunks, err := chunk.Split(raw, transport.MaxMessageBytes)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// Deliver out of order: no response until the last fragment lands
	h.router.HandleInbound(ctx, chunkBytes(t, chunks[1]), h.inbound)
	assert.Empty(t, h.transport.Log(h.inbound))

	h.router.HandleInbound(ctx, chunkBytes(t, chunks[0]), h.inbound)
	for _, c := range chunks[2:] {
		h.router.HandleInbound(ctx, chunkBytes(t, c), h.inbound)
	}

	envs := decodeEnvelopes(t, h.transport, h.inbound)
	require.Len(t, envs, 1)
	assert.Contains(t, envs[0].Data, "price check: BTC")
}

func TestMalformedChunkDroppedSilently(t *testing.T) {
	h := newHarness(t)

	h.router.HandleInbound(context.Background(),
		[]byte(`{"_chunk":{"index":5,"total":2,"id":"x"},"data":"aGk="}`), h.inbound)

	assert.Empty(t, h.transport.Log(h.inbound))
	assert.Empty(t, h.transport.Log(h.outbound))
}

func chunkBytes(t *testing.T, c models.Chunk) []byte {
	t.Helper()
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	return raw
}

func TestRunPublishesStartupHeartbeatAndServesSubscription(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.router.Run(ctx) }()

	// Startup heartbeat lands on the outbound topic
	require.Eventually(t, func() bool {
		return len(h.transport.Log(h.outbound)) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	envs := decodeEnvelopes(t, h.transport, h.outbound)
	require.NotEmpty(t, envs)
	assert.Equal(t, models.OpHeartbeat, envs[0].Op)

	var hb models.HeartbeatPayload
	require.NoError(t, json.Unmarshal([]byte(envs[0].Data), &hb))
	assert.Equal(t, h.router.cfg.OperatorID, hb.OperatorID)
	assert.Contains(t, hb.Capabilities, "price_check")

	// Messages published to the inbound topic are answered
	_, err := h.transport.Publish(ctx, h.inbound, []byte("network health check"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, env := range decodeEnvelopes(t, h.transport, h.outbound) {
			if strings.Contains(env.Data, "healthy") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("router did not stop")
	}
}
