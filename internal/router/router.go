// Package router is the top-level protocol dispatcher. It subscribes to the
// agent's topics, classifies inbound payloads, drives the connection
// lifecycle, resolves query intents, invokes the report and health
// collaborators, and publishes responses (chunked when oversized).
//
// Every per-message failure is contained to that message: the subscription
// loops are failure-transparent, and collaborator failures are converted to
// error-shaped responses rather than propagated.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Noopy420/hedera-intel-agent/internal/chunk"
	"github.com/Noopy420/hedera-intel-agent/internal/classify"
	"github.com/Noopy420/hedera-intel-agent/internal/identity"
	"github.com/Noopy420/hedera-intel-agent/internal/intent"
	"github.com/Noopy420/hedera-intel-agent/internal/metrics"
	"github.com/Noopy420/hedera-intel-agent/internal/models"
	"github.com/Noopy420/hedera-intel-agent/internal/registry"
	"github.com/Noopy420/hedera-intel-agent/internal/report"
	"github.com/Noopy420/hedera-intel-agent/internal/store"
	"github.com/Noopy420/hedera-intel-agent/internal/transport"
)

// Capabilities this agent advertises in heartbeats and capability
// responses.
var capabilityList = []string{
	string(models.OpPriceCheck),
	string(models.OpNarrativeDetection),
	string(models.OpNetworkHealth),
	string(models.OpCapabilities),
	string(models.OpFullReport),
}

// Config wires the router's collaborators. Transport, Registry, Generator,
// and Health are required; History and Audit are optional best-effort
// recorders.
type Config struct {
	Transport transport.Transport
	Registry  *registry.Registry
	Generator report.Generator
	Health    report.HealthReporter
	History   *store.RedisStore
	Audit     store.DataStore
	Logger    zerolog.Logger

	OperatorID    string // this agent's "<inbound-topic>@<account>" identity
	InboundTopic  string
	OutboundTopic string

	DefaultAssets     []string
	GeneratorTimeout  time.Duration
	HeartbeatInterval time.Duration // 0 publishes only the startup heartbeat
}

// Router owns the inbound message pipeline and the outbound publishing
// path.
type Router struct {
	cfg       Config
	logger    zerolog.Logger
	assembler *chunk.Assembler
	startedAt time.Time

	mu   sync.Mutex
	subs map[string]transport.Subscription
}

// New creates a router from cfg.
func New(cfg Config) *Router {
	if cfg.GeneratorTimeout <= 0 {
		cfg.GeneratorTimeout = 30 * time.Second
	}
	return &Router{
		cfg:       cfg,
		logger:    cfg.Logger.With().Str("component", "router").Logger(),
		assembler: chunk.NewAssembler(),
		subs:      make(map[string]transport.Subscription),
	}
}

// Run subscribes to the inbound topic, announces the agent on the outbound
// topic, and processes messages until ctx is cancelled. Shutdown stops
// intake; in-flight handlers finish on their own goroutines.
func (r *Router) Run(ctx context.Context) error {
	r.startedAt = time.Now()

	if err := r.subscribeTopic(ctx, r.cfg.InboundTopic); err != nil {
		return fmt.Errorf("subscribe inbound topic: %w", err)
	}

	r.publishHeartbeat(ctx)

	if r.cfg.HeartbeatInterval > 0 {
		go r.heartbeatLoop(ctx)
	}

	r.logger.Info().
		Str("operator_id", r.cfg.OperatorID).
		Str("inbound_topic", r.cfg.InboundTopic).
		Str("outbound_topic", r.cfg.OutboundTopic).
		Msg("agent listening")

	<-ctx.Done()

	r.mu.Lock()
	for topic, sub := range r.subs {
		sub.Unsubscribe()
		delete(r.subs, topic)
	}
	r.mu.Unlock()

	r.logger.Info().Msg("agent stopped")
	return nil
}

// subscribeTopic attaches the inbound pipeline to a topic. Each
// subscription delivers from its own goroutine, so a slow exchange on one
// topic never delays another.
func (r *Router) subscribeTopic(ctx context.Context, topicID string) error {
	sub, err := r.cfg.Transport.Subscribe(ctx, topicID, func(msg transport.Message) {
		r.HandleInbound(ctx, msg.Contents, msg.TopicID)
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	if old, ok := r.subs[topicID]; ok {
		old.Unsubscribe()
	}
	r.subs[topicID] = sub
	r.mu.Unlock()
	return nil
}

func (r *Router) unsubscribeTopic(topicID string) {
	r.mu.Lock()
	sub, ok := r.subs[topicID]
	if ok {
		delete(r.subs, topicID)
	}
	r.mu.Unlock()
	if ok {
		sub.Unsubscribe()
	}
}

// HandleInbound is the single entry point for raw transport messages. It
// never returns an error and never panics past its own boundary: per-message
// failures are logged and contained so the subscription survives.
func (r *Router) HandleInbound(ctx context.Context, raw []byte, sourceTopic string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Str("topic", sourceTopic).
				Msg("recovered from handler panic")
		}
	}()

	// Reassemble chunked payloads before classification.
	if c, ok := chunk.Parse(raw); ok {
		metrics.ChunksIngested.Inc()
		payload, err := r.assembler.Ingest(c)
		if err != nil {
			metrics.ChunksDropped.WithLabelValues("malformed").Inc()
			r.logger.Warn().Err(err).Str("topic", sourceTopic).Msg("dropping bad chunk")
			return
		}
		if payload == nil {
			// Waiting for the rest of the fragments
			return
		}
		metrics.MessagesReassembled.Inc()
		raw = payload
	}

	res := classify.Classify(raw)
	metrics.MessagesReceived.WithLabelValues(res.Kind.String()).Inc()

	switch res.Kind {
	case classify.Structured:
		r.dispatchEnvelope(ctx, res.Envelope, sourceTopic)
	case classify.DirectQuery:
		r.handleDirectQuery(ctx, res.Query)
	case classify.NaturalLanguage:
		r.handleNaturalLanguage(ctx, res.Text)
	}
}

// dispatchEnvelope routes a structured envelope by operation.
func (r *Router) dispatchEnvelope(ctx context.Context, env models.Envelope, sourceTopic string) {
	metrics.EnvelopesDispatched.WithLabelValues(env.Op).Inc()
	log := r.logger.With().Str("op", env.Op).Str("peer", env.OperatorID).Logger()

	switch env.Op {
	case models.OpConnectionRequest:
		r.handleConnectionRequest(ctx, env, sourceTopic)

	case models.OpMessage:
		r.recordMessage(ctx, sourceTopic, env.OperatorID, env.Op, env.Data)
		text := env.Data
		if text == "" {
			text = env.Memo
		}
		it := intent.Resolve(text)
		r.respond(ctx, sourceTopic, it, env.OperatorID)

	case models.OpCloseConnection:
		conn, ok := r.cfg.Registry.Close(env.OperatorID)
		if ok {
			r.unsubscribeTopic(conn.TopicID)
			log.Info().Str("topic", conn.TopicID).Msg("connection closed")
		}
		if r.cfg.Audit != nil {
			if err := r.cfg.Audit.MarkClosed(ctx, env.OperatorID); err != nil {
				log.Warn().Err(err).Msg("audit close failed")
			}
		}

	case models.OpRegister, models.OpHeartbeat, models.OpResponse:
		// Peer announcements and replies need no answer
		log.Debug().Msg("envelope noted")

	default:
		log.Warn().Msg("unknown operation ignored")
	}
}

// handleConnectionRequest accepts any peer unconditionally, allocates a
// dedicated connection topic, and answers on the topic the request arrived
// on. A repeated request from the same peer replaces its previous
// connection.
func (r *Router) handleConnectionRequest(ctx context.Context, env models.Envelope, sourceTopic string) {
	log := r.logger.With().Str("peer", env.OperatorID).Logger()

	if _, err := identity.Parse(env.OperatorID); err != nil {
		log.Warn().Err(err).Msg("connection request with bad operator id dropped")
		return
	}

	conn, replaced, err := r.cfg.Registry.Open(ctx, env.OperatorID)
	if err != nil {
		log.Error().Err(err).Msg("could not open connection")
		return
	}
	if replaced != nil {
		r.unsubscribeTopic(replaced.TopicID)
	}

	if err := r.subscribeTopic(ctx, conn.TopicID); err != nil {
		log.Error().Err(err).Str("topic", conn.TopicID).Msg("could not subscribe connection topic")
		r.cfg.Registry.Close(env.OperatorID)
		return
	}

	if r.cfg.Audit != nil {
		if _, err := r.cfg.Audit.RecordConnection(ctx, conn); err != nil {
			log.Warn().Err(err).Msg("audit record failed")
		}
	}

	accepted, _ := json.Marshal(map[string]string{
		"status":              "ok",
		"connection_topic_id": conn.TopicID,
	})
	r.publishEnvelope(ctx, sourceTopic, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpResponse,
		OperatorID: r.cfg.OperatorID,
		Data:       string(accepted),
		Memo:       "connection accepted",
	})

	log.Info().Str("topic", conn.TopicID).Msg("connection established")
}

// directQueryOps maps the legacy direct-query type field to operations.
var directQueryOps = map[string]models.Operation{
	"price_check":         models.OpPriceCheck,
	"narrative_detection": models.OpNarrativeDetection,
	"network_health":      models.OpNetworkHealth,
	"capabilities":        models.OpCapabilities,
	"full_report":         models.OpFullReport,
}

// handleDirectQuery serves legacy structured queries. Responses go to the
// outbound topic; this mode has no per-peer response channel.
func (r *Router) handleDirectQuery(ctx context.Context, query map[string]string) {
	op, ok := directQueryOps[query["query"]]
	if !ok {
		r.publishError(ctx, r.cfg.OutboundTopic,
			fmt.Sprintf("unknown query type %q", query["query"]))
		return
	}

	var assets []string
	if rawAssets := query["assets"]; rawAssets != "" {
		if err := json.Unmarshal([]byte(rawAssets), &assets); err != nil {
			// Fall back to scanning the field as text
			assets = intent.ExtractAssets(rawAssets)
		}
	}

	it := models.QueryIntent{Operation: op, Assets: assets}
	r.respond(ctx, r.cfg.OutboundTopic, it, "")
}

// handleNaturalLanguage treats the raw text as the query.
func (r *Router) handleNaturalLanguage(ctx context.Context, text string) {
	it := intent.Resolve(text)
	r.respond(ctx, r.cfg.OutboundTopic, it, "")
}

// respond executes the resolved intent and publishes the result on topicID.
// A collaborator failure becomes an error-shaped response; it never
// terminates the subscription.
func (r *Router) respond(ctx context.Context, topicID string, it models.QueryIntent, peer string) {
	assets := it.Assets
	if len(assets) == 0 {
		assets = r.cfg.DefaultAssets
	}

	payload, err := r.execute(ctx, it.Operation, assets)
	if err != nil {
		r.logger.Warn().Err(err).Str("operation", string(it.Operation)).
			Msg("collaborator call failed")
		r.publishError(ctx, topicID, err.Error())
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.publishError(ctx, topicID, "could not encode response")
		return
	}

	r.publishEnvelope(ctx, topicID, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpResponse,
		OperatorID: r.cfg.OperatorID,
		Data:       string(data),
		Memo:       fmt.Sprintf("%s result", it.Operation),
	})
	metrics.ResponsesPublished.WithLabelValues("ok").Inc()

	if peer != "" && r.cfg.Audit != nil {
		if err := r.cfg.Audit.IncrementExchanges(ctx, peer); err != nil {
			r.logger.Debug().Err(err).Msg("exchange counter update failed")
		}
	}
	r.recordMessage(ctx, topicID, r.cfg.OperatorID, models.OpResponse, string(data))
}

// execute runs the collaborator for the operation under a bounded wait.
func (r *Router) execute(ctx context.Context, op models.Operation, assets []string) (any, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.GeneratorTimeout)
	defer cancel()

	start := time.Now()
	var payload any
	var err error

	switch op {
	case models.OpNetworkHealth:
		payload, err = r.cfg.Health.Snapshot(callCtx)
	case models.OpCapabilities:
		payload = map[string]any{
			"operator_id": r.cfg.OperatorID,
			"operations":  capabilityList,
			"assets":      r.cfg.DefaultAssets,
		}
	case models.OpPriceCheck:
		payload, err = r.cfg.Generator.Generate(callCtx, assets, "price check")
	case models.OpNarrativeDetection:
		payload, err = r.cfg.Generator.Generate(callCtx, assets, "narrative scan")
	default:
		payload, err = r.cfg.Generator.Generate(callCtx, assets, "full report")
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.GeneratorCalls.WithLabelValues(string(op), outcome).Inc()
	metrics.GeneratorDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())

	return payload, err
}

// publishError delivers a failure to the peer as a normal protocol
// response.
func (r *Router) publishError(ctx context.Context, topicID, message string) {
	data, _ := json.Marshal(models.ErrorPayload{Status: "error", Message: message})
	r.publishEnvelope(ctx, topicID, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpResponse,
		OperatorID: r.cfg.OperatorID,
		Data:       string(data),
		Memo:       "query failed",
	})
	metrics.ResponsesPublished.WithLabelValues("error").Inc()
}

// publishEnvelope serializes and publishes an envelope, splitting it into
// chunks when it exceeds the transport ceiling. Publish failures are logged
// and the message abandoned; the loop stays alive.
func (r *Router) publishEnvelope(ctx context.Context, topicID string, env models.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		r.logger.Error().Err(err).Msg("could not encode envelope")
		return
	}

	limit := r.cfg.Transport.MaxMessageSize()
	if len(raw) <= limit {
		r.publishRaw(ctx, topicID, raw)
		return
	}

	chunks, err := chunk.Split(raw, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("could not chunk oversized envelope")
		return
	}
	for _, c := range chunks {
		framed, err := json.Marshal(c)
		if err != nil {
			r.logger.Error().Err(err).Msg("could not encode chunk")
			return
		}
		r.publishRaw(ctx, topicID, framed)
	}
}

func (r *Router) publishRaw(ctx context.Context, topicID string, data []byte) {
	if _, err := r.cfg.Transport.Publish(ctx, topicID, data); err != nil {
		metrics.PublishErrors.Inc()
		r.logger.Error().Err(err).Str("topic", topicID).Msg("publish failed")
	}
}

// heartbeatLoop repeats the announcement until shutdown.
func (r *Router) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.publishHeartbeat(ctx)
		}
	}
}

// publishHeartbeat announces identity, capabilities, uptime, and connection
// count on the outbound topic.
func (r *Router) publishHeartbeat(ctx context.Context) {
	hb := models.HeartbeatPayload{
		OperatorID:    r.cfg.OperatorID,
		Capabilities:  capabilityList,
		UptimeSeconds: int64(time.Since(r.startedAt).Seconds()),
		Connections:   r.cfg.Registry.Count(),
		Timestamp:     time.Now().UnixMilli(),
	}
	data, _ := json.Marshal(hb)

	r.publishEnvelope(ctx, r.cfg.OutboundTopic, models.Envelope{
		Protocol:   models.ProtocolTag,
		Op:         models.OpHeartbeat,
		OperatorID: r.cfg.OperatorID,
		Data:       string(data),
		Memo:       "agent heartbeat",
	})
	metrics.HeartbeatsPublished.Inc()
}

// recordMessage appends an exchange to the Redis history, best effort.
func (r *Router) recordMessage(ctx context.Context, topicID, from, op, body string) {
	if r.cfg.History == nil {
		return
	}
	msg := &models.Message{TopicID: topicID, From: from, Op: op, Body: body}
	if err := r.cfg.History.AddMessage(ctx, msg); err != nil {
		r.logger.Debug().Err(err).Msg("history write failed")
	}
}
