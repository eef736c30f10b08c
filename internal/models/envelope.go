package models

// ProtocolTag identifies this agent's wire format. Inbound messages whose
// tag does not match exactly are degraded to natural-language handling.
const ProtocolTag = "hcs-10"

// Envelope operations.
const (
	OpConnectionRequest = "connection_request"
	OpMessage           = "message"
	OpCloseConnection   = "close_connection"
	OpRegister          = "register"
	OpResponse          = "response"
	OpHeartbeat         = "heartbeat"
)

// Envelope is the structured wire message exchanged between agents over
// consensus topics.
type Envelope struct {
	Protocol   string `json:"p"`
	Op         string `json:"op"`
	OperatorID string `json:"operator_id"`
	Data       string `json:"data,omitempty"`
	Memo       string `json:"m,omitempty"`
}

// ErrorPayload is the body of a response envelope when a collaborator call
// fails. Delivered as a normal protocol response, never a transport fault.
type ErrorPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HeartbeatPayload announces agent identity and liveness on the outbound
// topic.
type HeartbeatPayload struct {
	OperatorID    string   `json:"operator_id"`
	Capabilities  []string `json:"capabilities"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Connections   int      `json:"connections"`
	Timestamp     int64    `json:"ts"`
}
