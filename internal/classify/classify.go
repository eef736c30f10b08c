// Package classify determines the shape of a raw inbound payload: a
// structured protocol envelope, a legacy direct query, or unstructured
// natural-language text.
package classify

import (
	"encoding/json"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

// Kind is the classification outcome.
type Kind int

const (
	// Structured is a protocol envelope with a matching protocol tag.
	Structured Kind = iota
	// DirectQuery is a generic JSON object carrying a "query" marker field.
	DirectQuery
	// NaturalLanguage is anything else: free text, or JSON that failed the
	// checks above. The raw text is carried unchanged.
	NaturalLanguage
)

func (k Kind) String() string {
	switch k {
	case Structured:
		return "structured"
	case DirectQuery:
		return "direct_query"
	default:
		return "natural_language"
	}
}

// Result is the classification of one inbound payload. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Result struct {
	Kind     Kind
	Envelope models.Envelope   // Kind == Structured
	Query    map[string]string // Kind == DirectQuery
	Text     string            // Kind == NaturalLanguage
}

// Classify inspects raw and returns exactly one variant. It is total: every
// byte sequence classifies, and no input makes it panic or error. Parse
// failures and protocol-tag mismatches degrade to natural language.
func Classify(raw []byte) Result {
	// First attempt: protocol envelope with an exact tag match.
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Protocol == models.ProtocolTag {
		return Result{Kind: Structured, Envelope: env}
	}

	// Second attempt: generic object with a recognizable query marker.
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err == nil {
		if _, ok := generic["query"]; ok {
			return Result{Kind: DirectQuery, Query: flatten(generic)}
		}
	}

	return Result{Kind: NaturalLanguage, Text: string(raw)}
}

// flatten converts the top-level fields of a generic query object to
// strings. String values lose their quotes; everything else keeps its raw
// JSON encoding.
func flatten(obj map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out
}
