package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

func TestClassifyStructuredEnvelope(t *testing.T) {
	raw := []byte(`{"p":"hcs-10","op":"connection_request","operator_id":"0.0.100@0.0.200","m":"hi"}`)

	res := Classify(raw)
	require.Equal(t, Structured, res.Kind)
	assert.Equal(t, models.OpConnectionRequest, res.Envelope.Op)
	assert.Equal(t, "0.0.100@0.0.200", res.Envelope.OperatorID)
}

func TestClassifyTagMismatchDegradesToNaturalLanguage(t *testing.T) {
	raw := []byte(`{"p":"hcs-2","op":"message","operator_id":"0.0.100@0.0.200"}`)

	res := Classify(raw)
	require.Equal(t, NaturalLanguage, res.Kind)
	assert.Equal(t, string(raw), res.Text)
}

func TestClassifyDirectQuery(t *testing.T) {
	raw := []byte(`{"query":"price_check","assets":["BTC"],"limit":5}`)

	res := Classify(raw)
	require.Equal(t, DirectQuery, res.Kind)
	assert.Equal(t, "price_check", res.Query["query"])
	// Non-string values keep their raw encoding
	assert.Equal(t, `["BTC"]`, res.Query["assets"])
	assert.Equal(t, "5", res.Query["limit"])
}

func TestClassifyJSONWithoutMarkerIsNaturalLanguage(t *testing.T) {
	raw := []byte(`{"hello":"world"}`)

	res := Classify(raw)
	assert.Equal(t, NaturalLanguage, res.Kind)
}

func TestClassifyIsTotal(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		[]byte("what is the price of bitcoin?"),
		[]byte(`{"truncated`),
		[]byte(`[1,2,3]`),
		[]byte(`null`),
		[]byte(`42`),
		[]byte(`"just a string"`),
		{0xff, 0xfe, 0x00, 0x01},
		[]byte(`{"p":"hcs-10"`), // truncated envelope
		[]byte(`{"query":5}`),   // non-string marker still counts
	}

	for _, in := range inputs {
		res := Classify(in) // must never panic
		switch res.Kind {
		case Structured, DirectQuery, NaturalLanguage:
		default:
			t.Fatalf("unexpected kind %v for input %q", res.Kind, in)
		}
	}
}

func TestClassifyPreservesRawTextUnchanged(t *testing.T) {
	raw := []byte("  weird\ttext\nwith spacing  ")
	res := Classify(raw)
	require.Equal(t, NaturalLanguage, res.Kind)
	assert.Equal(t, string(raw), res.Text)
}
