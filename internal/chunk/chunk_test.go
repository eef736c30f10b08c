package chunk

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

func TestSplitSmallPayloadYieldsSingleChunk(t *testing.T) {
	chunks, err := Split([]byte("hello"), 1024)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].Header.Total)
	assert.Equal(t, 0, chunks[0].Header.Index)
	assert.NotEmpty(t, chunks[0].Header.ID)
}

func TestSplitFragmentsFitLimit(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 1000)
	chunks, err := Split(payload, 1024)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		framed, err := json.Marshal(c)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(framed), 1024, "framed chunk exceeds limit")
		assert.Equal(t, len(chunks), c.Header.Total)
	}
}

func TestSplitRejectsTinyLimit(t *testing.T) {
	_, err := Split([]byte("payload"), FrameOverhead)
	require.ErrorIs(t, err, ErrLimitTooSmall)
}

func TestRoundTripInOrder(t *testing.T) {
	payload := bytes.Repeat([]byte("market data "), 500)
	chunks, err := Split(payload, 1024)
	require.NoError(t, err)

	a := NewAssembler()
	for i, c := range chunks {
		out, err := a.Ingest(c)
		require.NoError(t, err)
		if i < len(chunks)-1 {
			assert.Nil(t, out)
		} else {
			assert.Equal(t, payload, out)
		}
	}
	assert.Equal(t, 0, a.PendingCount())
}

func TestRoundTripOutOfOrder(t *testing.T) {
	payload := bytes.Repeat([]byte("out of order "), 400)
	chunks, err := Split(payload, 1024)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	r := rand.New(rand.NewSource(42))
	r.Shuffle(len(chunks), func(i, j int) { chunks[i], chunks[j] = chunks[j], chunks[i] })

	a := NewAssembler()
	var got []byte
	deliveries := 0
	for _, c := range chunks {
		out, err := a.Ingest(c)
		require.NoError(t, err)
		if out != nil {
			deliveries++
			got = out
		}
	}
	assert.Equal(t, 1, deliveries, "payload must be delivered exactly once")
	assert.Equal(t, payload, got)
}

func TestDuplicateFragmentsIgnored(t *testing.T) {
	payload := bytes.Repeat([]byte("dup "), 800)
	chunks, err := Split(payload, 1024)
	require.NoError(t, err)

	a := NewAssembler()
	deliveries := 0
	// Feed every fragment twice, including after completion
	for pass := 0; pass < 2; pass++ {
		for _, c := range chunks {
			out, err := a.Ingest(c)
			require.NoError(t, err)
			if out != nil {
				deliveries++
				assert.Equal(t, payload, out)
			}
		}
	}
	assert.Equal(t, 1, deliveries)
}

func TestIngestRejectsMalformed(t *testing.T) {
	a := NewAssembler()

	cases := []struct {
		name string
		c    models.Chunk
	}{
		{"missing id", models.Chunk{Header: models.ChunkHeader{Index: 0, Total: 2}, Data: "aGk="}},
		{"zero total", models.Chunk{Header: models.ChunkHeader{ID: "x", Index: 0, Total: 0}, Data: "aGk="}},
		{"negative index", models.Chunk{Header: models.ChunkHeader{ID: "x", Index: -1, Total: 2}, Data: "aGk="}},
		{"index past total", models.Chunk{Header: models.ChunkHeader{ID: "x", Index: 2, Total: 2}, Data: "aGk="}},
		{"bad encoding", models.Chunk{Header: models.ChunkHeader{ID: "x", Index: 0, Total: 2}, Data: "not base64!!"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := a.Ingest(tc.c)
			assert.Nil(t, out)
			assert.Error(t, err)
		})
	}
	assert.Equal(t, 0, a.PendingCount())
}

func TestIngestRejectsExcessiveFragmentCount(t *testing.T) {
	a := NewAssembler()
	_, err := a.Ingest(models.Chunk{
		Header: models.ChunkHeader{ID: "big", Index: 0, Total: DefaultMaxFragments + 1},
		Data:   "aGk=",
	})
	require.ErrorIs(t, err, ErrTooManyChunks)
}

func TestStaleFragmentsEvicted(t *testing.T) {
	a := NewAssembler()
	clock := time.Now()
	a.now = func() time.Time { return clock }

	_, err := a.Ingest(models.Chunk{
		Header: models.ChunkHeader{ID: "stale", Index: 0, Total: 2},
		Data:   "aGk=",
	})
	require.NoError(t, err)
	require.Equal(t, 1, a.PendingCount())

	// Advance past the age bound; the next ingest sweeps the stale set.
	clock = clock.Add(DefaultMaxAge + time.Minute)
	_, err = a.Ingest(models.Chunk{
		Header: models.ChunkHeader{ID: "fresh", Index: 0, Total: 2},
		Data:   "aGk=",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, a.PendingCount(), "stale set should be gone, fresh set buffered")
}

func TestParseDetectsChunkFrames(t *testing.T) {
	chunks, err := Split(bytes.Repeat([]byte("x"), 2000), 1024)
	require.NoError(t, err)

	framed, err := json.Marshal(chunks[0])
	require.NoError(t, err)

	c, ok := Parse(framed)
	require.True(t, ok)
	assert.Equal(t, chunks[0].Header, c.Header)

	_, ok = Parse([]byte(`{"p":"hcs-10","op":"message"}`))
	assert.False(t, ok)
	_, ok = Parse([]byte("just some text"))
	assert.False(t, ok)
}
