// Package chunk splits oversized payloads into ordered fragments that fit
// the transport's per-message byte ceiling, and reassembles fragments back
// into the original payload.
package chunk

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

// FrameOverhead is the byte budget reserved for the chunk JSON framing
// around each fragment (header, ids, quoting).
const FrameOverhead = 128

// Defaults for the reassembly buffer bounds. Incomplete fragment sets from
// malicious or malfunctioning peers are evicted rather than held forever.
const (
	DefaultMaxFragments = 256
	DefaultMaxAge       = 10 * time.Minute
)

var (
	ErrLimitTooSmall  = errors.New("size limit leaves no room for fragment data")
	ErrMalformedChunk = errors.New("malformed chunk")
	ErrTooManyChunks  = errors.New("fragment count exceeds reassembly ceiling")
)

// Split divides payload into fragments no larger than limit, each wrapped in
// chunk framing. All fragments share a fresh message id. A payload that fits
// in one fragment yields a single chunk with Total == 1.
//
// Split is pure apart from id generation; it never mutates payload.
func Split(payload []byte, limit int) ([]models.Chunk, error) {
	usable := limit - FrameOverhead
	if usable < 4 {
		return nil, fmt.Errorf("%w: limit %d", ErrLimitTooSmall, limit)
	}

	// Fragments travel base64-encoded; 4 output chars per 3 input bytes.
	rawPerChunk := (usable / 4) * 3

	total := (len(payload) + rawPerChunk - 1) / rawPerChunk
	if total == 0 {
		total = 1
	}

	id := uuid.New().String()
	chunks := make([]models.Chunk, 0, total)
	for i := 0; i < total; i++ {
		start := i * rawPerChunk
		end := start + rawPerChunk
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, models.Chunk{
			Header: models.ChunkHeader{Index: i, Total: total, ID: id},
			Data:   base64.StdEncoding.EncodeToString(payload[start:end]),
		})
	}
	return chunks, nil
}

// Parse reports whether raw is a chunk frame, returning the decoded chunk
// when it is. A JSON object without the "_chunk" key is not a chunk.
func Parse(raw []byte) (models.Chunk, bool) {
	var probe struct {
		Header *models.ChunkHeader `json:"_chunk"`
		Data   string              `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Header == nil {
		return models.Chunk{}, false
	}
	return models.Chunk{Header: *probe.Header, Data: probe.Data}, true
}

type partial struct {
	total     int
	fragments map[int][]byte
	firstSeen time.Time
}

// Assembler buffers fragments by message id until a complete set arrives.
// Out-of-order arrival is tolerated; duplicates are ignored; fragment sets
// that stall past the age bound or exceed the fragment ceiling are dropped.
type Assembler struct {
	mu           sync.Mutex
	pending      map[string]*partial
	completed    map[string]time.Time
	maxFragments int
	maxAge       time.Duration
	lastSweep    time.Time
	now          func() time.Time
}

// NewAssembler creates an assembler with the default buffer bounds.
func NewAssembler() *Assembler {
	return &Assembler{
		pending:      make(map[string]*partial),
		completed:    make(map[string]time.Time),
		maxFragments: DefaultMaxFragments,
		maxAge:       DefaultMaxAge,
		now:          time.Now,
	}
}

// Ingest buffers one fragment. It returns the reassembled payload exactly
// once, when the final missing fragment of a message arrives; any other
// outcome returns a nil payload. Malformed fragments are reported as errors
// for the caller to log and are never buffered.
func (a *Assembler) Ingest(c models.Chunk) ([]byte, error) {
	if c.Header.ID == "" || c.Header.Total < 1 ||
		c.Header.Index < 0 || c.Header.Index >= c.Header.Total {
		return nil, fmt.Errorf("%w: id=%q index=%d total=%d",
			ErrMalformedChunk, c.Header.ID, c.Header.Index, c.Header.Total)
	}
	if c.Header.Total > a.maxFragments {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyChunks, c.Header.Total, a.maxFragments)
	}

	data, err := base64.StdEncoding.DecodeString(c.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad fragment encoding", ErrMalformedChunk)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	a.sweepLocked(now)

	// Late duplicate of an already-delivered message
	if _, done := a.completed[c.Header.ID]; done {
		return nil, nil
	}

	p, ok := a.pending[c.Header.ID]
	if !ok {
		p = &partial{
			total:     c.Header.Total,
			fragments: make(map[int][]byte),
			firstSeen: now,
		}
		a.pending[c.Header.ID] = p
	}
	if c.Header.Total != p.total {
		return nil, fmt.Errorf("%w: total changed mid-stream", ErrMalformedChunk)
	}
	if _, dup := p.fragments[c.Header.Index]; dup {
		return nil, nil
	}
	p.fragments[c.Header.Index] = data

	if len(p.fragments) < p.total {
		return nil, nil
	}

	// Complete: concatenate in index order and clear the buffer.
	var payload []byte
	for i := 0; i < p.total; i++ {
		payload = append(payload, p.fragments[i]...)
	}
	delete(a.pending, c.Header.ID)
	a.completed[c.Header.ID] = now

	return payload, nil
}

// PendingCount reports how many messages are awaiting fragments.
func (a *Assembler) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// sweepLocked drops stale incomplete fragment sets and expires completed-id
// memory. Called with the lock held, at most once per half max-age.
func (a *Assembler) sweepLocked(now time.Time) {
	if now.Sub(a.lastSweep) < a.maxAge/2 {
		return
	}
	a.lastSweep = now

	for id, p := range a.pending {
		if now.Sub(p.firstSeen) > a.maxAge {
			delete(a.pending, id)
		}
	}
	for id, doneAt := range a.completed {
		if now.Sub(doneAt) > a.maxAge {
			delete(a.completed, id)
		}
	}
}
