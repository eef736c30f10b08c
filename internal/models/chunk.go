package models

// ChunkHeader carries the reassembly coordinates for one fragment of an
// oversized payload.
type ChunkHeader struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	ID    string `json:"id"`
}

// Chunk is one fragment of a logical message split to fit the transport's
// per-message byte ceiling. All fragments of a message share the same ID.
type Chunk struct {
	Header ChunkHeader `json:"_chunk"`
	Data   string      `json:"data"`
}
