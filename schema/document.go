// Package schema defines the data types shared by the document store,
// retrieval and agent packages.
package schema

import "time"

// Document is a single indexed chunk of text with its metadata and
// embedding vector.
type Document struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Vector    []float32              `json:"vector,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Metadata keys written by the chunker and document loader.
const (
	MetaSource     = "source"
	MetaFileType   = "file_type"
	MetaChunkIndex = "chunk_index"
	MetaChunkSize  = "chunk_size"
	MetaLoadedAt   = "loaded_at"
)

// Source returns the document's source name, or "unknown" when the
// metadata carries none.
func (d *Document) Source() string {
	if d.Metadata != nil {
		if s, ok := d.Metadata[MetaSource].(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

// SearchResult pairs a document with its similarity score. Score is a
// cosine similarity in [0, 1]; higher means more similar.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Distance is the Chroma-style view of the score.
func (r SearchResult) Distance() float64 {
	return 1 - r.Score
}

// SearchOptions controls a similarity search.
type SearchOptions struct {
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold"`
}
