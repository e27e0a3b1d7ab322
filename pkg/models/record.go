package models

import "time"

type RecordKind string

const (
	KindDocument     RecordKind = "document"
	KindConversation RecordKind = "conversation"
)

// Metadata keys written by the memory manager
const (
	MetaType         = "type"
	MetaChunkID      = "chunk_id"
	MetaChunkIndex   = "chunk_index"
	MetaTotalChunks  = "total_chunks"
	MetaTimestamp    = "timestamp"
	MetaSource       = "source"
	MetaFilePath     = "file_path"
	MetaFileType     = "file_type"
	MetaUserMessage  = "user_message"
	MetaBotResponse  = "bot_response"
	MetaEmotions     = "emotions"
	DefaultSourceTag = "Unknown"
)

// MemoryRecord is the unit stored in a collection. Records are immutable once written.
type MemoryRecord struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Vector    []float32              `json:"vector,omitempty"`
	Kind      RecordKind             `json:"kind"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// QueryResult is a record returned by a similarity query. Distance is cosine distance,
// lower is more similar.
type QueryResult struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Kind     RecordKind             `json:"kind"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Distance float64                `json:"distance"`
	// Vector is the stored embedding, kept for reranking and never serialized.
	Vector []float32 `json:"-"`
}

// Source returns the document source tag of the result, or "Unknown".
func (r QueryResult) Source() string {
	if s, ok := r.Metadata[MetaSource].(string); ok && s != "" {
		return s
	}
	return DefaultSourceTag
}

type CollectionStats struct {
	CollectionName string `json:"collection_name"`
	TotalItems     int    `json:"total_items"`
	DocumentChunks int    `json:"document_chunks"`
	Conversations  int    `json:"conversations"`
	// SampleSize is the number of records the type breakdown was computed from.
	SampleSize int `json:"sample_size"`
	// Approximate is true when the breakdown covers fewer records than TotalItems.
	Approximate bool `json:"approximate"`
}

// DocumentInput is a request to chunk, embed and store a plain-text document.
// A zero ChunkSize and a nil ChunkOverlap select the manager defaults independently.
type DocumentInput struct {
	Text         string                 `json:"text"         validate:"required"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	SourcePath   string                 `json:"source_path,omitempty"`
	ChunkSize    int                    `json:"chunk_size,omitempty"    validate:"gte=0"`
	ChunkOverlap *int                   `json:"chunk_overlap,omitempty" validate:"omitempty,gte=0"`
}
