package models

import "context"

// MemoryManager is the retrieval-augmented memory of the assistant.
type MemoryManager interface {
	AddDocument(ctx context.Context, doc *DocumentInput) error
	AddConversation(ctx context.Context, userMessage, botResponse string, emotions *EmotionProfile) error
	SearchSimilar(ctx context.Context, query string, nResults int, filter MetadataFilter) []QueryResult
	SearchMMR(
		ctx context.Context,
		query string,
		nResults int,
		filter MetadataFilter,
		lambda float64,
	) []QueryResult
	GetRelevantContext(ctx context.Context, query string, maxContextLength int) string
	GenerateResponse(ctx context.Context, userMessage string, emotions *EmotionProfile) string
	GetCollectionStats(ctx context.Context) (CollectionStats, error)
	ClearCollection(ctx context.Context) error
}

type Reply struct {
	SessionID string          `json:"session_id"`
	Text      string          `json:"text"`
	Emotions  *EmotionProfile `json:"emotions,omitempty"`
}

// Responder produces a reply for one conversation turn.
type Responder interface {
	Respond(ctx context.Context, session *ConversationSession, message string) Reply
}
