package models

// Request and response bodies of the HTTP API.

type AddConversationRequest struct {
	UserMessage string          `json:"user_message" validate:"required"`
	BotResponse string          `json:"bot_response" validate:"required"`
	Emotions    *EmotionProfile `json:"emotions,omitempty"`
}

type SearchType string

const (
	SearchTypeSimilarity SearchType = "similarity"
	SearchTypeMMR        SearchType = "mmr"
)

type SearchRequest struct {
	Query      string         `json:"query"                 validate:"required"`
	Limit      int            `json:"limit,omitempty"       validate:"gte=0"`
	Filter     MetadataFilter `json:"filter,omitempty"`
	SearchType SearchType     `json:"search_type,omitempty" validate:"omitempty,oneof=similarity mmr"`
	// MMRLambda trades relevance (1) against diversity (0). Zero selects the default.
	MMRLambda float64 `json:"mmr_lambda,omitempty" validate:"gte=0,lte=1"`
}

type SearchResultPage struct {
	Results []QueryResult `json:"results"`
}

type ContextResponse struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"              validate:"required"`
}

type EmotionRequest struct {
	Text string `json:"text" validate:"required"`
}
