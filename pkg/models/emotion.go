package models

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

type Sentiment struct {
	Polarity     float64        `json:"polarity"`
	Subjectivity float64        `json:"subjectivity"`
	Label        SentimentLabel `json:"label"`
}

// EmotionProfile is the per-turn emotion annotation of a piece of text.
type EmotionProfile struct {
	Text            string             `json:"text"`
	Sentiment       Sentiment          `json:"sentiment"`
	EmotionScores   map[string]float64 `json:"emotion_scores"`
	Labels          []string           `json:"labels"`
	DominantEmotion string             `json:"dominant_emotion"`
	Confidence      float64            `json:"confidence"`
	TextLength      int                `json:"text_length"`
	WordCount       int                `json:"word_count"`
}

type EmotionScorer interface {
	Score(text string) EmotionProfile
}
