package emotion

import (
	"strings"

	"github.com/emotibot/emotibot/pkg/models"
)

const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

// Category is an emotion label and the keywords that signal it.
type Category struct {
	Label    string
	Keywords []string
}

// DefaultCategories is the canonical label order. Ties and all-zero scores resolve to
// the earliest label.
var DefaultCategories = []Category{
	{Label: "joy", Keywords: []string{"happy", "excited", "thrilled", "delighted", "cheerful", "glad", "pleased"}},
	{Label: "sadness", Keywords: []string{"sad", "depressed", "upset", "disappointed", "heartbroken", "down"}},
	{Label: "anger", Keywords: []string{"angry", "furious", "mad", "irritated", "annoyed", "frustrated"}},
	{Label: "fear", Keywords: []string{"scared", "afraid", "terrified", "anxious", "worried", "nervous"}},
	{Label: "surprise", Keywords: []string{"surprised", "shocked", "amazed", "astonished", "stunned"}},
	{Label: "disgust", Keywords: []string{"disgusted", "revolted", "sick", "nauseated", "repulsed"}},
}

type Scorer struct {
	categories []Category
	analyzer   SentimentAnalyzer
}

var _ models.EmotionScorer = (*Scorer)(nil)

type Option func(*Scorer)

// WithCategories replaces the default categories. The slice order is the tie-break order.
func WithCategories(categories []Category) Option {
	return func(s *Scorer) {
		if len(categories) > 0 {
			s.categories = categories
		}
	}
}

func WithAnalyzer(analyzer SentimentAnalyzer) Option {
	return func(s *Scorer) {
		if analyzer != nil {
			s.analyzer = analyzer
		}
	}
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		categories: DefaultCategories,
		analyzer:   NewVaderAnalyzer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Labels returns the category labels in canonical order.
func (s *Scorer) Labels() []string {
	labels := make([]string, len(s.categories))
	for i, c := range s.categories {
		labels[i] = c.Label
	}
	return labels
}

func (s *Scorer) Score(text string) models.EmotionProfile {
	scores := s.KeywordScores(text)
	dominant, confidence := s.dominant(scores)

	return models.EmotionProfile{
		Text:            text,
		Sentiment:       s.Sentiment(text),
		EmotionScores:   scores,
		Labels:          s.Labels(),
		DominantEmotion: dominant,
		Confidence:      confidence,
		TextLength:      len(text),
		WordCount:       len(strings.Fields(text)),
	}
}

func (s *Scorer) Sentiment(text string) models.Sentiment {
	polarity, subjectivity := s.analyzer.Analyze(text)
	return models.Sentiment{
		Polarity:     polarity,
		Subjectivity: subjectivity,
		Label:        LabelForPolarity(polarity),
	}
}

// KeywordScores returns, for each category, the fraction of its keywords found as
// substrings of the lowercased text. Each keyword counts at most once.
func (s *Scorer) KeywordScores(text string) map[string]float64 {
	lower := strings.ToLower(text)
	scores := make(map[string]float64, len(s.categories))
	for _, c := range s.categories {
		if len(c.Keywords) == 0 {
			scores[c.Label] = 0
			continue
		}
		found := 0
		for _, kw := range c.Keywords {
			if strings.Contains(lower, kw) {
				found++
			}
		}
		scores[c.Label] = float64(found) / float64(len(c.Keywords))
	}
	return scores
}

func (s *Scorer) dominant(scores map[string]float64) (string, float64) {
	if len(s.categories) == 0 {
		return "", 0
	}
	best := s.categories[0].Label
	bestScore := scores[best]
	for _, c := range s.categories[1:] {
		if scores[c.Label] > bestScore {
			best = c.Label
			bestScore = scores[c.Label]
		}
	}
	return best, bestScore
}

func LabelForPolarity(polarity float64) models.SentimentLabel {
	switch {
	case polarity > positiveThreshold:
		return models.SentimentPositive
	case polarity < negativeThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}
