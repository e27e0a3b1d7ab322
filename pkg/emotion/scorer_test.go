package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emotibot/emotibot/pkg/models"
)

type fixedAnalyzer struct {
	polarity, subjectivity float64
}

func (f fixedAnalyzer) Analyze(string) (float64, float64) {
	return f.polarity, f.subjectivity
}

func TestScoreJoyCoverage(t *testing.T) {
	profile := NewScorer().Score("I'm so happy and excited about tomorrow!")

	assert.InDelta(t, 2.0/7.0, profile.EmotionScores["joy"], 1e-9)
	assert.Equal(t, "joy", profile.DominantEmotion)
	assert.InDelta(t, 2.0/7.0, profile.Confidence, 1e-9)
	assert.Equal(t, models.SentimentPositive, profile.Sentiment.Label)
	assert.Equal(t, 7, profile.WordCount)
	assert.Equal(t, len("I'm so happy and excited about tomorrow!"), profile.TextLength)
}

func TestScoreZeroMatchesPicksFirstLabel(t *testing.T) {
	texts := []string{"", "The meeting is at three.", "Please pass the salt"}
	s := NewScorer()

	for _, text := range texts {
		profile := s.Score(text)
		assert.Equal(t, "joy", profile.DominantEmotion)
		assert.Equal(t, 0.0, profile.Confidence)
		assert.Equal(t, s.Labels(), profile.Labels)
		assert.Len(t, profile.EmotionScores, len(DefaultCategories))
	}
}

func TestScoreTieBreakUsesCanonicalOrder(t *testing.T) {
	// one of six sadness keywords and one of six anger keywords
	profile := NewScorer().Score("I was sad and then angry")

	assert.Equal(t, profile.EmotionScores["sadness"], profile.EmotionScores["anger"])
	assert.Equal(t, "sadness", profile.DominantEmotion)
}

func TestScoreCountsKeywordOnce(t *testing.T) {
	scores := NewScorer().KeywordScores("happy happy happy HAPPY")
	assert.InDelta(t, 1.0/7.0, scores["joy"], 1e-9)
}

func TestScoreSubstringMatch(t *testing.T) {
	// "mad" is found inside "made" as a plain substring
	scores := NewScorer().KeywordScores("She made dinner")
	assert.InDelta(t, 1.0/6.0, scores["anger"], 1e-9)
}

func TestScoreCustomCategories(t *testing.T) {
	s := NewScorer(WithCategories([]Category{
		{Label: "calm", Keywords: []string{"calm", "relaxed"}},
		{Label: "stress", Keywords: []string{"deadline"}},
	}))

	profile := s.Score("A deadline tomorrow")
	assert.Equal(t, "stress", profile.DominantEmotion)
	assert.Equal(t, 1.0, profile.Confidence)
	assert.Equal(t, []string{"calm", "stress"}, profile.Labels)
}

func TestSentimentLabels(t *testing.T) {
	tests := []struct {
		name     string
		polarity float64
		expected models.SentimentLabel
	}{
		{name: "positive", polarity: 0.5, expected: models.SentimentPositive},
		{name: "upper dead zone", polarity: 0.1, expected: models.SentimentNeutral},
		{name: "zero", polarity: 0, expected: models.SentimentNeutral},
		{name: "lower dead zone", polarity: -0.1, expected: models.SentimentNeutral},
		{name: "negative", polarity: -0.4, expected: models.SentimentNegative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScorer(WithAnalyzer(fixedAnalyzer{polarity: tt.polarity, subjectivity: 0.5}))
			sentiment := s.Sentiment("anything")
			assert.Equal(t, tt.expected, sentiment.Label)
			assert.Equal(t, tt.polarity, sentiment.Polarity)
			assert.Equal(t, 0.5, sentiment.Subjectivity)
		})
	}
}
