package emotion

import (
	"strings"
	"unicode"

	"github.com/jonreiter/govader"
)

// SentimentAnalyzer returns the polarity in [-1, 1] and subjectivity in [0, 1] of a text.
type SentimentAnalyzer interface {
	Analyze(text string) (polarity, subjectivity float64)
}

// VaderAnalyzer takes polarity from the VADER compound score. VADER has no notion of
// subjectivity, so that comes from the subjectivity weights of the word lexicon.
type VaderAnalyzer struct {
	vader   *govader.SentimentIntensityAnalyzer
	lexicon *LexiconAnalyzer
}

var _ SentimentAnalyzer = (*VaderAnalyzer)(nil)

func NewVaderAnalyzer() *VaderAnalyzer {
	return &VaderAnalyzer{
		vader:   govader.NewSentimentIntensityAnalyzer(),
		lexicon: NewLexiconAnalyzer(),
	}
}

func (a *VaderAnalyzer) Analyze(text string) (float64, float64) {
	if strings.TrimSpace(text) == "" {
		return 0, 0
	}
	_, subjectivity := a.lexicon.Analyze(text)
	compound := a.vader.PolarityScores(text).Compound
	return max(-1, min(1, compound)), subjectivity
}

type lexiconEntry struct {
	polarity     float64
	subjectivity float64
}

// LexiconAnalyzer scores sentiment by averaging the polarity of known adjectives and
// verbs. A negation flips and halves the polarity of the following sentiment word, an
// intensifier scales it.
type LexiconAnalyzer struct {
	lexicon      map[string]lexiconEntry
	intensifiers map[string]float64
	negations    map[string]struct{}
}

var _ SentimentAnalyzer = (*LexiconAnalyzer)(nil)

func NewLexiconAnalyzer() *LexiconAnalyzer {
	return &LexiconAnalyzer{
		lexicon:      defaultLexicon,
		intensifiers: defaultIntensifiers,
		negations:    defaultNegations,
	}
}

func (a *LexiconAnalyzer) Analyze(text string) (float64, float64) {
	tokens := tokenize(text)

	var polaritySum, subjectivitySum float64
	var hits int
	negate := false
	scale := 1.0
	for _, tok := range tokens {
		if _, ok := a.negations[tok]; ok {
			negate = true
			continue
		}
		if m, ok := a.intensifiers[tok]; ok {
			scale *= m
			continue
		}
		entry, ok := a.lexicon[tok]
		if !ok {
			continue
		}

		p := entry.polarity * scale
		if negate {
			p *= -0.5
		}
		polaritySum += p
		subjectivitySum += min(entry.subjectivity*scale, 1)
		hits++

		negate = false
		scale = 1.0
	}

	if hits == 0 {
		return 0, 0
	}
	polarity := polaritySum / float64(hits)
	return max(-1, min(1, polarity)), subjectivitySum / float64(hits)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

var defaultNegations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "don't": {}, "doesn't": {}, "didn't": {},
	"isn't": {}, "wasn't": {}, "aren't": {}, "can't": {}, "cannot": {}, "won't": {},
	"hardly": {},
}

var defaultIntensifiers = map[string]float64{
	"very":       1.3,
	"really":     1.3,
	"so":         1.2,
	"extremely":  1.5,
	"incredibly": 1.5,
	"too":        1.2,
	"quite":      1.1,
	"slightly":   0.6,
	"somewhat":   0.7,
}

var defaultLexicon = map[string]lexiconEntry{
	// positive
	"happy":      {0.8, 1.0},
	"glad":       {0.5, 1.0},
	"good":       {0.7, 0.6},
	"great":      {0.8, 0.75},
	"excellent":  {1.0, 1.0},
	"amazing":    {0.6, 0.9},
	"awesome":    {1.0, 1.0},
	"wonderful":  {1.0, 1.0},
	"fantastic":  {0.4, 0.9},
	"love":       {0.5, 0.6},
	"lovely":     {0.5, 0.75},
	"nice":       {0.6, 1.0},
	"excited":    {0.4, 0.75},
	"exciting":   {0.3, 0.8},
	"thrilled":   {0.6, 0.8},
	"delighted":  {0.7, 0.9},
	"cheerful":   {0.8, 0.9},
	"pleased":    {0.5, 0.8},
	"calm":       {0.3, 0.75},
	"grateful":   {0.6, 0.8},
	"thankful":   {0.5, 0.7},
	"proud":      {0.8, 1.0},
	"hopeful":    {0.5, 0.8},
	"relieved":   {0.4, 0.7},
	"better":     {0.5, 0.5},
	"best":       {1.0, 0.3},
	"fun":        {0.3, 0.2},
	"beautiful":  {0.85, 1.0},
	"enjoy":      {0.4, 0.5},
	"perfect":    {1.0, 1.0},
	"kind":       {0.6, 0.9},
	"helpful":    {0.5, 0.6},
	"confident":  {0.5, 0.8},
	"peaceful":   {0.5, 0.7},
	"surprised":  {0.1, 0.7},
	"astonished": {0.1, 0.8},
	// negative
	"sad":          {-0.5, 1.0},
	"unhappy":      {-0.6, 0.9},
	"depressed":    {-0.7, 0.8},
	"upset":        {-0.6, 0.8},
	"disappointed": {-0.75, 0.75},
	"heartbroken":  {-0.9, 1.0},
	"down":         {-0.15, 0.3},
	"lonely":       {-0.6, 0.9},
	"angry":        {-0.5, 1.0},
	"furious":      {-0.8, 1.0},
	"mad":          {-0.6, 1.0},
	"irritated":    {-0.5, 0.8},
	"annoyed":      {-0.4, 0.8},
	"frustrated":   {-0.7, 0.8},
	"scared":       {-0.6, 0.9},
	"afraid":       {-0.6, 0.9},
	"terrified":    {-0.9, 1.0},
	"anxious":      {-0.4, 0.8},
	"worried":      {-0.5, 0.8},
	"nervous":      {-0.3, 0.8},
	"shocked":      {-0.3, 0.8},
	"stunned":      {-0.1, 0.7},
	"disgusted":    {-0.8, 1.0},
	"revolted":     {-0.8, 1.0},
	"sick":         {-0.7, 0.9},
	"nauseated":    {-0.6, 0.9},
	"repulsed":     {-0.8, 1.0},
	"bad":          {-0.7, 0.67},
	"terrible":     {-1.0, 1.0},
	"awful":        {-1.0, 1.0},
	"horrible":     {-1.0, 1.0},
	"hate":         {-0.8, 0.9},
	"worst":        {-1.0, 1.0},
	"worse":        {-0.4, 0.6},
	"tired":        {-0.4, 0.7},
	"stressed":     {-0.5, 0.8},
	"hurt":         {-0.6, 0.8},
	"painful":      {-0.7, 0.9},
	"miserable":    {-1.0, 1.0},
	"hopeless":     {-0.8, 0.9},
	"boring":       {-1.0, 1.0},
	"difficult":    {-0.5, 1.0},
	"wrong":        {-0.5, 0.9},
	"stupid":       {-0.8, 1.0},
	"ugly":         {-0.7, 1.0},
	"alone":        {-0.2, 0.5},
}
