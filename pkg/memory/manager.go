// Package memory implements the retrieval-augmented memory of the assistant: documents
// and past conversations are embedded into one vector collection and retrieved as
// context for response generation.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"

	"github.com/emotibot/emotibot/internal"
	"github.com/emotibot/emotibot/pkg/chunker"
	"github.com/emotibot/emotibot/pkg/llms"
	"github.com/emotibot/emotibot/pkg/metrics"
	"github.com/emotibot/emotibot/pkg/models"
	"github.com/emotibot/emotibot/pkg/search"
)

var log = internal.GetLogger()

var _ models.MemoryManager = &Manager{}

// mmrFetchFactor is the number of candidates an MMR search ranks per requested result.
const mmrFetchFactor = 4

type Manager struct {
	store      models.VectorStore
	embeddings models.EmbeddingsClient
	llm        models.LLM

	chunkSize        int
	overlap          int
	searchResults    int
	maxContextLength int
	statsSampleSize  int
	assistantName    string

	generationTimeout time.Duration

	tokens  *llms.TokenCounter
	metrics *metrics.Manager
	now     func() time.Time

	// storeMu serializes store calls for adapters that are not safe for concurrent use
	storeMu   sync.Mutex
	serialize bool
}

// NewManager returns a ready Manager. The store is probed once and any failure, or an
// embeddings client whose width differs from the collection's, is an InitializationError.
func NewManager(
	ctx context.Context,
	store models.VectorStore,
	embeddings models.EmbeddingsClient,
	opts ...Option,
) (*Manager, error) {
	if store == nil {
		return nil, models.NewInitializationError("memory manager", errors.New("vector store is nil"))
	}
	if embeddings == nil {
		return nil, models.NewInitializationError("memory manager", errors.New("embeddings client is nil"))
	}
	if embeddings.Dimensions() != store.Dimensions() {
		return nil, models.NewInitializationError(
			"memory manager",
			fmt.Errorf(
				"embeddings produce %d dimensions but collection %s holds %d",
				embeddings.Dimensions(),
				store.CollectionName(),
				store.Dimensions(),
			),
		)
	}

	m := defaultManager()
	m.store = store
	m.embeddings = embeddings
	m.serialize = !store.ConcurrentSafe()
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.NoOpManager()
	}

	var count int
	err := m.withStore(func() error {
		var err error
		count, err = store.Count(ctx)
		return err
	})
	if err != nil {
		return nil, models.NewInitializationError("memory manager", err)
	}

	log.Infof(
		"memory manager ready: collection %s holds %d records",
		store.CollectionName(),
		count,
	)
	return m, nil
}

func (m *Manager) withStore(fn func() error) error {
	if m.serialize {
		m.storeMu.Lock()
		defer m.storeMu.Unlock()
	}
	return fn()
}

// embed calls the embeddings client once for the whole batch and checks that one
// vector came back per text.
func (m *Manager) embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := m.embeddings.EmbedTexts(ctx, texts)
	if err != nil {
		m.metrics.RecordEmbedding("error", time.Since(start))
		if errors.Is(err, models.ErrEmbedding) {
			return nil, err
		}
		return nil, models.NewEmbeddingError("failed to embed texts", err)
	}
	if len(vectors) != len(texts) {
		m.metrics.RecordEmbedding("error", time.Since(start))
		return nil, models.NewEmbeddingError(
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(vectors)),
			nil,
		)
	}
	m.metrics.RecordEmbedding("success", time.Since(start))
	return vectors, nil
}

func (m *Manager) upsert(ctx context.Context, records []models.MemoryRecord) error {
	return m.withStore(func() error {
		return m.store.Upsert(ctx, records)
	})
}

// AddDocument chunks the text, embeds every chunk in a single request and writes the
// chunks as one batch. On any failure nothing is written.
func (m *Manager) AddDocument(ctx context.Context, doc *models.DocumentInput) error {
	if doc == nil {
		return models.NewValidationError("document", "document is nil")
	}

	chunkSize, overlap := m.chunkSize, m.overlap
	if doc.ChunkSize > 0 {
		chunkSize = doc.ChunkSize
	}
	if doc.ChunkOverlap != nil {
		overlap = *doc.ChunkOverlap
	}

	chunks := chunker.Chunk(doc.Text, chunkSize, overlap)
	if len(chunks) == 0 {
		log.Warn("document produced no chunks, nothing added")
		m.metrics.RecordMemoryError("add_document")
		return models.NewValidationError("text", "document produced no chunks")
	}

	vectors, err := m.embed(ctx, chunks)
	if err != nil {
		log.Errorf("failed to embed document: %v", err)
		m.metrics.RecordMemoryError("add_document")
		return err
	}

	timestamp := m.now()
	records := make([]models.MemoryRecord, len(chunks))
	for i, chunk := range chunks {
		id := uuid.NewString()
		metadata := map[string]interface{}{
			models.MetaChunkID:     id,
			models.MetaChunkIndex:  i,
			models.MetaTotalChunks: len(chunks),
			models.MetaTimestamp:   timestamp.Format(time.RFC3339Nano),
			models.MetaType:        string(models.KindDocument),
		}
		if doc.SourcePath != "" {
			metadata[models.MetaSource] = filepath.Base(doc.SourcePath)
			metadata[models.MetaFilePath] = doc.SourcePath
			metadata[models.MetaFileType] = filepath.Ext(doc.SourcePath)
		}
		if len(doc.Metadata) > 0 {
			if err := mergo.Merge(&metadata, doc.Metadata, mergo.WithOverride); err != nil {
				m.metrics.RecordMemoryError("add_document")
				return models.NewValidationError("metadata", err.Error())
			}
		}
		// kind and type must agree whatever the caller passed
		metadata[models.MetaType] = string(models.KindDocument)

		records[i] = models.MemoryRecord{
			ID:        id,
			Text:      chunk,
			Vector:    vectors[i],
			Kind:      models.KindDocument,
			Metadata:  metadata,
			CreatedAt: timestamp,
		}
	}

	if err := m.upsert(ctx, records); err != nil {
		log.Errorf("failed to store document chunks: %v", err)
		m.metrics.RecordMemoryError("add_document")
		return err
	}

	m.metrics.RecordRecordsAdded(string(models.KindDocument), len(records))
	log.Infof("added document with %d chunks to %s", len(records), m.store.CollectionName())
	return nil
}

// AddDocumentText adds already extracted text from a file, tagging the chunks with the
// file's name, path and extension.
func (m *Manager) AddDocumentText(
	ctx context.Context,
	text, sourcePath string,
	metadata map[string]interface{},
) error {
	return m.AddDocument(ctx, &models.DocumentInput{
		Text:       text,
		SourcePath: sourcePath,
		Metadata:   metadata,
	})
}

func (m *Manager) conversationText(userMessage, botResponse string) string {
	return fmt.Sprintf("User: %s\n%s: %s", userMessage, m.assistantName, botResponse)
}

// AddConversation stores one exchange as a single record.
func (m *Manager) AddConversation(
	ctx context.Context,
	userMessage, botResponse string,
	emotions *models.EmotionProfile,
) error {
	text := m.conversationText(userMessage, botResponse)

	vectors, err := m.embed(ctx, []string{text})
	if err != nil {
		log.Errorf("failed to embed conversation: %v", err)
		m.metrics.RecordMemoryError("add_conversation")
		return err
	}

	timestamp := m.now()
	metadata := map[string]interface{}{
		models.MetaType:        string(models.KindConversation),
		models.MetaUserMessage: userMessage,
		models.MetaBotResponse: botResponse,
		models.MetaTimestamp:   timestamp.Format(time.RFC3339Nano),
	}
	if emotions != nil {
		b, err := json.Marshal(emotions)
		if err != nil {
			m.metrics.RecordMemoryError("add_conversation")
			return models.NewValidationError("emotions", err.Error())
		}
		metadata[models.MetaEmotions] = string(b)
	}

	record := models.MemoryRecord{
		ID:        uuid.NewString(),
		Text:      text,
		Vector:    vectors[0],
		Kind:      models.KindConversation,
		Metadata:  metadata,
		CreatedAt: timestamp,
	}
	if err := m.upsert(ctx, []models.MemoryRecord{record}); err != nil {
		log.Errorf("failed to store conversation: %v", err)
		m.metrics.RecordMemoryError("add_conversation")
		return err
	}

	m.metrics.RecordRecordsAdded(string(models.KindConversation), 1)
	log.Debugf("added conversation %s to %s", record.ID, m.store.CollectionName())
	return nil
}

// SearchSimilar returns up to nResults records nearest to query. Failures are logged and
// yield an empty result. A nResults <= 0 selects the configured default.
func (m *Manager) SearchSimilar(
	ctx context.Context,
	query string,
	nResults int,
	filter models.MetadataFilter,
) []models.QueryResult {
	if nResults <= 0 {
		nResults = m.searchResults
	}
	results, _ := m.searchCandidates(ctx, query, nResults, filter)
	return results
}

// SearchMMR is SearchSimilar with the candidates reranked by maximal marginal relevance,
// so near-duplicate chunks do not crowd out other results. If reranking fails the
// similarity order is kept.
func (m *Manager) SearchMMR(
	ctx context.Context,
	query string,
	nResults int,
	filter models.MetadataFilter,
	lambda float64,
) []models.QueryResult {
	if nResults <= 0 {
		nResults = m.searchResults
	}
	candidates, vector := m.searchCandidates(ctx, query, nResults*mmrFetchFactor, filter)
	if len(candidates) == 0 {
		return candidates
	}

	reranked, err := search.RerankMMR(vector, candidates, lambda, nResults)
	if err != nil {
		log.Warnf("mmr rerank failed, keeping similarity order: %v", err)
		m.metrics.RecordMemoryError("search_mmr")
		if len(candidates) > nResults {
			candidates = candidates[:nResults]
		}
		return candidates
	}
	return reranked
}

// searchCandidates embeds query and returns the k nearest records with the query vector.
func (m *Manager) searchCandidates(
	ctx context.Context,
	query string,
	k int,
	filter models.MetadataFilter,
) ([]models.QueryResult, []float32) {
	if strings.TrimSpace(query) == "" {
		return []models.QueryResult{}, nil
	}

	start := time.Now()
	defer func() {
		m.metrics.RecordSearch(time.Since(start))
	}()

	vectors, err := m.embed(ctx, []string{query})
	if err != nil {
		log.Errorf("failed to embed search query: %v", err)
		m.metrics.RecordMemoryError("search")
		return []models.QueryResult{}, nil
	}

	var results []models.QueryResult
	err = m.withStore(func() error {
		var err error
		results, err = m.store.Query(ctx, vectors[0], k, filter)
		return err
	})
	if err != nil {
		log.Errorf("failed to query %s: %v", m.store.CollectionName(), err)
		m.metrics.RecordMemoryError("search")
		return []models.QueryResult{}, nil
	}
	if results == nil {
		results = []models.QueryResult{}
	}
	return results, vectors[0]
}

// contextPart renders one search result as a context fragment.
func contextPart(r models.QueryResult) string {
	if r.Kind == models.KindConversation {
		return fmt.Sprintf("Previous conversation: %s\n", r.Text)
	}
	return fmt.Sprintf("From %s: %s\n", r.Source(), r.Text)
}

// GetRelevantContext concatenates the nearest records into a context string. Parts are
// taken in rank order and the first part that would exceed maxContextLength ends the
// context. A maxContextLength <= 0 selects the configured default.
func (m *Manager) GetRelevantContext(ctx context.Context, query string, maxContextLength int) string {
	if maxContextLength <= 0 {
		maxContextLength = m.maxContextLength
	}

	results := m.SearchSimilar(ctx, query, m.searchResults, nil)
	return buildContext(results, maxContextLength)
}

func buildContext(results []models.QueryResult, maxContextLength int) string {
	parts := make([]string, 0, len(results))
	length := 0
	for _, r := range results {
		part := contextPart(r)
		if length+len(part) > maxContextLength {
			break
		}
		parts = append(parts, part)
		length += len(part)
	}
	return strings.Join(parts, "\n")
}

func emotionInfo(emotions *models.EmotionProfile) string {
	if emotions == nil || emotions.DominantEmotion == "" {
		return ""
	}
	return fmt.Sprintf(
		"The user seems to be feeling %s (confidence: %.2f). ",
		emotions.DominantEmotion,
		emotions.Confidence,
	)
}

// BuildPrompt renders the generation prompt for a user message and its retrieved context.
func (m *Manager) BuildPrompt(
	userMessage, context string,
	emotions *models.EmotionProfile,
) (string, error) {
	return RenderPrompt(m.assistantName, userMessage, context, emotions)
}

// RenderPrompt renders the generation prompt. The emotion hint is omitted when
// emotions is nil.
func RenderPrompt(
	assistantName, userMessage, context string,
	emotions *models.EmotionProfile,
) (string, error) {
	if assistantName == "" {
		assistantName = DefaultAssistantName
	}
	return internal.ParsePrompt(responsePromptTemplate, responsePromptData{
		AssistantName: assistantName,
		EmotionInfo:   emotionInfo(emotions),
		Context:       context,
		UserMessage:   userMessage,
	})
}

// GenerateResponse answers the user with retrieved context and stores the exchange.
// It always returns text: any failure yields FallbackResponse.
func (m *Manager) GenerateResponse(
	ctx context.Context,
	userMessage string,
	emotions *models.EmotionProfile,
) string {
	start := time.Now()
	if m.llm == nil {
		log.Warn("no llm configured, returning fallback response")
		m.metrics.RecordGeneration("unconfigured", time.Since(start))
		return FallbackResponse
	}

	relevant := m.GetRelevantContext(ctx, userMessage, m.maxContextLength)

	prompt, err := m.BuildPrompt(userMessage, relevant, emotions)
	if err != nil {
		log.Errorf("failed to build prompt: %v", err)
		m.metrics.RecordGeneration("fallback", time.Since(start))
		return FallbackResponse
	}
	if m.tokens != nil {
		log.Debugf("generation prompt has %d tokens", m.tokens.Count(prompt))
	}

	genCtx, cancel := ctx, context.CancelFunc(func() {})
	if m.generationTimeout > 0 {
		genCtx, cancel = context.WithTimeout(ctx, m.generationTimeout)
	}
	response, err := m.llm.Call(genCtx, prompt)
	cancel()
	if err == nil && strings.TrimSpace(response) == "" {
		err = models.NewGenerationError("llm returned an empty response", nil)
	}
	if err != nil {
		log.Errorf("failed to generate response: %v", err)
		m.metrics.RecordGeneration("fallback", time.Since(start))
		return FallbackResponse
	}
	response = strings.TrimSpace(response)
	m.metrics.RecordGeneration("success", time.Since(start))

	// storing the exchange is best effort and outlives a cancelled caller
	if err := m.AddConversation(context.WithoutCancel(ctx), userMessage, response, emotions); err != nil {
		log.Warnf("failed to remember conversation: %v", err)
	}

	return response
}

// GetCollectionStats returns the exact record count and a kind breakdown computed from
// a bounded sample of the oldest records.
func (m *Manager) GetCollectionStats(ctx context.Context) (models.CollectionStats, error) {
	stats := models.CollectionStats{CollectionName: m.store.CollectionName()}

	var sample []models.MemoryRecord
	err := m.withStore(func() error {
		var err error
		if stats.TotalItems, err = m.store.Count(ctx); err != nil {
			return err
		}
		sample, err = m.store.Get(ctx, m.statsSampleSize)
		return err
	})
	if err != nil {
		log.Errorf("failed to get collection stats: %v", err)
		m.metrics.RecordMemoryError("stats")
		return models.CollectionStats{}, err
	}

	for _, r := range sample {
		switch r.Kind {
		case models.KindDocument:
			stats.DocumentChunks++
		case models.KindConversation:
			stats.Conversations++
		}
	}
	stats.SampleSize = len(sample)
	stats.Approximate = stats.SampleSize < stats.TotalItems

	return stats, nil
}

// ClearCollection deletes every record. The collection is recreated empty with the
// same name and dimensions.
func (m *Manager) ClearCollection(ctx context.Context) error {
	err := m.withStore(func() error {
		return m.store.DropAndRecreate(ctx)
	})
	if err != nil {
		log.Errorf("failed to clear collection %s: %v", m.store.CollectionName(), err)
		m.metrics.RecordMemoryError("clear")
		return err
	}
	log.Infof("cleared collection %s", m.store.CollectionName())
	return nil
}
