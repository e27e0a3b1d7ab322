package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oiime/logrusbun"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/pkg/assistant"
	"github.com/emotibot/emotibot/pkg/auth"
	"github.com/emotibot/emotibot/pkg/emotion"
	"github.com/emotibot/emotibot/pkg/llms"
	"github.com/emotibot/emotibot/pkg/memory"
	"github.com/emotibot/emotibot/pkg/metrics"
	"github.com/emotibot/emotibot/pkg/models"
	"github.com/emotibot/emotibot/pkg/server"
	"github.com/emotibot/emotibot/pkg/store/badger"
	"github.com/emotibot/emotibot/pkg/store/inmemory"
	"github.com/emotibot/emotibot/pkg/store/postgres"
)

const sessionSweepInterval = time.Minute

const (
	StoreTypeMemory   = "memory"
	StoreTypeBadger   = "badger"
	StoreTypePostgres = "postgres"
)

// appContext is an AppState plus the resources that must be released with it.
type appContext struct {
	*models.AppState
	closers []io.Closer
}

func (a *appContext) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// run is the entrypoint for the emotibot server
func run() {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring emotibot: %s", err)
	}

	handleCLIOptions(cfg)

	log.Infof("Starting emotibot server version %s", config.VersionString)

	config.SetLogLevel(cfg)
	appState, err := NewAppState(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	setupSignalHandler(appState)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go appState.Sessions.RunSweeper(sweepCtx, sessionSweepInterval)

	srv, err := server.Create(appState.AppState)
	if err != nil {
		log.Fatal(err)
	}

	log.Infof("Listening on: %s", srv.Addr)
	err = srv.ListenAndServe()
	if err != nil {
		log.Fatal(err)
	}
}

// withAppState loads the config, builds the app state, runs fn and releases
// the app state's resources.
func withAppState(fn func(appState *appContext) error) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("error configuring emotibot: %w", err)
	}
	config.SetLogLevel(cfg)

	appState, err := NewAppState(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := appState.Close(); err != nil {
			log.Errorf("Error closing app state: %v", err)
		}
	}()

	return fn(appState)
}

// NewAppState creates the clients, vector store and memory manager described by the
// config and wires them into an AppState.
func NewAppState(ctx context.Context, cfg *config.Config) (*appContext, error) {
	appState := &appContext{}

	embeddings, err := llms.NewEmbeddingsClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if c, ok := embeddings.(io.Closer); ok {
		appState.closers = append(appState.closers, c)
	}

	llm, err := llms.NewLLMClient(ctx, cfg)
	if err != nil {
		_ = appState.Close()
		return nil, err
	}
	if c, ok := llm.(io.Closer); ok {
		appState.closers = append(appState.closers, c)
	}

	vs, err := newVectorStore(ctx, cfg)
	if err != nil {
		_ = appState.Close()
		return nil, err
	}
	appState.closers = append(appState.closers, vs)
	log.Info("Using vector store: ", cfg.Store.Type)

	state, err := assembleAppState(ctx, cfg, vs, embeddings, llm, llms.NewTokenCounter())
	if err != nil {
		_ = appState.Close()
		return nil, err
	}
	appState.AppState = state
	return appState, nil
}

// assembleAppState wires the memory manager, scorer and assistant around already
// constructed clients. A nil llm disables generation.
func assembleAppState(
	ctx context.Context,
	cfg *config.Config,
	vs models.VectorStore,
	embeddings models.EmbeddingsClient,
	llm models.LLM,
	tokens *llms.TokenCounter,
) (*models.AppState, error) {
	metricsConfig := metrics.DefaultConfig()
	metricsConfig.Enabled = cfg.Metrics.Enabled
	mm := metrics.NewManager(metricsConfig)

	// generation_timeout bounds each attempt; the whole call gets room for every retry
	generationBudget := llms.GenerationBudget(cfg.Assistant.MaxRetries, cfg.Assistant.GenerationTimeout)
	if llm != nil {
		llm = llms.NewResilientLLM(llm, cfg.Assistant.MaxRetries, cfg.Assistant.GenerationTimeout)
	}

	opts := []memory.Option{
		memory.WithChunkSize(cfg.Memory.ChunkSize),
		memory.WithOverlap(cfg.Memory.ChunkOverlap),
		memory.WithSearchResults(cfg.Memory.SearchResults),
		memory.WithMaxContextLength(cfg.Memory.MaxContextLength),
		memory.WithStatsSampleSize(cfg.Memory.StatsSampleSize),
		memory.WithAssistantName(cfg.Memory.AssistantName),
		memory.WithGenerationTimeout(generationBudget),
		memory.WithMetrics(mm),
	}
	if llm != nil {
		opts = append(opts, memory.WithLLM(llm))
	}
	if tokens != nil {
		opts = append(opts, memory.WithTokenCounter(tokens))
	}
	manager, err := memory.NewManager(ctx, vs, embeddings, opts...)
	if err != nil {
		return nil, err
	}

	scorer := emotion.NewScorer()

	assistantOpts := []assistant.Option{
		assistant.WithScorer(scorer),
		assistant.WithMemory(manager),
		assistant.WithAssistantName(cfg.Memory.AssistantName),
		assistant.WithGenerationTimeout(generationBudget),
		assistant.WithMetrics(mm),
	}
	if llm != nil {
		assistantOpts = append(assistantOpts, assistant.WithLLM(llm))
	}

	return &models.AppState{
		Config:     cfg,
		Store:      vs,
		Embeddings: embeddings,
		LLM:        llm,
		Memory:     manager,
		Scorer:     scorer,
		Assistant:  assistant.NewAssistant(assistantOpts...),
		Sessions: models.NewSessionRegistry(
			cfg.Assistant.SessionMaxTurns,
			models.WithMaxSessions(cfg.Assistant.MaxSessions),
			models.WithIdleTTL(cfg.Assistant.SessionIdleTTL),
		),
		Metrics: mm,
	}, nil
}

// newVectorStore opens the vector store selected by store.type
func newVectorStore(ctx context.Context, cfg *config.Config) (models.VectorStore, error) {
	dims := cfg.Embeddings.Dimensions

	switch cfg.Store.Type {
	case StoreTypeMemory:
		return inmemory.NewVectorStore(cfg.Store.Collection, dims)
	case StoreTypeBadger:
		return badger.NewVectorStore(&badger.Config{
			Path:       cfg.Store.Badger.Path,
			Collection: cfg.Store.Collection,
			Dimensions: dims,
		})
	case StoreTypePostgres:
		db, err := postgres.NewPostgresConn(cfg.Store.Postgres.DSN)
		if err != nil {
			return nil, models.NewInitializationError("postgres store", err)
		}
		if cfg.Log.Level == "debug" {
			pgDebugLogging(db)
		}
		vs, err := postgres.NewVectorStore(ctx, db, cfg.Store.Collection, dims)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return vs, nil
	default:
		return nil, models.NewInitializationError(
			"vector store",
			fmt.Errorf("store.type (%s) is not supported", cfg.Store.Type),
		)
	}
}

// handleCLIOptions handles CLI options that don't require the server to run
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if dumpConfig {
		if err := dumpConfigJSON(os.Stdout, cfg); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}
	if generateKey {
		token, err := auth.GenerateToken(cfg)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(token)
		os.Exit(0)
	}
}

// dumpConfigJSON writes the effective config with secrets masked.
func dumpConfigJSON(w io.Writer, cfg *config.Config) error {
	masked := *cfg
	for _, secret := range []*string{
		&masked.LLM.OpenAIAPIKey,
		&masked.LLM.AnthropicAPIKey,
		&masked.LLM.GoogleAPIKey,
		&masked.Embeddings.OpenAIAPIKey,
		&masked.Embeddings.GoogleAPIKey,
		&masked.Auth.Secret,
		&masked.Store.Postgres.DSN,
	} {
		if *secret != "" {
			*secret = "********"
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(masked)
}

func pgDebugLogging(db *bun.DB) {
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}

// setupSignalHandler sets up a signal handler to close the vector store on termination
func setupSignalHandler(appState *appContext) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		if err := appState.Close(); err != nil {
			log.Errorf("Error closing vector store: %v", err)
		}
		os.Exit(0)
	}()
}
