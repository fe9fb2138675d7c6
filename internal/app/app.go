package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/clients/lake"
	"github.com/ternarybob/lacuna/internal/clients/source"
	"github.com/ternarybob/lacuna/internal/clients/transform"
	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/handlers"
	"github.com/ternarybob/lacuna/internal/ingestion"
	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/services/auth"
	"github.com/ternarybob/lacuna/internal/services/chunking"
	"github.com/ternarybob/lacuna/internal/services/embedding"
	"github.com/ternarybob/lacuna/internal/services/llm"
	"github.com/ternarybob/lacuna/internal/services/rag"
	"github.com/ternarybob/lacuna/internal/services/retrieval"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Upstream clients
	SourceClient    *source.Client
	LakeClient      *lake.Client
	TransformClient interfaces.TransformClient
	Provisioner     interfaces.ModelProvisioner

	// Services
	ChunkingService  interfaces.ChunkingService
	EmbeddingService interfaces.EmbeddingService
	ChatService      interfaces.ChatService
	SearchService    interfaces.SearchService
	RagService       interfaces.RagService
	AuthService      interfaces.AuthService

	// Ingestion pipeline
	Queue            *ingestion.Queue
	WorkerPool       *ingestion.Pool
	IngestionService interfaces.IngestionService
	Scheduler        *ingestion.Scheduler

	// HTTP handlers
	EventsHandler *handlers.EventsHandler
	SyncHandler   *handlers.SyncHandler
	SearchHandler *handlers.SearchHandler
	RagHandler    *handlers.RagHandler
	StatusHandler *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initClients(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := app.initIngestion(); err != nil {
		return nil, fmt.Errorf("failed to initialize ingestion: %w", err)
	}
	app.initHandlers()

	logger.Info().
		Str("source_url", cfg.Source.URL).
		Str("lake_url", cfg.Lake.URL).
		Str("chat_provider", string(cfg.Chat.Provider)).
		Msg("Application initialization complete")

	return app, nil
}

// initClients connects the upstream systems and, when enabled, bootstraps
// the lake's repository model before anything tries to write documents.
func (a *App) initClients(ctx context.Context) error {
	a.SourceClient = source.NewClient(a.Config.Source)
	a.LakeClient = lake.NewClient(a.Config.Lake)

	if a.Config.Transform.Enabled {
		a.TransformClient = transform.NewClient(a.Config.Transform)
	}

	if a.Config.Lake.ModelBootstrapEnabled {
		provisioner, err := lake.NewProvisioner(a.LakeClient, a.Config.Lake)
		if err != nil {
			return fmt.Errorf("loading model fragments: %w", err)
		}
		a.Provisioner = provisioner

		if err := provisioner.EnsureModel(ctx); err != nil {
			return fmt.Errorf("bootstrapping lake model: %w", err)
		}
		a.Logger.Info().Msg("Lake model bootstrap complete")
	}

	return nil
}

func (a *App) initServices() error {
	a.ChunkingService = chunking.NewService(a.Config.Embedding)
	a.EmbeddingService = embedding.NewService(a.Config.Embedding)

	chatService, err := llm.NewChatService(a.Config)
	if err != nil {
		return fmt.Errorf("creating chat service: %w", err)
	}
	a.ChatService = chatService

	a.SearchService = retrieval.NewService(a.LakeClient, a.EmbeddingService, a.SourceClient, a.Config.Search)
	a.RagService = rag.NewService(a.SearchService, a.ChatService, a.Config.RAG)
	a.AuthService = auth.NewService(a.SourceClient)

	return nil
}

func (a *App) initIngestion() error {
	a.Queue = ingestion.NewQueue(a.Config.Ingestion.QueueCapacity)

	discoverer, err := ingestion.NewDiscoverer(a.SourceClient, a.Config.Ingestion.Exclude)
	if err != nil {
		return err
	}
	ingester := ingestion.NewMetadataIngester(a.SourceClient, a.LakeClient, a.Config.Lake)

	a.EventsHandler = handlers.NewEventsHandler(a.Config.WebSocket, a.Logger)

	service := ingestion.NewService(discoverer, ingester, a.Queue, a.EventsHandler, a.Config.Ingestion)
	a.IngestionService = service

	a.WorkerPool = ingestion.NewPool(
		a.Queue,
		a.SourceClient,
		a.LakeClient,
		a.TransformClient,
		a.ChunkingService,
		a.EmbeddingService,
		a.Config.Ingestion,
		a.Config.Transform.Enabled,
	)
	a.Scheduler = ingestion.NewScheduler(service, a.Config.Schedule)

	return nil
}

func (a *App) initHandlers() {
	lakeCheck := handlers.DependencyCheck{Name: "lake", Check: func(ctx context.Context) error {
		_, err := a.LakeClient.ExistsByPath(ctx, "/")
		return err
	}}
	sourceCheck := handlers.DependencyCheck{Name: "source", Check: func(ctx context.Context) error {
		_, err := a.SourceClient.RepositoryID(ctx)
		return err
	}}
	embeddingCheck := handlers.DependencyCheck{Name: "embedding"}
	chatCheck := handlers.DependencyCheck{Name: "chat"}

	a.SyncHandler = handlers.NewSyncHandler(a.IngestionService, a.Logger)
	a.SearchHandler = handlers.NewSearchHandler(a.SearchService, a.Logger, lakeCheck, sourceCheck, embeddingCheck)
	a.RagHandler = handlers.NewRagHandler(a.RagService, a.Logger, lakeCheck, sourceCheck, embeddingCheck, chatCheck)
	a.StatusHandler = handlers.NewStatusHandler(a.IngestionService, a.Logger)
}

// Start launches the background components: the transformation worker
// pool and, when enabled, the sync scheduler.
func (a *App) Start(ctx context.Context) error {
	a.WorkerPool.Start(ctx)
	if err := a.Scheduler.Start(); err != nil {
		return err
	}
	return nil
}

// Stop shuts the background components down in reverse start order.
func (a *App) Stop() {
	a.Scheduler.Stop()
	a.WorkerPool.Stop()
	a.EventsHandler.Close()
}
