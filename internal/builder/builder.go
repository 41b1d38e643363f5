package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/context-rag/internal/api"
	searchapi "github.com/futig/context-rag/internal/api/search"
	"github.com/futig/context-rag/internal/config"
	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/pkg/logger"
	"github.com/futig/context-rag/internal/pkg/validator"
	"github.com/futig/context-rag/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func Build(environment string) (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig(environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	log.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	contextRepo, db, err := setupContextRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("Context repository initialized", zap.Bool("postgres", db != nil))

	pipeline, err := BuildPipeline(cfg, log)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	searchUC := NewSearchUsecase(cfg, contextRepo, pipeline, log)
	log.Info("Use cases initialized")

	fileValidator := validator.NewFileValidator(cfg.FileUploadCfg)
	searchHandler := searchapi.NewHandler(searchUC, cfg.FileUploadCfg, fileValidator)

	router := api.SetupRouter(searchHandler, cfg.ServerRequestTimeout, cfg.CORSAllowedOrigins, log)
	log.Info("HTTP router configured")

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ServerRequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:   server,
		db:       db,
		pipeline: pipeline,
		logger:   log,
	}, nil
}

// setupContextRepository uses PostgreSQL when DATABASE_URL is set and an
// in-memory registry seeded from RAG_CONTEXTS_FILE otherwise
func setupContextRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.ContextRepository, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		var seed []entity.Context
		if cfg.RAGCfg.ContextsFile != "" {
			contexts, err := repository.LoadContextsFile(cfg.RAGCfg.ContextsFile)
			if err != nil {
				return nil, nil, fmt.Errorf("load contexts: %w", err)
			}
			seed = contexts
		}

		log.Info("Using in-memory context registry", zap.Int("contexts", len(seed)))
		return repository.NewContextMemory(seed...), nil, nil
	}

	db, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("setup database: %w", err)
	}

	log.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL, log); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("Database migrations completed successfully")

	var repo repository.ContextRepository = repository.NewContextPostgres(db)
	if cfg.RAGCfg.ContextCacheTTL > 0 {
		repo = repository.NewContextCached(repo, cfg.RAGCfg.ContextCacheTTL)
	}

	return repo, db, nil
}

func closeDB(db *pgxpool.Pool) {
	if db != nil {
		db.Close()
	}
}
