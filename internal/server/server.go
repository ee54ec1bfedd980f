package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/accredmap/backend/internal/queue"
	mid "github.com/accredmap/backend/internal/server/middleware"
	"github.com/accredmap/backend/internal/util"
	"github.com/accredmap/backend/pkg/ai"
	oai "github.com/accredmap/backend/pkg/ai/ollama"
	gai "github.com/accredmap/backend/pkg/ai/openai"
	"github.com/accredmap/backend/pkg/leaselock"
	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/match"
	"github.com/accredmap/backend/pkg/standards"
	"github.com/accredmap/backend/pkg/store"
	"github.com/accredmap/backend/pkg/store/memory"
	pgstore "github.com/accredmap/backend/pkg/store/pgx"
	"github.com/accredmap/backend/pkg/trust"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rabbitmq/amqp091-go"

	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder := NewEmbeddingClient()

	var conn *pgxpool.Pool
	var mappings store.MappingStore
	var embeddings store.EmbeddingCache

	if dbURL := util.GetEnvString("DATABASE_URL", ""); dbURL != "" {
		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			logger.Fatal("Invalid DATABASE_URL", "err", err)
		}
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}
		conn, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		defer conn.Close()

		if err := pgstore.EnsureSchema(ctx, conn); err != nil {
			logger.Fatal("Failed to ensure database schema", "err", err)
		}
		mappings = pgstore.NewMappingDBStore(conn)
		embeddings = pgstore.NewEmbeddingDBCache(conn)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		mappings = memory.NewMappingMemoryStore()
		embeddings = memory.NewEmbeddingMemoryCache()
	}

	graphOpts := []standards.GraphOption{}
	if conn != nil {
		graphOpts = append(graphOpts, standards.WithLease(leaselock.New(conn)))
	}
	if embedder != nil {
		graphOpts = append(graphOpts, standards.WithWarmup(func(ctx context.Context, gen *standards.Generation) error {
			return embeddings.Warm(ctx, gen, embedder)
		}))
	}
	graph := standards.NewGraph(graphOpts...)

	engine := match.NewEngine(match.NewEngineParams{
		Config:     MatchConfigFromEnv(),
		Embedder:   embedder,
		Embeddings: embeddings,
	})

	trustAgg := trust.NewAggregator(mappings, trust.Config{
		RecencyHorizon: time.Duration(util.GetEnvNumeric("TRUST_RECENCY_DAYS", 180)) * 24 * time.Hour,
	})

	corpusDir := util.GetEnvString("CORPUS_DIR", "corpus")
	if _, err := graph.Reload(ctx, corpusDir, true); err != nil {
		logger.Error("Initial corpus load failed, serving without a graph", "err", err)
	}

	var ch *amqp091.Channel
	if util.GetEnvString("RABBITMQ_HOST", "") != "" {
		que := queue.Init()
		defer que.Close()
		amqpCh, err := que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		if err := queue.SetupQueues(amqpCh, queue.Queues); err != nil {
			logger.Fatal("Failed to setup queues", "err", err)
		}
		ch = amqpCh
	}

	app := &mid.App{
		DBConn:    conn,
		Queue:     ch,
		Graph:     graph,
		Engine:    engine,
		Mappings:  mappings,
		Trust:     trustAgg,
		CorpusDir: corpusDir,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

// NewEmbeddingClient builds the embedding backend selected by AI_ADAPTER.
// An empty adapter means no embedding backend; analysis then scores
// lexical-plus-structural only.
func NewEmbeddingClient() ai.EmbeddingClient {
	adapter := util.GetEnvString("AI_ADAPTER", "")

	switch adapter {
	case "ollama":
		client, err := oai.NewEmbedOllamaClient(oai.NewEmbedOllamaClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

			BaseURL: util.GetEnv("AI_EMBED_URL"),
			ApiKey:  util.GetEnvString("AI_EMBED_KEY", ""),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	case "openai":
		return gai.NewEmbedOpenAIClient(gai.NewEmbedOpenAIClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
		})
	default:
		logger.Warn("No AI adapter configured, semantic scoring disabled")
		return nil
	}
}

// MatchConfigFromEnv starts from the default matching config and applies the
// env overrides that operators actually tune.
func MatchConfigFromEnv() match.Config {
	cfg := match.DefaultConfig()
	cfg.TopK = int(util.GetEnvNumeric("MATCH_TOP_K", 0))
	cfg.Parallelism = int(util.GetEnvNumeric("MATCH_PARALLEL", cfg.Parallelism))
	return cfg
}
