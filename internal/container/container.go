// Package container wires every layer of the core into one process: a
// plain constructor function instead of a generated provider graph.
package container

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"kgraph-core/internal/aiprovider"
	"kgraph-core/internal/aiprovider/anthropic"
	"kgraph-core/internal/aiprovider/ollama"
	"kgraph-core/internal/aiprovider/openai"
	"kgraph-core/internal/checkpoint"
	"kgraph-core/internal/config"
	"kgraph-core/internal/core"
	"kgraph-core/internal/epistemic"
	"kgraph-core/internal/graphfacade"
	"kgraph-core/internal/graphstore"
	"kgraph-core/internal/grounding"
	"kgraph-core/internal/ingestion"
	"kgraph-core/internal/jobqueue"
	"kgraph-core/internal/metrics"
	"kgraph-core/internal/objectstore"
	"kgraph-core/internal/projection"
	"kgraph-core/internal/scheduler"
	"kgraph-core/internal/sqlstore"
	"kgraph-core/internal/vocabulary"
)

// Container holds every wired collaborator a cmd/ binary needs. Fields
// are exported plainly rather than hidden behind accessor methods.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	PgxPool  *pgxpool.Pool
	Relation *sqlstore.DB
	Graph    *graphstore.Client
	Facade   *graphfacade.Facade
	Objects  *objectstore.Store
	Redis    *redis.Client

	Semaphores *aiprovider.Semaphores
	Extractor  aiprovider.Extractor
	Embedder   aiprovider.Embedder
	Vision     aiprovider.VisionDescriber

	Vocabulary  *vocabulary.Manager
	Grounding   *grounding.Engine
	Epistemic   *epistemic.Service
	Metrics     *metrics.Service
	Checkpoints *checkpoint.Store
	Pipeline    *ingestion.Pipeline
	Jobs        *jobqueue.Queue
	Projection  *projection.Service
	Scheduler   *scheduler.Scheduler
	Core        *core.Service
}

// Build constructs every layer in dependency order and returns a fully
// wired Container. Callers own the lifetime of PgxPool/Relation/Redis and
// must Close them on shutdown.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	relation, err := sqlstore.Open(cfg.PostgresDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open relational store: %w", err)
	}
	c.Relation = relation
	if err := relation.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate relational store: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse graph pool config: %w", err)
	}
	poolCfg.MinConns = cfg.PostgresPoolMin
	poolCfg.MaxConns = cfg.PostgresPoolMax
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open graph pool: %w", err)
	}
	c.PgxPool = pool
	c.Graph = graphstore.New(pool, logger)
	c.Facade = graphfacade.New(c.Graph, logger)

	objects, err := buildObjectStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Objects = objects
	if err := c.Objects.EnsureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("ensure object store bucket: %w", err)
	}

	if cfg.RedisAddr != "" {
		c.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	c.Semaphores = aiprovider.NewSemaphores()
	c.Extractor, c.Embedder, c.Vision, err = buildProviders(cfg, c.Semaphores, logger)
	if err != nil {
		return nil, err
	}

	c.Metrics = metrics.New(c.Relation, "kgraph")
	c.Vocabulary = vocabulary.New(c.Graph, c.Relation, c.Relation, c.Embedder, c.Metrics, true, logger)
	c.Grounding = grounding.New(c.Graph, c.Relation, logger)
	c.Epistemic = epistemic.New(c.Graph, c.Grounding, c.Metrics, 0, logger)
	c.Checkpoints = checkpoint.New(c.Objects, c.Relation, logger)

	c.Jobs = jobqueue.New(c.Relation, logger)

	c.Pipeline = ingestion.New(
		c.Graph,
		c.Objects,
		c.Vocabulary,
		c.Jobs,
		c.Extractor,
		c.Embedder,
		c.Vision,
		nil, // no VisualEmbedder wired: the pretrained visual-embedding model is an external collaborator this core doesn't ship (same as the projection computer)
		c.Checkpoints,
		c.Metrics,
		ingestion.Config{
			UpsertThreshold:    cfg.UpsertThreshold,
			ContextWindowLimit: 50,
			UseMarkdownChunker: true,
		},
		nil,
		logger,
	)

	// The dimensionality-reduction algorithm itself is an external
	// collaborator; a production deployment wires a sidecar or
	// in-process approximation here instead of noopProjectionComputer.
	c.Projection = projection.New(c.Graph, c.Objects, noopProjectionComputer{}, "default", logger)

	jobqueue.RegisterBuiltins(c.Jobs, jobqueue.Deps{
		Pipeline:   c.Pipeline,
		Vocabulary: c.Vocabulary,
		Epistemic:  c.Epistemic,
		Grounding:  c.Grounding,
		Sources:    c.Graph,
		Embedder:   c.Embedder,
		Artifacts:  c.Relation,
		Projection: c.Projection,
	})

	c.Scheduler = scheduler.New(c.Relation, c.Jobs, logger)
	relationalAndDelta := struct {
		*sqlstore.DB
		*metrics.Service
	}{c.Relation, c.Metrics}
	for _, l := range scheduler.Builtins(relationalAndDelta, c.Graph, c.Relation, c.Projection, cfg.VocabularyChangeThreshold) {
		c.Scheduler.Register(l)
	}
	if c.Redis != nil {
		c.Scheduler.WithLock(scheduler.NewRedisTickLock(c.Redis, "kgraph:scheduler:tick", 0))
	}

	c.Core = core.New(c.Jobs, c.Embedder, c.Graph, logger)

	return c, nil
}

// Close releases every long-lived connection the container opened.
func (c *Container) Close() {
	if c.PgxPool != nil {
		c.PgxPool.Close()
	}
	if c.Relation != nil {
		_ = c.Relation.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

func buildObjectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*objectstore.Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.ObjectStoreRegion))
	if cfg.ObjectStoreAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(cfg.ObjectStoreAccessKey, cfg.ObjectStoreSecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load object store credentials: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.ObjectStoreEndpoint != "" {
			o.BaseEndpoint = &cfg.ObjectStoreEndpoint
			o.UsePathStyle = true
		}
	})
	return objectstore.New(client, cfg.ObjectStoreBucket, logger), nil
}

// buildProviders picks the extraction/embedding/vision providers from
// configured API keys, preferring OpenAI for embedding (Anthropic has no
// embeddings endpoint) and falling back to Ollama for extraction/vision
// when no cloud key is present — cheapest capable provider wins;
// deployment config can override. Embedding has no Ollama fallback: a
// deployment with no embedding provider cannot upsert by meaning, so that
// is a fatal configuration error rather than a degraded mode.
func buildProviders(cfg *config.Config, sem *aiprovider.Semaphores, logger *zap.Logger) (aiprovider.Extractor, aiprovider.Embedder, aiprovider.VisionDescriber, error) {
	openaiKey := getenvAny("OPENAI_API_KEY")
	anthropicKey := getenvAny("ANTHROPIC_API_KEY")

	var extractor aiprovider.Extractor
	var embedder aiprovider.Embedder
	var vision aiprovider.VisionDescriber

	if anthropicKey != "" {
		p := anthropic.New(anthropic.Config{APIKey: anthropicKey, Policy: toAIProviderPolicy(cfg.ProviderPolicies["anthropic"])}, sem, logger)
		extractor = p
		vision = p
	}
	if openaiKey != "" {
		p := openai.New(openai.Config{APIKey: openaiKey, Policy: toAIProviderPolicy(cfg.ProviderPolicies["openai"])}, sem, logger)
		embedder = p
		if extractor == nil {
			extractor = p
		}
	}
	if extractor == nil || vision == nil {
		p := ollama.New(ollama.Config{Policy: toAIProviderPolicy(cfg.ProviderPolicies["ollama"])}, sem, logger)
		if extractor == nil {
			extractor = p
		}
		if vision == nil {
			vision = p
		}
	}
	if embedder == nil {
		return nil, nil, nil, fmt.Errorf("no embedding provider configured: set OPENAI_API_KEY")
	}
	return extractor, embedder, vision, nil
}

// getenvAny is a thin os.Getenv wrapper so buildProviders reads the same way
// internal/config does, without importing internal/config's unexported
// getEnv helper across a package boundary.
func getenvAny(key string) string {
	return os.Getenv(key)
}

// toAIProviderPolicy converts a config.ProviderPolicy (the relational/
// environment-resolved concurrency+retry knobs) into the
// aiprovider.Policy shape each provider constructor takes.
func toAIProviderPolicy(p config.ProviderPolicy) aiprovider.Policy {
	return aiprovider.Policy{
		MaxConcurrentRequests: p.MaxConcurrentRequests,
		MaxRetries:            p.MaxRetries,
	}
}

type noopProjectionComputer struct{}

func (noopProjectionComputer) Reduce(ctx context.Context, inputs []projection.Input) (projection.Result, error) {
	points := make([]projection.Point, 0, len(inputs))
	for i, in := range inputs {
		points = append(points, projection.Point{ConceptID: in.ConceptID, Label: in.Label, X: float64(i), Y: 0, Z: 0})
	}
	return projection.Result{Algorithm: "identity", Parameters: projection.Parameters{NComponents: 3}, Points: points}, nil
}
