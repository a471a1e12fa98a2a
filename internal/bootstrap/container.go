package bootstrap

import (
	"context"
	"log"
	"math/rand/v2"
	"time"

	"ai-notebook-companion/internal/config"
	"ai-notebook-companion/internal/controller"
	"ai-notebook-companion/internal/pkg/logger"
	"ai-notebook-companion/internal/repository/memory"
	"ai-notebook-companion/internal/repository/unitofwork"
	"ai-notebook-companion/internal/service"
	"ai-notebook-companion/pkg/cache"
	"ai-notebook-companion/pkg/embedding"
	"ai-notebook-companion/pkg/events"
	"ai-notebook-companion/pkg/llm/factory"
	"ai-notebook-companion/pkg/rag/conversation"
	"ai-notebook-companion/pkg/rag/persona"
	"ai-notebook-companion/pkg/rag/prompt"
	"ai-notebook-companion/pkg/rag/response"

	internalWS "ai-notebook-companion/internal/websocket"
	pktNats "ai-notebook-companion/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	personaStateTTL         = 24 * time.Hour
	notebookChangedConsumer = "embedding-maintenance"
)

type Container struct {
	// Controllers
	ChatbotController   controller.IChatbotController
	EmbeddingController controller.IEmbeddingController
	JobSocketHandler    *internalWS.Handler

	// Background services, started by main
	ConsumerService    service.IConsumerService
	MaintenanceService service.IEmbeddingMaintenanceService

	Logger logger.ILogger

	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	pubSub  *gochannel.GoChannel
	rdb     *redis.Client
	hub     *internalWS.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. In-process job queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Infrastructure; NATS and Redis are optional
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "NATS publisher unavailable, sweep events disabled", map[string]interface{}{"error": err.Error()})
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "NATS subscriber unavailable, notebook change events ignored", map[string]interface{}{"error": err.Error()})
		natsSub = nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	// nil when the startup ping fails; disables the query cache and cluster fan-out
	liveRedis := rdb
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		sysLogger.Warn("BOOTSTRAP", "Redis unreachable, query embeddings will not be cached", map[string]interface{}{"error": err.Error()})
		liveRedis = nil
	}
	hub := internalWS.NewHub(liveRedis, sysLogger)

	// 4. AI providers
	embeddingKey := cfg.Keys.OpenAI
	if cfg.Ai.EmbeddingProvider == "gemini" {
		embeddingKey = cfg.Keys.GoogleGemini
	}
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.EmbeddingBaseURL,
		cfg.Ai.EmbeddingModel,
		embeddingKey,
		cfg.Ai.HTTPTimeout,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize embedding provider: %v", err)
	}
	sysLogger.Info("BOOTSTRAP", "Embedding provider ready", map[string]interface{}{
		"provider":  cfg.Ai.EmbeddingProvider,
		"model":     embeddingProvider.Model(),
		"dimension": cfg.Ai.EmbeddingDimension,
	})

	embedder := embedding.NewGenerator(
		embeddingProvider,
		embedding.Config{
			Dimension:  cfg.Ai.EmbeddingDimension,
			MaxChars:   cfg.Ai.EmbeddingMaxChars,
			MaxRetries: cfg.Ai.EmbeddingMaxRetries,
		},
		queryCacheOptions(liveRedis, cfg.Ai.EmbeddingCacheTTL, sysLogger)...,
	)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Keys.OpenAI,
		cfg.Ai.HTTPTimeout,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM provider: %v", err)
	}
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    llmProvider.ModelName(),
	})

	var generatorOpts []response.GeneratorOption
	if cfg.App.LLMTraceLogPath != "" {
		generatorOpts = append(generatorOpts, response.WithTraceLogger(logger.NewIsolatedLogger(cfg.App.LLMTraceLogPath)))
	}

	selector, err := persona.NewSelector(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())))
	if err != nil {
		log.Fatalf("[FATAL] Failed to build persona selector: %v", err)
	}

	// 5. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Keys.EmbedTopic)

	var sweepEvents service.EventPublisher
	if natsPub != nil {
		sweepEvents = natsPub
	}
	maintenanceService := service.NewEmbeddingMaintenanceService(
		uowFactory,
		embedder,
		publisherService,
		sweepEvents,
		sysLogger,
		cfg.Rag.SweepPageSize,
		service.WithJobNotifier(hub),
	)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.EmbedTopic,
		maintenanceService,
		sysLogger,
	)

	chatbotService := service.NewChatbotService(
		uowFactory,
		conversation.NewStore(uowFactory),
		embedder,
		prompt.NewAssembler(prompt.Config{
			ExcerptChars:    cfg.Rag.ExcerptChars,
			ContextMaxChars: cfg.Rag.ContextMaxChars,
		}),
		response.NewGenerator(llmProvider, generatorOpts...),
		selector,
		memory.NewPersonaStateRepository(personaStateTTL),
		sysLogger,
		service.ChatbotConfig{
			TopK:          cfg.Rag.TopK,
			MinSimilarity: cfg.Rag.MinSimilarity,
			HistoryTurns:  cfg.Rag.HistoryTurns,
			Temperature:   cfg.Ai.LLMTemperature,
		},
	)

	// 6. Controllers
	return &Container{
		ChatbotController:   controller.NewChatbotController(chatbotService),
		EmbeddingController: controller.NewEmbeddingController(maintenanceService),
		JobSocketHandler:    internalWS.NewHandler(hub),

		ConsumerService:    consumerService,
		MaintenanceService: maintenanceService,

		Logger: sysLogger,

		natsPub: natsPub,
		natsSub: natsSub,
		pubSub:  pubSub,
		rdb:     rdb,
		hub:     hub,
	}
}

// StartBackground runs the websocket hub, subscribes the embedding consumer
// and, when NATS is up, the notebook change listener.
func (c *Container) StartBackground(ctx context.Context) error {
	go c.hub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}
	if c.natsSub == nil {
		return nil
	}
	return c.natsSub.Subscribe(ctx,
		events.Subject(events.TypeNotebookContentChanged),
		notebookChangedConsumer,
		c.MaintenanceService.HandleNotebookContentChanged,
	)
}

// Close waits for detached sweeps, then releases connections.
func (c *Container) Close() {
	c.MaintenanceService.Wait()
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if err := c.pubSub.Close(); err != nil {
		c.Logger.Warn("BOOTSTRAP", "Failed to close job queue", map[string]interface{}{"error": err.Error()})
	}
	if err := c.rdb.Close(); err != nil {
		c.Logger.Warn("BOOTSTRAP", "Failed to close Redis client", map[string]interface{}{"error": err.Error()})
	}
	_ = c.Logger.Sync()
}

// queryCacheOptions wires the Redis query-vector cache; a nil client means no cache.
func queryCacheOptions(rdb *redis.Client, ttl time.Duration, log logger.ILogger) []embedding.Option {
	if rdb == nil {
		return nil
	}
	return []embedding.Option{
		embedding.WithQueryCache(cache.NewRedisQueryCache(rdb, ttl)),
		embedding.WithCacheErrorHook(func(err error) {
			log.Warn("EMBEDDING", "Query cache unavailable", map[string]interface{}{"error": err.Error()})
		}),
	}
}
