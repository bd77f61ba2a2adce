package bootstrap

import (
	"context"
	"log"

	"cymbal-assist-be/internal/config"
	"cymbal-assist-be/internal/controller"
	"cymbal-assist-be/internal/handler"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/internal/pkg/mailer"
	"cymbal-assist-be/internal/repository/memory"
	"cymbal-assist-be/internal/service"
	"cymbal-assist-be/internal/websocket"
	"cymbal-assist-be/pkg/blob"
	"cymbal-assist-be/pkg/broker"
	"cymbal-assist-be/pkg/cart"
	"cymbal-assist-be/pkg/database"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/gateway"
	pktNats "cymbal-assist-be/pkg/nats"
	"cymbal-assist-be/pkg/recommend"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	SessionController  controller.ISessionController
	ShoppingController controller.IShoppingController
	AgentController    controller.IAgentController
	FieldController    controller.IFieldController
	ReturnsController  controller.IReturnsController
	CreatorController  controller.ICreatorController
	AnalystController  controller.IAnalystController
	OAuthController    controller.IOAuthController

	// Streams
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub

	// Background work, started by Run
	SQLStore          *docstore.SQLStore
	AnalyticsRecorder *service.AnalyticsRecorder

	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 1. Redis, shared by the hub, the cart and the SQL document store
	var rdb *redis.Client
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb = redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-process stores", err)
		rdb.Close()
		rdb = nil
	}

	// 2. Document store
	var store docstore.Store
	var sqlStore *docstore.SQLStore
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			log.Fatalf("[FATAL] Unable to connect to database: %v", err)
		}
		sqlStore = docstore.NewSQLStore(db, rdb, sysLogger)
		if err := sqlStore.Migrate(); err != nil {
			log.Fatalf("[FATAL] Failed to migrate documents: %v", err)
		}
		store = sqlStore
		log.Printf("[INFO] Using Document Store: POSTGRES")
	} else {
		store = docstore.NewMemoryStore()
		log.Printf("[INFO] Using Document Store: MEMORY")
	}

	// 3. Blob storage
	var storage blob.Storage
	if cfg.Storage.Driver == "s3" {
		storage, err = blob.NewS3Storage(blob.S3Config{
			Endpoint:   cfg.Storage.Endpoint,
			Region:     cfg.Storage.Region,
			Key:        cfg.Storage.Key,
			Secret:     cfg.Storage.Secret,
			Bucket:     cfg.Storage.Bucket,
			Expiration: cfg.Storage.Expiration,
		})
	} else {
		storage, err = blob.NewDiskStorage(cfg.Storage.DiskRoot, cfg.App.BaseURL+"/uploads")
	}
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize %s storage: %v", cfg.Storage.Driver, err)
	}

	// 4. Carts
	var carts cart.Store
	if rdb != nil {
		carts = cart.NewRedisStore(rdb, cfg.Session.CartTTL)
	} else {
		carts = cart.NewMemoryStore(cfg.Session.CartTTL)
	}

	// 5. Analytics bus
	var publisher service.EventPublisher
	natsPub, err := pktNats.NewPublisher(context.Background(), cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		publisher = natsPub
	}
	var recorder *service.AnalyticsRecorder
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		recorder = service.NewAnalyticsRecorder(natsSub, store, sysLogger)
	}
	analyticsService := service.NewAnalyticsService(publisher, sysLogger)

	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
			sysLogger,
		)
	}

	// 6. Frame delivery
	wsLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)
	wsHub := websocket.NewHub(rdb, uuid.NewString(), wsLogger)

	pubSub := broker.NewPubSub(watermill.NewStdLogger(false, false))
	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL)

	// 7. Services
	backend := gateway.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, sysLogger)
	aggregator := recommend.NewAggregator(backend, store, sysLogger)
	lang := cfg.Session.DefaultLanguage

	sessionService := service.NewSessionService(sessionRepo, pubSub, wsHub, lang, sysLogger)
	conversationService := service.NewConversationService(
		sessionService,
		backend,
		store,
		storage,
		wsHub,
		lang,
		cfg.Session.InitiationTimeout,
		analyticsService,
		sysLogger,
	)
	shoppingService := service.NewShoppingService(
		backend,
		aggregator,
		carts,
		emailService,
		sessionService,
		wsHub,
		analyticsService,
		sysLogger,
	)
	agentChatService := service.NewAgentChatService(
		backend,
		backend,
		store,
		sessionService,
		conversationService,
		wsHub,
		lang,
		sysLogger,
	)
	fieldAgentService := service.NewFieldAgentService(backend, store, sessionService, wsHub, analyticsService, sysLogger)
	returnsService := service.NewReturnsService(backend, store, storage, analyticsService, sysLogger)
	creatorService := service.NewCreatorService(backend, store, storage, sessionService, wsHub, sysLogger)
	analystService := service.NewAnalystService(backend, store, sysLogger)
	oauthService := service.NewOAuthService(cfg.Auth, analyticsService, sysLogger)

	// 8. Controllers
	return &Container{
		SessionController:  controller.NewSessionController(sessionService, conversationService),
		ShoppingController: controller.NewShoppingController(shoppingService),
		AgentController:    controller.NewAgentController(agentChatService),
		FieldController:    controller.NewFieldController(fieldAgentService),
		ReturnsController:  controller.NewReturnsController(returnsService),
		CreatorController:  controller.NewCreatorController(creatorService),
		AnalystController:  controller.NewAnalystController(analystService),
		OAuthController:    controller.NewOAuthController(oauthService, cfg.App.ClientURL, sysLogger),

		StreamHandler: handler.NewStreamHandler(wsHub, sysLogger),
		WebSocketHub:  wsHub,

		SQLStore:          sqlStore,
		AnalyticsRecorder: recorder,

		Logger: sysLogger,
	}
}

// Run starts the background loops; they stop when ctx ends.
func (c *Container) Run(ctx context.Context) {
	go c.WebSocketHub.Run(ctx)
	if c.SQLStore != nil {
		go c.SQLStore.Run(ctx)
	}
	if c.AnalyticsRecorder != nil {
		c.AnalyticsRecorder.Start(ctx)
	}
}
