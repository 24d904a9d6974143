package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/infrastructure/auth"
	"github.com/viewcall/chatrelay/internal/infrastructure/configs"
	"github.com/viewcall/chatrelay/internal/infrastructure/events"
	"github.com/viewcall/chatrelay/internal/infrastructure/logging"
	"github.com/viewcall/chatrelay/internal/infrastructure/messaging"
	"github.com/viewcall/chatrelay/internal/infrastructure/ratelimiter"
	inmemory "github.com/viewcall/chatrelay/internal/infrastructure/repository"
	"github.com/viewcall/chatrelay/internal/infrastructure/tracing"
	"github.com/viewcall/chatrelay/internal/infrastructure/ws"
	"github.com/viewcall/chatrelay/internal/persistence/db"
	mongorepo "github.com/viewcall/chatrelay/internal/persistence/repository"
	"github.com/viewcall/chatrelay/internal/presentation/api"
	chatHandler "github.com/viewcall/chatrelay/internal/presentation/handler/chat"
	gatewayHandler "github.com/viewcall/chatrelay/internal/presentation/handler/gateway"
	healthHandler "github.com/viewcall/chatrelay/internal/presentation/handler/health"
	meetingsHandler "github.com/viewcall/chatrelay/internal/presentation/handler/meetings"
)

const serviceName = "chatrelay"

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})
	logger.Init()

	var (
		messageRepository domain.MessageRepository
		meetingRepository domain.MeetingRepository
		roomRepository    domain.RoomRepository
		auditRepository   domain.AuditRepository
		mongoClient       *mongo.Client
	)

	if cfg.Mongo.URI != "" {
		mongoClient, err = db.NewMongoClient(ctx, &db.MongoConfig{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			log.Fatal(err)
		}
		defer db.DisconnectMongo(context.Background(), mongoClient)

		database := mongoClient.Database(cfg.Mongo.Database)

		if err := mongorepo.EnsureIndexes(ctx, database); err != nil {
			logger.Warn(logging.Mongo, logging.Startup, "index creation failed", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}

		messageRepository = mongorepo.NewMessageRepository(database)
		meetingRepository = mongorepo.NewMeetingRepository(database)
		roomRepository = mongorepo.NewRoomRepository(database)
		auditRepository = mongorepo.NewChatAuditLogRepository(database)

		logger.Info(logging.Mongo, logging.Startup, "connected to mongodb", map[logging.ExtraKey]any{
			"database": cfg.Mongo.Database,
		})
	} else {
		messageRepository = inmemory.NewMessageRepository(0)
		meetingRepository = inmemory.NewMeetingRepository()
		roomRepository = inmemory.NewRoomRepository()
		auditRepository = inmemory.NewAuditRepository()

		logger.Warn(logging.IO, logging.Startup, "no mongo URI configured, using in-memory stores", nil)
	}

	verifier := auth.NewVerifier(auth.Config{
		UserServiceURL: cfg.Auth.UserServiceURL,
		VerifyTimeout:  cfg.Auth.VerifyTimeout,
		JWTSecret:      cfg.Auth.JWTSecret,
	}, logger)

	var publisher ws.EventPublisher

	if cfg.AMQP.Enabled && cfg.AMQP.URI != "" {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.AMQP.URI)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitmq.Close()

		publisher = events.NewChatPublisher(rabbitmq)

		auditConsumer := events.NewAuditConsumer(rabbitmq, auditRepository, logger)
		go func() {
			if err := auditConsumer.Listen(); err != nil {
				logger.Error(logging.RabbitMQ, logging.AuditTrail, "audit consumer stopped", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		}()

		logger.Info(logging.RabbitMQ, logging.Startup, "connected to rabbitmq", nil)
	}

	registry := ws.NewRegistry()
	coordinator := ws.NewCoordinator(
		registry,
		verifier,
		messageRepository,
		meetingRepository,
		publisher,
		logger,
		cfg.Relay.HistoryLimit,
	)

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	app := api.NewApplication(
		*cfg,
		chatHandler.NewHandler(roomRepository, messageRepository),
		meetingsHandler.NewHandler(meetingRepository),
		healthHandler.NewHandler(),
		gatewayHandler.NewHandler(coordinator, logger, cfg.Relay.SendBuffer),
		logger,
		rl,
	)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatal(logging.General, logging.Startup, "server exited", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
