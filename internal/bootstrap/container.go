package bootstrap

import (
	"context"

	"helpdesk-be/internal/config"
	"helpdesk-be/internal/controller"
	"helpdesk-be/internal/docstore"
	"helpdesk-be/internal/handler"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/pkg/mailer"
	"helpdesk-be/internal/repository/memory"
	"helpdesk-be/internal/repository/unitofwork"
	"helpdesk-be/internal/service"
	"helpdesk-be/internal/websocket"
	"helpdesk-be/pkg/changefeed"
	"helpdesk-be/pkg/events"
	"helpdesk-be/pkg/knowledge"
	"helpdesk-be/pkg/livesync"

	pktNats "helpdesk-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController    controller.IAuthController
	ChatController    controller.IChatController
	ContentController controller.IContentController
	WidgetController  controller.IWidgetController

	// Services used by the commands
	AuthService        service.IAuthService
	ChatSessionService service.IChatSessionService
	ContentService     service.IContentService

	// Background Services (Exposed for main.go to run). TranscriptService
	// is nil unless both NATS and SMTP are configured.
	ChangeFeed        *changefeed.Feed
	TranscriptService service.ITranscriptService

	// WebSockets
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the application. db may be nil when the memory driver
// is configured.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 1. Persistence
	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		sysLogger.Warn("BOOTSTRAP", "Using in-memory document store, data is lost on restart", nil)
		uowFactory = memory.NewRepositoryFactory(memory.NewDatabase())
	}

	// 2. Change feed: go-channel locally, Redis between instances
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)
	rdb := newRedisClient(cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	c.ChangeFeed = changefeed.NewFeed(pubSub, rdb, cfg.App.InstanceID, sysLogger)
	c.closers = append(c.closers, func() { _ = c.ChangeFeed.Close() })

	store := docstore.NewStore(uowFactory, c.ChangeFeed, sysLogger)

	// 3. Domain events over NATS JetStream
	var sink events.Sink
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher, events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			sink = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err.Error()})
			natsSub = nil
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}
	publisher := events.NewPublisher(sink, sysLogger)

	// 4. Services
	defaultLang, ok := knowledge.ParseLanguage(cfg.Content.DefaultLanguage)
	if !ok {
		sysLogger.Warn("BOOTSTRAP", "Unsupported DEFAULT_LANGUAGE, using np", map[string]interface{}{"language": cfg.Content.DefaultLanguage})
		defaultLang = knowledge.LangNepali
	}

	c.ChatSessionService = service.NewChatSessionService(store, cfg.Content.SessionCollection, publisher, sysLogger)
	c.ContentService = service.NewContentService(store, cfg.Content, publisher, sysLogger)
	c.AuthService = service.NewAuthService(store, cfg.Content.OperatorCollection, cfg.Auth, sysLogger)

	if natsSub != nil && cfg.SMTP.Enabled() {
		emailService := mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.Email,
			cfg.SMTP.SenderName,
		)
		c.TranscriptService = service.NewTranscriptService(natsSub, c.ChatSessionService, emailService, sysLogger)
	}

	// 5. Controllers
	c.AuthController = controller.NewAuthController(c.AuthService, cfg.Auth.JWTSecret)
	c.ChatController = controller.NewChatController(c.ChatSessionService, defaultLang, cfg.Auth.JWTSecret)
	c.ContentController = controller.NewContentController(c.ContentService, cfg.Auth.JWTSecret)
	c.WidgetController = controller.NewWidgetController(c.ContentService, defaultLang)

	// 6. WebSockets
	wsLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)
	c.WebSocketHub = websocket.NewHub(wsLogger)
	c.RealtimeHandler = handler.NewRealtimeHandler(
		c.WebSocketHub,
		store,
		store,
		c.ChatSessionService,
		livesync.Documents{
			TreeCollection:     cfg.Content.TreeCollection,
			TreeDocument:       cfg.Content.TreeDocument,
			BrandingCollection: cfg.Content.BrandingCollection,
			BrandingDocument:   cfg.Content.BrandingDocument,
			SessionCollection:  cfg.Content.SessionCollection,
		},
		defaultLang,
		cfg.Auth.JWTSecret,
		wsLogger,
	)

	return c
}

// Close releases the connections opened by NewContainer, last opened first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newRedisClient(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Warn("BOOTSTRAP", "Failed to connect to Redis, running single instance", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
