package app

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"forumcore/internal/app/forum"
	"forumcore/internal/app/message"
	"forumcore/internal/app/readmark"
	"forumcore/internal/app/settings"
	"forumcore/internal/app/tag"
	"forumcore/internal/app/thread"
	"forumcore/internal/config"
	"forumcore/internal/db"
	"forumcore/internal/db/seeder"
	"forumcore/internal/providers/cache"
	"forumcore/internal/providers/redis"
	"forumcore/internal/utils"
)

// Application holds the core services, constructed once at process start
// and injected everywhere they are needed. The cache is an explicit
// shared service, never ambient global state.
type Application struct {
	DB        *gorm.DB
	Cache     cache.Store
	EventBus  *utils.EventBus
	Health    *utils.HealthChecker
	Forums    forum.Repository
	Threads   thread.Service
	Messages  message.Service
	Tags      tag.Service
	Settings  settings.Service
	ReadMarks readmark.Service
}

func Bootstrap(cfg *config.Config, logger *zap.Logger) (*Application, error) {
	dbConn, err := db.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(dbConn, logger); err != nil {
		return nil, err
	}

	seed := seeder.NewSeeder(dbConn, logger)
	if err := seed.Seed(); err != nil {
		logger.Warn("Failed to run seeders", zap.Error(err))
	}

	var cacheStore cache.Store
	var health *utils.HealthChecker
	switch cfg.CacheBackend {
	case "redis":
		redisProvider := redis.NewRedisProvider(cfg.RedisURL, logger, cfg.RedisTTL)
		cacheStore = cache.NewRedis(redisProvider, logger)
		health = &utils.HealthChecker{DB: dbConn, Redis: redisProvider.Client}
	default:
		cacheStore = cache.NewMemory()
		health = &utils.HealthChecker{DB: dbConn}
	}

	eventBus := utils.NewEventBus()

	forumRepo := forum.NewRepository(dbConn)
	threadRepo := thread.NewRepository(dbConn)
	messageRepo := message.NewRepository(dbConn)
	tagRepo := tag.NewRepository(dbConn)
	settingsRepo := settings.NewRepository(dbConn)
	readmarkRepo := readmark.NewRepository(dbConn)

	threadService := thread.NewService(threadRepo, messageRepo, cacheStore, eventBus, logger)
	messageService := message.NewService(messageRepo, threadService, tagRepo, cacheStore, eventBus, logger)
	tagService := tag.NewService(tagRepo, eventBus, logger)
	settingsService := settings.NewService(settingsRepo, cacheStore, logger)
	readmarkService := readmark.NewService(readmarkRepo, cacheStore, eventBus, logger)

	return &Application{
		DB:        dbConn,
		Cache:     cacheStore,
		EventBus:  eventBus,
		Health:    health,
		Forums:    forumRepo,
		Threads:   threadService,
		Messages:  messageService,
		Tags:      tagService,
		Settings:  settingsService,
		ReadMarks: readmarkService,
	}, nil
}
