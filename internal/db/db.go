package db

import (
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"forumcore/internal/app/forum"
	"forumcore/internal/app/message"
	"forumcore/internal/app/readmark"
	"forumcore/internal/app/settings"
	"forumcore/internal/app/tag"
	"forumcore/internal/app/thread"
	"forumcore/internal/config"
)

func Connect(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	dsn := cfg.PostgresDSN()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
	)

	return db, nil
}

func Migrate(db *gorm.DB, logger *zap.Logger) error {
	err := db.AutoMigrate(
		&forum.Forum{},
		&thread.Thread{},
		&thread.HiddenThread{},
		&message.Message{},
		&tag.Tag{},
		&tag.MessageTag{},
		&settings.Option{},
		&readmark.ReadMarker{},
	)
	if err != nil {
		return err
	}
	logger.Info("Database migrations applied")
	return nil
}
