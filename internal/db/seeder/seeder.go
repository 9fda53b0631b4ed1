package seeder

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"forumcore/internal/app/forum"
	"forumcore/internal/app/settings"
)

type Seeder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSeeder(db *gorm.DB, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:     db,
		logger: logger,
	}
}

func (s *Seeder) Seed() error {
	s.logger.Info("Running database seeders...")

	if err := s.seedForums(); err != nil {
		return err
	}
	if err := s.seedGlobalOptions(); err != nil {
		return err
	}

	s.logger.Info("Database seeders completed successfully")
	return nil
}

func (s *Seeder) seedForums() error {
	var count int64
	s.db.Model(&forum.Forum{}).Count(&count)
	if count > 0 {
		s.logger.Info("Forums already exist, skipping seed")
		return nil
	}

	forums := []forum.Forum{
		{Slug: "general", Title: "General Discussion", Description: ptr("Anything goes")},
		{Slug: "help", Title: "Help & Support", Description: ptr("Questions and answers")},
		{Slug: "meta", Title: "Meta", Description: ptr("About the forum itself")},
	}

	if err := s.db.Create(&forums).Error; err != nil {
		return err
	}

	s.logger.Info("Seeded forums", zap.Int("count", len(forums)))
	return nil
}

// seedGlobalOptions materializes a couple of admin-visible global rows so
// the options table is browsable on a fresh install. Resolution does not
// depend on these: the compiled-in defaults table is the true fallback.
func (s *Seeder) seedGlobalOptions() error {
	var count int64
	s.db.Model(&settings.Option{}).Count(&count)
	if count > 0 {
		s.logger.Info("Config options already exist, skipping seed")
		return nil
	}

	options := []settings.Option{
		{Scope: settings.ScopeGlobal, OwnerID: 0, Name: "messages_per_page", Value: settings.Defaults["messages_per_page"]},
		{Scope: settings.ScopeGlobal, OwnerID: 0, Name: "allow_anonymous", Value: settings.Defaults["allow_anonymous"]},
	}

	if err := s.db.Create(&options).Error; err != nil {
		return err
	}

	s.logger.Info("Seeded global config options", zap.Int("count", len(options)))
	return nil
}

func ptr(s string) *string {
	return &s
}
