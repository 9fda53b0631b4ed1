package tag

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"forumcore/internal/apperr"
	"forumcore/internal/utils"
)

const EventChannel = "tags"

type Service interface {
	Merge(ctx context.Context, from, to string) error
	ListForMessage(ctx context.Context, messageID uint64) ([]string, error)
}

type service struct {
	repo     Repository
	eventBus *utils.EventBus
	logger   *zap.SugaredLogger
}

func NewService(repo Repository, eventBus *utils.EventBus, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger.Sugar(),
	}
}

// Merge folds every use of the from tag into the to tag. A merge of a
// tag into itself is degenerate and rejected before any write.
func (s *service) Merge(ctx context.Context, from, to string) error {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	if from == "" || to == "" {
		return apperr.Validationf("tag names must not be blank")
	}
	if from == to {
		return apperr.Conflictf("cannot merge tag %q into itself", from)
	}

	source, err := s.repo.GetByName(from)
	if err != nil {
		return err
	}
	targetIDs, err := s.repo.Ensure([]string{to})
	if err != nil {
		return err
	}
	if err := s.repo.Merge(source.ID, targetIDs[0]); err != nil {
		return err
	}

	s.eventBus.Publish(EventChannel, "tags_merged", map[string]interface{}{
		"from": from,
		"to":   to,
	})
	return nil
}

func (s *service) ListForMessage(ctx context.Context, messageID uint64) ([]string, error) {
	return s.repo.ListForMessage(messageID)
}
