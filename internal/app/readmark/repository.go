package readmark

import (
	"gorm.io/gorm"

	"forumcore/internal/apperr"
)

type Repository interface {
	Insert(userID uint64, messageIDs []uint64) ([]ReadMarker, error)
	Delete(userID uint64, messageIDs []uint64) (int64, error)
	CountUnread(userID uint64, forumIDs []uint64) (UnreadCounts, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Insert creates a marker per message, skipping ids already marked and
// ids that reference no message row, and returns only the markers this
// call actually created.
func (r *repository) Insert(userID uint64, messageIDs []uint64) ([]ReadMarker, error) {
	var inserted []ReadMarker
	err := r.db.Raw(`
		INSERT INTO read_markers (user_id, message_id, created_at)
		SELECT ?, m.id, NOW()
		FROM messages m
		WHERE m.id IN ?
		ON CONFLICT (user_id, message_id) DO NOTHING
		RETURNING user_id, message_id, created_at
	`, userID, messageIDs).Scan(&inserted).Error
	if err != nil {
		return nil, apperr.Store("insert read markers", err)
	}
	return inserted, nil
}

func (r *repository) Delete(userID uint64, messageIDs []uint64) (int64, error) {
	res := r.db.Exec(`
		DELETE FROM read_markers WHERE user_id = ? AND message_id IN ?
	`, userID, messageIDs)
	if res.Error != nil {
		return 0, apperr.Store("delete read markers", res.Error)
	}
	return res.RowsAffected, nil
}

// CountUnread computes both counts in one statement, so the message and
// thread figures always describe the same snapshot. A message is unread
// when no marker exists for this user and neither the message nor its
// thread is deleted, draft, archived, or hidden by the user.
func (r *repository) CountUnread(userID uint64, forumIDs []uint64) (UnreadCounts, error) {
	var counts UnreadCounts
	if len(forumIDs) == 0 {
		return counts, nil
	}
	err := r.db.Raw(`
		SELECT COUNT(*)                   AS messages,
		       COUNT(DISTINCT m.thread_id) AS threads
		FROM messages m
		JOIN threads t ON t.id = m.thread_id
		WHERE t.forum_id IN ?
		  AND NOT m.deleted
		  AND NOT m.draft
		  AND NOT t.archived
		  AND NOT EXISTS (
		      SELECT 1 FROM read_markers r
		      WHERE r.user_id = ? AND r.message_id = m.id
		  )
		  AND NOT EXISTS (
		      SELECT 1 FROM hidden_threads h
		      WHERE h.user_id = ? AND h.thread_id = m.thread_id
		  )
	`, forumIDs, userID, userID).Scan(&counts).Error
	if err != nil {
		return UnreadCounts{}, apperr.Store("count unread", err)
	}
	return counts, nil
}
