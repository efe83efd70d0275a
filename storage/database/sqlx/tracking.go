package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/tracking"
)

type readRecordRow struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	PostID       int64     `db:"post_id"`
	DiscussionID int64     `db:"discussion_id"`
	ForumID      int64     `db:"forum_id"`
	FirstRead    time.Time `db:"first_read"`
	LastRead     time.Time `db:"last_read"`
}

type trackingRepository struct {
	db core.DB
}

var _ tracking.Repository = (*trackingRepository)(nil) // interface compliance check

func NewTrackingRepository(db core.DB) tracking.Repository {
	return &trackingRepository{db: db}
}

func (repo *trackingRepository) UpsertReadRecord(ctx context.Context, r *tracking.ReadRecord) error {
	// first_read survives re-reads, only last_read moves
	const q = `
INSERT INTO read_record (user_id, post_id, discussion_id, forum_id, first_read, last_read)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, post_id) DO UPDATE SET last_read = EXCLUDED.last_read
RETURNING id, first_read`
	err := repo.db.QueryRowxContext(
		ctx, q,
		r.UserID, r.PostID, r.DiscussionID, r.ForumID, r.FirstRead, r.LastRead,
	).Scan(&r.ID, &r.FirstRead)
	return errors.Wrap(err, "upserting read record")
}

func (repo *trackingRepository) GetReadRecord(ctx context.Context, userID, postID int64) (tracking.ReadRecord, error) {
	var row readRecordRow
	const q = `SELECT * FROM read_record WHERE user_id = $1 AND post_id = $2`
	err := sqlx.GetContext(ctx, repo.db, &row, q, userID, postID)
	if err == sql.ErrNoRows {
		return tracking.ReadRecord{}, tracking.ErrNotFound
	}
	return tracking.ReadRecord(row), errors.Wrap(err, "getting read record")
}

func (repo *trackingRepository) CountUnreadPosts(ctx context.Context, userID, discussionID int64) (int, error) {
	var n int
	const q = `
SELECT COUNT(*) FROM post p
WHERE p.discussion_id = $1 AND p.reviewed
  AND NOT EXISTS (SELECT 1 FROM read_record r WHERE r.post_id = p.id AND r.user_id = $2)`
	err := sqlx.GetContext(ctx, repo.db, &n, q, discussionID, userID)
	return n, errors.Wrap(err, "counting unread posts")
}

func (repo *trackingRepository) QueryUnreadDiscussions(ctx context.Context, userID, forumID int64) ([]int64, error) {
	var ids []int64
	const q = `
SELECT DISTINCT p.discussion_id FROM post p
JOIN discussion d ON p.discussion_id = d.id
WHERE d.forum_id = $1 AND p.reviewed
  AND NOT EXISTS (SELECT 1 FROM read_record r WHERE r.post_id = p.id AND r.user_id = $2)
ORDER BY p.discussion_id`
	err := sqlx.SelectContext(ctx, repo.db, &ids, q, forumID, userID)
	return ids, errors.Wrap(err, "querying unread discussions")
}

func (repo *trackingRepository) DeleteReadRecordsByUser(ctx context.Context, userID int64) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM read_record WHERE user_id = $1`, userID)
	return errors.Wrap(err, "deleting read records")
}
