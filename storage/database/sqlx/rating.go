package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/rating"
)

type ratingRow struct {
	ID           int64        `db:"id"`
	UserID       int64        `db:"user_id"`
	PostID       int64        `db:"post_id"`
	DiscussionID int64        `db:"discussion_id"`
	ForumID      int64        `db:"forum_id"`
	Kind         rating.Kind  `db:"kind"`
	Class        rating.Class `db:"class"`
	FirstRated   time.Time    `db:"first_rated"`
	LastChanged  time.Time    `db:"last_changed"`
}

func (r ratingRow) toRating() rating.Rating {
	return rating.Rating{
		ID:           r.ID,
		UserID:       r.UserID,
		PostID:       r.PostID,
		DiscussionID: r.DiscussionID,
		ForumID:      r.ForumID,
		Kind:         r.Kind,
		FirstRated:   r.FirstRated,
		LastChanged:  r.LastChanged,
	}
}

type ratingRepository struct {
	db core.DB
}

var _ rating.Repository = (*ratingRepository)(nil) // interface compliance check

func NewRatingRepository(db core.DB) rating.Repository {
	return &ratingRepository{db: db}
}

func (repo *ratingRepository) UpsertRating(ctx context.Context, r rating.Rating) (rating.Rating, error) {
	// the (user_id, post_id, class) constraint guarantees a vote flip
	// replaces the old row instead of accumulating
	const q = `
INSERT INTO rating (user_id, post_id, discussion_id, forum_id, kind, class, first_rated, last_changed)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, post_id, class)
DO UPDATE SET kind = EXCLUDED.kind, last_changed = EXCLUDED.last_changed
RETURNING id, first_rated`
	err := repo.db.QueryRowxContext(
		ctx, q,
		r.UserID, r.PostID, r.DiscussionID, r.ForumID, r.Kind, r.Kind.Class(), r.FirstRated, r.LastChanged,
	).Scan(&r.ID, &r.FirstRated)
	return r, errors.Wrap(err, "upserting rating")
}

func (repo *ratingRepository) DeleteRating(ctx context.Context, userID, postID int64, class rating.Class) error {
	const q = `DELETE FROM rating WHERE user_id = $1 AND post_id = $2 AND class = $3`
	res, err := repo.db.ExecContext(ctx, q, userID, postID, class)
	if err != nil {
		return errors.Wrap(err, "deleting rating")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rating.ErrNotFound
	}
	return nil
}

func (repo *ratingRepository) GetUserRatings(ctx context.Context, userID, postID int64) ([]rating.Rating, error) {
	const q = `SELECT * FROM rating WHERE user_id = $1 AND post_id = $2 ORDER BY class`
	return repo.query(ctx, q, userID, postID)
}

func (repo *ratingRepository) QueryRatingsByPost(ctx context.Context, postID int64) ([]rating.Rating, error) {
	return repo.query(ctx, `SELECT * FROM rating WHERE post_id = $1 ORDER BY id`, postID)
}

func (repo *ratingRepository) QueryRatingsByDiscussion(ctx context.Context, discussionID int64) ([]rating.Rating, error) {
	return repo.query(ctx, `SELECT * FROM rating WHERE discussion_id = $1 ORDER BY id`, discussionID)
}

func (repo *ratingRepository) QueryRatingsByUser(ctx context.Context, userID int64) ([]rating.Rating, error) {
	return repo.query(ctx, `SELECT * FROM rating WHERE user_id = $1 ORDER BY id`, userID)
}

func (repo *ratingRepository) QueryReceivedRatings(ctx context.Context, forumID int64, courseWide bool, authorID int64) ([]rating.Rating, error) {
	if courseWide {
		const q = `
SELECT r.* FROM rating r
JOIN post p ON r.post_id = p.id
JOIN forum f ON r.forum_id = f.id
WHERE p.user_id = $1 AND f.course_id = (SELECT course_id FROM forum WHERE id = $2)
ORDER BY r.id`
		return repo.query(ctx, q, authorID, forumID)
	}
	const q = `
SELECT r.* FROM rating r
JOIN post p ON r.post_id = p.id
WHERE p.user_id = $1 AND r.forum_id = $2
ORDER BY r.id`
	return repo.query(ctx, q, authorID, forumID)
}

func (repo *ratingRepository) CountVotesCast(ctx context.Context, forumID int64, courseWide bool, userID int64) (int, error) {
	var n int
	var err error
	if courseWide {
		const q = `
SELECT COUNT(*) FROM rating r
JOIN forum f ON r.forum_id = f.id
WHERE r.user_id = $1 AND r.class = $2 AND f.course_id = (SELECT course_id FROM forum WHERE id = $3)`
		err = sqlx.GetContext(ctx, repo.db, &n, q, userID, rating.ClassVote, forumID)
	} else {
		const q = `SELECT COUNT(*) FROM rating WHERE user_id = $1 AND class = $2 AND forum_id = $3`
		err = sqlx.GetContext(ctx, repo.db, &n, q, userID, rating.ClassVote, forumID)
	}
	return n, errors.Wrap(err, "counting votes cast")
}

func (repo *ratingRepository) QueryRaterIDs(ctx context.Context, forumID int64) ([]int64, error) {
	var ids []int64
	const q = `SELECT DISTINCT user_id FROM rating WHERE forum_id = $1`
	err := sqlx.SelectContext(ctx, repo.db, &ids, q, forumID)
	return ids, errors.Wrap(err, "querying raters")
}

func (repo *ratingRepository) query(ctx context.Context, q string, args ...interface{}) ([]rating.Rating, error) {
	var rows []ratingRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying ratings")
	}
	ratings := make([]rating.Rating, len(rows))
	for i, r := range rows {
		ratings[i] = r.toRating()
	}
	return ratings, nil
}
