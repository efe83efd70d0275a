package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/subscription"
)

type subscriptionRepository struct {
	db core.DB
}

var _ subscription.Repository = (*subscriptionRepository)(nil) // interface compliance check

func NewSubscriptionRepository(db core.DB) subscription.Repository {
	return &subscriptionRepository{db: db}
}

func (repo *subscriptionRepository) UpsertSubscription(ctx context.Context, s *subscription.Subscription) error {
	const q = `
INSERT INTO subscription (user_id, forum_id)
VALUES ($1, $2)
ON CONFLICT (user_id, forum_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q, s.UserID, s.ForumID).Scan(&s.ID)
	return errors.Wrap(err, "upserting subscription")
}

func (repo *subscriptionRepository) DeleteSubscription(ctx context.Context, userID, forumID int64) error {
	const q = `DELETE FROM subscription WHERE user_id = $1 AND forum_id = $2`
	if _, err := repo.db.ExecContext(ctx, q, userID, forumID); err != nil {
		return errors.Wrap(err, "deleting subscription")
	}
	return nil
}

func (repo *subscriptionRepository) GetSubscription(ctx context.Context, userID, forumID int64) (subscription.Subscription, error) {
	var s subscription.Subscription
	const q = `SELECT id, user_id, forum_id FROM subscription WHERE user_id = $1 AND forum_id = $2`
	err := repo.db.QueryRowxContext(ctx, q, userID, forumID).Scan(&s.ID, &s.UserID, &s.ForumID)
	if err == sql.ErrNoRows {
		return subscription.Subscription{}, subscription.ErrNotFound
	}
	return s, errors.Wrap(err, "getting subscription")
}

func (repo *subscriptionRepository) QuerySubscribersByForum(ctx context.Context, forumID int64) ([]int64, error) {
	var ids []int64
	const q = `SELECT user_id FROM subscription WHERE forum_id = $1 ORDER BY user_id`
	err := sqlx.SelectContext(ctx, repo.db, &ids, q, forumID)
	return ids, errors.Wrap(err, "querying subscribers")
}

func (repo *subscriptionRepository) UpsertDiscussionSubscription(ctx context.Context, ds *subscription.DiscussionSubscription) error {
	const q = `
INSERT INTO discussion_subscription (user_id, discussion_id, preference, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, discussion_id)
DO UPDATE SET preference = EXCLUDED.preference, created_at = EXCLUDED.created_at
RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q, ds.UserID, ds.DiscussionID, ds.Preference, ds.CreatedAt).Scan(&ds.ID)
	return errors.Wrap(err, "upserting discussion subscription")
}

func (repo *subscriptionRepository) GetDiscussionSubscription(ctx context.Context, userID, discussionID int64) (subscription.DiscussionSubscription, error) {
	var ds subscription.DiscussionSubscription
	const q = `
SELECT id, user_id, discussion_id, preference, created_at
FROM discussion_subscription
WHERE user_id = $1 AND discussion_id = $2`
	err := repo.db.QueryRowxContext(ctx, q, userID, discussionID).
		Scan(&ds.ID, &ds.UserID, &ds.DiscussionID, &ds.Preference, &ds.CreatedAt)
	if err == sql.ErrNoRows {
		return subscription.DiscussionSubscription{}, subscription.ErrNotFound
	}
	return ds, errors.Wrap(err, "getting discussion subscription")
}

func (repo *subscriptionRepository) QueryDiscussionOverrides(ctx context.Context, discussionID int64) ([]subscription.DiscussionSubscription, error) {
	var dss []subscription.DiscussionSubscription
	const q = `
SELECT id, user_id, discussion_id, preference, created_at
FROM discussion_subscription
WHERE discussion_id = $1
ORDER BY user_id`
	rows, err := repo.db.QueryxContext(ctx, q, discussionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying discussion overrides")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var ds subscription.DiscussionSubscription
		if err = rows.Scan(&ds.ID, &ds.UserID, &ds.DiscussionID, &ds.Preference, &ds.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning discussion override")
		}
		dss = append(dss, ds)
	}
	return dss, errors.Wrap(rows.Err(), "querying discussion overrides")
}
