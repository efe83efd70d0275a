package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/grade"
	"github.com/learnweb/moodleoverflow/core/privacy"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/subscription"
	"github.com/learnweb/moodleoverflow/core/tracking"
)

// privacyStore spans every table holding personal data so a subject
// access request is served from one place.
type privacyStore struct {
	db core.DB
}

var _ privacy.Store = (*privacyStore)(nil) // interface compliance check

func NewPrivacyStore(db core.DB) privacy.Store {
	return &privacyStore{db: db}
}

func (st *privacyStore) QueryPostsByUser(ctx context.Context, userID int64) ([]discussion.Post, error) {
	return NewDiscussionRepository(st.db).QueryPostsByAuthor(ctx, userID)
}

func (st *privacyStore) QueryRatingsByUser(ctx context.Context, userID int64) ([]rating.Rating, error) {
	return NewRatingRepository(st.db).QueryRatingsByUser(ctx, userID)
}

func (st *privacyStore) QuerySubscriptionsByUser(ctx context.Context, userID int64) ([]subscription.Subscription, []subscription.DiscussionSubscription, error) {
	var subs []subscription.Subscription
	rows, err := st.db.QueryxContext(ctx, `SELECT id, user_id, forum_id FROM subscription WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying subscriptions")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var s subscription.Subscription
		if err = rows.Scan(&s.ID, &s.UserID, &s.ForumID); err != nil {
			return nil, nil, errors.Wrap(err, "scanning subscription")
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "querying subscriptions")
	}

	var overrides []subscription.DiscussionSubscription
	const q = `
SELECT id, user_id, discussion_id, preference, created_at
FROM discussion_subscription
WHERE user_id = $1
ORDER BY id`
	orows, err := st.db.QueryxContext(ctx, q, userID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying discussion subscriptions")
	}
	defer func() { _ = orows.Close() }()
	for orows.Next() {
		var ds subscription.DiscussionSubscription
		if err = orows.Scan(&ds.ID, &ds.UserID, &ds.DiscussionID, &ds.Preference, &ds.CreatedAt); err != nil {
			return nil, nil, errors.Wrap(err, "scanning discussion subscription")
		}
		overrides = append(overrides, ds)
	}
	return subs, overrides, errors.Wrap(orows.Err(), "querying discussion subscriptions")
}

func (st *privacyStore) QueryReadRecordsByUser(ctx context.Context, userID int64) ([]tracking.ReadRecord, error) {
	var rows []readRecordRow
	const q = `SELECT * FROM read_record WHERE user_id = $1 ORDER BY id`
	if err := sqlx.SelectContext(ctx, st.db, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying read records")
	}
	records := make([]tracking.ReadRecord, len(rows))
	for i, r := range rows {
		records[i] = tracking.ReadRecord(r)
	}
	return records, nil
}

func (st *privacyStore) QueryGradesByUser(ctx context.Context, userID int64) ([]grade.Grade, error) {
	var rows []gradeRow
	const q = `SELECT * FROM grade WHERE user_id = $1 ORDER BY id`
	if err := sqlx.SelectContext(ctx, st.db, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]grade.Grade, len(rows))
	for i, r := range rows {
		grades[i] = grade.Grade(r)
	}
	return grades, nil
}

func (st *privacyStore) EraseUserData(ctx context.Context, userID int64, scrubbed string) error {
	return core.Atomic(ctx, st.db, func(tx core.DBExecutor) error {
		const pq = `
UPDATE post SET message = $1, message_format = $2, has_attachment = FALSE, user_id = 0
WHERE user_id = $3`
		if _, err := tx.ExecContext(ctx, pq, scrubbed, discussion.FormatPlain, userID); err != nil {
			return errors.Wrap(err, "scrubbing posts")
		}
		for _, q := range []string{
			`DELETE FROM rating WHERE user_id = $1`,
			`DELETE FROM subscription WHERE user_id = $1`,
			`DELETE FROM discussion_subscription WHERE user_id = $1`,
			`DELETE FROM read_record WHERE user_id = $1`,
			`DELETE FROM grade WHERE user_id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, q, userID); err != nil {
				return errors.Wrap(err, "deleting user rows")
			}
		}
		return nil
	})
}
