package dummydb

import (
	"context"
	"sort"

	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/grade"
	"github.com/learnweb/moodleoverflow/core/privacy"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/subscription"
	"github.com/learnweb/moodleoverflow/core/tracking"
)

type privacyStore struct {
	db *DB
}

var _ privacy.Store = (*privacyStore)(nil) // interface compliance check

func NewPrivacyStore(db *DB) privacy.Store {
	return &privacyStore{db: db}
}

func (st *privacyStore) QueryPostsByUser(ctx context.Context, userID int64) ([]discussion.Post, error) {
	return NewDiscussionRepository(st.db).QueryPostsByAuthor(ctx, userID)
}

func (st *privacyStore) QueryRatingsByUser(ctx context.Context, userID int64) ([]rating.Rating, error) {
	return NewRatingRepository(st.db).QueryRatingsByUser(ctx, userID)
}

func (st *privacyStore) QuerySubscriptionsByUser(ctx context.Context, userID int64) ([]subscription.Subscription, []subscription.DiscussionSubscription, error) {
	st.db.sub.RLock()
	var subs []subscription.Subscription
	for _, s := range st.db.sub.table {
		if s.UserID == userID {
			subs = append(subs, *s)
		}
	}
	st.db.sub.RUnlock()
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })

	st.db.discSub.RLock()
	var overrides []subscription.DiscussionSubscription
	for _, ds := range st.db.discSub.table {
		if ds.UserID == userID {
			overrides = append(overrides, *ds)
		}
	}
	st.db.discSub.RUnlock()
	sort.Slice(overrides, func(i, j int) bool { return overrides[i].ID < overrides[j].ID })

	return subs, overrides, nil
}

func (st *privacyStore) QueryReadRecordsByUser(ctx context.Context, userID int64) ([]tracking.ReadRecord, error) {
	st.db.readRecord.RLock()
	defer st.db.readRecord.RUnlock()

	var records []tracking.ReadRecord
	for _, r := range st.db.readRecord.table {
		if r.UserID == userID {
			records = append(records, *r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (st *privacyStore) QueryGradesByUser(ctx context.Context, userID int64) ([]grade.Grade, error) {
	st.db.grade.RLock()
	defer st.db.grade.RUnlock()

	var grades []grade.Grade
	for _, g := range st.db.grade.table {
		if g.UserID == userID {
			grades = append(grades, *g)
		}
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].ID < grades[j].ID })
	return grades, nil
}

func (st *privacyStore) EraseUserData(ctx context.Context, userID int64, scrubbed string) error {
	st.db.post.Lock()
	for _, p := range st.db.post.table {
		if p.UserID == userID {
			p.Message = scrubbed
			p.MessageFormat = discussion.FormatPlain
			p.HasAttachment = false
			p.UserID = 0
		}
	}
	st.db.post.Unlock()

	st.db.rating.Lock()
	for id, r := range st.db.rating.table {
		if r.UserID == userID {
			delete(st.db.rating.table, id)
		}
	}
	st.db.rating.Unlock()

	st.db.sub.Lock()
	for id, s := range st.db.sub.table {
		if s.UserID == userID {
			delete(st.db.sub.table, id)
		}
	}
	st.db.sub.Unlock()

	st.db.discSub.Lock()
	for id, ds := range st.db.discSub.table {
		if ds.UserID == userID {
			delete(st.db.discSub.table, id)
		}
	}
	st.db.discSub.Unlock()

	st.db.readRecord.Lock()
	for id, r := range st.db.readRecord.table {
		if r.UserID == userID {
			delete(st.db.readRecord.table, id)
		}
	}
	st.db.readRecord.Unlock()

	st.db.grade.Lock()
	for id, g := range st.db.grade.table {
		if g.UserID == userID {
			delete(st.db.grade.table, id)
		}
	}
	st.db.grade.Unlock()
	return nil
}
