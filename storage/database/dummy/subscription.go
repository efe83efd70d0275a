package dummydb

import (
	"context"
	"sort"

	"github.com/learnweb/moodleoverflow/core/subscription"
)

type subscriptionRepository struct {
	db *DB
}

var _ subscription.Repository = (*subscriptionRepository)(nil) // interface compliance check

func NewSubscriptionRepository(db *DB) subscription.Repository {
	return &subscriptionRepository{db: db}
}

func (repo *subscriptionRepository) UpsertSubscription(ctx context.Context, s *subscription.Subscription) error {
	repo.db.sub.Lock()
	defer repo.db.sub.Unlock()

	for _, stored := range repo.db.sub.table {
		if stored.UserID == s.UserID && stored.ForumID == s.ForumID {
			s.ID = stored.ID
			return nil
		}
	}

	repo.db.sub.pk++
	s.ID = repo.db.sub.pk
	cp := *s
	repo.db.sub.table[s.ID] = &cp
	return nil
}

func (repo *subscriptionRepository) DeleteSubscription(ctx context.Context, userID, forumID int64) error {
	repo.db.sub.Lock()
	defer repo.db.sub.Unlock()

	for id, s := range repo.db.sub.table {
		if s.UserID == userID && s.ForumID == forumID {
			delete(repo.db.sub.table, id)
			return nil
		}
	}
	return nil
}

func (repo *subscriptionRepository) GetSubscription(ctx context.Context, userID, forumID int64) (subscription.Subscription, error) {
	repo.db.sub.RLock()
	defer repo.db.sub.RUnlock()

	for _, s := range repo.db.sub.table {
		if s.UserID == userID && s.ForumID == forumID {
			return *s, nil
		}
	}
	return subscription.Subscription{}, subscription.ErrNotFound
}

func (repo *subscriptionRepository) QuerySubscribersByForum(ctx context.Context, forumID int64) ([]int64, error) {
	repo.db.sub.RLock()
	defer repo.db.sub.RUnlock()

	var ids []int64
	for _, s := range repo.db.sub.table {
		if s.ForumID == forumID {
			ids = append(ids, s.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (repo *subscriptionRepository) UpsertDiscussionSubscription(ctx context.Context, ds *subscription.DiscussionSubscription) error {
	repo.db.discSub.Lock()
	defer repo.db.discSub.Unlock()

	for _, stored := range repo.db.discSub.table {
		if stored.UserID == ds.UserID && stored.DiscussionID == ds.DiscussionID {
			stored.Preference = ds.Preference
			stored.CreatedAt = ds.CreatedAt
			ds.ID = stored.ID
			return nil
		}
	}

	repo.db.discSub.pk++
	ds.ID = repo.db.discSub.pk
	cp := *ds
	repo.db.discSub.table[ds.ID] = &cp
	return nil
}

func (repo *subscriptionRepository) GetDiscussionSubscription(ctx context.Context, userID, discussionID int64) (subscription.DiscussionSubscription, error) {
	repo.db.discSub.RLock()
	defer repo.db.discSub.RUnlock()

	for _, ds := range repo.db.discSub.table {
		if ds.UserID == userID && ds.DiscussionID == discussionID {
			return *ds, nil
		}
	}
	return subscription.DiscussionSubscription{}, subscription.ErrNotFound
}

func (repo *subscriptionRepository) QueryDiscussionOverrides(ctx context.Context, discussionID int64) ([]subscription.DiscussionSubscription, error) {
	repo.db.discSub.RLock()
	defer repo.db.discSub.RUnlock()

	var dss []subscription.DiscussionSubscription
	for _, ds := range repo.db.discSub.table {
		if ds.DiscussionID == discussionID {
			dss = append(dss, *ds)
		}
	}
	sort.Slice(dss, func(i, j int) bool { return dss[i].UserID < dss[j].UserID })
	return dss, nil
}
