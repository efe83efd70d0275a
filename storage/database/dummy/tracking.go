package dummydb

import (
	"context"
	"sort"

	"github.com/learnweb/moodleoverflow/core/tracking"
)

type trackingRepository struct {
	db *DB
}

var _ tracking.Repository = (*trackingRepository)(nil) // interface compliance check

func NewTrackingRepository(db *DB) tracking.Repository {
	return &trackingRepository{db: db}
}

func (repo *trackingRepository) UpsertReadRecord(ctx context.Context, r *tracking.ReadRecord) error {
	repo.db.readRecord.Lock()
	defer repo.db.readRecord.Unlock()

	for _, stored := range repo.db.readRecord.table {
		if stored.UserID == r.UserID && stored.PostID == r.PostID {
			stored.LastRead = r.LastRead
			r.ID = stored.ID
			r.FirstRead = stored.FirstRead
			return nil
		}
	}

	repo.db.readRecord.pk++
	r.ID = repo.db.readRecord.pk
	cp := *r
	repo.db.readRecord.table[r.ID] = &cp
	return nil
}

func (repo *trackingRepository) GetReadRecord(ctx context.Context, userID, postID int64) (tracking.ReadRecord, error) {
	repo.db.readRecord.RLock()
	defer repo.db.readRecord.RUnlock()

	for _, r := range repo.db.readRecord.table {
		if r.UserID == userID && r.PostID == postID {
			return *r, nil
		}
	}
	return tracking.ReadRecord{}, tracking.ErrNotFound
}

func (repo *trackingRepository) CountUnreadPosts(ctx context.Context, userID, discussionID int64) (int, error) {
	read := repo.readPostIDs(userID)

	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	var n int
	for _, p := range repo.db.post.table {
		if p.DiscussionID == discussionID && p.Reviewed && !read[p.ID] {
			n++
		}
	}
	return n, nil
}

func (repo *trackingRepository) QueryUnreadDiscussions(ctx context.Context, userID, forumID int64) ([]int64, error) {
	read := repo.readPostIDs(userID)

	repo.db.discussion.RLock()
	defer repo.db.discussion.RUnlock()
	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	seen := make(map[int64]bool)
	var ids []int64
	for _, p := range repo.db.post.table {
		if !p.Reviewed || read[p.ID] || seen[p.DiscussionID] {
			continue
		}
		d, ok := repo.db.discussion.table[p.DiscussionID]
		if !ok || d.ForumID != forumID {
			continue
		}
		seen[p.DiscussionID] = true
		ids = append(ids, p.DiscussionID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (repo *trackingRepository) DeleteReadRecordsByUser(ctx context.Context, userID int64) error {
	repo.db.readRecord.Lock()
	defer repo.db.readRecord.Unlock()

	for id, r := range repo.db.readRecord.table {
		if r.UserID == userID {
			delete(repo.db.readRecord.table, id)
		}
	}
	return nil
}

func (repo *trackingRepository) readPostIDs(userID int64) map[int64]bool {
	repo.db.readRecord.RLock()
	defer repo.db.readRecord.RUnlock()

	read := make(map[int64]bool)
	for _, r := range repo.db.readRecord.table {
		if r.UserID == userID {
			read[r.PostID] = true
		}
	}
	return read
}
