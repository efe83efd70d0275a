package dummydb

import (
	"context"
	"sort"

	"github.com/learnweb/moodleoverflow/core/rating"
)

type ratingRepository struct {
	db *DB
}

var _ rating.Repository = (*ratingRepository)(nil) // interface compliance check

func NewRatingRepository(db *DB) rating.Repository {
	return &ratingRepository{db: db}
}

func (repo *ratingRepository) UpsertRating(ctx context.Context, r rating.Rating) (rating.Rating, error) {
	repo.db.rating.Lock()
	defer repo.db.rating.Unlock()

	// one row per (user, post, class); a vote flip replaces the old row
	for _, stored := range repo.db.rating.table {
		if stored.UserID == r.UserID && stored.PostID == r.PostID && stored.Kind.Class() == r.Kind.Class() {
			stored.Kind = r.Kind
			stored.LastChanged = r.LastChanged
			return *stored, nil
		}
	}

	repo.db.rating.pk++
	r.ID = repo.db.rating.pk
	repo.db.rating.table[r.ID] = &r
	return r, nil
}

func (repo *ratingRepository) DeleteRating(ctx context.Context, userID, postID int64, class rating.Class) error {
	repo.db.rating.Lock()
	defer repo.db.rating.Unlock()

	for id, r := range repo.db.rating.table {
		if r.UserID == userID && r.PostID == postID && r.Kind.Class() == class {
			delete(repo.db.rating.table, id)
			return nil
		}
	}
	return rating.ErrNotFound
}

func (repo *ratingRepository) GetUserRatings(ctx context.Context, userID, postID int64) ([]rating.Rating, error) {
	return repo.query(func(r rating.Rating) bool { return r.UserID == userID && r.PostID == postID })
}

func (repo *ratingRepository) QueryRatingsByPost(ctx context.Context, postID int64) ([]rating.Rating, error) {
	return repo.query(func(r rating.Rating) bool { return r.PostID == postID })
}

func (repo *ratingRepository) QueryRatingsByDiscussion(ctx context.Context, discussionID int64) ([]rating.Rating, error) {
	return repo.query(func(r rating.Rating) bool { return r.DiscussionID == discussionID })
}

func (repo *ratingRepository) QueryRatingsByUser(ctx context.Context, userID int64) ([]rating.Rating, error) {
	return repo.query(func(r rating.Rating) bool { return r.UserID == userID })
}

func (repo *ratingRepository) QueryReceivedRatings(ctx context.Context, forumID int64, courseWide bool, authorID int64) ([]rating.Rating, error) {
	forums := repo.scopeForums(forumID, courseWide)

	repo.db.post.RLock()
	authored := make(map[int64]bool)
	for _, p := range repo.db.post.table {
		if p.UserID == authorID {
			authored[p.ID] = true
		}
	}
	repo.db.post.RUnlock()

	return repo.query(func(r rating.Rating) bool {
		return authored[r.PostID] && forums[r.ForumID]
	})
}

func (repo *ratingRepository) CountVotesCast(ctx context.Context, forumID int64, courseWide bool, userID int64) (int, error) {
	forums := repo.scopeForums(forumID, courseWide)

	ratings, err := repo.query(func(r rating.Rating) bool {
		return r.UserID == userID && r.Kind.Class() == rating.ClassVote && forums[r.ForumID]
	})
	return len(ratings), err
}

func (repo *ratingRepository) QueryRaterIDs(ctx context.Context, forumID int64) ([]int64, error) {
	repo.db.rating.RLock()
	defer repo.db.rating.RUnlock()

	seen := make(map[int64]bool)
	var ids []int64
	for _, r := range repo.db.rating.table {
		if r.ForumID == forumID && !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// scopeForums resolves which forums count for reputation: just the one, or
// every forum of its course when reputation is course-wide.
func (repo *ratingRepository) scopeForums(forumID int64, courseWide bool) map[int64]bool {
	forums := map[int64]bool{forumID: true}
	if !courseWide {
		return forums
	}

	repo.db.forum.RLock()
	defer repo.db.forum.RUnlock()

	f, ok := repo.db.forum.table[forumID]
	if !ok {
		return forums
	}
	for _, other := range repo.db.forum.table {
		if other.CourseID == f.CourseID {
			forums[other.ID] = true
		}
	}
	return forums
}

func (repo *ratingRepository) query(match func(rating.Rating) bool) ([]rating.Rating, error) {
	repo.db.rating.RLock()
	defer repo.db.rating.RUnlock()

	var ratings []rating.Rating
	for _, r := range repo.db.rating.table {
		if match(*r) {
			ratings = append(ratings, *r)
		}
	}
	sort.Slice(ratings, func(i, j int) bool { return ratings[i].ID < ratings[j].ID })
	return ratings, nil
}
