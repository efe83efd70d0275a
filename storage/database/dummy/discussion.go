package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/discussion"
)

type discussionRepository struct {
	db *DB
}

var _ discussion.Repository = (*discussionRepository)(nil) // interface compliance check

func NewDiscussionRepository(db *DB) discussion.Repository {
	return &discussionRepository{db: db}
}

func (repo *discussionRepository) CreateDiscussion(ctx context.Context, d discussion.Discussion, root discussion.Post) (discussion.Discussion, discussion.Post, error) {
	repo.db.discussion.Lock()
	defer repo.db.discussion.Unlock()
	repo.db.post.Lock()
	defer repo.db.post.Unlock()

	repo.db.discussion.pk++
	d.ID = repo.db.discussion.pk

	repo.db.post.pk++
	root.ID = repo.db.post.pk
	root.DiscussionID = d.ID
	d.FirstPostID = root.ID

	repo.db.discussion.table[d.ID] = &d
	repo.db.post.table[root.ID] = &root
	return d, root, nil
}

func (repo *discussionRepository) GetDiscussionByID(ctx context.Context, id int64) (discussion.Discussion, error) {
	repo.db.discussion.RLock()
	defer repo.db.discussion.RUnlock()

	if d, ok := repo.db.discussion.table[id]; ok {
		return *d, nil
	}
	return discussion.Discussion{}, discussion.ErrNotFound
}

func (repo *discussionRepository) QueryDiscussionsByForum(ctx context.Context, forumID int64, ordering []core.DBOrdering) ([]discussion.Discussion, error) {
	repo.db.discussion.RLock()
	defer repo.db.discussion.RUnlock()

	var ds []discussion.Discussion
	for _, d := range repo.db.discussion.table {
		if d.ForumID == forumID {
			ds = append(ds, *d)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "updated_at"}, {Field: "id"}}
	}
	sort.Slice(ds, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareDiscussions(ds[i], ds[j], ord.Field); c != 0 {
				return ord.Ascending == (c < 0)
			}
		}
		return false
	})
	return ds, nil
}

func compareDiscussions(a, b discussion.Discussion, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default: // id
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	}
}

func (repo *discussionRepository) TouchDiscussion(ctx context.Context, id int64, modified time.Time, userID int64) error {
	repo.db.discussion.Lock()
	defer repo.db.discussion.Unlock()

	d, ok := repo.db.discussion.table[id]
	if !ok {
		return discussion.ErrNotFound
	}
	d.UpdatedAt = modified
	d.UserModified = userID
	return nil
}

func (repo *discussionRepository) DeleteDiscussion(ctx context.Context, d discussion.Discussion) error {
	repo.db.discussion.Lock()
	defer repo.db.discussion.Unlock()
	repo.db.post.Lock()
	defer repo.db.post.Unlock()
	repo.db.rating.Lock()
	defer repo.db.rating.Unlock()
	repo.db.discSub.Lock()
	defer repo.db.discSub.Unlock()
	repo.db.readRecord.Lock()
	defer repo.db.readRecord.Unlock()

	if _, ok := repo.db.discussion.table[d.ID]; !ok {
		return discussion.ErrNotFound
	}

	for id, r := range repo.db.rating.table {
		if r.DiscussionID == d.ID {
			delete(repo.db.rating.table, id)
		}
	}
	for id, r := range repo.db.readRecord.table {
		if r.DiscussionID == d.ID {
			delete(repo.db.readRecord.table, id)
		}
	}
	for id, ds := range repo.db.discSub.table {
		if ds.DiscussionID == d.ID {
			delete(repo.db.discSub.table, id)
		}
	}
	for id, p := range repo.db.post.table {
		if p.DiscussionID == d.ID {
			delete(repo.db.post.table, id)
		}
	}
	delete(repo.db.discussion.table, d.ID)
	return nil
}

func (repo *discussionRepository) CreatePost(ctx context.Context, p discussion.Post) (discussion.Post, error) {
	repo.db.post.Lock()
	defer repo.db.post.Unlock()

	repo.db.post.pk++
	p.ID = repo.db.post.pk
	repo.db.post.table[p.ID] = &p
	return p, nil
}

func (repo *discussionRepository) GetPostByID(ctx context.Context, id int64) (discussion.Post, error) {
	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	if p, ok := repo.db.post.table[id]; ok {
		return *p, nil
	}
	return discussion.Post{}, discussion.ErrNotFound
}

func (repo *discussionRepository) UpdatePost(ctx context.Context, p discussion.Post, rename null.String) (discussion.Post, error) {
	repo.db.discussion.Lock()
	defer repo.db.discussion.Unlock()
	repo.db.post.Lock()
	defer repo.db.post.Unlock()

	stored, ok := repo.db.post.table[p.ID]
	if !ok {
		return discussion.Post{}, discussion.ErrNotFound
	}
	stored.Message = p.Message
	stored.MessageFormat = p.MessageFormat
	stored.HasAttachment = p.HasAttachment
	stored.UpdatedAt = p.UpdatedAt

	if rename.Valid {
		if d, ok := repo.db.discussion.table[p.DiscussionID]; ok {
			d.Name = rename.String
			d.UpdatedAt = p.UpdatedAt
			d.UserModified = p.UserID
		}
	}
	return *stored, nil
}

func (repo *discussionRepository) QueryPostsByDiscussion(ctx context.Context, discussionID int64) ([]discussion.Post, error) {
	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	var posts []discussion.Post
	for _, p := range repo.db.post.table {
		if p.DiscussionID == discussionID {
			posts = append(posts, *p)
		}
	}
	sortPosts(posts)
	return posts, nil
}

func (repo *discussionRepository) QueryPostsByAuthor(ctx context.Context, userID int64) ([]discussion.Post, error) {
	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	var posts []discussion.Post
	for _, p := range repo.db.post.table {
		if p.UserID == userID {
			posts = append(posts, *p)
		}
	}
	sortPosts(posts)
	return posts, nil
}

func (repo *discussionRepository) CountChildren(ctx context.Context, postID int64) (int, error) {
	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	var n int
	for _, p := range repo.db.post.table {
		if p.ParentID == postID {
			n++
		}
	}
	return n, nil
}

func (repo *discussionRepository) DeletePostTree(ctx context.Context, root discussion.Post) (int, error) {
	repo.db.post.Lock()
	defer repo.db.post.Unlock()
	repo.db.rating.Lock()
	defer repo.db.rating.Unlock()
	repo.db.readRecord.Lock()
	defer repo.db.readRecord.Unlock()

	doomed := map[int64]bool{root.ID: true}
	for {
		grew := false
		for _, p := range repo.db.post.table {
			if doomed[p.ID] || !doomed[p.ParentID] {
				continue
			}
			doomed[p.ID] = true
			grew = true
		}
		if !grew {
			break
		}
	}

	for id, r := range repo.db.rating.table {
		if doomed[r.PostID] {
			delete(repo.db.rating.table, id)
		}
	}
	for id, r := range repo.db.readRecord.table {
		if doomed[r.PostID] {
			delete(repo.db.readRecord.table, id)
		}
	}
	var count int
	for id := range repo.db.post.table {
		if doomed[id] {
			delete(repo.db.post.table, id)
			count++
		}
	}
	return count, nil
}

func (repo *discussionRepository) LatestReviewedPost(ctx context.Context, discussionID int64) (discussion.Post, error) {
	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	var latest *discussion.Post
	for _, p := range repo.db.post.table {
		if p.DiscussionID != discussionID || !p.Reviewed {
			continue
		}
		if latest == nil ||
			p.UpdatedAt.After(latest.UpdatedAt) ||
			(p.UpdatedAt.Equal(latest.UpdatedAt) && p.ID > latest.ID) {
			latest = p
		}
	}
	if latest == nil {
		return discussion.Post{}, discussion.ErrNotFound
	}
	return *latest, nil
}

func (repo *discussionRepository) SetReviewed(ctx context.Context, postID int64, at time.Time) error {
	repo.db.post.Lock()
	defer repo.db.post.Unlock()

	p, ok := repo.db.post.table[postID]
	if !ok {
		return discussion.ErrNotFound
	}
	p.Reviewed = true
	p.TimeReviewed = null.TimeFrom(at)
	p.UpdatedAt = at
	return nil
}

func (repo *discussionRepository) NextUnreviewedPost(ctx context.Context, forumID, excludeID int64) (discussion.Post, error) {
	repo.db.discussion.RLock()
	defer repo.db.discussion.RUnlock()
	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	var next *discussion.Post
	for _, p := range repo.db.post.table {
		if p.Reviewed || p.ID == excludeID {
			continue
		}
		d, ok := repo.db.discussion.table[p.DiscussionID]
		if !ok || d.ForumID != forumID {
			continue
		}
		if next == nil ||
			p.CreatedAt.Before(next.CreatedAt) ||
			(p.CreatedAt.Equal(next.CreatedAt) && p.ID < next.ID) {
			next = p
		}
	}
	if next == nil {
		return discussion.Post{}, discussion.ErrNotFound
	}
	return *next, nil
}

func (repo *discussionRepository) QueryUnmailedPosts(ctx context.Context, start, end time.Time) ([]discussion.Post, error) {
	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	var posts []discussion.Post
	for _, p := range repo.db.post.table {
		if !mailable(*p) {
			continue
		}
		eff := p.EffectiveCreatedAt()
		if eff.Before(start) || !eff.Before(end) {
			continue
		}
		posts = append(posts, *p)
	}
	sortPosts(posts)
	return posts, nil
}

func (repo *discussionRepository) MarkMailedBefore(ctx context.Context, end time.Time) (int64, error) {
	repo.db.post.Lock()
	defer repo.db.post.Unlock()

	var n int64
	for _, p := range repo.db.post.table {
		if mailable(*p) && p.EffectiveCreatedAt().Before(end) {
			p.Mailed = discussion.MailSent
			n++
		}
	}
	return n, nil
}

func (repo *discussionRepository) SetMailState(ctx context.Context, postID int64, state discussion.MailState) error {
	repo.db.post.Lock()
	defer repo.db.post.Unlock()

	p, ok := repo.db.post.table[postID]
	if !ok {
		return discussion.ErrNotFound
	}
	p.Mailed = state
	return nil
}

func (repo *discussionRepository) QueryReviewedPostsSince(ctx context.Context, since time.Time) ([]discussion.Post, error) {
	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	var posts []discussion.Post
	for _, p := range repo.db.post.table {
		if p.Reviewed && !p.UpdatedAt.Before(since) {
			posts = append(posts, *p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].UpdatedAt.Equal(posts[j].UpdatedAt) {
			return posts[i].UpdatedAt.Before(posts[j].UpdatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
	return posts, nil
}

func (repo *discussionRepository) QueryPostAuthorIDs(ctx context.Context, forumID int64) ([]int64, error) {
	repo.db.discussion.RLock()
	defer repo.db.discussion.RUnlock()
	repo.db.post.RLock()
	defer repo.db.post.RUnlock()

	seen := make(map[int64]bool)
	var ids []int64
	for _, p := range repo.db.post.table {
		d, ok := repo.db.discussion.table[p.DiscussionID]
		if !ok || d.ForumID != forumID || seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		ids = append(ids, p.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func mailable(p discussion.Post) bool {
	return p.Reviewed && (p.Mailed == discussion.MailPending || p.Mailed == discussion.MailReviewSent)
}

func sortPosts(posts []discussion.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.Before(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
}
