package tracking

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/user"
)

var (
	ErrNotFound    = errors.New("read record not found")
	ErrNotReviewed = errors.New("post not reviewed")

	// NowFunc returns the current time. It can be mocked in tests.
	NowFunc func() time.Time = time.Now
)

// ReadRecord marks a post as read by a user. FirstRead is kept on repeated
// reads; only LastRead moves.
type ReadRecord struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	PostID       int64     `json:"post_id"`
	DiscussionID int64     `json:"discussion_id"`
	ForumID      int64     `json:"forum_id"`
	FirstRead    time.Time `json:"first_read"` // UTC
	LastRead     time.Time `json:"last_read"`  // UTC
}

type Repository interface {
	// UpsertReadRecord inserts the record or, on conflict, updates
	// LastRead while keeping the stored FirstRead.
	UpsertReadRecord(ctx context.Context, r *ReadRecord) error
	GetReadRecord(ctx context.Context, userID, postID int64) (ReadRecord, error)
	CountUnreadPosts(ctx context.Context, userID, discussionID int64) (int, error)
	QueryUnreadDiscussions(ctx context.Context, userID, forumID int64) ([]int64, error)
	DeleteReadRecordsByUser(ctx context.Context, userID int64) error
}

type Service struct {
	repo     Repository
	discRepo discussion.Repository
}

func NewService(repo Repository, discRepo discussion.Repository) *Service {
	return &Service{repo: repo, discRepo: discRepo}
}

// MarkPostRead records that actor has read a post. Posts still waiting for
// review are invisible and cannot be marked.
func (svc *Service) MarkPostRead(ctx context.Context, actor user.User, postID int64) (*ReadRecord, error) {
	p, err := svc.discRepo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, errors.Wrap(err, "getting post")
	}
	if !p.Reviewed {
		return nil, ErrNotReviewed
	}
	d, err := svc.discRepo.GetDiscussionByID(ctx, p.DiscussionID)
	if err != nil {
		return nil, errors.Wrap(err, "getting discussion")
	}

	now := NowFunc().UTC()
	r := ReadRecord{
		UserID:       actor.ID,
		PostID:       p.ID,
		DiscussionID: d.ID,
		ForumID:      d.ForumID,
		FirstRead:    now,
		LastRead:     now,
	}
	if err = svc.repo.UpsertReadRecord(ctx, &r); err != nil {
		return nil, errors.Wrap(err, "upserting read record")
	}
	return &r, nil
}

// MarkDiscussionRead marks every reviewed post of a discussion as read.
func (svc *Service) MarkDiscussionRead(ctx context.Context, actor user.User, discussionID int64) error {
	d, err := svc.discRepo.GetDiscussionByID(ctx, discussionID)
	if err != nil {
		return errors.Wrap(err, "getting discussion")
	}
	posts, err := svc.discRepo.QueryPostsByDiscussion(ctx, d.ID)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}

	now := NowFunc().UTC()
	for _, p := range posts {
		if !p.Reviewed {
			continue
		}
		r := ReadRecord{
			UserID:       actor.ID,
			PostID:       p.ID,
			DiscussionID: d.ID,
			ForumID:      d.ForumID,
			FirstRead:    now,
			LastRead:     now,
		}
		if err = svc.repo.UpsertReadRecord(ctx, &r); err != nil {
			return errors.Wrapf(err, "upserting read record for post %d", p.ID)
		}
	}
	return nil
}

// UnreadCount returns the number of reviewed posts in a discussion that
// actor has not read yet.
func (svc *Service) UnreadCount(ctx context.Context, actor user.User, discussionID int64) (int, error) {
	n, err := svc.repo.CountUnreadPosts(ctx, actor.ID, discussionID)
	return n, errors.Wrap(err, "counting unread posts")
}

// UnreadDiscussions returns ids of forum discussions holding reviewed posts
// that actor has not read.
func (svc *Service) UnreadDiscussions(ctx context.Context, actor user.User, forumID int64) ([]int64, error) {
	ids, err := svc.repo.QueryUnreadDiscussions(ctx, actor.ID, forumID)
	return ids, errors.Wrap(err, "querying unread discussions")
}
