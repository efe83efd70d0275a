package search

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/user"
)

// Document is the indexable representation of a post handed to the host
// LMS search engine. Owner is zeroed when the forum anonymizes the author.
type Document struct {
	PostID       int64     `json:"post_id"`
	DiscussionID int64     `json:"discussion_id"`
	ForumID      int64     `json:"forum_id"`
	CourseID     int64     `json:"course_id"`
	OwnerID      int64     `json:"owner_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	ModifiedAt   time.Time `json:"modified_at"` // UTC
}

type Service struct {
	discRepo  discussion.Repository
	forumRepo forum.Repository
}

func NewService(discRepo discussion.Repository, forumRepo forum.Repository) *Service {
	return &Service{discRepo: discRepo, forumRepo: forumRepo}
}

// RecordsetSince returns documents for posts reviewed or edited since the
// given time, ordered oldest first so the indexer can checkpoint. Posts
// still waiting for review never enter the index.
func (svc *Service) RecordsetSince(ctx context.Context, since time.Time) ([]Document, error) {
	posts, err := svc.discRepo.QueryReviewedPostsSince(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, "querying reviewed posts")
	}

	forums := make(map[int64]forum.Forum)
	docs := make([]Document, 0, len(posts))
	for _, p := range posts {
		d, err := svc.discRepo.GetDiscussionByID(ctx, p.DiscussionID)
		if err != nil {
			if errors.Cause(err) == discussion.ErrNotFound {
				continue
			}
			return nil, errors.Wrapf(err, "getting discussion %d", p.DiscussionID)
		}
		f, ok := forums[d.ForumID]
		if !ok {
			if f, err = svc.forumRepo.GetForumByID(ctx, d.ForumID); err != nil {
				return nil, errors.Wrapf(err, "getting forum %d", d.ForumID)
			}
			forums[d.ForumID] = f
		}

		doc := Document{
			PostID:       p.ID,
			DiscussionID: d.ID,
			ForumID:      f.ID,
			CourseID:     f.CourseID,
			OwnerID:      p.UserID,
			Title:        d.Name,
			Content:      p.Message,
			ModifiedAt:   p.UpdatedAt,
		}
		if f.AnonymizesAuthorOf(p.IsQuestion()) {
			doc.OwnerID = 0
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// CheckAccess reports whether actor may see the post behind a search hit.
// Unreviewed posts are visible only to their author and to reviewers.
func (svc *Service) CheckAccess(ctx context.Context, actor user.User, postID int64) (bool, error) {
	p, err := svc.discRepo.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Cause(err) == discussion.ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting post")
	}
	if p.Reviewed {
		return true, nil
	}
	return p.UserID == actor.ID || actor.HasCapability(user.CapReviewPost), nil
}
