package rating

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("rating not found")
	ErrSelfVote      = errors.New("users cannot vote on their own posts")
	ErrNotAuthorized = errors.New("not authorized to rate")
	ErrUnderReview   = errors.New("post is waiting for review")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// UpsertRating atomically replaces any existing rating of the same
		// (user, post, class); casting an opposite vote must never leave
		// two rows behind. The store enforces this with a uniqueness
		// constraint, not the caller.
		UpsertRating(ctx context.Context, r Rating) (Rating, error)
		DeleteRating(ctx context.Context, userID, postID int64, class Class) error
		GetUserRatings(ctx context.Context, userID, postID int64) ([]Rating, error)
		QueryRatingsByPost(ctx context.Context, postID int64) ([]Rating, error)
		QueryRatingsByDiscussion(ctx context.Context, discussionID int64) ([]Rating, error)
		QueryRatingsByUser(ctx context.Context, userID int64) ([]Rating, error)
		// QueryReceivedRatings returns ratings on posts authored by
		// authorID, scoped to one forum or (courseWide) a whole course.
		QueryReceivedRatings(ctx context.Context, forumID int64, courseWide bool, authorID int64) ([]Rating, error)
		// CountVotesCast counts up/down votes authored by userID in scope.
		CountVotesCast(ctx context.Context, forumID int64, courseWide bool, userID int64) (int, error)
		// QueryRaterIDs returns the distinct users that rated in a forum.
		QueryRaterIDs(ctx context.Context, forumID int64) ([]int64, error)
	}

	Service struct {
		repo     Repository
		discRepo discussion.Repository
	}
)

func NewService(repo Repository, discRepo discussion.Repository) *Service {
	return &Service{repo: repo, discRepo: discRepo}
}

// CastVote records (or, for the removal variants, withdraws) a rating on a
// post. Up/down votes cannot target the voter's own post; helpful is the
// discussion starter's call; solved needs the mark-solved capability.
func (svc *Service) CastVote(ctx context.Context, actor user.User, postID int64, kind Kind, remove bool) (*Rating, error) {
	p, err := svc.discRepo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !p.Reviewed {
		return nil, ErrUnderReview
	}
	d, err := svc.discRepo.GetDiscussionByID(ctx, p.DiscussionID)
	if err != nil {
		return nil, err
	}

	switch kind.Class() {
	case ClassVote:
		if p.UserID == actor.ID {
			return nil, ErrSelfVote
		}
	case ClassMark:
		if kind == KindHelpful && actor.ID != d.UserID {
			return nil, ErrNotAuthorized
		}
		if kind == KindSolved && !actor.HasCapability(user.CapRateSolved) {
			return nil, ErrNotAuthorized
		}
	}

	if remove {
		if err = svc.repo.DeleteRating(ctx, actor.ID, p.ID, kind.Class()); err != nil {
			return nil, errors.Wrap(err, "removing rating")
		}
		return nil, nil
	}

	now := NowFunc().UTC()
	r, err := svc.repo.UpsertRating(ctx, Rating{
		UserID:       actor.ID,
		PostID:       p.ID,
		DiscussionID: d.ID,
		ForumID:      d.ForumID,
		Kind:         kind,
		FirstRated:   now,
		LastChanged:  now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "casting vote")
	}
	return &r, nil
}

// GetRating returns the actor's current ratings on a post, one per class
// at most. No side effects.
func (svc *Service) GetRating(ctx context.Context, actor user.User, postID int64) ([]Rating, error) {
	return svc.repo.GetUserRatings(ctx, actor.ID, postID)
}

// RaterIDs returns the distinct users that cast any rating in a forum.
func (svc *Service) RaterIDs(ctx context.Context, forumID int64) ([]int64, error) {
	return svc.repo.QueryRaterIDs(ctx, forumID)
}

// ListRatings returns every rating of a discussion, or of a single post
// when postID is non-zero.
func (svc *Service) ListRatings(ctx context.Context, discussionID int64, postID int64) ([]Rating, error) {
	if postID != 0 {
		return svc.repo.QueryRatingsByPost(ctx, postID)
	}
	return svc.repo.QueryRatingsByDiscussion(ctx, discussionID)
}
