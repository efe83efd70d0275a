package subscription

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/user"
)

var (
	ErrNotFound      = errors.New("subscription not found")
	ErrNotAuthorized = errors.New("not authorized")
	ErrForced        = errors.New("forum subscription is forced")
)

// NowFunc returns the current time. It can be mocked in tests.
var NowFunc func() time.Time = time.Now

type Repository interface {
	// forum level
	UpsertSubscription(ctx context.Context, s *Subscription) error
	DeleteSubscription(ctx context.Context, userID, forumID int64) error
	GetSubscription(ctx context.Context, userID, forumID int64) (Subscription, error)
	QuerySubscribersByForum(ctx context.Context, forumID int64) ([]int64, error)

	// discussion level
	UpsertDiscussionSubscription(ctx context.Context, ds *DiscussionSubscription) error
	GetDiscussionSubscription(ctx context.Context, userID, discussionID int64) (DiscussionSubscription, error)
	QueryDiscussionOverrides(ctx context.Context, discussionID int64) ([]DiscussionSubscription, error)
}

type Service struct {
	repo      Repository
	forumRepo forum.Repository
	conf      *core.Config
	logger    core.Logger
}

func NewService(repo Repository, forumRepo forum.Repository, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:      repo,
		forumRepo: forumRepo,
		conf:      conf,
		logger:    logger,
	}
}

// Subscribe subscribes actor to a forum.
func (svc *Service) Subscribe(ctx context.Context, actor user.User, forumID int64) error {
	if _, err := svc.forumRepo.GetForumByID(ctx, forumID); err != nil {
		return errors.Wrap(err, "getting forum")
	}
	s := Subscription{UserID: actor.ID, ForumID: forumID}
	return errors.Wrap(svc.repo.UpsertSubscription(ctx, &s), "upserting subscription")
}

// Unsubscribe removes actor's forum subscription. Forums with forced
// subscription cannot be left.
func (svc *Service) Unsubscribe(ctx context.Context, actor user.User, forumID int64) error {
	f, err := svc.forumRepo.GetForumByID(ctx, forumID)
	if err != nil {
		return errors.Wrap(err, "getting forum")
	}
	if f.ForceSubscribe {
		return ErrForced
	}
	return errors.Wrap(svc.repo.DeleteSubscription(ctx, actor.ID, forumID), "deleting subscription")
}

// SubscribeDiscussion records a per-discussion override.
func (svc *Service) SubscribeDiscussion(ctx context.Context, actor user.User, discussionID int64, pref Preference) error {
	ds := DiscussionSubscription{
		UserID:       actor.ID,
		DiscussionID: discussionID,
		Preference:   pref,
		CreatedAt:    NowFunc().UTC(),
	}
	return errors.Wrap(svc.repo.UpsertDiscussionSubscription(ctx, &ds), "upserting discussion subscription")
}

// IsSubscribed resolves the effective subscription state for a user on a
// discussion. A discussion-level override always wins over the forum
// subscription; forced forums subscribe everyone.
func (svc *Service) IsSubscribed(ctx context.Context, userID int64, f forum.Forum, d discussion.Discussion) (bool, error) {
	ds, err := svc.repo.GetDiscussionSubscription(ctx, userID, d.ID)
	switch errors.Cause(err) {
	case nil:
		return ds.Preference == PrefSubscribed, nil
	case ErrNotFound:
	default:
		return false, errors.Wrap(err, "getting discussion subscription")
	}

	if f.ForceSubscribe {
		return true, nil
	}
	_, err = svc.repo.GetSubscription(ctx, userID, f.ID)
	switch errors.Cause(err) {
	case nil:
		return true, nil
	case ErrNotFound:
		return false, nil
	default:
		return false, errors.Wrap(err, "getting subscription")
	}
}

// ShouldDeliver reports whether a notification for post p should reach the
// user. An unsubscribe recorded after the post was created voids delivery
// even when the post is still pending in the mail queue.
func (svc *Service) ShouldDeliver(ctx context.Context, userID int64, f forum.Forum, d discussion.Discussion, p discussion.Post) (bool, error) {
	ds, err := svc.repo.GetDiscussionSubscription(ctx, userID, d.ID)
	switch errors.Cause(err) {
	case nil:
		if ds.Preference == PrefUnsubscribed {
			return false, nil
		}
		return true, nil
	case ErrNotFound:
	default:
		return false, errors.Wrap(err, "getting discussion subscription")
	}
	return svc.IsSubscribed(ctx, userID, f, d)
}

// Recipients returns the user ids that should receive notifications for a
// post in the given discussion: forum subscribers plus positive overrides,
// minus negative overrides.
func (svc *Service) Recipients(ctx context.Context, f forum.Forum, d discussion.Discussion) ([]int64, error) {
	base, err := svc.repo.QuerySubscribersByForum(ctx, f.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying forum subscribers")
	}
	overrides, err := svc.repo.QueryDiscussionOverrides(ctx, d.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying discussion overrides")
	}

	set := make(map[int64]bool, len(base))
	for _, id := range base {
		set[id] = true
	}
	for _, ds := range overrides {
		set[ds.UserID] = ds.Preference == PrefSubscribed
	}
	ids := make([]int64, 0, len(set))
	for id, in := range set {
		if in {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
