package privacy

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/grade"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/subscription"
	"github.com/learnweb/moodleoverflow/core/tracking"
)

// scrubbedMessage replaces post bodies when their author is erased.
const scrubbedMessage = "This content has been removed at the author's request."

// ItemDescription documents one class of personal data held by the service,
// for the host LMS privacy registry.
type ItemDescription struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// Export bundles everything the service stores about one user.
type Export struct {
	UserID        int64                                 `json:"user_id"`
	GeneratedAt   time.Time                             `json:"generated_at"`
	Posts         []discussion.Post                     `json:"posts"`
	Ratings       []rating.Rating                       `json:"ratings"`
	Subscriptions []subscription.Subscription           `json:"subscriptions"`
	Overrides     []subscription.DiscussionSubscription `json:"discussion_subscriptions"`
	ReadRecords   []tracking.ReadRecord                 `json:"read_records"`
	Grades        []grade.Grade                         `json:"grades"`
}

// Store is the cross-table view the privacy operations need. It is
// implemented by the storage layer so erasure runs in one transaction.
type Store interface {
	QueryPostsByUser(ctx context.Context, userID int64) ([]discussion.Post, error)
	QueryRatingsByUser(ctx context.Context, userID int64) ([]rating.Rating, error)
	QuerySubscriptionsByUser(ctx context.Context, userID int64) ([]subscription.Subscription, []subscription.DiscussionSubscription, error)
	QueryReadRecordsByUser(ctx context.Context, userID int64) ([]tracking.ReadRecord, error)
	QueryGradesByUser(ctx context.Context, userID int64) ([]grade.Grade, error)

	// EraseUserData scrubs the user's posts in place (replacing the body
	// and detaching the author) and deletes their ratings, subscriptions,
	// read records and grades, atomically.
	EraseUserData(ctx context.Context, userID int64, scrubbed string) error
}

type Service struct {
	store  Store
	logger core.Logger
}

func NewService(store Store, logger core.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Metadata enumerates the personal data classes this service keeps.
func (svc *Service) Metadata() []ItemDescription {
	return []ItemDescription{
		{Name: "posts", Fields: []string{"discussion_id", "parent_id", "user_id", "message", "created_at", "updated_at"}},
		{Name: "ratings", Fields: []string{"user_id", "post_id", "kind", "first_rated", "last_changed"}},
		{Name: "subscriptions", Fields: []string{"user_id", "forum_id"}},
		{Name: "discussion_subscriptions", Fields: []string{"user_id", "discussion_id", "preference", "created_at"}},
		{Name: "read_records", Fields: []string{"user_id", "post_id", "first_read", "last_read"}},
		{Name: "grades", Fields: []string{"user_id", "forum_id", "value", "updated_at"}},
	}
}

// ExportUserData collects all stored data about a user for a subject
// access request.
func (svc *Service) ExportUserData(ctx context.Context, userID int64) (*Export, error) {
	exp := Export{UserID: userID, GeneratedAt: time.Now().UTC()}

	var err error
	if exp.Posts, err = svc.store.QueryPostsByUser(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "exporting posts")
	}
	if exp.Ratings, err = svc.store.QueryRatingsByUser(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "exporting ratings")
	}
	if exp.Subscriptions, exp.Overrides, err = svc.store.QuerySubscriptionsByUser(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "exporting subscriptions")
	}
	if exp.ReadRecords, err = svc.store.QueryReadRecordsByUser(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "exporting read records")
	}
	if exp.Grades, err = svc.store.QueryGradesByUser(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "exporting grades")
	}
	return &exp, nil
}

// DeleteUserData erases a user's personal data. Posts stay in the thread
// so replies keep their context, but the body is scrubbed and the author
// detached; everything else is deleted outright.
func (svc *Service) DeleteUserData(ctx context.Context, userID int64) error {
	if err := svc.store.EraseUserData(ctx, userID, scrubbedMessage); err != nil {
		return errors.Wrap(err, "erasing user data")
	}
	svc.logger.Info("erased personal data", "user_id", userID)
	return nil
}
