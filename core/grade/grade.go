package grade

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/rating"
)

var (
	ErrNotFound = errors.New("grade not found")

	// NowFunc returns the current time. It can be mocked in tests.
	NowFunc func() time.Time = time.Now
)

// Grade is a user's graded standing in one forum, pushed back to the host
// LMS gradebook. Value is the reputation scaled into [0, forum.GradeScale].
type Grade struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ForumID   int64     `json:"forum_id"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Repository interface {
	UpsertGrade(ctx context.Context, g *Grade) error
	GetGrade(ctx context.Context, userID, forumID int64) (Grade, error)
	QueryGradesByForum(ctx context.Context, forumID int64) ([]Grade, error)
}

type Service struct {
	repo      Repository
	forumRepo forum.Repository
	discRepo  discussion.Repository
	ratingSvc *rating.Service
}

func NewService(repo Repository, forumRepo forum.Repository, discRepo discussion.Repository, ratingSvc *rating.Service) *Service {
	return &Service{
		repo:      repo,
		forumRepo: forumRepo,
		discRepo:  discRepo,
		ratingSvc: ratingSvc,
	}
}

// RecomputeForum regrades every participant of a forum. Participants are
// the post authors plus anyone who cast a rating. A forum with a zero
// grade scale is ungraded and skipped.
func (svc *Service) RecomputeForum(ctx context.Context, forumID int64) (int, error) {
	f, err := svc.forumRepo.GetForumByID(ctx, forumID)
	if err != nil {
		return 0, errors.Wrap(err, "getting forum")
	}
	if f.GradeScale <= 0 {
		return 0, nil
	}

	authors, err := svc.discRepo.QueryPostAuthorIDs(ctx, f.ID)
	if err != nil {
		return 0, errors.Wrap(err, "querying post authors")
	}
	raters, err := svc.ratingSvc.RaterIDs(ctx, f.ID)
	if err != nil {
		return 0, errors.Wrap(err, "querying raters")
	}

	seen := make(map[int64]bool, len(authors)+len(raters))
	var graded int
	for _, id := range append(authors, raters...) {
		if seen[id] {
			continue
		}
		seen[id] = true

		if err = svc.recomputeUser(ctx, f, id); err != nil {
			return graded, errors.Wrapf(err, "regrading user %d", id)
		}
		graded++
	}
	return graded, nil
}

// RecomputeUser regrades one user in one forum, called after each rating
// change so the gradebook tracks reputation without waiting for the cron.
func (svc *Service) RecomputeUser(ctx context.Context, forumID, userID int64) error {
	f, err := svc.forumRepo.GetForumByID(ctx, forumID)
	if err != nil {
		return errors.Wrap(err, "getting forum")
	}
	if f.GradeScale <= 0 {
		return nil
	}
	return svc.recomputeUser(ctx, f, userID)
}

func (svc *Service) recomputeUser(ctx context.Context, f forum.Forum, userID int64) error {
	rep, err := svc.ratingSvc.UserReputation(ctx, f, userID)
	if err != nil {
		return errors.Wrap(err, "computing reputation")
	}

	g := Grade{
		UserID:    userID,
		ForumID:   f.ID,
		Value:     scale(rep, f.GradeScale),
		UpdatedAt: NowFunc().UTC(),
	}
	return errors.Wrap(svc.repo.UpsertGrade(ctx, &g), "upserting grade")
}

// Get returns a user's current grade in a forum.
func (svc *Service) Get(ctx context.Context, userID, forumID int64) (Grade, error) {
	return svc.repo.GetGrade(ctx, userID, forumID)
}

// ListByForum returns the current grades of every graded user in a forum.
func (svc *Service) ListByForum(ctx context.Context, forumID int64) ([]Grade, error) {
	return svc.repo.QueryGradesByForum(ctx, forumID)
}

// scale maps a reputation onto [0, max]. Reputation is open-ended, so the
// grade saturates at the scale ceiling; negative reputation grades zero.
func scale(rep, max int) float64 {
	if rep <= 0 {
		return 0
	}
	if rep >= max {
		return float64(max)
	}
	return float64(rep)
}
