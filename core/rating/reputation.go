package rating

import (
	"context"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/forum"
)

// Reputation is derived on every read from the rating rows, never cached:
// read volume is bounded by page views and recomputing beats chasing
// invalidation bugs.

// PostTally aggregates the current voting state of one post.
func (svc *Service) PostTally(ctx context.Context, postID int64) (Tally, error) {
	ratings, err := svc.repo.QueryRatingsByPost(ctx, postID)
	if err != nil {
		return Tally{}, errors.Wrap(err, "querying post ratings")
	}

	t := Tally{PostID: postID}
	for _, r := range ratings {
		switch r.Kind {
		case KindUpvote:
			t.Upvotes++
		case KindDownvote:
			t.Downvotes++
		case KindHelpful:
			t.IsHelpful = true
		case KindSolved:
			t.IsSolved = true
		}
	}
	return t, nil
}

// UserReputation computes a user's weighted score in a forum. Forums with
// course-wide reputation aggregate over every forum of the course. The
// result is clamped at zero unless the forum allows going negative.
func (svc *Service) UserReputation(ctx context.Context, f forum.Forum, userID int64) (int, error) {
	received, err := svc.repo.QueryReceivedRatings(ctx, f.ID, f.CourseWideRep, userID)
	if err != nil {
		return 0, errors.Wrap(err, "querying received ratings")
	}
	cast, err := svc.repo.CountVotesCast(ctx, f.ID, f.CourseWideRep, userID)
	if err != nil {
		return 0, errors.Wrap(err, "counting votes cast")
	}

	w := f.Weights
	rep := cast * w.VoteCast
	for _, r := range received {
		switch r.Kind {
		case KindUpvote:
			rep += w.UpvoteReceived
		case KindDownvote:
			rep += w.DownvoteReceived
		case KindSolved:
			rep += w.MarkedSolved
		case KindHelpful:
			rep += w.MarkedHelpful
		}
	}

	if rep < 0 && !f.AllowNegativeRep {
		rep = 0
	}
	return rep, nil
}
