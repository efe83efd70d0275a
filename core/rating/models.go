package rating

import (
	"time"

	"github.com/pkg/errors"
)

// Kind is a rating flavor. The numeric values are the host platform's wire
// codes and are persisted as-is.
type Kind int8

const (
	KindDownvote Kind = 1
	KindUpvote   Kind = 2
	KindSolved   Kind = 3
	KindHelpful  Kind = 4
)

// Class groups kinds that exclude each other on one (user, post) pair:
// a user holds at most one vote and at most one mark per post.
type Class int8

const (
	ClassVote Class = iota + 1 // upvote / downvote
	ClassMark                  // solved / helpful
)

func (k Kind) Class() Class {
	switch k {
	case KindUpvote, KindDownvote:
		return ClassVote
	default:
		return ClassMark
	}
}

func (k Kind) Valid() bool {
	return k >= KindDownvote && k <= KindHelpful
}

func (k Kind) String() string {
	switch k {
	case KindDownvote:
		return "downvote"
	case KindUpvote:
		return "upvote"
	case KindSolved:
		return "solved"
	case KindHelpful:
		return "helpful"
	}
	return "unknown"
}

var errUnknownKind = errors.New("unknown rating kind")

// ParseKind decodes a wire code into a kind and whether it is the removal
// variant (the legacy codes multiply by ten for removals: 10, 20, 30, 40).
func ParseKind(code int) (kind Kind, remove bool, err error) {
	k := code
	if k >= 10 && k%10 == 0 {
		remove = true
		k /= 10
	}
	kind = Kind(k)
	if !kind.Valid() {
		return 0, false, errors.Wrapf(errUnknownKind, "code %d", code)
	}
	return kind, remove, nil
}

type Rating struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	PostID       int64     `json:"post_id"`
	DiscussionID int64     `json:"discussion_id"`
	ForumID      int64     `json:"forum_id"`
	Kind         Kind      `json:"kind"`
	FirstRated   time.Time `json:"first_rated"`  // UTC
	LastChanged  time.Time `json:"last_changed"` // UTC
}

// Tally is the derived per-post voting state.
type Tally struct {
	PostID    int64 `json:"post_id"`
	Upvotes   int   `json:"upvotes"`
	Downvotes int   `json:"downvotes"`
	IsHelpful bool  `json:"is_helpful"`
	IsSolved  bool  `json:"is_solved"`
}

func (t Tally) Score() int { return t.Upvotes - t.Downvotes }
