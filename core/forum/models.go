package forum

import "time"

// ReviewLevel controls which new posts need teacher approval before they
// become visible and mailable.
type ReviewLevel int8

const (
	ReviewNone       ReviewLevel = iota // nothing needs approval
	ReviewQuestions                     // only discussion starters (questions)
	ReviewEverything                    // questions and answers
)

// AnonymousMode controls whose identity is scrubbed from notifications and
// search documents.
type AnonymousMode int8

const (
	AnonymousNone       AnonymousMode = iota
	AnonymousQuestioner               // only the discussion starter
	AnonymousEveryone
)

// ReputationWeights are the per-event scores a forum awards.
type ReputationWeights struct {
	VoteCast         int `json:"vote_cast"`
	UpvoteReceived   int `json:"upvote_received"`
	DownvoteReceived int `json:"downvote_received"`
	MarkedSolved     int `json:"marked_solved"`
	MarkedHelpful    int `json:"marked_helpful"`
}

func DefaultWeights() ReputationWeights {
	return ReputationWeights{
		VoteCast:         1,
		UpvoteReceived:   5,
		DownvoteReceived: -5,
		MarkedSolved:     30,
		MarkedHelpful:    15,
	}
}

type Forum struct {
	ID                 int64             `json:"id"`
	CourseID           int64             `json:"course_id"`
	Name               string            `json:"name"`
	Intro              string            `json:"intro"`
	ReviewLevel        ReviewLevel       `json:"review_level"`
	Anonymous          AnonymousMode     `json:"anonymous"`
	AllowNegativeRep   bool              `json:"allow_negative_reputation"`
	CourseWideRep      bool              `json:"course_wide_reputation"`
	ForceSubscribe     bool              `json:"force_subscribe"`
	GradeScale         int               `json:"grade_scale"` // 0 = not graded
	Weights            ReputationWeights `json:"weights"`
	CreatedAt          time.Time         `json:"created_at"` // UTC
	UpdatedAt          time.Time         `json:"updated_at"` // UTC
}

// AnonymizesAuthorOf reports whether the author of a post in this forum is
// hidden, given whether the author started the discussion.
func (f Forum) AnonymizesAuthorOf(isStarter bool) bool {
	switch f.Anonymous {
	case AnonymousEveryone:
		return true
	case AnonymousQuestioner:
		return isStarter
	default:
		return false
	}
}
