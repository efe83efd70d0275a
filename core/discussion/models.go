package discussion

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/learnweb/moodleoverflow/core"
)

// MailState tracks a post through the notification pipeline.
type MailState int8

const (
	MailPending    MailState = iota // not mailed yet
	MailSent                        // mailed successfully
	MailError                       // mailing failed, needs follow-up
	MailReviewSent                  // held back for review before first send
)

// Message formats, mirroring the host platform's editor formats.
const (
	FormatMoodle   int8 = 0
	FormatHTML     int8 = 1
	FormatPlain    int8 = 2
	FormatMarkdown int8 = 4
)

type Post struct {
	ID            int64     `json:"id"`
	DiscussionID  int64     `json:"discussion_id"`
	ParentID      int64     `json:"parent_id"` // 0 = discussion root
	UserID        int64     `json:"user_id"`
	Message       string    `json:"message"`
	MessageFormat int8      `json:"message_format"`
	HasAttachment bool      `json:"has_attachment"`
	Mailed        MailState `json:"mailed"`
	Reviewed      bool      `json:"reviewed"`
	TimeReviewed  null.Time `json:"time_reviewed,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// IsQuestion reports whether the post is the root of its discussion.
func (p Post) IsQuestion() bool { return p.ParentID == 0 }

// EffectiveCreatedAt is the timestamp the mail pipeline keys on: a post
// approved after creation only becomes mailable at its review time.
func (p Post) EffectiveCreatedAt() time.Time {
	if p.Reviewed && p.TimeReviewed.Valid && p.TimeReviewed.Time.After(p.CreatedAt) {
		return p.TimeReviewed.Time
	}
	return p.CreatedAt
}

type Discussion struct {
	ID           int64     `json:"id"`
	CourseID     int64     `json:"course_id"`
	ForumID      int64     `json:"forum_id"`
	Name         string    `json:"name"`
	FirstPostID  int64     `json:"first_post_id"`
	UserID       int64     `json:"user_id"` // discussion starter
	UserModified int64     `json:"usermodified"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// NewDiscussion contains information needed to open a discussion with its
// root post.
type NewDiscussion struct {
	ForumID       int64  `json:"forum_id" validate:"required"`
	Subject       string `json:"subject" validate:"required"`
	Message       string `json:"message" validate:"required"`
	MessageFormat int8   `json:"message_format" validate:"min=0,max=4"`
	DraftAreaID   int64  `json:"draft_area_id"`
}

func (nd *NewDiscussion) Validate(validate *validator.Validate, _ ut.Translator) error {
	nd.Subject = core.CleanString(nd.Subject)
	nd.Message = core.CleanString(nd.Message)
	return validate.Struct(nd)
}

// NewReply contains information needed to answer an existing post.
type NewReply struct {
	DiscussionID  int64  `json:"discussion_id" validate:"required"`
	ParentID      int64  `json:"parent_id" validate:"required"`
	Message       string `json:"message" validate:"required"`
	MessageFormat int8   `json:"message_format" validate:"min=0,max=4"`
	DraftAreaID   int64  `json:"draft_area_id"`
}

func (nr *NewReply) Validate(validate *validator.Validate, _ ut.Translator) error {
	nr.Message = core.CleanString(nr.Message)
	return validate.Struct(nr)
}

// UpdatePost defines what a post author may change after the fact.
type UpdatePost struct {
	Message       string `json:"message" validate:"required"`
	MessageFormat int8   `json:"message_format" validate:"min=0,max=4"`
	Subject       string `json:"subject"` // only honored on the root post
}

func (up *UpdatePost) Validate(validate *validator.Validate, _ ut.Translator) error {
	up.Message = core.CleanString(up.Message)
	up.Subject = core.CleanString(up.Subject)
	return validate.Struct(up)
}
