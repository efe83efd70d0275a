package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/user"
)

// Logger discards everything. Fatal panics so tests notice.
type Logger struct{}

var _ core.Logger = Logger{}

func (Logger) Enable(bool)                        {}
func (Logger) Debug(string, ...interface{})       {}
func (Logger) Info(string, ...interface{})        {}
func (Logger) Warn(string, ...interface{})        {}
func (Logger) Error(string, ...interface{})       {}
func (Logger) Fatal(msg string, _ ...interface{}) { panic(msg) }

// NewConfig returns a config suitable for tests: no external services,
// mail output disabled.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = true
	conf.TestMode = true
	return conf
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email string,
	roles []string,
	digestMode user.DigestMode,
) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:       name,
		Username:   uname,
		Email:      email,
		IsActive:   true,
		Roles:      roles,
		DigestMode: digestMode,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateForum persists f with sane defaults for zero-valued fields.
func CreateForum(t *testing.T, repo forum.Repository, f forum.Forum) forum.Forum {
	t.Helper()
	now := time.Now().UTC()
	if f.Name == "" {
		f.Name = "Test Forum"
	}
	if f.CourseID == 0 {
		f.CourseID = 1
	}
	if f.Weights == (forum.ReputationWeights{}) {
		f.Weights = forum.DefaultWeights()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
		f.UpdatedAt = now
	}
	f, err := repo.CreateForum(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateForum() failed: %v", err)
	}
	return f
}

// CreateDiscussion persists a discussion with its root post. The root is
// reviewed unless unreviewed is set.
func CreateDiscussion(
	t *testing.T,
	repo discussion.Repository,
	f forum.Forum,
	starter user.User,
	subject, message string,
	unreviewed bool,
	createdAt ...time.Time,
) (discussion.Discussion, discussion.Post) {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	d := discussion.Discussion{
		CourseID:     f.CourseID,
		ForumID:      f.ID,
		Name:         subject,
		UserID:       starter.ID,
		UserModified: starter.ID,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	p := discussion.Post{
		UserID:    starter.ID,
		Message:   message,
		Reviewed:  !unreviewed,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	d, p, err := repo.CreateDiscussion(context.Background(), d, p)
	if err != nil {
		t.Fatalf("CreateDiscussion() failed: %v", err)
	}
	return d, p
}

// CreateReply persists a reply to parent. The reply is reviewed unless
// unreviewed is set.
func CreateReply(
	t *testing.T,
	repo discussion.Repository,
	d discussion.Discussion,
	parent discussion.Post,
	author user.User,
	message string,
	unreviewed bool,
	createdAt ...time.Time,
) discussion.Post {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p, err := repo.CreatePost(context.Background(), discussion.Post{
		DiscussionID: d.ID,
		ParentID:     parent.ID,
		UserID:       author.ID,
		Message:      message,
		Reviewed:     !unreviewed,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("CreateReply() failed: %v", err)
	}
	return p
}
