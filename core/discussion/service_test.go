package discussion_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/user"
	emailsvc "github.com/learnweb/moodleoverflow/services/email"
	dummydb "github.com/learnweb/moodleoverflow/storage/database/dummy"
	testutil "github.com/learnweb/moodleoverflow/tests"
)

func setup(t *testing.T) (*discussion.Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening dummy db: %v", err)
	}
	conf := testutil.NewConfig()
	core.ParseEmailTemplates(conf, testutil.Logger{})
	svc := discussion.NewService(
		dummydb.NewDiscussionRepository(db),
		dummydb.NewForumRepository(db),
		dummydb.NewUserRepository(db),
		nil,
		emailsvc.NewConsoleServiceMock(conf),
		conf,
		testutil.Logger{},
	)
	return svc, db
}

func TestService_AddDiscussion(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)

	student := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	teacher := testutil.CreateUser(t, usrRepo, "Teach", "teach", "teach@test.cd", user.TeacherRoles, user.DigestNone)
	open := testutil.CreateForum(t, forumRepo, forum.Forum{Name: "Open"})
	moderated := testutil.CreateForum(t, forumRepo, forum.Forum{Name: "Moderated", ReviewLevel: forum.ReviewQuestions})

	d, root, err := svc.AddDiscussion(ctx, student, discussion.NewDiscussion{
		ForumID: open.ID, Subject: "How do maps work?", Message: "..."})
	if err != nil {
		t.Fatalf("AddDiscussion() failed: %v", err)
	}
	if d.FirstPostID != root.ID || root.DiscussionID != d.ID {
		t.Errorf("discussion/root not linked: %+v / %+v", d, root)
	}
	if !root.Reviewed || !root.TimeReviewed.Valid {
		t.Errorf("root in unmoderated forum must be reviewed immediately: %+v", root)
	}
	if root.Mailed != discussion.MailPending {
		t.Errorf("root.Mailed = %v, want MailPending", root.Mailed)
	}

	// questions in a moderated forum wait for review
	_, root, err = svc.AddDiscussion(ctx, student, discussion.NewDiscussion{
		ForumID: moderated.ID, Subject: "Q", Message: "..."})
	if err != nil {
		t.Fatalf("AddDiscussion() failed: %v", err)
	}
	if root.Reviewed {
		t.Error("student question in moderated forum must wait for review")
	}

	// reviewers' own posts never wait
	_, root, err = svc.AddDiscussion(ctx, teacher, discussion.NewDiscussion{
		ForumID: moderated.ID, Subject: "Q", Message: "..."})
	if err != nil {
		t.Fatalf("AddDiscussion() failed: %v", err)
	}
	if !root.Reviewed {
		t.Error("teacher question must not wait for review")
	}

	// unknown forum
	if _, _, err = svc.AddDiscussion(ctx, student, discussion.NewDiscussion{
		ForumID: 999, Subject: "Q", Message: "..."}); errors.Cause(err) != forum.ErrNotFound {
		t.Errorf("AddDiscussion() unknown forum error = %v, want forum.ErrNotFound", err)
	}
}

func TestService_AddReply(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.cd", user.StudentRoles, user.DigestNone)
	f := testutil.CreateForum(t, forumRepo, forum.Forum{})
	started := time.Now().Add(-time.Hour).UTC()
	d, root := testutil.CreateDiscussion(t, discRepo, f, alice, "Q", "msg", false, started)

	p, err := svc.AddReply(ctx, bob, discussion.NewReply{
		DiscussionID: d.ID, ParentID: root.ID, Message: "answer"})
	if err != nil {
		t.Fatalf("AddReply() failed: %v", err)
	}
	if p.ParentID != root.ID || !p.Reviewed {
		t.Errorf("AddReply() = %+v, want reviewed child of %d", p, root.ID)
	}

	// a reviewed reply bumps the discussion metadata
	got, err := discRepo.GetDiscussionByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDiscussionByID() failed: %v", err)
	}
	if !got.UpdatedAt.After(started) || got.UserModified != bob.ID {
		t.Errorf("discussion not touched by reply: %+v", got)
	}

	// parent must belong to the given discussion
	if _, err = svc.AddReply(ctx, bob, discussion.NewReply{
		DiscussionID: d.ID + 1, ParentID: root.ID, Message: "answer"}); errors.Cause(err) != discussion.ErrNotFound {
		t.Errorf("AddReply() mismatched discussion error = %v, want ErrNotFound", err)
	}
}

func TestService_AddReply_ModeratedForumDefersTouch(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	f := testutil.CreateForum(t, forumRepo, forum.Forum{ReviewLevel: forum.ReviewEverything})
	started := time.Now().Add(-time.Hour).UTC()
	d, root := testutil.CreateDiscussion(t, discRepo, f, alice, "Q", "msg", false, started)

	p, err := svc.AddReply(ctx, alice, discussion.NewReply{
		DiscussionID: d.ID, ParentID: root.ID, Message: "answer"})
	if err != nil {
		t.Fatalf("AddReply() failed: %v", err)
	}
	if p.Reviewed {
		t.Error("reply in fully moderated forum must wait for review")
	}

	got, err := discRepo.GetDiscussionByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDiscussionByID() failed: %v", err)
	}
	if !got.UpdatedAt.Equal(started) {
		t.Errorf("unreviewed reply must not touch the discussion: %v", got.UpdatedAt)
	}
}

func TestService_EditPost(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.cd", user.StudentRoles, user.DigestNone)
	teacher := testutil.CreateUser(t, usrRepo, "Teach", "teach", "teach@test.cd", user.TeacherRoles, user.DigestNone)
	f := testutil.CreateForum(t, forumRepo, forum.Forum{})
	d, root := testutil.CreateDiscussion(t, discRepo, f, alice, "Q", "msg", false)

	// author edit inside the window, renaming via the root post
	p, err := svc.EditPost(ctx, alice, root.ID, discussion.UpdatePost{Message: "better", Subject: "Better Q"})
	if err != nil {
		t.Fatalf("EditPost() failed: %v", err)
	}
	if p.Message != "better" {
		t.Errorf("EditPost() message = %q", p.Message)
	}
	got, _ := discRepo.GetDiscussionByID(ctx, d.ID)
	if got.Name != "Better Q" {
		t.Errorf("editing the root must rename the discussion, got %q", got.Name)
	}

	// only the author (or edit-any) may edit
	if _, err = svc.EditPost(ctx, bob, root.ID, discussion.UpdatePost{Message: "hijack"}); errors.Cause(err) != discussion.ErrNotAuthorized {
		t.Errorf("EditPost() by stranger error = %v, want ErrNotAuthorized", err)
	}

	// the editing window closes for authors but not for edit-any holders
	_, stale := testutil.CreateDiscussion(t, discRepo, f, alice, "Old", "msg", false, time.Now().Add(-24*time.Hour))
	if _, err = svc.EditPost(ctx, alice, stale.ID, discussion.UpdatePost{Message: "late"}); errors.Cause(err) != discussion.ErrEditWindowExpired {
		t.Errorf("EditPost() after window error = %v, want ErrEditWindowExpired", err)
	}
	if _, err = svc.EditPost(ctx, teacher, stale.ID, discussion.UpdatePost{Message: "fixed"}); err != nil {
		t.Errorf("EditPost() with edit-any failed: %v", err)
	}
}

func TestService_DeletePost(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.cd", user.StudentRoles, user.DigestNone)
	teacher := testutil.CreateUser(t, usrRepo, "Teach", "teach", "teach@test.cd", user.TeacherRoles, user.DigestNone)
	f := testutil.CreateForum(t, forumRepo, forum.Forum{})
	d, root := testutil.CreateDiscussion(t, discRepo, f, alice, "Q", "msg", false)
	answer := testutil.CreateReply(t, discRepo, d, root, bob, "answer", false)
	nested := testutil.CreateReply(t, discRepo, d, answer, alice, "comment", false)

	// strangers may not delete
	if err := svc.DeletePost(ctx, bob, nested.ID, false); errors.Cause(err) != discussion.ErrNotAuthorized {
		t.Errorf("DeletePost() by stranger error = %v, want ErrNotAuthorized", err)
	}

	// a post with replies needs cascade, and cascade needs delete-any
	if err := svc.DeletePost(ctx, bob, answer.ID, false); errors.Cause(err) != discussion.ErrHasReplies {
		t.Errorf("DeletePost() with replies error = %v, want ErrHasReplies", err)
	}
	if err := svc.DeletePost(ctx, bob, answer.ID, true); errors.Cause(err) != discussion.ErrNotAuthorized {
		t.Errorf("DeletePost() cascade by author error = %v, want ErrNotAuthorized", err)
	}

	// cascade wipes the subtree
	if err := svc.DeletePost(ctx, teacher, answer.ID, true); err != nil {
		t.Fatalf("DeletePost() cascade failed: %v", err)
	}
	if _, err := discRepo.GetPostByID(ctx, nested.ID); errors.Cause(err) != discussion.ErrNotFound {
		t.Errorf("nested reply survived cascade: %v", err)
	}

	// deleting the root destroys the discussion
	if err := svc.DeletePost(ctx, alice, root.ID, false); err != nil {
		t.Fatalf("DeletePost() root failed: %v", err)
	}
	if _, err := discRepo.GetDiscussionByID(ctx, d.ID); errors.Cause(err) != discussion.ErrNotFound {
		t.Errorf("discussion survived root delete: %v", err)
	}
}
