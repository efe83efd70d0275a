package tracking_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/tracking"
	"github.com/learnweb/moodleoverflow/core/user"
	dummydb "github.com/learnweb/moodleoverflow/storage/database/dummy"
	testutil "github.com/learnweb/moodleoverflow/tests"
)

func setup(t *testing.T) (*tracking.Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening dummy db: %v", err)
	}
	svc := tracking.NewService(
		dummydb.NewTrackingRepository(db),
		dummydb.NewDiscussionRepository(db),
	)
	return svc, db
}

func TestService_MarkPostRead(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)
	readRepo := dummydb.NewTrackingRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.cd", user.StudentRoles, user.DigestNone)
	f := testutil.CreateForum(t, forumRepo, forum.Forum{})
	d, root := testutil.CreateDiscussion(t, discRepo, f, bob, "Q", "msg", false)
	pending := testutil.CreateReply(t, discRepo, d, root, bob, "unreviewed", true)

	rec, err := svc.MarkPostRead(ctx, alice, root.ID)
	if err != nil {
		t.Fatalf("MarkPostRead() failed: %v", err)
	}
	if rec.DiscussionID != d.ID || rec.ForumID != f.ID {
		t.Errorf("MarkPostRead() record = %+v, want discussion %d forum %d", rec, d.ID, f.ID)
	}

	// repeated reads keep FirstRead and move LastRead
	tracking.NowFunc = func() time.Time { return time.Now().Add(time.Hour) }
	defer func() { tracking.NowFunc = time.Now }()
	rec2, err := svc.MarkPostRead(ctx, alice, root.ID)
	if err != nil {
		t.Fatalf("MarkPostRead() twice failed: %v", err)
	}
	stored, err := readRepo.GetReadRecord(ctx, alice.ID, root.ID)
	if err != nil {
		t.Fatalf("GetReadRecord() failed: %v", err)
	}
	if !stored.FirstRead.Equal(rec.FirstRead) {
		t.Errorf("FirstRead moved on repeat read: %v -> %v", rec.FirstRead, stored.FirstRead)
	}
	if !stored.LastRead.After(rec.LastRead) {
		t.Errorf("LastRead did not move: %v vs %v", stored.LastRead, rec2.LastRead)
	}

	// unreviewed posts are invisible
	if _, err = svc.MarkPostRead(ctx, alice, pending.ID); errors.Cause(err) != tracking.ErrNotReviewed {
		t.Errorf("MarkPostRead() unreviewed error = %v, want ErrNotReviewed", err)
	}
}

func TestService_UnreadTracking(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.cd", user.StudentRoles, user.DigestNone)
	f := testutil.CreateForum(t, forumRepo, forum.Forum{})
	d1, root1 := testutil.CreateDiscussion(t, discRepo, f, bob, "Q1", "msg", false)
	testutil.CreateReply(t, discRepo, d1, root1, bob, "answer", false)
	testutil.CreateReply(t, discRepo, d1, root1, bob, "unreviewed", true)
	d2, _ := testutil.CreateDiscussion(t, discRepo, f, bob, "Q2", "msg", false)

	// only reviewed posts count
	n, err := svc.UnreadCount(ctx, alice, d1.ID)
	if err != nil || n != 2 {
		t.Fatalf("UnreadCount() = %d, %v; want 2, nil", n, err)
	}

	ids, err := svc.UnreadDiscussions(ctx, alice, f.ID)
	if err != nil || len(ids) != 2 {
		t.Fatalf("UnreadDiscussions() = %v, %v; want both discussions", ids, err)
	}

	if err = svc.MarkDiscussionRead(ctx, alice, d1.ID); err != nil {
		t.Fatalf("MarkDiscussionRead() failed: %v", err)
	}
	n, err = svc.UnreadCount(ctx, alice, d1.ID)
	if err != nil || n != 0 {
		t.Errorf("UnreadCount() after MarkDiscussionRead = %d, %v; want 0, nil", n, err)
	}
	ids, err = svc.UnreadDiscussions(ctx, alice, f.ID)
	if err != nil || len(ids) != 1 || ids[0] != d2.ID {
		t.Errorf("UnreadDiscussions() = %v, %v; want [%d]", ids, err, d2.ID)
	}
}
