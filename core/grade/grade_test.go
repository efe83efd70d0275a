package grade_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/grade"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/user"
	dummydb "github.com/learnweb/moodleoverflow/storage/database/dummy"
	testutil "github.com/learnweb/moodleoverflow/tests"
)

func setup(t *testing.T) (*grade.Service, *rating.Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening dummy db: %v", err)
	}
	ratingSvc := rating.NewService(
		dummydb.NewRatingRepository(db),
		dummydb.NewDiscussionRepository(db),
	)
	svc := grade.NewService(
		dummydb.NewGradeRepository(db),
		dummydb.NewForumRepository(db),
		dummydb.NewDiscussionRepository(db),
		ratingSvc,
	)
	return svc, ratingSvc, db
}

func TestService_RecomputeForum(t *testing.T) {
	svc, ratingSvc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.cd", user.StudentRoles, user.DigestNone)
	// carol never posts, she only rates
	carol := testutil.CreateUser(t, usrRepo, "Carol", "carol", "carol@test.cd", user.StudentRoles, user.DigestNone)

	f := testutil.CreateForum(t, forumRepo, forum.Forum{Name: "Graded", GradeScale: 10})
	d, root := testutil.CreateDiscussion(t, discRepo, f, alice, "Q", "...", false)
	answer := testutil.CreateReply(t, discRepo, d, root, bob, "A", false)

	if _, err := ratingSvc.CastVote(ctx, carol, answer.ID, rating.KindUpvote, false); err != nil {
		t.Fatalf("CastVote() failed: %v", err)
	}

	graded, err := svc.RecomputeForum(ctx, f.ID)
	if err != nil {
		t.Fatalf("RecomputeForum() failed: %v", err)
	}
	if graded != 3 {
		t.Errorf("graded %d users, want 3 (authors plus raters)", graded)
	}

	// bob holds one upvote (+5), alice nothing, carol one cast vote (+1)
	g, err := svc.Get(ctx, bob.ID, f.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if g.Value != 5 {
		t.Errorf("bob's grade = %v, want 5", g.Value)
	}
	g, err = svc.Get(ctx, alice.ID, f.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if g.Value != 0 {
		t.Errorf("alice's grade = %v, want 0", g.Value)
	}
	g, err = svc.Get(ctx, carol.ID, f.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if g.Value != 1 {
		t.Errorf("carol's grade = %v, want 1", g.Value)
	}

	grades, err := svc.ListByForum(ctx, f.ID)
	if err != nil {
		t.Fatalf("ListByForum() failed: %v", err)
	}
	if len(grades) != 3 {
		t.Errorf("ListByForum() returned %d grades, want 3", len(grades))
	}
}

func TestService_RecomputeForum_SaturatesAtScale(t *testing.T) {
	svc, ratingSvc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.cd", user.StudentRoles, user.DigestNone)
	teacher := testutil.CreateUser(t, usrRepo, "Teach", "teach", "teach@test.cd", user.TeacherRoles, user.DigestNone)

	f := testutil.CreateForum(t, forumRepo, forum.Forum{Name: "Capped", GradeScale: 10})
	d, root := testutil.CreateDiscussion(t, discRepo, f, alice, "Q", "...", false)
	answer := testutil.CreateReply(t, discRepo, d, root, bob, "A", false)

	// solved (+30) blows past the scale of 10
	if _, err := ratingSvc.CastVote(ctx, teacher, answer.ID, rating.KindSolved, false); err != nil {
		t.Fatalf("CastVote() failed: %v", err)
	}
	if _, err := svc.RecomputeForum(ctx, f.ID); err != nil {
		t.Fatalf("RecomputeForum() failed: %v", err)
	}

	g, err := svc.Get(ctx, bob.ID, f.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if g.Value != 10 {
		t.Errorf("bob's grade = %v, want the scale ceiling 10", g.Value)
	}
}

func TestService_RecomputeForum_UngradedForum(t *testing.T) {
	svc, _, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	f := testutil.CreateForum(t, forumRepo, forum.Forum{Name: "Ungraded"})
	testutil.CreateDiscussion(t, discRepo, f, alice, "Q", "...", false)

	graded, err := svc.RecomputeForum(ctx, f.ID)
	if err != nil {
		t.Fatalf("RecomputeForum() failed: %v", err)
	}
	if graded != 0 {
		t.Errorf("graded %d users in a zero-scale forum, want 0", graded)
	}

	_, err = svc.Get(ctx, alice.ID, f.ID)
	if errors.Cause(err) != grade.ErrNotFound {
		t.Errorf("Get() in ungraded forum = %v, want ErrNotFound", err)
	}
}
