package rating_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/user"
	dummydb "github.com/learnweb/moodleoverflow/storage/database/dummy"
	testutil "github.com/learnweb/moodleoverflow/tests"
)

func setup(t *testing.T) (*rating.Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening dummy db: %v", err)
	}
	svc := rating.NewService(
		dummydb.NewRatingRepository(db),
		dummydb.NewDiscussionRepository(db),
	)
	return svc, db
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		code       int
		wantKind   rating.Kind
		wantRemove bool
		wantErr    bool
	}{
		{code: 1, wantKind: rating.KindDownvote},
		{code: 2, wantKind: rating.KindUpvote},
		{code: 3, wantKind: rating.KindSolved},
		{code: 4, wantKind: rating.KindHelpful},
		{code: 10, wantKind: rating.KindDownvote, wantRemove: true},
		{code: 20, wantKind: rating.KindUpvote, wantRemove: true},
		{code: 30, wantKind: rating.KindSolved, wantRemove: true},
		{code: 40, wantKind: rating.KindHelpful, wantRemove: true},
		{code: 0, wantErr: true},
		{code: 5, wantErr: true},
		{code: 50, wantErr: true},
		{code: 25, wantErr: true},
	}
	for _, tt := range tests {
		kind, remove, err := rating.ParseKind(tt.code)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%d) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			continue
		}
		if kind != tt.wantKind || remove != tt.wantRemove {
			t.Errorf("ParseKind(%d) = %v, %v; want %v, %v", tt.code, kind, remove, tt.wantKind, tt.wantRemove)
		}
	}
}

func TestService_CastVote(t *testing.T) {
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
	pending := testutil.CreateReply(t, discRepo, d, root, bob, "pending", true)

	// own posts cannot be up/down voted
	if _, err := svc.CastVote(ctx, bob, answer.ID, rating.KindUpvote, false); errors.Cause(err) != rating.ErrSelfVote {
		t.Errorf("CastVote() self vote error = %v, want ErrSelfVote", err)
	}
	// unreviewed posts cannot be rated
	if _, err := svc.CastVote(ctx, alice, pending.ID, rating.KindUpvote, false); errors.Cause(err) != rating.ErrUnderReview {
		t.Errorf("CastVote() unreviewed error = %v, want ErrUnderReview", err)
	}
	// helpful is the starter's call
	if _, err := svc.CastVote(ctx, bob, answer.ID, rating.KindHelpful, false); errors.Cause(err) != rating.ErrNotAuthorized {
		t.Errorf("CastVote() helpful by non-starter error = %v, want ErrNotAuthorized", err)
	}
	// solved needs the capability
	if _, err := svc.CastVote(ctx, alice, answer.ID, rating.KindSolved, false); errors.Cause(err) != rating.ErrNotAuthorized {
		t.Errorf("CastVote() solved by student error = %v, want ErrNotAuthorized", err)
	}

	r, err := svc.CastVote(ctx, alice, answer.ID, rating.KindUpvote, false)
	if err != nil {
		t.Fatalf("CastVote() failed: %v", err)
	}
	if r.Kind != rating.KindUpvote || r.ForumID != f.ID || r.DiscussionID != d.ID {
		t.Errorf("CastVote() = %+v", r)
	}

	// flipping the vote replaces it, never doubles
	if _, err = svc.CastVote(ctx, alice, answer.ID, rating.KindDownvote, false); err != nil {
		t.Fatalf("CastVote() flip failed: %v", err)
	}
	tally, err := svc.PostTally(ctx, answer.ID)
	if err != nil {
		t.Fatalf("PostTally() failed: %v", err)
	}
	if tally.Upvotes != 0 || tally.Downvotes != 1 {
		t.Errorf("PostTally() after flip = %+v, want 0 up / 1 down", tally)
	}

	// marks live in their own class next to the vote
	if _, err = svc.CastVote(ctx, alice, answer.ID, rating.KindHelpful, false); err != nil {
		t.Fatalf("CastVote() helpful failed: %v", err)
	}
	if _, err = svc.CastVote(ctx, teacher, answer.ID, rating.KindSolved, false); err != nil {
		t.Fatalf("CastVote() solved failed: %v", err)
	}
	mine, err := svc.GetRating(ctx, alice, answer.ID)
	if err != nil {
		t.Fatalf("GetRating() failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("GetRating() = %v, want one vote and one mark", mine)
	}

	// removal variant withdraws the vote
	if r, err = svc.CastVote(ctx, alice, answer.ID, rating.KindDownvote, true); err != nil || r != nil {
		t.Fatalf("CastVote() removal = %v, %v; want nil, nil", r, err)
	}
	tally, err = svc.PostTally(ctx, answer.ID)
	if err != nil {
		t.Fatalf("PostTally() failed: %v", err)
	}
	if tally.Downvotes != 0 || !tally.IsHelpful || !tally.IsSolved {
		t.Errorf("PostTally() after removal = %+v", tally)
	}
}

func TestService_UserReputation(t *testing.T) {
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

	// bob's answer: upvoted by alice, marked solved by the teacher;
	// bob himself upvotes alice's question
	if _, err := svc.CastVote(ctx, alice, answer.ID, rating.KindUpvote, false); err != nil {
		t.Fatalf("CastVote() failed: %v", err)
	}
	if _, err := svc.CastVote(ctx, teacher, answer.ID, rating.KindSolved, false); err != nil {
		t.Fatalf("CastVote() failed: %v", err)
	}
	if _, err := svc.CastVote(ctx, bob, root.ID, rating.KindUpvote, false); err != nil {
		t.Fatalf("CastVote() failed: %v", err)
	}

	// default weights: upvote received 5, solved 30, vote cast 1
	rep, err := svc.UserReputation(ctx, f, bob.ID)
	if err != nil {
		t.Fatalf("UserReputation() failed: %v", err)
	}
	if want := 5 + 30 + 1; rep != want {
		t.Errorf("UserReputation() = %d, want %d", rep, want)
	}

	// downvotes can not push below zero unless the forum allows it
	carol := testutil.CreateUser(t, usrRepo, "Carol", "carol", "carol@test.cd", user.StudentRoles, user.DigestNone)
	reply := testutil.CreateReply(t, discRepo, d, root, carol, "bad", false)
	if _, err = svc.CastVote(ctx, alice, reply.ID, rating.KindDownvote, false); err != nil {
		t.Fatalf("CastVote() failed: %v", err)
	}
	rep, err = svc.UserReputation(ctx, f, carol.ID)
	if err != nil {
		t.Fatalf("UserReputation() failed: %v", err)
	}
	if rep != 0 {
		t.Errorf("UserReputation() clamped = %d, want 0", rep)
	}

	f.AllowNegativeRep = true
	rep, err = svc.UserReputation(ctx, f, carol.ID)
	if err != nil {
		t.Fatalf("UserReputation() failed: %v", err)
	}
	if rep != -5 {
		t.Errorf("UserReputation() negative = %d, want -5", rep)
	}
}
