package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/search"
	"github.com/learnweb/moodleoverflow/core/user"
	dummydb "github.com/learnweb/moodleoverflow/storage/database/dummy"
	testutil "github.com/learnweb/moodleoverflow/tests"
)

func setup(t *testing.T) (*search.Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening dummy db: %v", err)
	}
	svc := search.NewService(
		dummydb.NewDiscussionRepository(db),
		dummydb.NewForumRepository(db),
	)
	return svc, db
}

func TestService_RecordsetSince(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.cd", user.StudentRoles, user.DigestNone)

	now := time.Now().UTC()
	f := testutil.CreateForum(t, forumRepo, forum.Forum{Name: "Open"})
	anon := testutil.CreateForum(t, forumRepo, forum.Forum{Name: "Anon", Anonymous: forum.AnonymousEveryone})

	d, root := testutil.CreateDiscussion(t, discRepo, f, alice, "Visible", "indexed body", false, now.Add(-time.Hour))
	testutil.CreateReply(t, discRepo, d, root, bob, "pending reply", true, now.Add(-30*time.Minute))
	_, anonRoot := testutil.CreateDiscussion(t, discRepo, anon, alice, "Hidden author", "...", false, now.Add(-20*time.Minute))
	testutil.CreateDiscussion(t, discRepo, f, alice, "Too old", "...", false, now.Add(-48*time.Hour))

	docs, err := svc.RecordsetSince(ctx, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("RecordsetSince() failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2 (unreviewed and stale posts excluded): %+v", len(docs), docs)
	}
	if docs[0].PostID != root.ID || docs[1].PostID != anonRoot.ID {
		t.Errorf("documents out of order: %+v", docs)
	}

	doc := docs[0]
	if doc.OwnerID != alice.ID || doc.Title != d.Name || doc.Content != "indexed body" || doc.CourseID != f.CourseID {
		t.Errorf("document fields wrong: %+v", doc)
	}
	if docs[1].OwnerID != 0 {
		t.Errorf("anonymous forum must zero the owner, got %d", docs[1].OwnerID)
	}
}

func TestService_CheckAccess(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.cd", user.StudentRoles, user.DigestNone)
	teacher := testutil.CreateUser(t, usrRepo, "Teach", "teach", "teach@test.cd", user.TeacherRoles, user.DigestNone)

	f := testutil.CreateForum(t, forumRepo, forum.Forum{Name: "Moderated", ReviewLevel: forum.ReviewEverything})
	d, root := testutil.CreateDiscussion(t, discRepo, f, alice, "Q", "...", false)
	pending := testutil.CreateReply(t, discRepo, d, root, alice, "pending", true)

	tests := []struct {
		name   string
		actor  user.User
		postID int64
		want   bool
	}{
		{"reviewed post is public", bob, root.ID, true},
		{"author sees own pending post", alice, pending.ID, true},
		{"others cannot see pending post", bob, pending.ID, false},
		{"reviewers see pending posts", teacher, pending.ID, true},
		{"missing post denies quietly", bob, pending.ID + 1000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CheckAccess(ctx, tt.actor, tt.postID)
			if err != nil {
				t.Fatalf("CheckAccess() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}
