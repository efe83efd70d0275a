package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/user"
	dummydb "github.com/learnweb/moodleoverflow/storage/database/dummy"
	testutil "github.com/learnweb/moodleoverflow/tests"
)

func Test_ratingApi_vote(t *testing.T) {
	ta := newTestApp(t)
	alice := ta.createUser(t, "Alice", "alice", "alice@test.cd", user.StudentRoles)
	bob := ta.createUser(t, "Bob", "bob", "bob@test.cd", user.StudentRoles)
	f := ta.createForum(t, forum.Forum{Name: "Votes"})
	d, root := ta.createDiscussion(t, f, alice, "Q", "...")
	answer := testutil.CreateReply(t, dummydb.NewDiscussionRepository(ta.db), d, root, bob, "A", false)

	votePath := fmt.Sprintf("/v1/posts/%d/vote", answer.ID)

	rec := ta.do(http.MethodPost, votePath, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// upvote
	rec = ta.do(http.MethodPost, votePath, ta.getToken(t, alice), marshallObj(t, map[string]int{"code": 2}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	var r rating.Rating
	decodeBody(t, rec, &r)
	assert.Equal(t, rating.KindUpvote, r.Kind)

	// own post
	rec = ta.do(http.MethodPost, votePath, ta.getToken(t, bob), marshallObj(t, map[string]int{"code": 2}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown code
	rec = ta.do(http.MethodPost, votePath, ta.getToken(t, alice), marshallObj(t, map[string]int{"code": 7}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// removal
	rec = ta.do(http.MethodPost, votePath, ta.getToken(t, alice), marshallObj(t, map[string]int{"code": 20}))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	tally := fmt.Sprintf("/v1/posts/%d/tally", answer.ID)
	rec = ta.do(http.MethodGet, tally, ta.getToken(t, alice))
	assert.Equal(t, http.StatusOK, rec.Code)
	var counts struct {
		Upvotes   int `json:"upvotes"`
		Downvotes int `json:"downvotes"`
	}
	decodeBody(t, rec, &counts)
	assert.Zero(t, counts.Upvotes)
	assert.Zero(t, counts.Downvotes)
}

func Test_ratingApi_reputation(t *testing.T) {
	ta := newTestApp(t)
	alice := ta.createUser(t, "Alice", "alice", "alice@test.cd", user.StudentRoles)
	bob := ta.createUser(t, "Bob", "bob", "bob@test.cd", user.StudentRoles)
	manager := ta.createUser(t, "Manny", "manny", "manny@test.cd", user.ManagerRoles)
	f := ta.createForum(t, forum.Forum{Name: "Rep"})
	d, root := ta.createDiscussion(t, f, alice, "Q", "...")
	answer := testutil.CreateReply(t, dummydb.NewDiscussionRepository(ta.db), d, root, bob, "A", false)

	rec := ta.do(http.MethodPost, fmt.Sprintf("/v1/posts/%d/vote", answer.ID), ta.getToken(t, alice),
		marshallObj(t, map[string]int{"code": 2}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	repPath := fmt.Sprintf("/v1/forums/%d/reputation", f.ID)
	var rep struct {
		UserID     int64 `json:"user_id"`
		Reputation int   `json:"reputation"`
	}

	// own reputation
	rec = ta.do(http.MethodGet, repPath, ta.getToken(t, bob))
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &rep)
	assert.Equal(t, bob.ID, rep.UserID)
	assert.Equal(t, 5, rep.Reputation)

	// students cannot read someone else's
	rec = ta.do(http.MethodGet, fmt.Sprintf("%s?user=%d", repPath, bob.ID), ta.getToken(t, alice))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// managers can
	rec = ta.do(http.MethodGet, fmt.Sprintf("%s?user=%d", repPath, bob.ID), ta.getToken(t, manager))
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &rep)
	assert.Equal(t, 5, rep.Reputation)
}
