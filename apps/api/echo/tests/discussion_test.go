package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/user"
)

func Test_discussionApi_create(t *testing.T) {
	ta := newTestApp(t)
	student := ta.createUser(t, "Alice", "alice", "alice@test.cd", user.StudentRoles)
	token := ta.getToken(t, student)
	f := ta.createForum(t, forum.Forum{Name: "Open"})

	rec := ta.do(http.MethodPost, "/v1/discussions", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), errMissingToken)

	body := marshallObj(t, discussion.NewDiscussion{ForumID: f.ID, Subject: "How?", Message: "Like this."})
	rec = ta.do(http.MethodPost, "/v1/discussions", token, body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Discussion discussion.Discussion `json:"discussion"`
		Post       discussion.Post       `json:"post"`
	}
	decodeBody(t, rec, &created)
	assert.NotZero(t, created.Discussion.ID)
	assert.Equal(t, created.Discussion.FirstPostID, created.Post.ID)
	assert.True(t, created.Post.Reviewed)

	// unknown forum
	body = marshallObj(t, discussion.NewDiscussion{ForumID: 999, Subject: "?", Message: "..."})
	rec = ta.do(http.MethodPost, "/v1/discussions", token, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// subject is mandatory
	body = marshallObj(t, discussion.NewDiscussion{ForumID: f.ID, Message: "..."})
	rec = ta.do(http.MethodPost, "/v1/discussions", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_discussionApi_retrieve(t *testing.T) {
	ta := newTestApp(t)
	student := ta.createUser(t, "Alice", "alice", "alice@test.cd", user.StudentRoles)
	token := ta.getToken(t, student)
	f := ta.createForum(t, forum.Forum{Name: "Open"})
	d, _ := ta.createDiscussion(t, f, student, "Topic", "body")

	rec := ta.do(http.MethodGet, fmt.Sprintf("/v1/discussions?forum=%d", f.ID), token)
	assert.Equal(t, http.StatusOK, rec.Code)
	var list []discussion.Discussion
	decodeBody(t, rec, &list)
	assert.Len(t, list, 1)

	rec = ta.do(http.MethodGet, fmt.Sprintf("/v1/discussions/%d", d.ID), token)
	assert.Equal(t, http.StatusOK, rec.Code)
	var full struct {
		Discussion discussion.Discussion `json:"discussion"`
		Posts      []discussion.Post     `json:"posts"`
	}
	decodeBody(t, rec, &full)
	assert.Equal(t, d.ID, full.Discussion.ID)
	assert.Len(t, full.Posts, 1)

	rec = ta.do(http.MethodGet, "/v1/discussions/999", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_discussionApi_queryOrdering(t *testing.T) {
	ta := newTestApp(t)
	student := ta.createUser(t, "Alice", "alice", "alice@test.cd", user.StudentRoles)
	token := ta.getToken(t, student)
	f := ta.createForum(t, forum.Forum{Name: "Open"})
	ta.createDiscussion(t, f, student, "Beta", "...")
	ta.createDiscussion(t, f, student, "Alpha", "...")

	rec := ta.do(http.MethodGet, fmt.Sprintf("/v1/discussions?forum=%d&ordering=name", f.ID), token)
	assert.Equal(t, http.StatusOK, rec.Code)
	var list []discussion.Discussion
	decodeBody(t, rec, &list)
	if assert.Len(t, list, 2) {
		assert.Equal(t, "Alpha", list[0].Name)
	}

	rec = ta.do(http.MethodGet, fmt.Sprintf("/v1/discussions?forum=%d&ordering=-name", f.ID), token)
	decodeBody(t, rec, &list)
	if assert.Len(t, list, 2) {
		assert.Equal(t, "Beta", list[0].Name)
	}

	// only known columns are orderable
	rec = ta.do(http.MethodGet, fmt.Sprintf("/v1/discussions?forum=%d&ordering=password", f.ID), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_discussionApi_replyAndDelete(t *testing.T) {
	ta := newTestApp(t)
	alice := ta.createUser(t, "Alice", "alice", "alice@test.cd", user.StudentRoles)
	bob := ta.createUser(t, "Bob", "bob", "bob@test.cd", user.StudentRoles)
	f := ta.createForum(t, forum.Forum{Name: "Open"})
	d, root := ta.createDiscussion(t, f, alice, "Topic", "body")

	body := marshallObj(t, discussion.NewReply{DiscussionID: d.ID, ParentID: root.ID, Message: "An answer."})
	rec := ta.do(http.MethodPost, "/v1/posts", ta.getToken(t, bob), body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var reply discussion.Post
	decodeBody(t, rec, &reply)
	assert.Equal(t, d.ID, reply.DiscussionID)
	assert.Equal(t, root.ID, reply.ParentID)

	// alice cannot delete bob's reply
	rec = ta.do(http.MethodDelete, fmt.Sprintf("/v1/posts/%d", reply.ID), ta.getToken(t, alice))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ta.do(http.MethodDelete, fmt.Sprintf("/v1/posts/%d", reply.ID), ta.getToken(t, bob))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ta.do(http.MethodGet, fmt.Sprintf("/v1/posts/%d", reply.ID), ta.getToken(t, bob))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_discussionApi_review(t *testing.T) {
	ta := newTestApp(t)
	alice := ta.createUser(t, "Alice", "alice", "alice@test.cd", user.StudentRoles)
	teacher := ta.createUser(t, "Teach", "teach", "teach@test.cd", user.TeacherRoles)
	f := ta.createForum(t, forum.Forum{Name: "Moderated", ReviewLevel: forum.ReviewQuestions})

	body := marshallObj(t, discussion.NewDiscussion{ForumID: f.ID, Subject: "Held", Message: "..."})
	rec := ta.do(http.MethodPost, "/v1/discussions", ta.getToken(t, alice), body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Post discussion.Post `json:"post"`
	}
	decodeBody(t, rec, &created)
	assert.False(t, created.Post.Reviewed)

	// students cannot approve
	rec = ta.do(http.MethodPost, fmt.Sprintf("/v1/posts/%d/approve", created.Post.ID), ta.getToken(t, alice))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ta.do(http.MethodPost, fmt.Sprintf("/v1/posts/%d/approve", created.Post.ID), ta.getToken(t, teacher))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ta.do(http.MethodGet, fmt.Sprintf("/v1/posts/%d", created.Post.ID), ta.getToken(t, alice))
	assert.Equal(t, http.StatusOK, rec.Code)
	var approved discussion.Post
	decodeBody(t, rec, &approved)
	assert.True(t, approved.Reviewed)

	// approving twice conflicts
	rec = ta.do(http.MethodPost, fmt.Sprintf("/v1/posts/%d/approve", created.Post.ID), ta.getToken(t, teacher))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func Test_discussionApi_readTracking(t *testing.T) {
	ta := newTestApp(t)
	alice := ta.createUser(t, "Alice", "alice", "alice@test.cd", user.StudentRoles)
	bob := ta.createUser(t, "Bob", "bob", "bob@test.cd", user.StudentRoles)
	f := ta.createForum(t, forum.Forum{Name: "Open"})
	d, _ := ta.createDiscussion(t, f, alice, "Topic", "body")

	token := ta.getToken(t, bob)

	rec := ta.do(http.MethodGet, fmt.Sprintf("/v1/discussions/%d/unread-count", d.ID), token)
	assert.Equal(t, http.StatusOK, rec.Code)
	var count struct {
		Unread int `json:"unread"`
	}
	decodeBody(t, rec, &count)
	assert.Equal(t, 1, count.Unread)

	rec = ta.do(http.MethodPost, fmt.Sprintf("/v1/discussions/%d/read", d.ID), token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ta.do(http.MethodGet, fmt.Sprintf("/v1/discussions/%d/unread-count", d.ID), token)
	decodeBody(t, rec, &count)
	assert.Equal(t, 0, count.Unread)
}
