package dummydb

import (
	"sync"

	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/grade"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/subscription"
	"github.com/learnweb/moodleoverflow/core/tracking"
	"github.com/learnweb/moodleoverflow/core/user"
)

// Cross-table operations always lock tables in declaration order to stay
// deadlock-free.
type (
	DB struct {
		user       *userTable
		forum      *forumTable
		discussion *discussionTable
		post       *postTable
		rating     *ratingTable
		sub        *subscriptionTable
		discSub    *discussionSubscriptionTable
		readRecord *readRecordTable
		grade      *gradeTable
	}

	userTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*user.User
	}

	forumTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*forum.Forum
	}

	discussionTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*discussion.Discussion
	}

	postTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*discussion.Post
	}

	ratingTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*rating.Rating
	}

	subscriptionTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*subscription.Subscription
	}

	discussionSubscriptionTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*subscription.DiscussionSubscription
	}

	readRecordTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*tracking.ReadRecord
	}

	gradeTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*grade.Grade
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[int64]*user.User)},
		forum:      &forumTable{table: make(map[int64]*forum.Forum)},
		discussion: &discussionTable{table: make(map[int64]*discussion.Discussion)},
		post:       &postTable{table: make(map[int64]*discussion.Post)},
		rating:     &ratingTable{table: make(map[int64]*rating.Rating)},
		sub:        &subscriptionTable{table: make(map[int64]*subscription.Subscription)},
		discSub:    &discussionSubscriptionTable{table: make(map[int64]*subscription.DiscussionSubscription)},
		readRecord: &readRecordTable{table: make(map[int64]*tracking.ReadRecord)},
		grade:      &gradeTable{table: make(map[int64]*grade.Grade)},
	}
	return db, nil
}
