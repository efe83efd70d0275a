package subscription

import "time"

// Preference is a per-discussion override of the forum-level subscription.
type Preference int8

const (
	PrefUnsubscribed Preference = iota
	PrefSubscribed
)

// Subscription subscribes a user to a whole forum.
type Subscription struct {
	ID      int64 `json:"id"`
	UserID  int64 `json:"user_id"`
	ForumID int64 `json:"forum_id"`
}

// DiscussionSubscription overrides the forum subscription for one
// discussion; the override always wins.
type DiscussionSubscription struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	DiscussionID int64      `json:"discussion_id"`
	Preference   Preference `json:"preference"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
}
