package digest

import (
	"context"
	"time"
)

// QueuedPost is a notification deferred into a user's daily digest.
type QueuedPost struct {
	UserID   int64     `json:"user_id"`
	PostID   int64     `json:"post_id"`
	ForumID  int64     `json:"forum_id"`
	QueuedAt time.Time `json:"queued_at"` // UTC
}

// Queue buffers digest notifications between mail runs. The redis
// implementation lives in storage/cache; tests use the in-memory dummy.
type Queue interface {
	Enqueue(ctx context.Context, qp QueuedPost) error
	// PullByUser returns queued posts grouped by user without removing
	// them, so a failed flush can retry.
	PullByUser(ctx context.Context) (map[int64][]QueuedPost, error)
	// Clear removes a user's entries after a successful send.
	Clear(ctx context.Context, userID int64) error
}
