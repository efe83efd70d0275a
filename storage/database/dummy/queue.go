package dummydb

import (
	"context"
	"sync"

	"github.com/learnweb/moodleoverflow/core/digest"
)

// digestQueue is the test stand-in for the redis-backed digest queue.
type digestQueue struct {
	mu    sync.Mutex
	table map[int64][]digest.QueuedPost
}

var _ digest.Queue = (*digestQueue)(nil) // interface compliance check

func NewDigestQueue() digest.Queue {
	return &digestQueue{table: make(map[int64][]digest.QueuedPost)}
}

func (q *digestQueue) Enqueue(ctx context.Context, qp digest.QueuedPost) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.table[qp.UserID] = append(q.table[qp.UserID], qp)
	return nil
}

func (q *digestQueue) PullByUser(ctx context.Context) (map[int64][]digest.QueuedPost, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[int64][]digest.QueuedPost, len(q.table))
	for userID, queued := range q.table {
		cp := make([]digest.QueuedPost, len(queued))
		copy(cp, queued)
		out[userID] = cp
	}
	return out, nil
}

func (q *digestQueue) Clear(ctx context.Context, userID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.table, userID)
	return nil
}
