package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/digest"
)

// queue entries expire on their own if a flush never happens
const digestExpireAt = 7 * 24 * time.Hour

const digestKeyPrefix = "moodleoverflow:digest:"

func NewClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

// DigestQueue buffers deferred notifications in redis, one list per user.
type DigestQueue struct {
	redis *redis.Client
}

var _ digest.Queue = (*DigestQueue)(nil) // interface compliance check

func NewDigestQueue(rds *redis.Client) *DigestQueue {
	return &DigestQueue{redis: rds}
}

func (q *DigestQueue) Enqueue(ctx context.Context, qp digest.QueuedPost) error {
	data, err := json.Marshal(qp)
	if err != nil {
		return errors.Wrap(err, "encoding queued post")
	}

	key := q.key(qp.UserID)
	pipe := q.redis.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, digestExpireAt)
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "queuing digest post")
}

func (q *DigestQueue) PullByUser(ctx context.Context) (map[int64][]digest.QueuedPost, error) {
	keys, err := q.redis.Keys(ctx, digestKeyPrefix+"*").Result()
	if err != nil {
		return nil, errors.Wrap(err, "listing digest queues")
	}

	out := make(map[int64][]digest.QueuedPost, len(keys))
	for _, key := range keys {
		userID, err := strconv.ParseInt(strings.TrimPrefix(key, digestKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		vals, err := q.redis.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "reading digest queue %s", key)
		}
		queued := make([]digest.QueuedPost, 0, len(vals))
		for _, val := range vals {
			var qp digest.QueuedPost
			if err = json.Unmarshal([]byte(val), &qp); err != nil {
				continue
			}
			queued = append(queued, qp)
		}
		out[userID] = queued
	}
	return out, nil
}

func (q *DigestQueue) Clear(ctx context.Context, userID int64) error {
	err := q.redis.Del(ctx, q.key(userID)).Err()
	return errors.Wrap(err, "clearing digest queue")
}

func (q *DigestQueue) key(userID int64) string {
	return fmt.Sprintf("%s%d", digestKeyPrefix, userID)
}
