package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/tokenforge/pkg/buildinfo"
	"github.com/matzehuels/tokenforge/pkg/retry"
)

// DefaultRedisTTL bounds how long an abandoned run's pattern set survives.
const DefaultRedisTTL = 24 * time.Hour

// Redis stores reserved keys in a Redis set. Processes dialed with the same
// prefix and run id share one set, so their tokens never repeat a pattern.
// SADD is atomic on the server, which gives the same check-and-insert
// guarantee as the in-memory ledger.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	owned  bool
}

// NewRedis returns a ledger storing keys in the set "<prefix>:<runID>".
// The client is not closed by Close.
func NewRedis(client *redis.Client, prefix, runID string) *Redis {
	return &Redis{
		client: client,
		key:    fmt.Sprintf("%s:%s", prefix, runID),
		ttl:    DefaultRedisTTL,
	}
}

// DialRedis parses a redis:// URL, connects, and returns a ledger that owns
// the client. The initial ping is retried with backoff.
func DialRedis(ctx context.Context, url, prefix, runID string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = buildinfo.UserAgent()
	}
	client := redis.NewClient(opts)
	err = retry.Backoff(ctx, func() error {
		return transient(client.Ping(ctx).Err())
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	l := NewRedis(client, prefix, runID)
	l.owned = true
	return l, nil
}

// SetKey returns the Redis key of the pattern set.
func (r *Redis) SetKey() string {
	return r.key
}

// Reserve implements Ledger using SADD. Connection failures are retried
// with backoff. A retried SADD that already landed reports the key as
// taken, which costs the caller one more sampling attempt.
func (r *Redis) Reserve(ctx context.Context, key string) (bool, error) {
	var added *redis.IntCmd
	err := retry.Backoff(ctx, func() error {
		pipe := r.client.TxPipeline()
		added = pipe.SAdd(ctx, r.key, key)
		pipe.Expire(ctx, r.key, r.ttl)
		_, err := pipe.Exec(ctx)
		return transient(err)
	})
	if err != nil {
		return false, fmt.Errorf("reserve pattern: %w", err)
	}
	return added.Val() == 1, nil
}

// transient marks connection-level failures for retry. Replies from the
// server and context errors are returned as they are.
func transient(err error) error {
	var reply redis.Error
	switch {
	case err == nil,
		errors.As(err, &reply),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, redis.ErrClosed):
		return err
	}
	return retry.Transient(err)
}

// Len implements Ledger using SCARD.
func (r *Redis) Len(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, r.key).Result()
}

// Close closes the client when the ledger created it.
func (r *Redis) Close() error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}

// Ensure Redis implements Ledger.
var _ Ledger = (*Redis)(nil)
