package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes a lock key only when it still holds the
// token written by the acquiring caller, so a lock that expired and
// was re-acquired by someone else is never released out from under
// them.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisManager implements Manager on top of Redis SET NX PX. The
// lease bounds how long a crashed holder can keep a resource locked;
// live holders release explicitly right after commit. Acquisition
// polls with a jittered interval until the wait bound elapses.
type RedisManager struct {
	rdb  *redis.Client
	opts Options
}

// NewRedisManager returns a RedisManager using the given client.
func NewRedisManager(rdb *redis.Client, opts Options) *RedisManager {
	return &RedisManager{rdb: rdb, opts: opts.withDefaults()}
}

// Acquire implements Manager.
func (m *RedisManager) Acquire(ctx context.Context, resourceType, resourceID string) (func(), error) {
	k := key(resourceType, resourceID)
	token, err := randomToken(16)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(m.opts.WaitTimeout)
	for {
		ok, err := m.rdb.SetNX(ctx, k, token, m.opts.Lease).Result()
		if err != nil {
			// Store unreachable: transient, same contract as contention.
			return nil, ErrTimeout
		}
		if ok {
			return func() {
				relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(relCtx, m.rdb, []string{k}, token).Err(); err != nil {
					log.Printf("lock: release %s failed: %v", k, err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-time.After(jitter(m.opts.RetryInterval)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// randomToken generates a random hexadecimal string of n bytes. The
// token fences the release script against lease expiry races.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
