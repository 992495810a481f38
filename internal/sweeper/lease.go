package sweeper

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/scoutfund/internal/crypto"
)

// Lease grants exclusive use of a named job for a bounded time.
type Lease interface {
	// Acquire returns ok=false when another holder has the lease. release must be
	// called when ok is true.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// LocalLease only excludes concurrent runs inside this process. Single-replica deployments use it.
type LocalLease struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLease() *LocalLease { return &LocalLease{held: map[string]bool{}} }

func (l *LocalLease) Acquire(_ context.Context, name string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true
	return func() {
		l.mu.Lock()
		delete(l.held, name)
		l.mu.Unlock()
	}, true, nil
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease coordinates replicas with SET NX PX on a shared redis.
type RedisLease struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisLease constructs a RedisLease; keys are "<prefix><name>".
func NewRedisLease(rdb redis.UniversalClient, prefix string) *RedisLease {
	if prefix == "" {
		prefix = "scoutfund:lease:"
	}
	return &RedisLease{rdb: rdb, prefix: prefix}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (l *RedisLease) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	raw, err := crypto.RandBytes(16)
	if err != nil {
		return nil, false, err
	}
	token := hex.EncodeToString(raw)
	key := l.prefix + name
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		// the lease may outlive the caller's context
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}, true, nil
}
