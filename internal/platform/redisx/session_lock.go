package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/casechat-backend/internal/platform/httpx"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

var ErrLockBusy = errors.New("session lock busy")

// Deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionLocker is an advisory per-session lock using SET NX PX. The TTL
// bounds how long a crashed holder can block a session.
type SessionLocker struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewSessionLocker(log *logger.Logger, rdb goredis.UniversalClient, keyPrefix string, ttl, wait time.Duration) (*SessionLocker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if wait < 0 {
		wait = 0
	}
	return &SessionLocker{
		log:    log.With("service", "RedisSessionLocker"),
		rdb:    rdb,
		prefix: keyPrefix + "lock:session:",
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
	}, nil
}

// Lock blocks up to the configured wait for the session lock. The returned
// func releases it and is safe to call once.
func (l *SessionLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := l.prefix + sessionID
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire session lock: %w", err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockBusy
		}
		if err := httpx.Sleep(ctx, l.retry); err != nil {
			return nil, err
		}
	}

	return func() {
		// Release must run even when the request context is already done.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Warn("Release session lock failed", "session_id", sessionID, "error", err)
		}
	}, nil
}
