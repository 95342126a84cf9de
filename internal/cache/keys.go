package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	userKeyFmt = "user:%d"
	postKeyFmt = "post:%d"
)

const (
	UserTTL = 5 * time.Minute
	PostTTL = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(userKeyFmt, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(postKeyFmt, postID)
}

// Aside implements the cache-aside pattern: it tries Redis first and on a
// miss calls fetch (which must populate dest), then stores the result with
// ttl. Cache writes are best-effort; a failing store never fails the read.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client != nil {
		if raw, err := client.Get(ctx, key).Bytes(); err == nil {
			if json.Unmarshal(raw, dest) == nil {
				return nil
			}
		}
	}

	if err := fetch(); err != nil {
		return err
	}

	if client != nil {
		if raw, err := json.Marshal(dest); err == nil {
			client.Set(ctx, key, raw, ttl)
		}
	}
	return nil
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}
