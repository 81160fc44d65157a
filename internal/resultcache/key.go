package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Key identifies a memoized operation result: an operation name plus the
// sha256 of its normalized arguments. Hashing the joined argument strings is
// deliberately coarse: two argument lists that join to the same byte
// sequence share an entry. The separator makes that unlikely but the scheme
// is an accepted approximation, not a collision-proof encoding.
type Key struct {
	Op   string
	Hash string
}

func NewKey(op string, args ...string) Key {
	sum := sha256.Sum256([]byte(strings.Join(args, "\x1f")))
	return Key{Op: op, Hash: hex.EncodeToString(sum[:])}
}

func (k Key) String() string {
	return k.Op + ":" + k.Hash
}

// Memoize runs fn unless a previous result for key is still cached. Errors
// are never cached; only successful results are stored for ttl.
func Memoize[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if cached, ok := c.Get(key.String()); ok {
		if value, ok := cached.(T); ok {
			return value, nil
		}
	}
	value, err := fn(ctx)
	if err != nil {
		return value, err
	}
	c.Set(key.String(), value, ttl)
	return value, nil
}
