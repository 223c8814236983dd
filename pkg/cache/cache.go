package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is the key/value surface shared by the memory, redis and layered
// backends. Values are JSON encoded unless they are already strings.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// GetTyped reads key and decodes it into a fresh T.
func GetTyped[T any](ctx context.Context, c Service, key string) (T, error) {
	var out T
	err := c.Get(ctx, key, &out)
	return out, err
}

// encode turns a value into the bytes stored by the backends.
func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(value)
	}
}

// decode writes raw into dest. *string receives the bytes verbatim.
func decode(raw []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(raw)
		return nil
	case *[]byte:
		*d = append((*d)[:0], raw...)
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}
