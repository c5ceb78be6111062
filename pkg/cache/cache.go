package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface. Values are stored JSON encoded;
// strings and []byte are stored verbatim.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	MGet(ctx context.Context, keys ...string) (map[string]string, error)
	Close() error
}

// MGetTyped retrieves multiple keys and unmarshals to typed map.
func MGetTyped[T any](ctx context.Context, c Service, keys ...string) (map[string]T, error) {
	if len(keys) == 0 {
		return make(map[string]T), nil
	}

	rawResults, err := c.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	typedResults := make(map[string]T, len(rawResults))
	for key, rawValue := range rawResults {
		var obj T
		if err := json.Unmarshal([]byte(rawValue), &obj); err != nil {
			continue // Skip invalid JSON
		}
		typedResults[key] = obj
	}

	return typedResults, nil
}

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

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	default:
		return json.Unmarshal(data, dest)
	}
}
