package common

import "time"

// CacheInterface is implemented by the in-memory and Redis caches.
// Values handed to Set should survive a JSON round trip; the Redis
// backend returns them decoded into generic JSON types.
type CacheInterface interface {
	// Set stores a value in cache with the given key and duration
	Set(key string, value interface{}, duration time.Duration)

	// Get retrieves a value from cache by key
	// Returns the value and true if found, nil and false otherwise
	Get(key string) (interface{}, bool)

	Delete(key string)

	// GetOrSet returns the cached value or stores what loader produces.
	// Loader errors are returned and nothing is cached.
	GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error)

	Close() error
}

// getOrSet is shared by both implementations.
func getOrSet(c CacheInterface, key string, duration time.Duration, loader func() (any, error)) (interface{}, error) {
	if val, found := c.Get(key); found {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}

	c.Set(key, val, duration)
	return val, nil
}
