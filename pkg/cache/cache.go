// Package cache stores rendered generator output between runs.
//
// A render is a pure function of the lock file bytes, the template text and
// the build/flatten options, so its result can be reused whenever all three
// are unchanged, for instance when Cargo.lock was touched but not modified.
// [RenderKey] hashes those inputs into the cache key.
//
// Two implementations are provided: [FileCache] for the CLI (one JSON file
// per entry under the user cache directory) and [NullCache] to disable
// caching.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/depsgen/pkg/graph"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the cached data and true, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// RenderKeyOpts are the option inputs of a render.
type RenderKeyOpts struct {
	Build       graph.BuildOptions   `json:"build"`
	Flatten     graph.FlattenOptions `json:"flatten"`
	PostSearch  string               `json:"post_search"`
	PostReplace string               `json:"post_replace"`
}

// RenderKey returns the cache key for rendering template over lock.
func RenderKey(lock []byte, template string, opts RenderKeyOpts) string {
	return hashKey("render", Hash(lock), Hash([]byte(template)), opts)
}

// TTLRender is how long a cached render stays valid. Renders are pure
// functions of their key, so the TTL only bounds disk usage.
const TTLRender = 30 * 24 * time.Hour
