// Package observability provides hooks for metrics, tracing, and logging.
//
// Instrumentation is optional and carries no dependency on a specific
// backend. Consumers register hooks at startup and receive events about
// generation runs and render cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so no import cycles
// arise and the core packages stay free of observability frameworks.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetGenerateHooks(&myGenerateHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	g, err := graph.Build(pkgs, opts)
//	observability.Generate().OnBuild(ctx, g.Len(), g.EdgeCount(), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Generate Hooks
// =============================================================================

// GenerateHooks receives events from the generation pipeline.
type GenerateHooks interface {
	// OnLoad fires after the lock file has been read and decoded.
	OnLoad(ctx context.Context, path string, packages int, duration time.Duration, err error)

	// OnBuild fires after the dependency graph has been constructed.
	OnBuild(ctx context.Context, nodes, edges int, duration time.Duration, err error)

	// OnFlatten fires after the graph has been linearized.
	OnFlatten(ctx context.Context, emitted int, duration time.Duration, err error)

	// OnRender fires after the template has been executed.
	OnRender(ctx context.Context, size int, duration time.Duration, err error)

	// OnWrite fires after the output file has been written.
	OnWrite(ctx context.Context, path string, size int, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopGenerateHooks is a no-op implementation of GenerateHooks.
type NoopGenerateHooks struct{}

func (NoopGenerateHooks) OnLoad(context.Context, string, int, time.Duration, error) {}
func (NoopGenerateHooks) OnBuild(context.Context, int, int, time.Duration, error)   {}
func (NoopGenerateHooks) OnFlatten(context.Context, int, time.Duration, error)      {}
func (NoopGenerateHooks) OnRender(context.Context, int, time.Duration, error)       {}
func (NoopGenerateHooks) OnWrite(context.Context, string, int, error)               {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	generateHooks GenerateHooks = NoopGenerateHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetGenerateHooks registers custom generation hooks.
// This should be called once at application startup before any generation runs.
func SetGenerateHooks(h GenerateHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		generateHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Generate returns the registered generation hooks.
func Generate() GenerateHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return generateHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	generateHooks = NoopGenerateHooks{}
	cacheHooks = NoopCacheHooks{}
}
