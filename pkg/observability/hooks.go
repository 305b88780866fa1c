// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about export and import runs and snapshot store traffic.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the marshaller and the
// stores stay free of any metrics framework.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSerialHooks(&mySerialHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Serial().OnExportStart(ctx, rootType)
//	// ... walk the graph ...
//	observability.Serial().OnExportComplete(ctx, rootType, records, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Serial Hooks
// =============================================================================

// SerialHooks receives events from the marshaller.
type SerialHooks interface {
	// Export events
	OnExportStart(ctx context.Context, rootType string)
	OnExportComplete(ctx context.Context, rootType string, records int, duration time.Duration, err error)

	// Import events
	OnImportStart(ctx context.Context)
	OnImportComplete(ctx context.Context, instances, failures int, duration time.Duration, err error)

	// OnResolveMiss records a tagged record whose class could not be resolved.
	OnResolveMiss(ctx context.Context, class, module string)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from snapshot store operations.
type StoreHooks interface {
	// OnStoreHit records a successful lookup.
	OnStoreHit(ctx context.Context, backend string)

	// OnStoreMiss records a lookup for a missing or expired key.
	OnStoreMiss(ctx context.Context, backend string)

	// OnStoreSet records a write.
	OnStoreSet(ctx context.Context, backend string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSerialHooks is a no-op implementation of SerialHooks.
type NoopSerialHooks struct{}

func (NoopSerialHooks) OnExportStart(context.Context, string) {}
func (NoopSerialHooks) OnExportComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopSerialHooks) OnImportStart(context.Context) {}
func (NoopSerialHooks) OnImportComplete(context.Context, int, int, time.Duration, error) {
}
func (NoopSerialHooks) OnResolveMiss(context.Context, string, string) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreHit(context.Context, string)      {}
func (NoopStoreHooks) OnStoreMiss(context.Context, string)     {}
func (NoopStoreHooks) OnStoreSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	serialHooks SerialHooks = NoopSerialHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	hooksMu     sync.RWMutex
)

// SetSerialHooks registers custom marshaller hooks.
// This should be called once at application startup before any export or import.
func SetSerialHooks(h SerialHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serialHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Serial returns the registered marshaller hooks.
func Serial() SerialHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serialHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	serialHooks = NoopSerialHooks{}
	storeHooks = NoopStoreHooks{}
}
