package cli

import (
	"context"

	"github.com/matzehuels/objgraph/pkg/observability"
)

// StoreLogHooks reports snapshot store traffic at debug level through the
// logger attached to the command context.
type StoreLogHooks struct{}

var _ observability.StoreHooks = StoreLogHooks{}

func (StoreLogHooks) OnStoreHit(ctx context.Context, backend string) {
	loggerFromContext(ctx).Debug("store hit", "backend", backend)
}

func (StoreLogHooks) OnStoreMiss(ctx context.Context, backend string) {
	loggerFromContext(ctx).Debug("store miss", "backend", backend)
}

func (StoreLogHooks) OnStoreSet(ctx context.Context, backend string, size int) {
	loggerFromContext(ctx).Debug("store set", "backend", backend, "bytes", size)
}
