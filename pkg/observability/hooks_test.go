package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Serial hooks
	s := NoopSerialHooks{}
	s.OnExportStart(ctx, "*rig.Joint")
	s.OnExportComplete(ctx, "*rig.Joint", 12, time.Second, nil)
	s.OnImportStart(ctx)
	s.OnImportComplete(ctx, 12, 1, time.Second, nil)
	s.OnResolveMiss(ctx, "Joint", "rig")

	// Store hooks
	st := NoopStoreHooks{}
	st.OnStoreHit(ctx, "file")
	st.OnStoreMiss(ctx, "redis")
	st.OnStoreSet(ctx, "sqlite", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Serial().(NoopSerialHooks); !ok {
		t.Error("Serial() should return NoopSerialHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}

	// Set custom hooks
	customSerial := &testSerialHooks{}
	SetSerialHooks(customSerial)
	if Serial() != customSerial {
		t.Error("SetSerialHooks should set custom hooks")
	}

	customStore := &testStoreHooks{}
	SetStoreHooks(customStore)
	if Store() != customStore {
		t.Error("SetStoreHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Serial().(NoopSerialHooks); !ok {
		t.Error("Reset() should restore NoopSerialHooks")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Reset() should restore NoopStoreHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testSerialHooks{}
	SetSerialHooks(custom)

	// Setting nil should be ignored
	SetSerialHooks(nil)

	if Serial() != custom {
		t.Error("SetSerialHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testSerialHooks struct{ NoopSerialHooks }
type testStoreHooks struct{ NoopStoreHooks }
