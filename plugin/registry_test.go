package plugin

import (
	"context"
	"log/slog"
	"testing"

	"github.com/datafed/warrant/object"
)

// testPlugin implements Plugin + ObjectCreated + AfterAuthorize.
type testPlugin struct {
	objectCreatedCalled  bool
	afterAuthorizeCalled bool
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnObjectCreated(_ context.Context, _ *object.Record) error {
	t.objectCreatedCalled = true
	return nil
}

func (t *testPlugin) OnAfterAuthorize(_ context.Context, _, _ any) error {
	t.afterAuthorizeCalled = true
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch ObjectCreated to testPlugin only.
	reg.EmitObjectCreated(ctx, &object.Record{PID: "urn:uuid:1", RightsHolder: "cn=alice"})
	if !tp.objectCreatedCalled {
		t.Fatal("OnObjectCreated was not called")
	}

	// Should dispatch AfterAuthorize.
	reg.EmitAfterAuthorize(ctx, nil, nil)
	if !tp.afterAuthorizeCalled {
		t.Fatal("OnAfterAuthorize was not called")
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeAuthorize(ctx, nil)
	reg.EmitObjectDeleted(ctx, "urn:uuid:1")
	reg.EmitShutdown(ctx)
}
