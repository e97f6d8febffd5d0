package warrant

import (
	"context"
	"errors"
	"testing"

	"github.com/datafed/warrant/eventlog"
	"github.com/datafed/warrant/identity"
	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/policy"
	"github.com/datafed/warrant/replica"
	"github.com/datafed/warrant/store/memory"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	eng, err := NewEngine(append([]Option{WithStore(s)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, s
}

func mustCreate(t *testing.T, eng *Engine, pid, sid, rightsHolder string) *object.Record {
	t.Helper()
	r := &object.Record{
		PID:          pid,
		SeriesID:     sid,
		FormatID:     "application/octet-stream",
		Checksum:     object.Checksum{Algorithm: "SHA-256", Value: "abc"},
		RightsHolder: rightsHolder,
	}
	if err := eng.CreateObject(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine()
	if err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestAuthorizeRightsHolder(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	mustCreate(t, eng, "pid-1", "", "cn=alice")

	// The rights holder may do anything, including delete.
	result, err := eng.Authorize(ctx, &AuthRequest{
		Subject:   "cn=alice",
		Operation: OperationDelete,
		PID:       "pid-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed || result.Decision != DecisionAllow {
		t.Fatalf("expected allow, got %s: %s", result.Decision, result.Reason)
	}
	if len(result.MatchedBy) != 1 || result.MatchedBy[0].Source != "rights_holder" {
		t.Fatalf("expected rights_holder match, got %+v", result.MatchedBy)
	}
}

func TestAuthorizeRuleGrant(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	mustCreate(t, eng, "pid-1", "", "cn=alice")

	err := eng.SetAccessPolicy(ctx, "pid-1", []policy.Rule{
		{Subjects: []string{"cn=bob"}, Permission: policy.PermissionRead},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Read is granted.
	ok, err := eng.Can(ctx, "cn=bob", OperationRead, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected read allowed")
	}

	// Update needs write; read is not enough.
	result, err := eng.Authorize(ctx, &AuthRequest{Subject: "cn=bob", Operation: OperationUpdate, PID: "pid-1"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed || result.Decision != DecisionDenyInsufficient {
		t.Fatalf("expected deny_insufficient, got %s", result.Decision)
	}

	// A stranger matches nothing.
	result, err = eng.Authorize(ctx, &AuthRequest{Subject: "cn=mallory", Operation: OperationRead, PID: "pid-1"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed || result.Decision != DecisionDenyNoMatch {
		t.Fatalf("expected deny_no_match, got %s", result.Decision)
	}

	// Enforce converts denial to ErrAccessDenied.
	err = eng.Enforce(ctx, &AuthRequest{Subject: "cn=mallory", Operation: OperationRead, PID: "pid-1"})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestAuthorizePublicAccess(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	mustCreate(t, eng, "pid-1", "", "cn=alice")

	err := eng.SetAccessPolicy(ctx, "pid-1", []policy.Rule{
		{Subjects: []string{identity.Public}, Permission: policy.PermissionRead},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Anonymous requesters read public objects.
	ok, err := eng.Can(ctx, "", OperationRead, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected anonymous read allowed")
	}

	// But a public grant never reaches write.
	ok, err = eng.Can(ctx, "", OperationUpdate, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected anonymous update denied")
	}
}

func TestAuthorizeSeriesFollowsUpdate(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	mustCreate(t, eng, "pid-1", "sid-1", "cn=alice")

	successor := &object.Record{
		PID:          "pid-2",
		FormatID:     "application/octet-stream",
		RightsHolder: "cn=alice",
	}
	if _, err := eng.UpdateObject(ctx, "pid-1", successor); err != nil {
		t.Fatal(err)
	}

	// Authorization against the series ID evaluates the chain head's
	// policy, so a grant on pid-2 applies.
	err := eng.SetAccessPolicy(ctx, "pid-2", []policy.Rule{
		{Subjects: []string{"cn=bob"}, Permission: policy.PermissionRead},
	})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := eng.Can(ctx, "cn=bob", OperationRead, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected series read to follow the chain head")
	}

	rec, err := eng.ResolveIdentifier(ctx, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.PID != "pid-2" {
		t.Fatalf("expected sid-1 -> pid-2, got %q", rec.PID)
	}
}

func TestAuthorizeDeletedObject(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	mustCreate(t, eng, "pid-1", "", "cn=alice")

	if err := eng.DeleteObject(ctx, "pid-1"); err != nil {
		t.Fatal(err)
	}

	_, err := eng.Authorize(ctx, &AuthRequest{Subject: "cn=alice", Operation: OperationRead, PID: "pid-1"})
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for tombstone, got %v", err)
	}
}

func TestAuthorizeUnknownOperation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	mustCreate(t, eng, "pid-1", "", "cn=alice")

	_, err := eng.Authorize(ctx, &AuthRequest{Subject: "cn=alice", Operation: "mint", PID: "pid-1"})
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestAuthorizePresetSubjects(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	mustCreate(t, eng, "pid-1", "", "cn=alice")

	err := eng.SetAccessPolicy(ctx, "pid-1", []policy.Rule{
		{Subjects: []string{"cn=lab-group"}, Permission: policy.PermissionWrite},
	})
	if err != nil {
		t.Fatal(err)
	}

	// A pre-resolved subject set bypasses the resolver.
	result, err := eng.Authorize(ctx, &AuthRequest{
		Subjects:  identity.NewSet("cn=bob", "cn=lab-group"),
		Operation: OperationUpdate,
		PID:       "pid-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("expected allow via group grant, got %s", result.Decision)
	}
}

// fakeCache records operations so the cache path is observable.
type fakeCache struct {
	entries map[string]*AuthResult
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*AuthResult)}
}

func (c *fakeCache) key(subjects identity.Set, op Operation, pid string) string {
	k := pid + "|" + string(op)
	for _, s := range subjects.Slice() {
		k += "|" + s
	}
	return k
}

func (c *fakeCache) Get(_ context.Context, subjects identity.Set, op Operation, pid string) (*AuthResult, bool) {
	res, ok := c.entries[c.key(subjects, op, pid)]
	if ok {
		c.hits++
	}
	return res, ok
}

func (c *fakeCache) Set(_ context.Context, subjects identity.Set, op Operation, pid string, result *AuthResult) {
	c.entries[c.key(subjects, op, pid)] = result
}

func (c *fakeCache) InvalidateObject(_ context.Context, pid string) {
	for k := range c.entries {
		if len(k) >= len(pid) && k[:len(pid)] == pid {
			delete(c.entries, k)
		}
	}
}

func (c *fakeCache) InvalidateSubject(_ context.Context, _ string) {}

func TestAuthorizeCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	eng, _ := newTestEngine(t, WithCache(fc))
	mustCreate(t, eng, "pid-1", "", "cn=alice")

	req := &AuthRequest{Subject: "cn=bob", Operation: OperationRead, PID: "pid-1"}

	// Denials are cached too.
	if _, err := eng.Authorize(ctx, req); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Authorize(ctx, req); err != nil {
		t.Fatal(err)
	}
	if fc.hits != 1 {
		t.Fatalf("expected 1 cache hit, got %d", fc.hits)
	}

	// A policy change drops the object's entries; the new decision is fresh.
	err := eng.SetAccessPolicy(ctx, "pid-1", []policy.Rule{
		{Subjects: []string{"cn=bob"}, Permission: policy.PermissionRead},
	})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := eng.Can(ctx, "cn=bob", OperationRead, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected fresh allow after policy change")
	}
}

func TestAuthorizeSeriesCacheKeyedOnResolvedPID(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	eng, _ := newTestEngine(t, WithCache(fc))
	mustCreate(t, eng, "pid-1", "sid-1", "cn=alice")

	// A denial reached through the series ID is cached under the head PID.
	ok, err := eng.Can(ctx, "cn=bob", OperationRead, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected deny before any grant")
	}

	// Granting read on the head must drop the series-addressed entry too.
	err = eng.SetAccessPolicy(ctx, "pid-1", []policy.Rule{
		{Subjects: []string{"cn=bob"}, Permission: policy.PermissionRead},
	})
	if err != nil {
		t.Fatal(err)
	}
	ok, err = eng.Can(ctx, "cn=bob", OperationRead, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected fresh allow via series id after policy change")
	}

	// An update moves the head; series-addressed decisions follow it
	// instead of replaying the predecessor's.
	if _, err := eng.UpdateObject(ctx, "pid-1", testRecord("pid-2", "")); err != nil {
		t.Fatal(err)
	}
	ok, err = eng.Can(ctx, "cn=bob", OperationRead, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected deny against the new head, which carries no policy")
	}
}

func TestSetAccessPolicyValidation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	mustCreate(t, eng, "pid-1", "", "cn=alice")

	err := eng.SetAccessPolicy(ctx, "pid-1", []policy.Rule{
		{Subjects: []string{"cn=bob"}, Permission: "execute"},
	})
	if err == nil {
		t.Fatal("expected error for invalid permission")
	}

	err = eng.SetAccessPolicy(ctx, "pid-1", []policy.Rule{
		{Permission: policy.PermissionRead},
	})
	if err == nil {
		t.Fatal("expected error for rule without subjects")
	}

	if err := eng.DeleteObject(ctx, "pid-1"); err != nil {
		t.Fatal(err)
	}
	err = eng.SetAccessPolicy(ctx, "pid-1", []policy.Rule{
		{Subjects: []string{"cn=bob"}, Permission: policy.PermissionRead},
	})
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on tombstone, got %v", err)
	}
}

func TestEngineReplicaFlow(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	// Replicas need an existing object.
	if _, err := eng.RegisterReplica(ctx, "pid-1", "urn:node:A"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mustCreate(t, eng, "pid-1", "", "cn=alice")
	rec, err := eng.RegisterReplica(ctx, "pid-1", "urn:node:A")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != replica.StatusQueued {
		t.Fatalf("expected queued, got %s", rec.Status)
	}

	for _, s := range []replica.Status{replica.StatusRequested, replica.StatusCompleted} {
		if err := eng.SetReplicaStatus(ctx, "pid-1", "urn:node:A", s); err != nil {
			t.Fatal(err)
		}
	}

	nodes, err := eng.CompleteReplicas(ctx, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0] != "urn:node:A" {
		t.Fatalf("expected [urn:node:A], got %v", nodes)
	}

	// Deleting the object drops its replica records.
	if err := eng.DeleteObject(ctx, "pid-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Replicas().Get(ctx, "pid-1", "urn:node:A"); !errors.Is(err, replica.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEngineEventLog(t *testing.T) {
	ctx := WithSubject(context.Background(), "cn=alice")
	eng, _ := newTestEngine(t)

	mustCreate(t, eng, "pid-1", "", "cn=alice")
	eng.LogReadEvent(ctx, "pid-1")

	entries, err := eng.QueryEvents(ctx, &eventlog.QueryFilter{PID: "pid-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Type != eventlog.TypeCreate || entries[1].Type != eventlog.TypeRead {
		t.Fatalf("expected create then read, got %s, %s", entries[0].Type, entries[1].Type)
	}
	if entries[1].Subject != "cn=alice" {
		t.Fatalf("expected subject from context, got %q", entries[1].Subject)
	}

	// The event log can be switched off.
	off := false
	eng2, _ := newTestEngine(t, WithConfig(Config{EnableEventLog: &off}))
	mustCreate(t, eng2, "pid-2", "", "cn=alice")
	entries, err = eng2.QueryEvents(ctx, &eventlog.QueryFilter{PID: "pid-2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries with event log disabled, got %d", len(entries))
	}
}

// auditPlugin records hook invocations.
type auditPlugin struct {
	created int
	after   int
}

func (p *auditPlugin) Name() string { return "audit" }

func (p *auditPlugin) OnObjectCreated(_ context.Context, _ *object.Record) error {
	p.created++
	return nil
}

func (p *auditPlugin) OnAfterAuthorize(_ context.Context, _ any, _ any) error {
	p.after++
	return nil
}

func TestEnginePluginHooks(t *testing.T) {
	ctx := context.Background()
	p := &auditPlugin{}
	eng, _ := newTestEngine(t, WithPlugin(p))

	mustCreate(t, eng, "pid-1", "", "cn=alice")
	if _, err := eng.Authorize(ctx, &AuthRequest{Subject: "cn=alice", Operation: OperationRead, PID: "pid-1"}); err != nil {
		t.Fatal(err)
	}

	if p.created != 1 {
		t.Fatalf("expected 1 created hook, got %d", p.created)
	}
	if p.after != 1 {
		t.Fatalf("expected 1 after-authorize hook, got %d", p.after)
	}
}
