// Package memory provides an in-memory implementation of the Warrant
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/datafed/warrant/eventlog"
	"github.com/datafed/warrant/id"
	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/policy"
	"github.com/datafed/warrant/replica"
	"github.com/datafed/warrant/store"
)

// Compile-time interface checks.
var (
	_ object.Store   = (*Store)(nil)
	_ policy.Store   = (*Store)(nil)
	_ replica.Store  = (*Store)(nil)
	_ eventlog.Store = (*Store)(nil)
	_ store.Store    = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Warrant entities.
// A single mutex covers every map, which also makes the multi-step
// writes (Obsolete, replica transitions) atomic.
type Store struct {
	mu sync.RWMutex

	objects  map[string]*object.Record  // pid -> record
	series   map[string]string          // sid -> pid of chain head binding
	rules    map[string][]policy.Rule   // pid -> access rules
	replicas map[string]*replica.Record // pid + "\x00" + nodeID -> record
	events   map[string]*eventlog.Entry // eventID -> entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		objects:  make(map[string]*object.Record),
		series:   make(map[string]string),
		rules:    make(map[string][]policy.Rule),
		replicas: make(map[string]*replica.Record),
		events:   make(map[string]*eventlog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Object Store
// ──────────────────────────────────────────────────

func (s *Store) CreateObject(_ context.Context, r *object.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[r.PID]; ok {
		return fmt.Errorf("object %q: %w", r.PID, object.ErrIdentifierConflict)
	}
	if r.SeriesID != "" {
		if _, ok := s.series[r.SeriesID]; ok {
			return fmt.Errorf("series %q: %w", r.SeriesID, object.ErrIdentifierConflict)
		}
		s.series[r.SeriesID] = r.PID
	}
	s.objects[r.PID] = copyObject(r)
	return nil
}

func (s *Store) GetObject(_ context.Context, pid string) (*object.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.objects[pid]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", pid, object.ErrNotFound)
	}
	return copyObject(r), nil
}

func (s *Store) Obsolete(_ context.Context, oldPID string, successor *object.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.objects[oldPID]
	if !ok {
		return fmt.Errorf("object %q: %w", oldPID, object.ErrNotFound)
	}
	if old.Deleted {
		return fmt.Errorf("object %q: %w", oldPID, object.ErrNotFound)
	}
	if old.ObsoletedBy != "" {
		return fmt.Errorf("object %q obsoleted by %q: %w", oldPID, old.ObsoletedBy, object.ErrAlreadyObsoleted)
	}
	if _, ok := s.objects[successor.PID]; ok {
		return fmt.Errorf("object %q: %w", successor.PID, object.ErrIdentifierConflict)
	}
	if sid := successor.SeriesID; sid != "" {
		if bound, ok := s.series[sid]; ok && bound != oldPID {
			return fmt.Errorf("series %q bound to %q: %w", sid, bound, object.ErrIdentifierConflict)
		}
	}

	old.ObsoletedBy = successor.PID
	old.ModifiedAt = successor.CreatedAt
	s.objects[successor.PID] = copyObject(successor)
	if successor.SeriesID != "" {
		s.series[successor.SeriesID] = successor.PID
	}
	return nil
}

func (s *Store) SetArchived(_ context.Context, pid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.objects[pid]
	if !ok || r.Deleted {
		return fmt.Errorf("object %q: %w", pid, object.ErrNotFound)
	}
	if !r.Archived {
		r.Archived = true
		r.ModifiedAt = time.Now()
	}
	return nil
}

func (s *Store) Tombstone(_ context.Context, pid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.objects[pid]
	if !ok {
		return fmt.Errorf("object %q: %w", pid, object.ErrNotFound)
	}
	if !r.Deleted {
		r.Deleted = true
		r.ModifiedAt = time.Now()
	}
	return nil
}

func (s *Store) GetSeries(_ context.Context, sid string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.series[sid]
	if !ok {
		return "", fmt.Errorf("series %q: %w", sid, object.ErrNotFound)
	}
	return pid, nil
}

func (s *Store) ListObjects(_ context.Context, filter *object.ListFilter) ([]*object.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*object.Record, 0, len(s.objects))
	for _, r := range s.objects {
		if r.Deleted && (filter == nil || !filter.IncludeDeleted) {
			continue
		}
		if filter != nil {
			if filter.FormatID != "" && r.FormatID != filter.FormatID {
				continue
			}
			if filter.RightsHolder != "" && r.RightsHolder != filter.RightsHolder {
				continue
			}
			if filter.Submitter != "" && r.Submitter != filter.Submitter {
				continue
			}
			if filter.SeriesID != "" && r.SeriesID != filter.SeriesID {
				continue
			}
			if filter.ModifiedAfter != nil && !r.ModifiedAt.After(*filter.ModifiedAfter) {
				continue
			}
			if filter.ModifiedBefore != nil && !r.ModifiedAt.Before(*filter.ModifiedBefore) {
				continue
			}
		}
		result = append(result, copyObject(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PID < result[j].PID })
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountObjects(ctx context.Context, filter *object.ListFilter) (int64, error) {
	var f object.ListFilter
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = 0, 0
	list, err := s.ListObjects(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// Policy Store
// ──────────────────────────────────────────────────

func (s *Store) SetAccessPolicy(_ context.Context, pid string, rules []policy.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(rules) == 0 {
		delete(s.rules, pid)
		return nil
	}
	next := make([]policy.Rule, len(rules))
	for i := range rules {
		next[i] = copyRule(rules[i])
		next[i].PID = pid
	}
	s.rules[pid] = next
	return nil
}

func (s *Store) GetAccessPolicy(_ context.Context, pid string) ([]policy.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.rules[pid]
	result := make([]policy.Rule, len(stored))
	for i := range stored {
		result[i] = copyRule(stored[i])
	}
	return result, nil
}

func (s *Store) DeleteAccessPolicy(_ context.Context, pid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, pid)
	return nil
}

func (s *Store) ListRules(_ context.Context, filter *policy.ListFilter) ([]policy.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []policy.Rule
	for pid, rules := range s.rules {
		if filter != nil && filter.PID != "" && pid != filter.PID {
			continue
		}
		for _, r := range rules {
			if filter != nil && filter.Subject != "" && !ruleNames(r, filter.Subject) {
				continue
			}
			result = append(result, copyRule(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PID != result[j].PID {
			return result[i].PID < result[j].PID
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return applyPagination(result, paginationOptsPolicy(filter)), nil
}

func (s *Store) CountRules(ctx context.Context, filter *policy.ListFilter) (int64, error) {
	var f policy.ListFilter
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = 0, 0
	list, err := s.ListRules(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// Replica Store
// ──────────────────────────────────────────────────

func replicaKey(pid, nodeID string) string { return pid + "\x00" + nodeID }

func (s *Store) RegisterReplica(_ context.Context, r *replica.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := replicaKey(r.PID, r.NodeID)
	if _, ok := s.replicas[key]; ok {
		return fmt.Errorf("replica %q on %q: %w", r.PID, r.NodeID, replica.ErrDuplicate)
	}
	if r.ID.IsNil() {
		r.ID = id.NewReplicaID()
	}
	s.replicas[key] = copyReplica(r)
	return nil
}

func (s *Store) GetReplica(_ context.Context, pid, nodeID string) (*replica.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.replicas[replicaKey(pid, nodeID)]
	if !ok {
		return nil, fmt.Errorf("replica %q on %q: %w", pid, nodeID, replica.ErrNotFound)
	}
	return copyReplica(r), nil
}

func (s *Store) UpdateReplicaStatus(_ context.Context, pid, nodeID string, status replica.Status, verifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.replicas[replicaKey(pid, nodeID)]
	if !ok {
		return fmt.Errorf("replica %q on %q: %w", pid, nodeID, replica.ErrNotFound)
	}
	if !replica.CanTransition(r.Status, status) {
		return fmt.Errorf("replica %q on %q: %s -> %s: %w",
			pid, nodeID, r.Status, status, replica.ErrInvalidStatusTransition)
	}
	r.Status = status
	r.LastVerified = verifiedAt
	r.UpdatedAt = verifiedAt
	return nil
}

func (s *Store) ListReplicas(_ context.Context, filter *replica.ListFilter) ([]*replica.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*replica.Record, 0, len(s.replicas))
	for _, r := range s.replicas {
		if filter != nil {
			if filter.PID != "" && r.PID != filter.PID {
				continue
			}
			if filter.NodeID != "" && r.NodeID != filter.NodeID {
				continue
			}
			if filter.Status != "" && r.Status != filter.Status {
				continue
			}
			if filter.VerifiedAfter != nil && !r.LastVerified.After(*filter.VerifiedAfter) {
				continue
			}
			if filter.VerifiedBefore != nil && !r.LastVerified.Before(*filter.VerifiedBefore) {
				continue
			}
		}
		result = append(result, copyReplica(r))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PID != result[j].PID {
			return result[i].PID < result[j].PID
		}
		return result[i].NodeID < result[j].NodeID
	})
	return applyPagination(result, paginationOptsReplica(filter)), nil
}

func (s *Store) CountReplicas(ctx context.Context, filter *replica.ListFilter) (int64, error) {
	var f replica.ListFilter
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = 0, 0
	list, err := s.ListReplicas(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListReplicasByObject(ctx context.Context, pid string) ([]*replica.Record, error) {
	return s.ListReplicas(ctx, &replica.ListFilter{PID: pid})
}

func (s *Store) DeleteReplicasByObject(_ context.Context, pid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, r := range s.replicas {
		if r.PID == pid {
			delete(s.replicas, key)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Event Log Store
// ──────────────────────────────────────────────────

func (s *Store) CreateEvent(_ context.Context, e *eventlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID.IsNil() {
		e.ID = id.NewEventID()
	}
	s.events[e.ID.String()] = copyEvent(e)
	return nil
}

func (s *Store) GetEvent(_ context.Context, eventID id.EventID) (*eventlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID.String()]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, object.ErrNotFound)
	}
	return copyEvent(e), nil
}

func (s *Store) ListEvents(_ context.Context, filter *eventlog.QueryFilter) ([]*eventlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*eventlog.Entry, 0, len(s.events))
	for _, e := range s.events {
		if filter != nil {
			if filter.PID != "" && e.PID != filter.PID {
				continue
			}
			if filter.NodeID != "" && e.NodeID != filter.NodeID {
				continue
			}
			if filter.Type != "" && e.Type != filter.Type {
				continue
			}
			if filter.Subject != "" && e.Subject != filter.Subject {
				continue
			}
			if filter.After != nil && !e.CreatedAt.After(*filter.After) {
				continue
			}
			if filter.Before != nil && !e.CreatedAt.Before(*filter.Before) {
				continue
			}
		}
		result = append(result, copyEvent(e))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return applyPagination(result, paginationOptsEvent(filter)), nil
}

func (s *Store) CountEvents(ctx context.Context, filter *eventlog.QueryFilter) (int64, error) {
	var f eventlog.QueryFilter
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = 0, 0
	list, err := s.ListEvents(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) PurgeEvents(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for key, e := range s.events {
		if e.CreatedAt.Before(before) {
			delete(s.events, key)
			purged++
		}
	}
	return purged, nil
}

func (s *Store) DeleteEventsByObject(_ context.Context, pid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.events {
		if e.PID == pid {
			delete(s.events, key)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyObject(r *object.Record) *object.Record {
	c := *r
	return &c
}

func copyRule(r policy.Rule) policy.Rule {
	c := r
	c.Subjects = append([]string(nil), r.Subjects...)
	return c
}

func copyReplica(r *replica.Record) *replica.Record {
	c := *r
	return &c
}

func copyEvent(e *eventlog.Entry) *eventlog.Entry {
	c := *e
	return &c
}

func ruleNames(r policy.Rule, subject string) bool {
	for _, s := range r.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

type pagOpts struct{ limit, offset int }

func paginationOpts(f *object.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsPolicy(f *policy.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsReplica(f *replica.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsEvent(f *eventlog.QueryFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func applyPagination[T any](items []T, p pagOpts) []T {
	if p.offset > 0 {
		if p.offset >= len(items) {
			return items[:0]
		}
		items = items[p.offset:]
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
