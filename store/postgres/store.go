// Package postgres provides a PostgreSQL implementation of the Warrant
// composite store, backed by the grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/datafed/warrant/eventlog"
	"github.com/datafed/warrant/id"
	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/policy"
	"github.com/datafed/warrant/replica"
	"github.com/datafed/warrant/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a PostgreSQL implementation of the composite Warrant store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("warrant/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("warrant/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ──────────────────────────────────────────────────
// Object operations
// ──────────────────────────────────────────────────

func (s *Store) CreateObject(ctx context.Context, r *object.Record) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("warrant: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	n, err := tx.NewSelect((*objectModel)(nil)).Where("pid = ?", r.PID).Count(ctx)
	if err != nil {
		return fmt.Errorf("warrant: create object: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("object %q: %w", r.PID, object.ErrIdentifierConflict)
	}

	if r.SeriesID != "" {
		n, err = tx.NewSelect((*seriesModel)(nil)).Where("sid = ?", r.SeriesID).Count(ctx)
		if err != nil {
			return fmt.Errorf("warrant: create object: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("series %q: %w", r.SeriesID, object.ErrIdentifierConflict)
		}
		sm := &seriesModel{SID: r.SeriesID, PID: r.PID}
		if _, err := tx.NewInsert(sm).Exec(ctx); err != nil {
			return fmt.Errorf("warrant: bind series: %w", err)
		}
	}

	if _, err := tx.NewInsert(objectToModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("warrant: create object: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("warrant: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetObject(ctx context.Context, pid string) (*object.Record, error) {
	m := new(objectModel)
	err := s.pgdb.NewSelect(m).Where("pid = ?", pid).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("object %q: %w", pid, object.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get object: %w", err)
	}
	return objectFromModel(m), nil
}

func (s *Store) Obsolete(ctx context.Context, oldPID string, successor *object.Record) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("warrant: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	old := new(objectModel)
	if err := tx.NewSelect(old).Where("pid = ?", oldPID).Scan(ctx); err != nil {
		if isNoRows(err) {
			return fmt.Errorf("object %q: %w", oldPID, object.ErrNotFound)
		}
		return fmt.Errorf("warrant: obsolete object: %w", err)
	}
	if old.Deleted {
		return fmt.Errorf("object %q: %w", oldPID, object.ErrNotFound)
	}

	n, err := tx.NewSelect((*objectModel)(nil)).Where("pid = ?", successor.PID).Count(ctx)
	if err != nil {
		return fmt.Errorf("warrant: obsolete object: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("object %q: %w", successor.PID, object.ErrIdentifierConflict)
	}

	// Guarded update is the check-and-set: a concurrent update that won
	// the race leaves zero rows to match here.
	res, err := tx.NewUpdate((*objectModel)(nil)).
		Set("obsoleted_by = ?", successor.PID).
		Set("modified_at = ?", successor.CreatedAt).
		Where("pid = ?", oldPID).
		Where("obsoleted_by = ''").
		Where("deleted = ?", false).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: obsolete object: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("warrant: obsolete object rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("object %q: %w", oldPID, object.ErrAlreadyObsoleted)
	}

	if _, err := tx.NewInsert(objectToModel(successor)).Exec(ctx); err != nil {
		return fmt.Errorf("warrant: insert successor: %w", err)
	}

	if sid := successor.SeriesID; sid != "" {
		bound := new(seriesModel)
		err := tx.NewSelect(bound).Where("sid = ?", sid).Scan(ctx)
		switch {
		case err != nil && !isNoRows(err):
			return fmt.Errorf("warrant: rebind series: %w", err)
		case err == nil && bound.PID != oldPID:
			return fmt.Errorf("series %q bound to %q: %w", sid, bound.PID, object.ErrIdentifierConflict)
		}
		sm := &seriesModel{SID: sid, PID: successor.PID}
		if _, err := tx.NewInsert(sm).
			OnConflict("(sid) DO UPDATE SET pid = EXCLUDED.pid").
			Exec(ctx); err != nil {
			return fmt.Errorf("warrant: rebind series: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("warrant: commit tx: %w", err)
	}
	return nil
}

func (s *Store) SetArchived(ctx context.Context, pid string) error {
	res, err := s.pgdb.NewUpdate((*objectModel)(nil)).
		Set("archived = ?", true).
		Set("modified_at = ?", time.Now().UTC()).
		Where("pid = ?", pid).
		Where("deleted = ?", false).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: set archived: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("warrant: set archived rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("object %q: %w", pid, object.ErrNotFound)
	}
	return nil
}

func (s *Store) Tombstone(ctx context.Context, pid string) error {
	res, err := s.pgdb.NewUpdate((*objectModel)(nil)).
		Set("deleted = ?", true).
		Set("modified_at = ?", time.Now().UTC()).
		Where("pid = ?", pid).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: tombstone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("warrant: tombstone rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("object %q: %w", pid, object.ErrNotFound)
	}
	return nil
}

func (s *Store) GetSeries(ctx context.Context, sid string) (string, error) {
	m := new(seriesModel)
	err := s.pgdb.NewSelect(m).Where("sid = ?", sid).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("series %q: %w", sid, object.ErrNotFound)
		}
		return "", fmt.Errorf("warrant: get series: %w", err)
	}
	return m.PID, nil
}

func applyObjectFilter[Q interface {
	Where(string, ...any) Q
}](q Q, filter *object.ListFilter) Q {
	if filter == nil || !filter.IncludeDeleted {
		q = q.Where("deleted = ?", false)
	}
	if filter != nil {
		if filter.FormatID != "" {
			q = q.Where("format_id = ?", filter.FormatID)
		}
		if filter.RightsHolder != "" {
			q = q.Where("rights_holder = ?", filter.RightsHolder)
		}
		if filter.Submitter != "" {
			q = q.Where("submitter = ?", filter.Submitter)
		}
		if filter.SeriesID != "" {
			q = q.Where("series_id = ?", filter.SeriesID)
		}
		if filter.ModifiedAfter != nil {
			q = q.Where("modified_at > ?", *filter.ModifiedAfter)
		}
		if filter.ModifiedBefore != nil {
			q = q.Where("modified_at < ?", *filter.ModifiedBefore)
		}
	}
	return q
}

func (s *Store) ListObjects(ctx context.Context, filter *object.ListFilter) ([]*object.Record, error) {
	var models []objectModel
	q := s.pgdb.NewSelect(&models).OrderExpr("pid ASC")
	q = applyObjectFilter(q, filter)
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list objects: %w", err)
	}
	result := make([]*object.Record, len(models))
	for i := range models {
		result[i] = objectFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountObjects(ctx context.Context, filter *object.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*objectModel)(nil))
	q = applyObjectFilter(q, filter)
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count objects: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Policy operations
// ──────────────────────────────────────────────────

func (s *Store) SetAccessPolicy(ctx context.Context, pid string, rules []policy.Rule) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("warrant: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	_, err = tx.NewDelete((*ruleModel)(nil)).
		Where("pid = ?", pid).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: clear access policy: %w", err)
	}

	if len(rules) > 0 {
		models := make([]ruleModel, len(rules))
		for i := range rules {
			rules[i].PID = pid
			models[i] = *ruleToModel(&rules[i])
		}
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("warrant: set access policy: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("warrant: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetAccessPolicy(ctx context.Context, pid string) ([]policy.Rule, error) {
	var models []ruleModel
	err := s.pgdb.NewSelect(&models).
		Where("pid = ?", pid).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("warrant: get access policy: %w", err)
	}
	result := make([]policy.Rule, len(models))
	for i := range models {
		result[i] = ruleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteAccessPolicy(ctx context.Context, pid string) error {
	_, err := s.pgdb.NewDelete((*ruleModel)(nil)).
		Where("pid = ?", pid).Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: delete access policy: %w", err)
	}
	return nil
}

func (s *Store) ListRules(ctx context.Context, filter *policy.ListFilter) ([]policy.Rule, error) {
	var models []ruleModel
	q := s.pgdb.NewSelect(&models).OrderExpr("pid ASC, id ASC")
	q = applyRuleFilter(q, filter)
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list rules: %w", err)
	}
	result := make([]policy.Rule, len(models))
	for i := range models {
		result[i] = ruleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRules(ctx context.Context, filter *policy.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*ruleModel)(nil))
	q = applyRuleFilter(q, filter)
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count rules: %w", err)
	}
	return count, nil
}

// applyRuleFilter pushes rule filters into SQL. Subject membership uses
// jsonb containment, served by the GIN index on the subjects column.
func applyRuleFilter[Q interface {
	Where(string, ...any) Q
}](q Q, filter *policy.ListFilter) Q {
	if filter == nil {
		return q
	}
	if filter.PID != "" {
		q = q.Where("pid = ?", filter.PID)
	}
	if filter.Subject != "" {
		subject, _ := json.Marshal([]string{filter.Subject}) //nolint:errcheck // string slices always marshal
		q = q.Where("subjects @> ?", string(subject))
	}
	return q
}

// ──────────────────────────────────────────────────
// Replica operations
// ──────────────────────────────────────────────────

func (s *Store) RegisterReplica(ctx context.Context, r *replica.Record) error {
	if r.ID.IsNil() {
		r.ID = id.NewReplicaID()
	}
	n, err := s.pgdb.NewSelect((*replicaModel)(nil)).
		Where("pid = ?", r.PID).
		Where("node_id = ?", r.NodeID).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("warrant: register replica: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("replica %q on %q: %w", r.PID, r.NodeID, replica.ErrDuplicate)
	}
	if _, err := s.pgdb.NewInsert(replicaToModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("warrant: register replica: %w", err)
	}
	return nil
}

func (s *Store) GetReplica(ctx context.Context, pid, nodeID string) (*replica.Record, error) {
	m := new(replicaModel)
	err := s.pgdb.NewSelect(m).
		Where("pid = ?", pid).
		Where("node_id = ?", nodeID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("replica %q on %q: %w", pid, nodeID, replica.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get replica: %w", err)
	}
	return replicaFromModel(m), nil
}

func (s *Store) UpdateReplicaStatus(ctx context.Context, pid, nodeID string, status replica.Status, verifiedAt time.Time) error {
	cur, err := s.GetReplica(ctx, pid, nodeID)
	if err != nil {
		return err
	}
	if !replica.CanTransition(cur.Status, status) {
		return fmt.Errorf("replica %q on %q: %s -> %s: %w",
			pid, nodeID, cur.Status, status, replica.ErrInvalidStatusTransition)
	}

	// Guarding on the observed status makes the transition atomic: if a
	// concurrent writer moved the replica first, zero rows match.
	res, err := s.pgdb.NewUpdate((*replicaModel)(nil)).
		Set("status = ?", string(status)).
		Set("last_verified = ?", verifiedAt).
		Set("updated_at = ?", verifiedAt).
		Where("pid = ?", pid).
		Where("node_id = ?", nodeID).
		Where("status = ?", string(cur.Status)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: update replica status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("warrant: update replica status rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("replica %q on %q: concurrent transition: %w",
			pid, nodeID, replica.ErrInvalidStatusTransition)
	}
	return nil
}

func applyReplicaFilter[Q interface {
	Where(string, ...any) Q
}](q Q, filter *replica.ListFilter) Q {
	if filter == nil {
		return q
	}
	if filter.PID != "" {
		q = q.Where("pid = ?", filter.PID)
	}
	if filter.NodeID != "" {
		q = q.Where("node_id = ?", filter.NodeID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.VerifiedAfter != nil {
		q = q.Where("last_verified > ?", *filter.VerifiedAfter)
	}
	if filter.VerifiedBefore != nil {
		q = q.Where("last_verified < ?", *filter.VerifiedBefore)
	}
	return q
}

func (s *Store) ListReplicas(ctx context.Context, filter *replica.ListFilter) ([]*replica.Record, error) {
	var models []replicaModel
	q := s.pgdb.NewSelect(&models).OrderExpr("pid ASC, node_id ASC")
	q = applyReplicaFilter(q, filter)
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list replicas: %w", err)
	}
	result := make([]*replica.Record, len(models))
	for i := range models {
		result[i] = replicaFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountReplicas(ctx context.Context, filter *replica.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*replicaModel)(nil))
	q = applyReplicaFilter(q, filter)
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count replicas: %w", err)
	}
	return count, nil
}

func (s *Store) ListReplicasByObject(ctx context.Context, pid string) ([]*replica.Record, error) {
	return s.ListReplicas(ctx, &replica.ListFilter{PID: pid})
}

func (s *Store) DeleteReplicasByObject(ctx context.Context, pid string) error {
	_, err := s.pgdb.NewDelete((*replicaModel)(nil)).
		Where("pid = ?", pid).Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: delete replicas by object: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Event log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateEvent(ctx context.Context, e *eventlog.Entry) error {
	if e.ID.IsNil() {
		e.ID = id.NewEventID()
	}
	if _, err := s.pgdb.NewInsert(eventToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("warrant: create event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, eventID id.EventID) (*eventlog.Entry, error) {
	m := new(eventModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", eventID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("event %s: %w", eventID, object.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get event: %w", err)
	}
	return eventFromModel(m), nil
}

func applyEventFilter[Q interface {
	Where(string, ...any) Q
}](q Q, filter *eventlog.QueryFilter) Q {
	if filter == nil {
		return q
	}
	if filter.PID != "" {
		q = q.Where("pid = ?", filter.PID)
	}
	if filter.NodeID != "" {
		q = q.Where("node_id = ?", filter.NodeID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}
	if filter.Subject != "" {
		q = q.Where("subject = ?", filter.Subject)
	}
	if filter.After != nil {
		q = q.Where("created_at > ?", *filter.After)
	}
	if filter.Before != nil {
		q = q.Where("created_at < ?", *filter.Before)
	}
	return q
}

func (s *Store) ListEvents(ctx context.Context, filter *eventlog.QueryFilter) ([]*eventlog.Entry, error) {
	var models []eventModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC, id ASC")
	q = applyEventFilter(q, filter)
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list events: %w", err)
	}
	result := make([]*eventlog.Entry, len(models))
	for i := range models {
		result[i] = eventFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountEvents(ctx context.Context, filter *eventlog.QueryFilter) (int64, error) {
	q := s.pgdb.NewSelect((*eventModel)(nil))
	q = applyEventFilter(q, filter)
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count events: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pgdb.NewDelete((*eventModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: purge events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("warrant: purge events rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteEventsByObject(ctx context.Context, pid string) error {
	_, err := s.pgdb.NewDelete((*eventModel)(nil)).
		Where("pid = ?", pid).Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: delete events by object: %w", err)
	}
	return nil
}
