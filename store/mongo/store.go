// Package mongo provides a MongoDB implementation of the Warrant store
// backed by Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/datafed/warrant/eventlog"
	"github.com/datafed/warrant/id"
	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/policy"
	"github.com/datafed/warrant/replica"
	"github.com/datafed/warrant/store"
)

// Collection name constants.
const (
	colObjects  = "warrant_objects"
	colSeries   = "warrant_series"
	colRules    = "warrant_access_rules"
	colReplicas = "warrant_replicas"
	colEvents   = "warrant_events"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite Warrant store.
//
// Obsolete and UpdateReplicaStatus rely on guarded single-document
// updates: the filter carries the expected prior state and a zero
// matched count means another writer got there first.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all warrant collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("warrant/mongo: migrate %s indexes: %w", col, err)
		}
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

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all warrant collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colObjects: {
			{Keys: bson.D{{Key: "series_id", Value: 1}}},
			{Keys: bson.D{{Key: "format_id", Value: 1}}},
			{Keys: bson.D{{Key: "rights_holder", Value: 1}}},
			{Keys: bson.D{{Key: "modified_at", Value: 1}}},
		},
		colSeries: {
			{Keys: bson.D{{Key: "pid", Value: 1}}},
		},
		colRules: {
			{Keys: bson.D{{Key: "pid", Value: 1}}},
			{Keys: bson.D{{Key: "subjects", Value: 1}}},
		},
		colReplicas: {
			{
				Keys:    bson.D{{Key: "pid", Value: 1}, {Key: "node_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "last_verified", Value: 1}}},
		},
		colEvents: {
			{Keys: bson.D{{Key: "pid", Value: 1}}},
			{Keys: bson.D{{Key: "type", Value: 1}}},
			{Keys: bson.D{{Key: "subject", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Object operations
// ──────────────────────────────────────────────────

func (s *Store) CreateObject(ctx context.Context, r *object.Record) error {
	count, err := s.mdb.NewFind((*objectModel)(nil)).
		Filter(bson.M{"_id": r.PID}).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("warrant: create object: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("pid %q: %w", r.PID, object.ErrIdentifierConflict)
	}

	if r.SeriesID != "" {
		taken, err := s.mdb.NewFind((*seriesModel)(nil)).
			Filter(bson.M{"_id": r.SeriesID, "pid": bson.M{"$ne": r.PID}}).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("warrant: create object: %w", err)
		}
		if taken > 0 {
			return fmt.Errorf("sid %q already bound: %w", r.SeriesID, object.ErrIdentifierConflict)
		}
		if err := s.bindSeries(ctx, r.SeriesID, r.PID); err != nil {
			return fmt.Errorf("warrant: bind series: %w", err)
		}
	}

	if _, err := s.mdb.NewInsert(objectToModel(r)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("pid %q: %w", r.PID, object.ErrIdentifierConflict)
		}
		return fmt.Errorf("warrant: create object: %w", err)
	}
	return nil
}

func (s *Store) GetObject(ctx context.Context, pid string) (*object.Record, error) {
	var m objectModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": pid}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("object %q: %w", pid, object.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get object: %w", err)
	}
	return objectFromModel(&m), nil
}

func (s *Store) Obsolete(ctx context.Context, oldPID string, successor *object.Record) error {
	old, err := s.GetObject(ctx, oldPID)
	if err != nil {
		return err
	}
	if old.Deleted {
		return fmt.Errorf("object %q: %w", oldPID, object.ErrNotFound)
	}

	count, err := s.mdb.NewFind((*objectModel)(nil)).
		Filter(bson.M{"_id": successor.PID}).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("warrant: obsolete object: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("pid %q: %w", successor.PID, object.ErrIdentifierConflict)
	}

	if successor.SeriesID != "" {
		taken, err := s.mdb.NewFind((*seriesModel)(nil)).
			Filter(bson.M{
				"_id": successor.SeriesID,
				"pid": bson.M{"$nin": bson.A{oldPID, successor.PID}},
			}).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("warrant: obsolete object: %w", err)
		}
		if taken > 0 {
			return fmt.Errorf("sid %q already bound: %w", successor.SeriesID, object.ErrIdentifierConflict)
		}
	}

	// Guarded update is the check-and-set: the filter requires the old
	// record to still be unobsoleted and live, so of two concurrent
	// updates exactly one matches.
	old.ObsoletedBy = successor.PID
	old.ModifiedAt = successor.CreatedAt
	res, err := s.mdb.NewUpdate(objectToModel(old)).
		Filter(bson.M{"_id": oldPID, "obsoleted_by": "", "deleted": false}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: obsolete object: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("object %q: %w", oldPID, object.ErrAlreadyObsoleted)
	}

	if _, err := s.mdb.NewInsert(objectToModel(successor)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("pid %q: %w", successor.PID, object.ErrIdentifierConflict)
		}
		return fmt.Errorf("warrant: insert successor: %w", err)
	}

	if successor.SeriesID != "" {
		if err := s.bindSeries(ctx, successor.SeriesID, successor.PID); err != nil {
			return fmt.Errorf("warrant: rebind series: %w", err)
		}
	}
	return nil
}

func (s *Store) SetArchived(ctx context.Context, pid string) error {
	rec, err := s.GetObject(ctx, pid)
	if err != nil {
		return err
	}
	if rec.Deleted {
		return fmt.Errorf("object %q: %w", pid, object.ErrNotFound)
	}
	rec.Archived = true
	rec.ModifiedAt = now()
	res, err := s.mdb.NewUpdate(objectToModel(rec)).
		Filter(bson.M{"_id": pid, "deleted": false}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: archive object: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("object %q: %w", pid, object.ErrNotFound)
	}
	return nil
}

func (s *Store) Tombstone(ctx context.Context, pid string) error {
	rec, err := s.GetObject(ctx, pid)
	if err != nil {
		return err
	}
	if rec.Deleted {
		return nil
	}
	rec.Deleted = true
	rec.ModifiedAt = now()
	res, err := s.mdb.NewUpdate(objectToModel(rec)).
		Filter(bson.M{"_id": pid}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: tombstone object: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("object %q: %w", pid, object.ErrNotFound)
	}
	return nil
}

func (s *Store) GetSeries(ctx context.Context, sid string) (string, error) {
	var m seriesModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": sid}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return "", fmt.Errorf("series %q: %w", sid, object.ErrNotFound)
		}
		return "", fmt.Errorf("warrant: get series: %w", err)
	}
	return m.PID, nil
}

func (s *Store) ListObjects(ctx context.Context, filter *object.ListFilter) ([]*object.Record, error) {
	var models []objectModel
	q := s.mdb.NewFind(&models).
		Filter(objectFilterDoc(filter)).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*objectModel)(nil)).
		Filter(objectFilterDoc(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count objects: %w", err)
	}
	return count, nil
}

func objectFilterDoc(filter *object.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil || !filter.IncludeDeleted {
		f["deleted"] = false
	}
	if filter == nil {
		return f
	}
	if filter.FormatID != "" {
		f["format_id"] = filter.FormatID
	}
	if filter.RightsHolder != "" {
		f["rights_holder"] = filter.RightsHolder
	}
	if filter.Submitter != "" {
		f["submitter"] = filter.Submitter
	}
	if filter.SeriesID != "" {
		f["series_id"] = filter.SeriesID
	}
	if filter.ModifiedAfter != nil || filter.ModifiedBefore != nil {
		m := bson.M{}
		if filter.ModifiedAfter != nil {
			m["$gte"] = *filter.ModifiedAfter
		}
		if filter.ModifiedBefore != nil {
			m["$lt"] = *filter.ModifiedBefore
		}
		f["modified_at"] = m
	}
	return f
}

// bindSeries points a series ID at a PID, inserting the binding when it
// does not exist yet.
func (s *Store) bindSeries(ctx context.Context, sid, pid string) error {
	m := &seriesModel{SID: sid, PID: pid}
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": sid}).
		Exec(ctx)
	if err != nil {
		return err
	}
	if res.MatchedCount() == 0 {
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil && !mongod.IsDuplicateKeyError(err) {
			return err
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Access policy operations
// ──────────────────────────────────────────────────

func (s *Store) SetAccessPolicy(ctx context.Context, pid string, rules []policy.Rule) error {
	// Delete all existing rules for the object.
	_, err := s.mdb.NewDelete((*ruleModel)(nil)).
		Many().
		Filter(bson.M{"pid": pid}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: clear access policy: %w", err)
	}

	// Insert the replacement rule set.
	if len(rules) > 0 {
		models := make([]ruleModel, len(rules))
		for i := range rules {
			rules[i].PID = pid
			models[i] = *ruleToModel(&rules[i])
		}
		if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("warrant: set access policy: %w", err)
		}
	}
	return nil
}

func (s *Store) GetAccessPolicy(ctx context.Context, pid string) ([]policy.Rule, error) {
	var models []ruleModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"pid": pid}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: get access policy: %w", err)
	}
	result := make([]policy.Rule, len(models))
	for i := range models {
		result[i] = ruleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteAccessPolicy(ctx context.Context, pid string) error {
	_, err := s.mdb.NewDelete((*ruleModel)(nil)).
		Many().
		Filter(bson.M{"pid": pid}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: delete access policy: %w", err)
	}
	return nil
}

func (s *Store) ListRules(ctx context.Context, filter *policy.ListFilter) ([]policy.Rule, error) {
	var models []ruleModel
	q := s.mdb.NewFind(&models).
		Filter(ruleFilterDoc(filter)).
		Sort(bson.D{{Key: "pid", Value: 1}, {Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*ruleModel)(nil)).
		Filter(ruleFilterDoc(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count rules: %w", err)
	}
	return count, nil
}

func ruleFilterDoc(filter *policy.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.PID != "" {
		f["pid"] = filter.PID
	}
	if filter.Subject != "" {
		// Array equality matches membership for array-valued fields.
		f["subjects"] = filter.Subject
	}
	return f
}

// ──────────────────────────────────────────────────
// Replica operations
// ──────────────────────────────────────────────────

func (s *Store) RegisterReplica(ctx context.Context, r *replica.Record) error {
	if r.ID.IsNil() {
		r.ID = id.NewReplicaID()
	}
	if _, err := s.mdb.NewInsert(replicaToModel(r)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("replica %s@%s: %w", r.PID, r.NodeID, replica.ErrDuplicate)
		}
		return fmt.Errorf("warrant: register replica: %w", err)
	}
	return nil
}

func (s *Store) GetReplica(ctx context.Context, pid, nodeID string) (*replica.Record, error) {
	var m replicaModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"pid": pid, "node_id": nodeID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("replica %s@%s: %w", pid, nodeID, replica.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get replica: %w", err)
	}
	return replicaFromModel(&m), nil
}

func (s *Store) UpdateReplicaStatus(ctx context.Context, pid, nodeID string, status replica.Status, verifiedAt time.Time) error {
	rec, err := s.GetReplica(ctx, pid, nodeID)
	if err != nil {
		return err
	}
	if !replica.CanTransition(rec.Status, status) {
		return fmt.Errorf("%s -> %s: %w", rec.Status, status, replica.ErrInvalidStatusTransition)
	}

	prior := rec.Status
	rec.Status = status
	rec.LastVerified = verifiedAt
	rec.UpdatedAt = verifiedAt
	res, err := s.mdb.NewUpdate(replicaToModel(rec)).
		Filter(bson.M{"_id": rec.ID.String(), "status": string(prior)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: update replica status: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("%s -> %s: concurrent transition: %w", prior, status, replica.ErrInvalidStatusTransition)
	}
	return nil
}

func (s *Store) ListReplicas(ctx context.Context, filter *replica.ListFilter) ([]*replica.Record, error) {
	var models []replicaModel
	q := s.mdb.NewFind(&models).
		Filter(replicaFilterDoc(filter)).
		Sort(bson.D{{Key: "pid", Value: 1}, {Key: "node_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*replicaModel)(nil)).
		Filter(replicaFilterDoc(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count replicas: %w", err)
	}
	return count, nil
}

func (s *Store) ListReplicasByObject(ctx context.Context, pid string) ([]*replica.Record, error) {
	var models []replicaModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"pid": pid}).
		Sort(bson.D{{Key: "node_id", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list object replicas: %w", err)
	}
	result := make([]*replica.Record, len(models))
	for i := range models {
		result[i] = replicaFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteReplicasByObject(ctx context.Context, pid string) error {
	_, err := s.mdb.NewDelete((*replicaModel)(nil)).
		Many().
		Filter(bson.M{"pid": pid}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: delete object replicas: %w", err)
	}
	return nil
}

func replicaFilterDoc(filter *replica.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.PID != "" {
		f["pid"] = filter.PID
	}
	if filter.NodeID != "" {
		f["node_id"] = filter.NodeID
	}
	if filter.Status != "" {
		f["status"] = string(filter.Status)
	}
	if filter.VerifiedAfter != nil || filter.VerifiedBefore != nil {
		v := bson.M{}
		if filter.VerifiedAfter != nil {
			v["$gte"] = *filter.VerifiedAfter
		}
		if filter.VerifiedBefore != nil {
			v["$lt"] = *filter.VerifiedBefore
		}
		f["last_verified"] = v
	}
	return f
}

// ──────────────────────────────────────────────────
// Event log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateEvent(ctx context.Context, e *eventlog.Entry) error {
	if _, err := s.mdb.NewInsert(eventToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("warrant: create event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, eventID id.EventID) (*eventlog.Entry, error) {
	var m eventModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": eventID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("event %s: %w", eventID, object.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get event: %w", err)
	}
	return eventFromModel(&m), nil
}

func (s *Store) ListEvents(ctx context.Context, filter *eventlog.QueryFilter) ([]*eventlog.Entry, error) {
	var models []eventModel
	q := s.mdb.NewFind(&models).
		Filter(eventFilterDoc(filter)).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*eventModel)(nil)).
		Filter(eventFilterDoc(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count events: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*eventModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: purge events: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteEventsByObject(ctx context.Context, pid string) error {
	_, err := s.mdb.NewDelete((*eventModel)(nil)).
		Many().
		Filter(bson.M{"pid": pid}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: delete object events: %w", err)
	}
	return nil
}

func eventFilterDoc(filter *eventlog.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.PID != "" {
		f["pid"] = filter.PID
	}
	if filter.NodeID != "" {
		f["node_id"] = filter.NodeID
	}
	if filter.Type != "" {
		f["type"] = string(filter.Type)
	}
	if filter.Subject != "" {
		f["subject"] = filter.Subject
	}
	if filter.After != nil || filter.Before != nil {
		c := bson.M{}
		if filter.After != nil {
			c["$gte"] = *filter.After
		}
		if filter.Before != nil {
			c["$lt"] = *filter.Before
		}
		f["created_at"] = c
	}
	return f
}
