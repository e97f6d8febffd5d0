package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/datafed/warrant/eventlog"
	"github.com/datafed/warrant/id"
	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/policy"
	"github.com/datafed/warrant/replica"
)

// ──────────────────────────────────────────────────
// Object model
// ──────────────────────────────────────────────────

type objectModel struct {
	grove.BaseModel   `grove:"table:warrant_objects"`
	PID               string    `grove:"pid,pk"             bson:"_id"`
	SeriesID          string    `grove:"series_id"          bson:"series_id"`
	FormatID          string    `grove:"format_id"          bson:"format_id"`
	ChecksumAlgorithm string    `grove:"checksum_algorithm" bson:"checksum_algorithm"`
	ChecksumValue     string    `grove:"checksum_value"     bson:"checksum_value"`
	Size              int64     `grove:"size"               bson:"size"`
	Submitter         string    `grove:"submitter"          bson:"submitter"`
	RightsHolder      string    `grove:"rights_holder"      bson:"rights_holder"`
	OriginNode        string    `grove:"origin_node"        bson:"origin_node"`
	AuthoritativeNode string    `grove:"authoritative_node" bson:"authoritative_node"`
	SerialVersion     int64     `grove:"serial_version"     bson:"serial_version"`
	Obsoletes         string    `grove:"obsoletes"          bson:"obsoletes"`
	ObsoletedBy       string    `grove:"obsoleted_by"       bson:"obsoleted_by"`
	Archived          bool      `grove:"archived"           bson:"archived"`
	Deleted           bool      `grove:"deleted"            bson:"deleted"`
	CreatedAt         time.Time `grove:"created_at"         bson:"created_at"`
	ModifiedAt        time.Time `grove:"modified_at"        bson:"modified_at"`
}

func objectToModel(r *object.Record) *objectModel {
	return &objectModel{
		PID:               r.PID,
		SeriesID:          r.SeriesID,
		FormatID:          r.FormatID,
		ChecksumAlgorithm: r.Checksum.Algorithm,
		ChecksumValue:     r.Checksum.Value,
		Size:              r.Size,
		Submitter:         r.Submitter,
		RightsHolder:      r.RightsHolder,
		OriginNode:        r.OriginNode,
		AuthoritativeNode: r.AuthoritativeNode,
		SerialVersion:     r.SerialVersion,
		Obsoletes:         r.Obsoletes,
		ObsoletedBy:       r.ObsoletedBy,
		Archived:          r.Archived,
		Deleted:           r.Deleted,
		CreatedAt:         r.CreatedAt,
		ModifiedAt:        r.ModifiedAt,
	}
}

func objectFromModel(m *objectModel) *object.Record {
	return &object.Record{
		PID:               m.PID,
		SeriesID:          m.SeriesID,
		FormatID:          m.FormatID,
		Checksum:          object.Checksum{Algorithm: m.ChecksumAlgorithm, Value: m.ChecksumValue},
		Size:              m.Size,
		Submitter:         m.Submitter,
		RightsHolder:      m.RightsHolder,
		OriginNode:        m.OriginNode,
		AuthoritativeNode: m.AuthoritativeNode,
		SerialVersion:     m.SerialVersion,
		Obsoletes:         m.Obsoletes,
		ObsoletedBy:       m.ObsoletedBy,
		Archived:          m.Archived,
		Deleted:           m.Deleted,
		CreatedAt:         m.CreatedAt,
		ModifiedAt:        m.ModifiedAt,
	}
}

// ──────────────────────────────────────────────────
// Series binding model
// ──────────────────────────────────────────────────

type seriesModel struct {
	grove.BaseModel `grove:"table:warrant_series"`
	SID             string `grove:"sid,pk" bson:"_id"`
	PID             string `grove:"pid"    bson:"pid"`
}

// ──────────────────────────────────────────────────
// Access rule model
// ──────────────────────────────────────────────────

type ruleModel struct {
	grove.BaseModel `grove:"table:warrant_access_rules"`
	ID              string    `grove:"id,pk"      bson:"_id"`
	PID             string    `grove:"pid"        bson:"pid"`
	Subjects        []string  `grove:"subjects"   bson:"subjects"`
	Permission      string    `grove:"permission" bson:"permission"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
}

func ruleToModel(r *policy.Rule) *ruleModel {
	return &ruleModel{
		ID:         r.ID.String(),
		PID:        r.PID,
		Subjects:   r.Subjects,
		Permission: string(r.Permission),
		CreatedAt:  r.CreatedAt,
	}
}

func ruleFromModel(m *ruleModel) policy.Rule {
	rid, _ := id.ParseRuleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return policy.Rule{
		ID:         rid,
		PID:        m.PID,
		Subjects:   m.Subjects,
		Permission: policy.Permission(m.Permission),
		CreatedAt:  m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Replica model
// ──────────────────────────────────────────────────

type replicaModel struct {
	grove.BaseModel `grove:"table:warrant_replicas"`
	ID              string    `grove:"id,pk"         bson:"_id"`
	PID             string    `grove:"pid"           bson:"pid"`
	NodeID          string    `grove:"node_id"       bson:"node_id"`
	Status          string    `grove:"status"        bson:"status"`
	LastVerified    time.Time `grove:"last_verified" bson:"last_verified"`
	CreatedAt       time.Time `grove:"created_at"    bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"    bson:"updated_at"`
}

func replicaToModel(r *replica.Record) *replicaModel {
	return &replicaModel{
		ID:           r.ID.String(),
		PID:          r.PID,
		NodeID:       r.NodeID,
		Status:       string(r.Status),
		LastVerified: r.LastVerified,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func replicaFromModel(m *replicaModel) *replica.Record {
	rid, _ := id.ParseReplicaID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &replica.Record{
		ID:           rid,
		PID:          m.PID,
		NodeID:       m.NodeID,
		Status:       replica.Status(m.Status),
		LastVerified: m.LastVerified,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Event log model
// ──────────────────────────────────────────────────

type eventModel struct {
	grove.BaseModel `grove:"table:warrant_events"`
	ID              string    `grove:"id,pk"      bson:"_id"`
	PID             string    `grove:"pid"        bson:"pid"`
	NodeID          string    `grove:"node_id"    bson:"node_id"`
	Type            string    `grove:"type"       bson:"type"`
	Subject         string    `grove:"subject"    bson:"subject"`
	Detail          string    `grove:"detail"     bson:"detail"`
	RequestIP       string    `grove:"request_ip" bson:"request_ip"`
	UserAgent       string    `grove:"user_agent" bson:"user_agent"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
}

func eventToModel(e *eventlog.Entry) *eventModel {
	return &eventModel{
		ID:        e.ID.String(),
		PID:       e.PID,
		NodeID:    e.NodeID,
		Type:      string(e.Type),
		Subject:   e.Subject,
		Detail:    e.Detail,
		RequestIP: e.RequestIP,
		UserAgent: e.UserAgent,
		CreatedAt: e.CreatedAt,
	}
}

func eventFromModel(m *eventModel) *eventlog.Entry {
	eid, _ := id.ParseEventID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &eventlog.Entry{
		ID:        eid,
		PID:       m.PID,
		NodeID:    m.NodeID,
		Type:      eventlog.Type(m.Type),
		Subject:   m.Subject,
		Detail:    m.Detail,
		RequestIP: m.RequestIP,
		UserAgent: m.UserAgent,
		CreatedAt: m.CreatedAt,
	}
}
