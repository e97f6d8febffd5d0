package sqlite

import (
	"encoding/json"
	"fmt"
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
	PID               string    `grove:"pid,pk"`
	SeriesID          string    `grove:"series_id"`
	FormatID          string    `grove:"format_id,notnull"`
	ChecksumAlgorithm string    `grove:"checksum_algorithm,notnull"`
	ChecksumValue     string    `grove:"checksum_value,notnull"`
	Size              int64     `grove:"size,notnull"`
	Submitter         string    `grove:"submitter,notnull"`
	RightsHolder      string    `grove:"rights_holder,notnull"`
	OriginNode        string    `grove:"origin_node"`
	AuthoritativeNode string    `grove:"authoritative_node"`
	SerialVersion     int64     `grove:"serial_version,notnull"`
	Obsoletes         string    `grove:"obsoletes"`
	ObsoletedBy       string    `grove:"obsoleted_by"`
	Archived          bool      `grove:"archived,notnull"`
	Deleted           bool      `grove:"deleted,notnull"`
	CreatedAt         time.Time `grove:"created_at,notnull"`
	ModifiedAt        time.Time `grove:"modified_at,notnull"`
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
	SID             string `grove:"sid,pk"`
	PID             string `grove:"pid,notnull"`
}

// ──────────────────────────────────────────────────
// Access rule model
// ──────────────────────────────────────────────────

type ruleModel struct {
	grove.BaseModel `grove:"table:warrant_access_rules"`
	ID              string    `grove:"id,pk"`
	PID             string    `grove:"pid,notnull"`
	Subjects        string    `grove:"subjects,notnull"` // JSON array
	Permission      string    `grove:"permission,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func ruleToModel(r *policy.Rule) (*ruleModel, error) {
	subjects, err := json.Marshal(r.Subjects)
	if err != nil {
		return nil, fmt.Errorf("marshal rule subjects: %w", err)
	}
	return &ruleModel{
		ID:         r.ID.String(),
		PID:        r.PID,
		Subjects:   string(subjects),
		Permission: string(r.Permission),
		CreatedAt:  r.CreatedAt,
	}, nil
}

func ruleFromModel(m *ruleModel) (policy.Rule, error) {
	rid, _ := id.ParseRuleID(m.ID) //nolint:errcheck // stored IDs are always valid
	var subjects []string
	if m.Subjects != "" {
		if err := json.Unmarshal([]byte(m.Subjects), &subjects); err != nil {
			return policy.Rule{}, fmt.Errorf("unmarshal rule subjects: %w", err)
		}
	}
	return policy.Rule{
		ID:         rid,
		PID:        m.PID,
		Subjects:   subjects,
		Permission: policy.Permission(m.Permission),
		CreatedAt:  m.CreatedAt,
	}, nil
}

// ──────────────────────────────────────────────────
// Replica model
// ──────────────────────────────────────────────────

type replicaModel struct {
	grove.BaseModel `grove:"table:warrant_replicas"`
	ID              string    `grove:"id,pk"`
	PID             string    `grove:"pid,notnull"`
	NodeID          string    `grove:"node_id,notnull"`
	Status          string    `grove:"status,notnull"`
	LastVerified    time.Time `grove:"last_verified,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
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
	ID              string    `grove:"id,pk"`
	PID             string    `grove:"pid,notnull"`
	NodeID          string    `grove:"node_id"`
	Type            string    `grove:"type,notnull"`
	Subject         string    `grove:"subject"`
	Detail          string    `grove:"detail"`
	RequestIP       string    `grove:"request_ip"`
	UserAgent       string    `grove:"user_agent"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
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
