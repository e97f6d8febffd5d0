// Package eventlog defines the member-node event log Entry entity.
package eventlog

import (
	"time"

	"github.com/datafed/warrant/id"
)

// Type is the kind of event recorded.
type Type string

// Event types recorded by the member node.
const (
	TypeCreate    Type = "create"
	TypeRead      Type = "read"
	TypeUpdate    Type = "update"
	TypeArchive   Type = "archive"
	TypeDelete    Type = "delete"
	TypeReplicate Type = "replicate"
)

// Entry is a single event log record.
type Entry struct {
	ID        id.EventID `json:"id" db:"id"`
	PID       string     `json:"pid" db:"pid"`
	NodeID    string     `json:"node_id,omitempty" db:"node_id"`
	Type      Type       `json:"type" db:"type"`
	Subject   string     `json:"subject,omitempty" db:"subject"`
	Detail    string     `json:"detail,omitempty" db:"detail"`
	RequestIP string     `json:"request_ip,omitempty" db:"request_ip"`
	UserAgent string     `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying the event log.
type QueryFilter struct {
	PID     string     `json:"pid,omitempty"`
	NodeID  string     `json:"node_id,omitempty"`
	Type    Type       `json:"type,omitempty"`
	Subject string     `json:"subject,omitempty"`
	After   *time.Time `json:"after,omitempty"`
	Before  *time.Time `json:"before,omitempty"`
	Limit   int        `json:"limit,omitempty"`
	Offset  int        `json:"offset,omitempty"`
}
