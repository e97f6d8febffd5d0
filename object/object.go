// Package object defines the science object record, its lifecycle states,
// and the store interface the state machine runs against.
package object

import (
	"time"
)

// Record is one immutable object version. Content and checksum are fixed
// at ingestion; ObsoletedBy is the only field mutated after creation (set
// exactly once when a successor is created), and Archived may be set true
// once. Obsoletes/ObsoletedBy links form a singly linked, acyclic chain.
type Record struct {
	PID               string    `json:"pid" db:"pid"`
	SeriesID          string    `json:"series_id,omitempty" db:"series_id"`
	FormatID          string    `json:"format_id" db:"format_id"`
	Checksum          Checksum  `json:"checksum" db:"-"`
	Size              int64     `json:"size" db:"size"`
	Submitter         string    `json:"submitter" db:"submitter"`
	RightsHolder      string    `json:"rights_holder" db:"rights_holder"`
	OriginNode        string    `json:"origin_node,omitempty" db:"origin_node"`
	AuthoritativeNode string    `json:"authoritative_node,omitempty" db:"authoritative_node"`
	SerialVersion     int64     `json:"serial_version" db:"serial_version"`
	Obsoletes         string    `json:"obsoletes,omitempty" db:"obsoletes"`
	ObsoletedBy       string    `json:"obsoleted_by,omitempty" db:"obsoleted_by"`
	Archived          bool      `json:"archived" db:"archived"`
	Deleted           bool      `json:"deleted" db:"deleted"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	ModifiedAt        time.Time `json:"modified_at" db:"modified_at"`
}

// Checksum is the content digest recorded at ingestion.
type Checksum struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// State is an object's lifecycle state, derived from record fields.
type State string

const (
	// StateActive means the record is the current, served version.
	StateActive State = "active"

	// StateArchived means the record is retained but no longer served.
	StateArchived State = "archived"

	// StateObsoleted means a successor version exists.
	StateObsoleted State = "obsoleted"

	// StateDeleted means the record is a tombstone; its identifier is
	// permanently reserved against reuse.
	StateDeleted State = "deleted"
)

// StateOf derives the lifecycle state from a record. Deletion dominates,
// then obsolescence, then the archived flag.
func StateOf(r *Record) State {
	switch {
	case r.Deleted:
		return StateDeleted
	case r.ObsoletedBy != "":
		return StateObsoleted
	case r.Archived:
		return StateArchived
	default:
		return StateActive
	}
}

// ListFilter contains filters for listing object records.
type ListFilter struct {
	FormatID       string     `json:"format_id,omitempty"`
	RightsHolder   string     `json:"rights_holder,omitempty"`
	Submitter      string     `json:"submitter,omitempty"`
	SeriesID       string     `json:"series_id,omitempty"`
	ModifiedAfter  *time.Time `json:"modified_after,omitempty"`
	ModifiedBefore *time.Time `json:"modified_before,omitempty"`
	IncludeDeleted bool       `json:"include_deleted,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Offset         int        `json:"offset,omitempty"`
}
