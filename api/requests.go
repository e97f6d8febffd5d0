package api

// ──────────────────────────────────────────────────
// Authorization requests
// ──────────────────────────────────────────────────

// AuthorizeRequest is the request body for an authorization check.
type AuthorizeRequest struct {
	Subject   string `json:"subject" description:"Primary subject (DN or token identity)"`
	Operation string `json:"operation" description:"Operation name (read, update, archive, ...)"`
	PID       string `json:"pid" description:"Persistent identifier or series identifier"`
}

// BatchAuthorizeRequest contains multiple authorization checks.
type BatchAuthorizeRequest struct {
	Checks []AuthorizeRequest `json:"checks" description:"List of authorization checks"`
}

// ResolveSubjectsRequest holds the subject to expand.
type ResolveSubjectsRequest struct {
	Subject string `query:"subject" description:"Primary subject to expand"`
}

// ──────────────────────────────────────────────────
// Object requests
// ──────────────────────────────────────────────────

// CreateObjectRequest is the body for registering an object.
type CreateObjectRequest struct {
	PID               string `json:"pid" description:"Persistent identifier"`
	SeriesID          string `json:"series_id,omitempty" description:"Series identifier"`
	FormatID          string `json:"format_id" description:"Object format identifier"`
	ChecksumAlgorithm string `json:"checksum_algorithm" description:"Checksum algorithm"`
	ChecksumValue     string `json:"checksum_value" description:"Checksum value"`
	Size              int64  `json:"size" description:"Object size in bytes"`
	Submitter         string `json:"submitter,omitempty" description:"Submitting subject"`
	RightsHolder      string `json:"rights_holder" description:"Rights holder subject"`
	OriginNode        string `json:"origin_node,omitempty" description:"Origin member node"`
	AuthoritativeNode string `json:"authoritative_node,omitempty" description:"Authoritative member node"`
}

// UpdateObjectRequest is the body for obsoleting an object with a successor.
type UpdateObjectRequest struct {
	Successor CreateObjectRequest `json:"successor" description:"Successor object record"`
}

// GetObjectRequest is the path parameter for object routes.
type GetObjectRequest struct {
	PID string `path:"pid" description:"Persistent identifier (URL-encoded)"`
}

// ListObjectsRequest holds query parameters for listing objects.
type ListObjectsRequest struct {
	FormatID       string `query:"format_id" description:"Filter by format"`
	RightsHolder   string `query:"rights_holder" description:"Filter by rights holder"`
	Submitter      string `query:"submitter" description:"Filter by submitter"`
	SeriesID       string `query:"series_id" description:"Filter by series"`
	IncludeDeleted bool   `query:"include_deleted" description:"Include tombstoned records"`
	Limit          int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset         int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Access policy requests
// ──────────────────────────────────────────────────

// SetPolicyRequest is the body for replacing an object's access policy.
type SetPolicyRequest struct {
	Rules []RuleInput `json:"rules" description:"Replacement rule set"`
}

// RuleInput is the input format for a single access rule.
type RuleInput struct {
	Subjects   []string `json:"subjects" description:"Subjects the rule grants to"`
	Permission string   `json:"permission" description:"Granted permission (read, write, changePermission)"`
}

// ListRulesRequest holds query parameters for listing access rules.
type ListRulesRequest struct {
	PID     string `query:"pid" description:"Filter by object"`
	Subject string `query:"subject" description:"Filter by subject"`
	Limit   int    `query:"limit" description:"Maximum results"`
	Offset  int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Replica requests
// ──────────────────────────────────────────────────

// RegisterReplicaRequest is the body for registering a replica.
type RegisterReplicaRequest struct {
	NodeID string `json:"node_id" description:"Replica member node"`
}

// SetReplicaStatusRequest is the body for a replica status transition.
type SetReplicaStatusRequest struct {
	NodeID string `json:"node_id" description:"Replica member node"`
	Status string `json:"status" description:"New status (queued, requested, completed, failed, invalidated)"`
}

// ListReplicasRequest holds query parameters for listing replicas.
type ListReplicasRequest struct {
	PID    string `query:"pid" description:"Filter by object"`
	NodeID string `query:"node_id" description:"Filter by node"`
	Status string `query:"status" description:"Filter by status"`
	Limit  int    `query:"limit" description:"Maximum results"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Event log requests
// ──────────────────────────────────────────────────

// ListEventsRequest holds query parameters for querying the event log.
type ListEventsRequest struct {
	PID     string `query:"pid" description:"Filter by object"`
	NodeID  string `query:"node_id" description:"Filter by node"`
	Type    string `query:"type" description:"Filter by event type"`
	Subject string `query:"subject" description:"Filter by subject"`
	After   string `query:"after" description:"After timestamp (RFC3339)"`
	Before  string `query:"before" description:"Before timestamp (RFC3339)"`
	Limit   int    `query:"limit" description:"Maximum results"`
	Offset  int    `query:"offset" description:"Results to skip"`
}
