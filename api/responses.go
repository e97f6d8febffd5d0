package api

// AuthorizeResponse is the response for an authorization check.
type AuthorizeResponse struct {
	Allowed    bool        `json:"allowed" description:"Whether the request is allowed"`
	Decision   string      `json:"decision" description:"Decision code"`
	Granted    string      `json:"granted,omitempty" description:"Highest permission granted"`
	Required   string      `json:"required,omitempty" description:"Permission the operation requires"`
	Reason     string      `json:"reason,omitempty" description:"Human-readable reason"`
	MatchedBy  []MatchInfo `json:"matched_by,omitempty" description:"Matched grants"`
	EvalTimeNs int64       `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// MatchInfo identifies a matched grant.
type MatchInfo struct {
	Source string `json:"source" description:"Grant source (rights_holder, rule)"`
	RuleID string `json:"rule_id,omitempty" description:"Rule identifier"`
	Detail string `json:"detail,omitempty" description:"Match detail"`
}

// BatchAuthorizeResponse contains results for multiple checks.
type BatchAuthorizeResponse struct {
	Results []AuthorizeResponse `json:"results" description:"Check results in order"`
}

// SubjectsResponse is the response for subject set resolution.
type SubjectsResponse struct {
	Subjects []string `json:"subjects" description:"Resolved subject set, sorted"`
}

// NodesResponse lists member node identifiers.
type NodesResponse struct {
	Nodes []string `json:"nodes" description:"Member node identifiers"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
