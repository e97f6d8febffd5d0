package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/datafed/warrant/eventlog"
)

func (a *API) registerEventRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("events"))

	return g.GET("/events", a.listEvents,
		forge.WithSummary("Query event log"),
		forge.WithDescription("Lists event log entries with optional filters."),
		forge.WithOperationID("listEvents"),
		forge.WithRequestSchema(ListEventsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Event list", ListResponse[*eventlog.Entry]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listEvents(ctx forge.Context, req *ListEventsRequest) (*ListResponse[*eventlog.Entry], error) {
	filter := &eventlog.QueryFilter{
		PID:     req.PID,
		NodeID:  req.NodeID,
		Type:    eventlog.Type(req.Type),
		Subject: req.Subject,
		Limit:   defaultLimit(req.Limit),
		Offset:  req.Offset,
	}

	if req.After != "" {
		t, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid after: %v", err))
		}
		filter.After = &t
	}
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid before: %v", err))
		}
		filter.Before = &t
	}

	entries, err := a.eng.QueryEvents(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountEvents(ctx.Context(), &eventlog.QueryFilter{
		PID:     filter.PID,
		NodeID:  filter.NodeID,
		Type:    filter.Type,
		Subject: filter.Subject,
		After:   filter.After,
		Before:  filter.Before,
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*eventlog.Entry]{
		Items:  entries,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}
