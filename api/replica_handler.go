package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/datafed/warrant/replica"
)

func (a *API) registerReplicaRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("replicas"))

	if err := g.POST("/objects/:pid/replicas", a.registerReplica,
		forge.WithSummary("Register replica"),
		forge.WithDescription("Registers a queued replica of the object on a member node."),
		forge.WithOperationID("registerReplica"),
		forge.WithRequestSchema(RegisterReplicaRequest{}),
		forge.WithCreatedResponse(&replica.Record{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/objects/:pid/replicas/status", a.setReplicaStatus,
		forge.WithSummary("Set replica status"),
		forge.WithDescription("Transitions a replica's status and refreshes its verification time."),
		forge.WithOperationID("setReplicaStatus"),
		forge.WithRequestSchema(SetReplicaStatusRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated replica", &replica.Record{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/objects/:pid/replicas/complete", a.completeReplicas,
		forge.WithSummary("List complete replicas"),
		forge.WithDescription("Returns nodes holding a verified, non-stale complete replica."),
		forge.WithOperationID("completeReplicas"),
		forge.WithResponseSchema(http.StatusOK, "Node list", NodesResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/replicas", a.listReplicas,
		forge.WithSummary("List replicas"),
		forge.WithDescription("Lists replica records with optional filters."),
		forge.WithOperationID("listReplicas"),
		forge.WithRequestSchema(ListReplicasRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Replica list", ListResponse[*replica.Record]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) registerReplica(ctx forge.Context, req *RegisterReplicaRequest) (*replica.Record, error) {
	pid, err := pidParam(ctx, "pid")
	if err != nil {
		return nil, err
	}
	if req.NodeID == "" {
		return nil, forge.BadRequest("node_id is required")
	}

	rec, err := a.eng.RegisterReplica(ctx.Context(), pid, req.NodeID)
	if err != nil {
		return nil, mapError(err)
	}
	return rec, ctx.JSON(http.StatusCreated, rec)
}

func (a *API) setReplicaStatus(ctx forge.Context, req *SetReplicaStatusRequest) (*replica.Record, error) {
	pid, err := pidParam(ctx, "pid")
	if err != nil {
		return nil, err
	}
	if req.NodeID == "" {
		return nil, forge.BadRequest("node_id is required")
	}
	status, err := replica.ParseStatus(req.Status)
	if err != nil {
		return nil, forge.BadRequest(err.Error())
	}

	if err := a.eng.SetReplicaStatus(ctx.Context(), pid, req.NodeID, status); err != nil {
		return nil, mapError(err)
	}

	rec, err := a.eng.Replicas().Get(ctx.Context(), pid, req.NodeID)
	if err != nil {
		return nil, mapError(err)
	}
	return rec, ctx.JSON(http.StatusOK, rec)
}

func (a *API) completeReplicas(ctx forge.Context, _ *GetObjectRequest) (*NodesResponse, error) {
	pid, err := pidParam(ctx, "pid")
	if err != nil {
		return nil, err
	}

	nodes, err := a.eng.CompleteReplicas(ctx.Context(), pid)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &NodesResponse{Nodes: nodes}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) listReplicas(ctx forge.Context, req *ListReplicasRequest) (*ListResponse[*replica.Record], error) {
	filter := &replica.ListFilter{
		PID:    req.PID,
		NodeID: req.NodeID,
		Status: replica.Status(req.Status),
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}

	records, err := a.eng.Store().ListReplicas(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountReplicas(ctx.Context(), &replica.ListFilter{
		PID:    filter.PID,
		NodeID: filter.NodeID,
		Status: filter.Status,
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*replica.Record]{
		Items:  records,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}
