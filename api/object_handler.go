package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/datafed/warrant/object"
)

func (a *API) registerObjectRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("objects"))

	if err := g.POST("/objects", a.createObject,
		forge.WithSummary("Register object"),
		forge.WithDescription("Registers a new object record."),
		forge.WithOperationID("createObject"),
		forge.WithRequestSchema(CreateObjectRequest{}),
		forge.WithCreatedResponse(&object.Record{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/objects/:pid", a.getObject,
		forge.WithSummary("Get object"),
		forge.WithDescription("Returns the record for an exact PID, including tombstones."),
		forge.WithOperationID("getObject"),
		forge.WithResponseSchema(http.StatusOK, "Object record", &object.Record{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/resolve/:pid", a.resolveIdentifier,
		forge.WithSummary("Resolve identifier"),
		forge.WithDescription("Resolves a PID or series ID to the current usable version."),
		forge.WithOperationID("resolveIdentifier"),
		forge.WithResponseSchema(http.StatusOK, "Resolved record", &object.Record{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/objects/:pid", a.updateObject,
		forge.WithSummary("Update object"),
		forge.WithDescription("Obsoletes the object with a successor version."),
		forge.WithOperationID("updateObject"),
		forge.WithRequestSchema(UpdateObjectRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Successor record", &object.Record{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/objects/:pid/archive", a.archiveObject,
		forge.WithSummary("Archive object"),
		forge.WithDescription("Hides the object from routine discovery while keeping it resolvable."),
		forge.WithOperationID("archiveObject"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/objects/:pid", a.deleteObject,
		forge.WithSummary("Delete object"),
		forge.WithDescription("Tombstones the object. The PID stays reserved forever."),
		forge.WithOperationID("deleteObject"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/objects", a.listObjects,
		forge.WithSummary("List objects"),
		forge.WithDescription("Lists object records with optional filters."),
		forge.WithOperationID("listObjects"),
		forge.WithRequestSchema(ListObjectsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Object list", ListResponse[*object.Record]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createObject(ctx forge.Context, req *CreateObjectRequest) (*object.Record, error) {
	if req.PID == "" {
		return nil, forge.BadRequest("pid is required")
	}
	if req.RightsHolder == "" {
		return nil, forge.BadRequest("rights_holder is required")
	}

	rec := toObjectRecord(req)
	if err := a.eng.CreateObject(ctx.Context(), rec); err != nil {
		return nil, mapError(err)
	}
	return rec, ctx.JSON(http.StatusCreated, rec)
}

func (a *API) getObject(ctx forge.Context, _ *GetObjectRequest) (*object.Record, error) {
	pid, err := pidParam(ctx, "pid")
	if err != nil {
		return nil, err
	}

	rec, err := a.eng.GetObject(ctx.Context(), pid)
	if err != nil {
		return nil, mapError(err)
	}
	return rec, ctx.JSON(http.StatusOK, rec)
}

func (a *API) resolveIdentifier(ctx forge.Context, _ *GetObjectRequest) (*object.Record, error) {
	identifier, err := pidParam(ctx, "pid")
	if err != nil {
		return nil, err
	}

	rec, err := a.eng.ResolveIdentifier(ctx.Context(), identifier)
	if err != nil {
		return nil, mapError(err)
	}
	return rec, ctx.JSON(http.StatusOK, rec)
}

func (a *API) updateObject(ctx forge.Context, req *UpdateObjectRequest) (*object.Record, error) {
	oldPID, err := pidParam(ctx, "pid")
	if err != nil {
		return nil, err
	}
	if req.Successor.PID == "" {
		return nil, forge.BadRequest("successor.pid is required")
	}
	if req.Successor.RightsHolder == "" {
		return nil, forge.BadRequest("successor.rights_holder is required")
	}

	rec, err := a.eng.UpdateObject(ctx.Context(), oldPID, toObjectRecord(&req.Successor))
	if err != nil {
		return nil, mapError(err)
	}
	return rec, ctx.JSON(http.StatusOK, rec)
}

func (a *API) archiveObject(ctx forge.Context, _ *GetObjectRequest) (*struct{}, error) {
	pid, err := pidParam(ctx, "pid")
	if err != nil {
		return nil, err
	}

	if err := a.eng.ArchiveObject(ctx.Context(), pid); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) deleteObject(ctx forge.Context, _ *GetObjectRequest) (*struct{}, error) {
	pid, err := pidParam(ctx, "pid")
	if err != nil {
		return nil, err
	}

	if err := a.eng.DeleteObject(ctx.Context(), pid); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listObjects(ctx forge.Context, req *ListObjectsRequest) (*ListResponse[*object.Record], error) {
	filter := &object.ListFilter{
		FormatID:       req.FormatID,
		RightsHolder:   req.RightsHolder,
		Submitter:      req.Submitter,
		SeriesID:       req.SeriesID,
		IncludeDeleted: req.IncludeDeleted,
		Limit:          defaultLimit(req.Limit),
		Offset:         req.Offset,
	}

	records, err := a.eng.Store().ListObjects(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountObjects(ctx.Context(), &object.ListFilter{
		FormatID:       filter.FormatID,
		RightsHolder:   filter.RightsHolder,
		Submitter:      filter.Submitter,
		SeriesID:       filter.SeriesID,
		IncludeDeleted: filter.IncludeDeleted,
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*object.Record]{
		Items:  records,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toObjectRecord(r *CreateObjectRequest) *object.Record {
	return &object.Record{
		PID:      r.PID,
		SeriesID: r.SeriesID,
		FormatID: r.FormatID,
		Checksum: object.Checksum{
			Algorithm: r.ChecksumAlgorithm,
			Value:     r.ChecksumValue,
		},
		Size:              r.Size,
		Submitter:         r.Submitter,
		RightsHolder:      r.RightsHolder,
		OriginNode:        r.OriginNode,
		AuthoritativeNode: r.AuthoritativeNode,
	}
}
