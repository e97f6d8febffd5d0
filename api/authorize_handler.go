package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/datafed/warrant"
)

func (a *API) registerAuthorizeRoutes(router forge.Router) error {
	g := router.Group("/v1/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Authorization check"),
		forge.WithDescription("Evaluates whether the subject can perform the operation on the object."),
		forge.WithOperationID("authzCheck"),
		forge.WithRequestSchema(AuthorizeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", AuthorizeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce authorization"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied."),
		forge.WithOperationID("authzEnforce"),
		forge.WithRequestSchema(AuthorizeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", AuthorizeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/batch-check", a.batchCheck,
		forge.WithSummary("Batch authorization check"),
		forge.WithDescription("Evaluates multiple authorization checks in one request."),
		forge.WithOperationID("authzBatchCheck"),
		forge.WithRequestSchema(BatchAuthorizeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch results", BatchAuthorizeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/subjects", a.resolveSubjects,
		forge.WithSummary("Resolve subject set"),
		forge.WithDescription("Expands a primary subject into its full authorization subject set."),
		forge.WithOperationID("authzResolveSubjects"),
		forge.WithRequestSchema(ResolveSubjectsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Resolved subjects", SubjectsResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) check(ctx forge.Context, req *AuthorizeRequest) (*AuthorizeResponse, error) {
	if req.Operation == "" || req.PID == "" {
		return nil, forge.BadRequest("operation and pid are required")
	}

	result, err := a.eng.Authorize(ctx.Context(), toAuthRequest(req))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toAuthorizeResponse(result)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *AuthorizeRequest) (*AuthorizeResponse, error) {
	if req.Operation == "" || req.PID == "" {
		return nil, forge.BadRequest("operation and pid are required")
	}

	result, err := a.eng.Authorize(ctx.Context(), toAuthRequest(req))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toAuthorizeResponse(result)
	if !result.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) batchCheck(ctx forge.Context, req *BatchAuthorizeRequest) (*BatchAuthorizeResponse, error) {
	if len(req.Checks) == 0 {
		return nil, forge.BadRequest("checks cannot be empty")
	}

	results := make([]AuthorizeResponse, len(req.Checks))
	for i, c := range req.Checks {
		result, err := a.eng.Authorize(ctx.Context(), toAuthRequest(&c))
		if err != nil {
			return nil, mapError(err)
		}
		results[i] = *toAuthorizeResponse(result)
	}

	resp := &BatchAuthorizeResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) resolveSubjects(ctx forge.Context, req *ResolveSubjectsRequest) (*SubjectsResponse, error) {
	resp := &SubjectsResponse{
		Subjects: a.eng.ResolveSubjects(ctx.Context(), req.Subject),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toAuthRequest(r *AuthorizeRequest) *warrant.AuthRequest {
	return &warrant.AuthRequest{
		Subject:   r.Subject,
		Operation: warrant.Operation(r.Operation),
		PID:       r.PID,
	}
}

func toAuthorizeResponse(r *warrant.AuthResult) *AuthorizeResponse {
	resp := &AuthorizeResponse{
		Allowed:    r.Allowed,
		Decision:   string(r.Decision),
		Granted:    string(r.Granted),
		Required:   string(r.Required),
		Reason:     r.Reason,
		EvalTimeNs: r.EvalTimeNs,
	}
	for _, m := range r.MatchedBy {
		resp.MatchedBy = append(resp.MatchedBy, MatchInfo{
			Source: m.Source,
			RuleID: m.RuleID,
			Detail: m.Detail,
		})
	}
	return resp
}
