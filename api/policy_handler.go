package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/datafed/warrant/policy"
)

func (a *API) registerPolicyRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("policies"))

	if err := g.PUT("/objects/:pid/policy", a.setPolicy,
		forge.WithSummary("Set access policy"),
		forge.WithDescription("Replaces the object's access rule set atomically."),
		forge.WithOperationID("setAccessPolicy"),
		forge.WithRequestSchema(SetPolicyRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Stored rules", []policy.Rule{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/objects/:pid/policy", a.getPolicy,
		forge.WithSummary("Get access policy"),
		forge.WithDescription("Returns the object's access rules. An empty policy is an empty list."),
		forge.WithOperationID("getAccessPolicy"),
		forge.WithResponseSchema(http.StatusOK, "Access rules", []policy.Rule{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/rules", a.listRules,
		forge.WithSummary("List access rules"),
		forge.WithDescription("Lists access rules across objects with optional filters."),
		forge.WithOperationID("listRules"),
		forge.WithRequestSchema(ListRulesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Rule list", ListResponse[policy.Rule]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) setPolicy(ctx forge.Context, req *SetPolicyRequest) ([]policy.Rule, error) {
	pid, err := pidParam(ctx, "pid")
	if err != nil {
		return nil, err
	}

	rules := make([]policy.Rule, len(req.Rules))
	for i, r := range req.Rules {
		rules[i] = policy.Rule{
			Subjects:   r.Subjects,
			Permission: policy.Permission(r.Permission),
		}
	}

	if err := a.eng.SetAccessPolicy(ctx.Context(), pid, rules); err != nil {
		return nil, mapError(err)
	}
	return rules, ctx.JSON(http.StatusOK, rules)
}

func (a *API) getPolicy(ctx forge.Context, _ *GetObjectRequest) ([]policy.Rule, error) {
	pid, err := pidParam(ctx, "pid")
	if err != nil {
		return nil, err
	}

	rules, err := a.eng.GetAccessPolicy(ctx.Context(), pid)
	if err != nil {
		return nil, mapError(err)
	}
	return rules, ctx.JSON(http.StatusOK, rules)
}

func (a *API) listRules(ctx forge.Context, req *ListRulesRequest) (*ListResponse[policy.Rule], error) {
	filter := &policy.ListFilter{
		PID:     req.PID,
		Subject: req.Subject,
		Limit:   defaultLimit(req.Limit),
		Offset:  req.Offset,
	}

	rules, err := a.eng.Store().ListRules(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountRules(ctx.Context(), &policy.ListFilter{
		PID:     filter.PID,
		Subject: filter.Subject,
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[policy.Rule]{
		Items:  rules,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}
