package api

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/xraph/forge"

	"github.com/datafed/warrant"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, warrant.ErrNotFound) || errors.Is(err, warrant.ErrReplicaNotFound) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, warrant.ErrIdentifierConflict) || errors.Is(err, warrant.ErrAlreadyObsoleted) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, warrant.ErrReplicaDuplicate) || errors.Is(err, warrant.ErrInvalidStatusTransition) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, warrant.ErrUnknownOperation) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, warrant.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

// pidParam extracts and decodes the identifier path parameter. PIDs may
// contain slashes and colons, so clients URL-encode them.
func pidParam(ctx forge.Context, name string) (string, error) {
	raw := ctx.Param(name)
	if raw == "" {
		return "", forge.BadRequest(name + " is required")
	}
	pid, err := url.PathUnescape(raw)
	if err != nil {
		return "", forge.BadRequest(fmt.Sprintf("invalid %s: %v", name, err))
	}
	return pid, nil
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
