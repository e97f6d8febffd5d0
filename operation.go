package warrant

import (
	"fmt"

	"github.com/datafed/warrant/policy"
)

// Operation is an action a requester wants to perform on an object.
type Operation string

const (
	// OperationRead retrieves the object or its metadata.
	OperationRead Operation = "read"

	// OperationReplicate pulls a copy of the object to another node.
	OperationReplicate Operation = "replicate"

	// OperationUpdate creates a successor version of the object.
	OperationUpdate Operation = "update"

	// OperationArchive marks the object archived.
	OperationArchive Operation = "archive"

	// OperationDelete tombstones the object.
	OperationDelete Operation = "delete"

	// OperationSetAccessPolicy replaces the object's access rules.
	OperationSetAccessPolicy Operation = "setAccessPolicy"

	// OperationSetRightsHolder transfers ownership of the object.
	OperationSetRightsHolder Operation = "setRightsHolder"
)

// requiredPermission is the fixed operation → permission table. Checked
// exhaustively: an operation missing here is a programming error surfaced
// as ErrUnknownOperation.
var requiredPermission = map[Operation]policy.Permission{
	OperationRead:            policy.PermissionRead,
	OperationReplicate:       policy.PermissionRead,
	OperationUpdate:          policy.PermissionWrite,
	OperationArchive:         policy.PermissionWrite,
	OperationDelete:          policy.PermissionChange,
	OperationSetAccessPolicy: policy.PermissionChange,
	OperationSetRightsHolder: policy.PermissionChange,
}

// RequiredPermission returns the permission level an operation demands.
func RequiredPermission(op Operation) (policy.Permission, error) {
	p, ok := requiredPermission[op]
	if !ok {
		return policy.PermissionNone, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	return p, nil
}

// ParseOperation parses an operation name.
func ParseOperation(s string) (Operation, error) {
	op := Operation(s)
	if _, ok := requiredPermission[op]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
	return op, nil
}
