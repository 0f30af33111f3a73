package authz

import "errors"

var (
	// ErrNotFound means the resource under check does not exist. This is an
	// operational failure of the pipeline, not a policy deny.
	ErrNotFound = errors.New("authz: resource not found")

	// ErrNoPrincipal means the request carries no authenticated actor.
	ErrNoPrincipal = errors.New("authz: no principal on request")
)
