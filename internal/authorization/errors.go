package authorization

import "errors"

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
