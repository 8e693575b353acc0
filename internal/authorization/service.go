package authorization

import "context"

// Service decides whether an actor may perform action on object within a tenant.
// Actors are "<type>:<id>" where type is service, operator or system.
type Service interface {
	Authorize(ctx context.Context, actor string, tenantID string, object string, action string) error
}
