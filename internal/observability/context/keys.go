package context

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type contextKey string

const (
	requestIDKey contextKey = "observability_request_id"
	tenantIDKey  contextKey = "observability_tenant_id"
	actorTypeKey contextKey = "observability_actor_type"
	actorIDKey   contextKey = "observability_actor_id"

	correlationIDKey contextKey = "observability_correlation_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func WithTenantID(ctx context.Context, tenantID string) context.Context {
	if ctx == nil || tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

func TenantIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(tenantIDKey).(string)
	return value
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	if ctx == nil {
		return ctx
	}
	if actorType != "" {
		ctx = context.WithValue(ctx, actorTypeKey, actorType)
	}
	if actorID != "" {
		ctx = context.WithValue(ctx, actorIDKey, actorID)
	}
	return ctx
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	actorType, _ := ctx.Value(actorTypeKey).(string)
	actorID, _ := ctx.Value(actorIDKey).(string)
	return actorType, actorID
}

func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if ctx == nil || correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(correlationIDKey).(string)
	return value
}

// EnsureCorrelationID keeps an inbound correlation id or mints a ULID for the request.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := CorrelationIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return WithCorrelationID(ctx, id), id
}
