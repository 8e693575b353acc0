package tracing

import (
	"context"

	obscontext "github.com/smallbiznis/commcredit/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
)

// BaggageTenantKey is the baggage member upstream gateways use to pass the tenant.
const BaggageTenantKey = "tenant.id"

// SetPropagator installs tracecontext and baggage as the global propagator.
func SetPropagator() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// ExtractContext reads propagation headers into ctx. A tenant carried in
// baggage is copied into the request scope unless one is already set.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	if obscontext.TenantIDFromContext(ctx) != "" {
		return ctx
	}
	if tenantID := baggage.FromContext(ctx).Member(BaggageTenantKey).Value(); tenantID != "" {
		ctx = obscontext.WithTenantID(ctx, tenantID)
	}
	return ctx
}
