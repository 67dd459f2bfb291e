package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "bussola"

// StartFetchSpan starts a span for a row store fetch of one table.
func StartFetchSpan(ctx context.Context, table string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "rowstore.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("table", table)),
	)
}

// StartPanelSpan starts a span covering the load, decode and build of a panel.
func StartPanelSpan(ctx context.Context) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "panel.build")
}

// StartAuthSpan starts a span for a session service call.
func StartAuthSpan(ctx context.Context, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "auth."+action,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("auth.action", action)),
	)
}
