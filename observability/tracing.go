package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a new span with the given name and options. The tracer is
// resolved from the provider carried in ctx, so callers keep emitting into
// whatever pipeline the process was bootstrapped with.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return trace.SpanFromContext(ctx).TracerProvider().
		Tracer("github.com/caradhras-io/commerce-mcp-gateway").
		Start(ctx, name, opts...)
}
