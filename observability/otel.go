package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OtelObserver turns each event into a single-point OpenTelemetry span,
// grounded on the "event becomes a span" mapping used for workflow-engine
// tracing: span name from Event.Type, attributes from Event.Source and
// Event.Data, status set to error for Level >= LevelError.
//
// Unlike a request-scoped tracer, process-tree events are instantaneous
// state transitions rather than bracketed operations, so each event starts
// and immediately ends its own zero-duration span rather than returning a
// span that the caller must End.
type OtelObserver struct {
	tracer trace.Tracer
}

// NewOtelObserver creates an OtelObserver using the given tracer, typically
// obtained via otel.Tracer("proctree").
func NewOtelObserver(tracer trace.Tracer) *OtelObserver {
	return &OtelObserver{tracer: tracer}
}

func (o *OtelObserver) OnEvent(ctx context.Context, event Event) {
	attrs := make([]attribute.KeyValue, 0, len(event.Data)+1)
	attrs = append(attrs, attribute.String("source", event.Source))
	for k, v := range event.Data {
		attrs = append(attrs, attribute.String(k, toAttrString(v)))
	}

	_, span := o.tracer.Start(ctx, string(event.Type), trace.WithAttributes(attrs...))
	if event.Level >= LevelError {
		span.SetStatus(codes.Error, string(event.Type))
	}
	span.End()
}

func toAttrString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
