package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span and metric attribute keys. Only those in metricKeys reach metrics;
// the rest are per-call and stay on spans.
var (
	AttrOperation     = attribute.Key("sator.operation")
	AttrIncidentID    = attribute.Key("sator.incident.id")
	AttrAddress       = attribute.Key("sator.anchor.address")
	AttrCluster       = attribute.Key("sator.cluster")
	AttrOutcome       = attribute.Key("sator.verify.outcome")
	AttrMismatchCount = attribute.Key("sator.verify.mismatches")
)

var metricKeys = map[attribute.Key]bool{
	AttrOperation:     true,
	AttrCluster:       true,
	AttrOutcome:       true,
	AttrMismatchCount: true,
}

// metricAttrs keeps the bounded-cardinality subset of attrs.
func metricAttrs(attrs []attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, kv := range attrs {
		if metricKeys[kv.Key] {
			out = append(out, kv)
		}
	}
	return out
}

// VerifyAttributes describes one verification call.
func VerifyAttributes(incidentID uint64, address, cluster string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrIncidentID.Int64(int64(incidentID)),
		AttrAddress.String(address),
		AttrCluster.String(cluster),
	}
}

// AddSpanEvent adds an event to the span in ctx.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanAttributes annotates the span in ctx.
func SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
