package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/storefront/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// MachineEventKey is the gin context key handlers set to the dispatched
// machine event type.
const MachineEventKey = "machine_event"

// GinMiddleware opens a server span per request. Spans for machine routes
// carry the instance id and dispatched event; a rejected event is recorded
// as a span event rather than an error.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("storefront/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ctx = withCorrelationBaggage(ctx)
		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		// Handlers may have attached the session after issuing the cookie.
		if sid := obscontext.SessionIDFromContext(c.Request.Context()); sid != "" {
			attrs = append(attrs, attribute.String("session_id", sid))
		}
		if id := c.Param("id"); id != "" {
			attrs = append(attrs, attribute.String("machine.id", id))
		}
		if event := c.GetString(MachineEventKey); event != "" {
			attrs = append(attrs, attribute.String("machine.event", event))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		switch {
		case status == http.StatusConflict:
			span.AddEvent("event_not_accepted")
		case status >= http.StatusInternalServerError:
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

// withCorrelationBaggage adds request and session ids to the inbound baggage
// so downstream calls carry them.
func withCorrelationBaggage(ctx context.Context) context.Context {
	bag := baggage.FromContext(ctx)
	for key, value := range map[string]string{
		"request_id": obscontext.RequestIDFromContext(ctx),
		"session_id": obscontext.SessionIDFromContext(ctx),
	} {
		if value == "" {
			continue
		}
		member, err := baggage.NewMember(key, value)
		if err != nil {
			continue
		}
		if next, err := bag.SetMember(member); err == nil {
			bag = next
		}
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
