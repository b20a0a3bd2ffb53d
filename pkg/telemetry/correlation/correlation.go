package correlation

import (
	"context"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// HeaderName carries the correlation id between the storefront and the commerce APIs.
const HeaderName = "X-Correlation-Id"

// correlationKey is an unexported type for context keys within this package.
type correlationKey struct{}

// ExtractCorrelationID fetches a correlation ID from the context if present.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(correlationKey{}).(string); ok {
		return val
	}
	return ""
}

// ContextWithCorrelationID sets the correlation ID onto the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// EnsureCorrelationID guarantees a correlation ID on the context, generating one when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := ExtractCorrelationID(ctx)
	if cid == "" {
		cid = ulid.Make().String()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}

// FromRequest reuses an inbound correlation id or starts a new one.
func FromRequest(r *http.Request) (context.Context, string) {
	ctx := r.Context()
	if cid := strings.TrimSpace(r.Header.Get(HeaderName)); cid != "" {
		return ContextWithCorrelationID(ctx, cid), cid
	}
	return EnsureCorrelationID(ctx)
}

// Inject copies the correlation id and the trace context onto an outbound request.
func Inject(req *http.Request) {
	if req == nil {
		return
	}
	ctx := req.Context()
	if cid := ExtractCorrelationID(ctx); cid != "" {
		req.Header.Set(HeaderName, cid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}
