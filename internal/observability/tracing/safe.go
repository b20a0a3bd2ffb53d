package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// forbiddenAttributeKeys never reach a span: buyer identity and payment data.
var forbiddenAttributeKeys = map[attribute.Key]struct{}{
	"email":        {},
	"coupon":       {},
	"stripe_token": {},
	"access_token": {},
	"token":        {},
}

// ExtractContext continues a trace started upstream.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops attributes that may carry personal or payment data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := forbiddenAttributeKeys[attribute.Key(strings.ToLower(string(attr.Key)))]; ok {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError returns an error safe to record on a span. Messages containing
// an email address are replaced.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "@") {
		return errors.New("redacted error")
	}
	return err
}
