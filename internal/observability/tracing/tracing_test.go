package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPersonalData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/commerce/machines/:id"),
		attribute.String("email", "jane@example.com"),
		attribute.String("Stripe_Token", "tok_1"),
	)
	assert.Equal(t, []attribute.KeyValue{attribute.String("http.route", "/api/commerce/machines/:id")}, attrs)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New("upstream 502")), "upstream 502")
	assert.EqualError(t, SafeError(errors.New("no purchase for jane@example.com")), "redacted error")
}
