package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestAndSessionIDs(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithSessionID(ctx, "sid-1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "sid-1", SessionIDFromContext(ctx))

	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Equal(t, ctx, WithSessionID(ctx, "  "))
}
