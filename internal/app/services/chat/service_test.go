package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamReturnsStubAfterDelay(t *testing.T) {
	svc := New(20*time.Millisecond, nil)

	start := time.Now()
	out, err := svc.Stream(context.Background(), "u1", Request{AgentID: "a1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, StubResponse, out)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestStreamIgnoresInput(t *testing.T) {
	svc := New(0, nil)
	out, err := svc.Stream(context.Background(), "", Request{})
	require.NoError(t, err)
	assert.Equal(t, "UNDER DEVELOPMENT", out)
}

func TestStreamHonoursCancellation(t *testing.T) {
	svc := New(time.Hour, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.Stream(ctx, "u1", Request{})
	assert.Error(t, err)
}

func TestNegativeDelayClamped(t *testing.T) {
	assert.Zero(t, New(-time.Second, nil).Delay())
}
