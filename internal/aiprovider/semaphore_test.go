package aiprovider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreEnforcesWeight(t *testing.T) {
	s := NewSemaphores()
	ctx := context.Background()

	require.NoError(t, s.Acquire(ctx, "ollama", 1))

	acquired := make(chan struct{})
	go func() {
		_ = s.Acquire(context.Background(), "ollama", 1)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should have blocked while weight=1 slot is held")
	case <-time.After(50 * time.Millisecond):
	}

	s.Release("ollama", 1)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should unblock after release")
	}
}

func TestSemaphoreDistinctNamesIndependent(t *testing.T) {
	s := NewSemaphores()
	ctx := context.Background()
	assert.NoError(t, s.Acquire(ctx, "anthropic", 4))
	assert.NoError(t, s.Acquire(ctx, "openai", 8))
}
