package whatsapp

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestGate_TryAcquireRelease(t *testing.T) {
	gate := &Gate{}

	require.True(t, gate.TryAcquire())
	assert.False(t, gate.TryAcquire())

	gate.Release()
	assert.True(t, gate.TryAcquire())
}

func TestGate_ExactlyOneWinner(t *testing.T) {
	gate := &Gate{}

	var wins atomic.Int64
	var eg errgroup.Group
	for i := 0; i < 32; i++ {
		eg.Go(func() error {
			if gate.TryAcquire() {
				wins.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, int64(1), wins.Load())

	// losers abandoned immediately; the winner's release frees the surface
	gate.Release()
	assert.True(t, gate.TryAcquire())
}
