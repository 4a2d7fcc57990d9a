package concurrent

import (
	"context"
	"errors"
	"testing"

	"github.com/juniorbueno0/coppercaves/pkg/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapLimitPreservesOrder(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8}
	for _, workers := range []int{0, 1, 3, 16} {
		out, err := MapLimit(context.Background(), sequence.From(in), workers, func(_ context.Context, v int) (int, error) {
			return v * v, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49, 64}, out, "workers=%d", workers)
	}
}

func TestMapLimitReturnsError(t *testing.T) {
	boom := errors.New("boom")
	_, err := MapLimit(context.Background(), sequence.From([]int{1, 2, 3}), 2, func(_ context.Context, v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestMapLimitHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := MapLimit(ctx, sequence.From([]int{1}), 1, func(_ context.Context, v int) (int, error) {
		return v, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
