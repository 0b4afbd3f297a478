package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPullQueue_OverflowKeepsNewestAndMarksLagging exercises scenario S5:
// bound = 3, five pushes without a pull in between, then a pull sees
// exactly the last three and the lagging flag comes back set.
func TestPullQueue_OverflowKeepsNewestAndMarksLagging(t *testing.T) {
	q := newPullQueue(3)

	for i := 0; i < 5; i++ {
		q.push(seqMethod(i), nil)
	}

	batch := q.pull(100 * time.Millisecond)
	require.Len(t, batch, 3)
	assert.Equal(t, []string{seqMethod(2), seqMethod(3), seqMethod(4)}, []string{batch[0].method, batch[1].method, batch[2].method})

	assert.True(t, q.isLagging())
	assert.False(t, q.isLagging(), "isLagging clears itself once observed")
}

func seqMethod(i int) string {
	return "event." + string(rune('a'+i))
}

func TestPullQueue_PullBlocksThenReturnsOnPush(t *testing.T) {
	q := newPullQueue(4)

	done := make(chan []pendingCallback, 1)
	go func() {
		done <- q.pull(2 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	q.push("receiveCall", nil)

	select {
	case batch := <-done:
		require.Len(t, batch, 1)
		assert.Equal(t, "receiveCall", batch[0].method)
	case <-time.After(time.Second):
		t.Fatal("pull did not wake on push")
	}
}

func TestPullQueue_PullTimesOutEmpty(t *testing.T) {
	q := newPullQueue(4)

	batch := q.pull(30 * time.Millisecond)
	assert.Empty(t, batch)
}
