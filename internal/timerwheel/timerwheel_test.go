package timerwheel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleFires(t *testing.T) {
	w := New()
	defer w.Close()

	fired := make(chan any, 1)
	w.Schedule(10*time.Millisecond, func(cookie any) { fired <- cookie }, "nopin-watchdog")

	select {
	case cookie := <-fired:
		assert.Equal(t, "nopin-watchdog", cookie)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestCancelPreventsFire(t *testing.T) {
	w := New()
	defer w.Close()

	var fired atomic.Bool
	h := w.Schedule(30*time.Millisecond, func(cookie any) { fired.Store(true) }, nil)
	w.Cancel(h)

	time.Sleep(80 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestMultipleTimersFireInDeadlineOrder(t *testing.T) {
	w := New()
	defer w.Close()

	order := make(chan int, 3)
	w.Schedule(30*time.Millisecond, func(cookie any) { order <- 3 }, nil)
	w.Schedule(5*time.Millisecond, func(cookie any) { order <- 1 }, nil)
	w.Schedule(15*time.Millisecond, func(cookie any) { order <- 2 }, nil)

	var got []int
	for i := 0; i < 3; i++ {
		select {
		case v := <-order:
			got = append(got, v)
		case <-time.After(time.Second):
			t.Fatal("timers did not all fire")
		}
	}
	require.Equal(t, []int{1, 2, 3}, got)
}
