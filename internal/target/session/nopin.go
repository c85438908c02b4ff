package session

import (
	"time"

	"github.com/marmos91/iscsitgt/internal/timerwheel"
)

// NopInTimer drives target-initiated NopIn keep-alive pings on a
// connection, rearming itself on the shared wheel until Stop is called.
type NopInTimer struct {
	handle *timerwheel.RepeatingHandle
}

// StartNopInTimer arms fn to fire every interval on wheel. An interval of
// zero or less disables the timer; the returned NopInTimer is inert and
// Stop is a no-op on it.
func StartNopInTimer(wheel *timerwheel.Wheel, interval time.Duration, fn func()) *NopInTimer {
	if interval <= 0 || wheel == nil {
		return &NopInTimer{}
	}
	return &NopInTimer{handle: wheel.ScheduleRepeating(interval, func(any) { fn() }, nil)}
}

// Stop cancels future pings. Safe to call on an inert timer or a nil
// receiver.
func (t *NopInTimer) Stop() {
	if t == nil || t.handle == nil {
		return
	}
	t.handle.Stop()
}
