package session

import (
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/marmos91/iscsitgt/internal/logger"
)

// AffinityHint optionally pins a connection's RX/TX goroutine pair to a
// fixed CPU set, trading load-balancing flexibility for cache locality on
// the hot read/write path. A nil or empty CPUs list disables pinning.
type AffinityHint struct {
	CPUs []int
}

// Apply locks the calling goroutine to its OS thread and pins it to one CPU
// from the hint, selected round-robin by cid. It must be called from the
// goroutine that will run the connection's RX loop, and the returned
// release func must run before that goroutine exits.
func (h AffinityHint) Apply(cid uint16) (release func()) {
	if len(h.CPUs) == 0 {
		return func() {}
	}

	runtime.LockOSThread()
	cpu := h.CPUs[int(cid)%len(h.CPUs)]

	var mask unix.CPUSet
	mask.Set(cpu)
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		logger.Warn("failed to set CPU affinity", logger.CID(cid), logger.Err(err))
	}

	return runtime.UnlockOSThread
}
