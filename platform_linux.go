//go:build linux

package audiosched

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// schedParam mirrors struct sched_param from <sched.h>; only the priority
// field is meaningful for SCHED_FIFO.
type schedParam struct {
	Priority int32
}

// audioThreadPriority is a conservative SCHED_FIFO priority, well below
// the range reserved for kernel housekeeping threads.
const audioThreadPriority = 10

// acquireRealtimePriority attempts to move the calling OS thread to
// SCHED_FIFO, matching spec.md §4.8's "before entering the loop, the
// worker attempts to acquire a real-time scheduling class and priority".
// This is isolated behind a single platform call so unprivileged runs can
// degrade gracefully (spec.md §9 design notes); failure is always
// non-fatal to the caller.
func acquireRealtimePriority() error {
	param := schedParam{Priority: audioThreadPriority}
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, 0, unix.SCHED_FIFO, uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return errors.Wrap(errno, "sched_setscheduler(SCHED_FIFO)")
	}
	return nil
}
