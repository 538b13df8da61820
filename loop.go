package audiosched

import (
	"time"

	"golang.org/x/sys/unix"
)

// runLoop is the worker goroutine body: RunDevIO -> PlanWake ->
// BuildPollSet -> Wait -> Dispatch, repeated until Stop is processed
// (spec.md §4.7). It owns every field in Worker's worker-goroutine-owned
// state block for its entire lifetime.
func (w *Worker) runLoop() {
	w.lastWakeAt = time.Now()

	for {
		w.pumpDevIO()

		now := time.Now()
		plan := w.planWake(now)
		w.eventLog.add(EventSleep, now, int64(plan.sleep/time.Microsecond))

		pollSet := w.buildPollSet()

		timeoutMS := -1
		if plan.hasWaker {
			timeoutMS = int(plan.sleep / time.Millisecond)
		}

		n, err := unix.Poll(pollSet, timeoutMS)

		wakeAt := time.Now()
		w.recordWake(wakeAt)

		if err != nil {
			if err == unix.EINTR {
				continue // signal-safe: resume cleanly on spurious wakeups
			}
			w.logger.Error("poll wait failed", "err", err)
			continue
		}
		if n <= 0 {
			continue // spec.md §4.7 Wait: nothing ready, no dispatch
		}

		if w.dispatchReady(pollSet) {
			return
		}
	}
}

func (w *Worker) recordWake(at time.Time) {
	elapsed := at.Sub(w.lastWakeAt)
	if elapsed > w.longestWake {
		w.longestWake = elapsed
	}
	w.lastWakeAt = at
	w.eventLog.add(EventWake, at, int64(elapsed/time.Microsecond))
}

func (w *Worker) pumpDevIO() {
	if w.RunDevIO == nil {
		return
	}
	w.RunDevIO(devicesOf(w.outDevs), devicesOf(w.inDevs), w.remix)
}

// dispatchReady runs the Dispatch step: the control channel first, then
// every ready callback record in insertion order. Dispatcher errors are
// logged and swallowed so the loop keeps running (spec.md §7 policy).
// Returns true once Stop has been processed.
func (w *Worker) dispatchReady(pollSet []unix.PollFd) bool {
	if pollSet[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
		stop, err := w.dispatchOne()
		if err != nil {
			w.logger.Error("command dispatch failed", "err", err)
		}
		if stop {
			return true
		}
	}

	w.callbacks.forEach(func(rec *callbackRecord) {
		if rec.slot == nil {
			return
		}
		switch rec.dir {
		case CallbackRead:
			if rec.slot.Revents&unix.POLLIN != 0 {
				w.eventLog.add(EventIodevCb, time.Now(), int64(rec.fd))
				rec.handler(rec.fd, rec.data)
			}
		case CallbackWrite:
			if rec.slot.Revents&unix.POLLOUT != 0 {
				w.eventLog.add(EventIodevCb, time.Now(), int64(rec.fd))
				rec.handler(rec.fd, rec.data)
			}
		}
	})

	return false
}
