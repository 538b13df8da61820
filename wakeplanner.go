package audiosched

import "time"

// sleepBound is the hard upper bound on how long the worker ever sleeps in
// one iteration (spec.md §4.3 step 1).
const sleepBound = 20 * time.Second

// busyLoopThreshold is the number of consecutive zero-length waits that
// constitutes a busy loop (spec.md §4.3, testable property 7).
const busyLoopThreshold = 2

// wakePlan is the result of PlanWake: how long to sleep and whether any
// waker exists at all.
type wakePlan struct {
	sleep    time.Duration
	hasWaker bool
}

// PlanWake computes the next absolute wake deadline across every open
// device's streams and the devices themselves, per spec.md §4.3. Input
// devices are handled by planInputWake, a fixed method of Worker rather
// than a replaceable hook.
func (w *Worker) planWake(now time.Time) wakePlan {
	minTS := now.Add(w.sleepBound)
	count := 0

	for _, od := range w.outDevs {
		for _, ds := range od.streams {
			if ds.IsDraining() && ds.RemainingFrames() == 0 {
				continue
			}
			if !ds.CanFetch() {
				continue
			}
			ts, ok := ds.NextCallbackTS()
			if !ok {
				continue
			}
			w.eventLog.add(EventStreamSleepTime, now, int64(ts.Sub(now)/time.Microsecond))
			if ts.Before(minTS) {
				minTS = ts
			}
			count++
		}
		if od.dev.ShouldWake() {
			od.wakeTS = od.dev.WakeDeadline()
			if od.wakeTS.Before(minTS) {
				minTS = od.wakeTS
			}
			count++
		}
	}

	updated, inCount := w.planInputWake(now, minTS)
	if inCount > 0 {
		minTS = updated
		count += inCount
	}

	sleep := minTS.Sub(now)
	if sleep < 0 {
		sleep = 0
	}
	if sleep > w.sleepBound {
		sleep = w.sleepBound
	}

	plan := wakePlan{sleep: sleep, hasWaker: count > 0}
	w.trackBusyLoop(plan.sleep)
	return plan
}

// planInputWake is the input-device counterpart of the output loop in
// planWake, isolated into its own function the way spec.md §4.3 step 4
// isolates it behind "the external input-scheduling helper": capture
// devices don't have a draining concept, but are otherwise scheduled the
// same way — earliest ready stream callback, or the device's own
// hardware-clock wake deadline. Returns the (possibly updated) minTS and
// how many wakers contributed to it.
func (w *Worker) planInputWake(now, minTS time.Time) (time.Time, int) {
	count := 0
	for _, od := range w.inDevs {
		for _, ds := range od.streams {
			if !ds.CanFetch() {
				continue
			}
			ts, ok := ds.NextCallbackTS()
			if !ok {
				continue
			}
			if ts.Before(minTS) {
				minTS = ts
			}
			count++
		}
		if od.dev.ShouldWake() {
			od.wakeTS = od.dev.WakeDeadline()
			if od.wakeTS.Before(minTS) {
				minTS = od.wakeTS
			}
			count++
		}
	}
	return minTS, count
}

// trackBusyLoop increments the zero-wait counter and raises BusyLoop once
// it reaches busyLoopThreshold; any non-zero wait resets it.
func (w *Worker) trackBusyLoop(sleep time.Duration) {
	if sleep > 0 {
		w.busyLoopCount = 0
		return
	}
	w.busyLoopCount++
	if w.busyLoopCount == busyLoopThreshold {
		w.onBusyLoop()
	}
}

func (w *Worker) onBusyLoop() {
	w.logger.Warn("busy loop detected", "consecutive_zero_waits", w.busyLoopCount)
	w.eventLog.add(EventSleep, time.Now(), 0)
	if w.BusyLoopSignal != nil {
		w.BusyLoopSignal()
	}
}
