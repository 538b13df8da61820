package audiosched

import (
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RealtimePriority = false
	w, err := NewWorker(cfg, NewDemoDevStreamFactory(nil), log.New(noopWriter{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Destroy() })
	return w
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func openDeviceFor(t *testing.T, w *Worker, dev Device) DeviceHandle {
	t.Helper()
	h := w.RegisterDevice(dev)
	require.NoError(t, w.addOpenDev(h))
	return h
}

// TestPlanWakeHonorsSleepBound checks that with no attached stream and no
// device demanding a hardware-clock wake, PlanWake never proposes sleeping
// longer than sleepBound (spec.md §4.3 step 1, testable property 6).
func TestPlanWakeHonorsSleepBound(t *testing.T) {
	w := newTestWorker(t)
	dev := NewDemoDevice(0, "out0", DirOutput)
	openDeviceFor(t, w, dev)

	plan := w.planWake(time.Now())
	assert.False(t, plan.hasWaker)
	assert.Equal(t, sleepBound, plan.sleep)
}

// TestPlanWakeUsesEarliestStreamDeadline checks that PlanWake picks the
// minimum next-callback timestamp across every fetchable stream
// (spec.md §4.3 step 2).
func TestPlanWakeUsesEarliestStreamDeadline(t *testing.T) {
	w := newTestWorker(t)
	dev := NewDemoDevice(0, "out0", DirOutput)
	devHandle := openDeviceFor(t, w, dev)

	now := time.Now()
	near := now.Add(5 * time.Millisecond)
	far := now.Add(5 * time.Second)

	s1 := NewDemoStream(1, DirOutput, 48000, 480)
	s1.SetScheduling(true, far, true, -1, 0, 0)
	s2 := NewDemoStream(2, DirOutput, 48000, 480)
	s2.SetScheduling(true, near, true, -1, 0, 0)

	h1 := w.RegisterStream(s1)
	h2 := w.RegisterStream(s2)
	require.NoError(t, w.addStream(h1, []DeviceHandle{devHandle}))
	require.NoError(t, w.addStream(h2, []DeviceHandle{devHandle}))

	plan := w.planWake(now)
	assert.True(t, plan.hasWaker)
	assert.InDelta(t, near.Sub(now), plan.sleep, float64(time.Millisecond))
}

// TestPlanWakeSkipsDrainedStreamsWithNoRemainingFrames checks that a
// draining stream with zero remaining frames is excluded from wake
// planning (spec.md §4.3 step 2).
func TestPlanWakeSkipsDrainedStreamsWithNoRemainingFrames(t *testing.T) {
	w := newTestWorker(t)
	dev := NewDemoDevice(0, "out0", DirOutput)
	devHandle := openDeviceFor(t, w, dev)

	now := time.Now()
	s := NewDemoStream(1, DirOutput, 48000, 480)
	s.SetScheduling(true, now.Add(time.Millisecond), true, -1, 0, 0)
	h := w.RegisterStream(s)
	require.NoError(t, w.addStream(h, []DeviceHandle{devHandle}))

	stream, _ := w.handles.stream(h)
	stream.SetDraining(true)
	od, _ := findDevice(w.outDevs, dev)
	ds := od.streams[0].(*DemoDevStream)
	assert.Equal(t, 0, ds.RemainingFrames())

	plan := w.planWake(now)
	assert.False(t, plan.hasWaker)
	assert.Equal(t, sleepBound, plan.sleep)
}

// TestPlanWakeUsesDeviceHardwareClockDeadline checks that a device
// demanding a hardware-clock wake (ShouldWake/WakeDeadline) contributes its
// deadline to the plan even with no stream attached (spec.md §4.3 step 3).
func TestPlanWakeUsesDeviceHardwareClockDeadline(t *testing.T) {
	w := newTestWorker(t)
	dev := NewDemoDevice(0, "out0", DirOutput)
	openDeviceFor(t, w, dev)

	now := time.Now()
	deadline := now.Add(10 * time.Millisecond)
	dev.SetShouldWake(true, deadline)

	plan := w.planWake(now)
	assert.True(t, plan.hasWaker)
	assert.InDelta(t, deadline.Sub(now), plan.sleep, float64(time.Millisecond))
}

// TestPlanWakeUsesConfiguredSleepBound checks that PlanWake honors the
// Worker's own configured sleep bound rather than always falling back to
// the package's hard maximum (spec.md §4.3 step 1).
func TestPlanWakeUsesConfiguredSleepBound(t *testing.T) {
	w := newTestWorker(t)
	w.sleepBound = 2 * time.Second
	dev := NewDemoDevice(0, "out0", DirOutput)
	openDeviceFor(t, w, dev)

	plan := w.planWake(time.Now())
	assert.False(t, plan.hasWaker)
	assert.Equal(t, 2*time.Second, plan.sleep)
}

// TestPlanWakeEarliestDeadlineProperty is the randomized counterpart of
// TestPlanWakeUsesEarliestStreamDeadline: across any
// number of fetchable streams with distinct deadlines, PlanWake always
// picks the earliest one.
func TestPlanWakeEarliestDeadlineProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := newTestWorker(t)
		dev := NewDemoDevice(0, "out0", DirOutput)
		devHandle := openDeviceFor(t, w, dev)

		now := time.Now()
		n := rapid.IntRange(1, 6).Draw(rt, "n")
		var earliest time.Time
		for i := 0; i < n; i++ {
			offsetMS := rapid.IntRange(1, 10000).Draw(rt, "offsetMS")
			ts := now.Add(time.Duration(offsetMS) * time.Millisecond)
			if earliest.IsZero() || ts.Before(earliest) {
				earliest = ts
			}
			s := NewDemoStream(uint64(i+1), DirOutput, 48000, 480)
			s.SetScheduling(true, ts, true, -1, 0, 0)
			h := w.RegisterStream(s)
			require.NoError(t, w.addStream(h, []DeviceHandle{devHandle}))
		}

		plan := w.planWake(now)
		assert.True(t, plan.hasWaker)
		assert.InDelta(t, earliest.Sub(now), plan.sleep, float64(time.Millisecond))
	})
}

// TestPlanWakeClampsSleepProperty checks testable property 6: the computed
// sleep never exceeds the configured bound and never goes negative, no
// matter how far in the future or past the nearest deadline is.
func TestPlanWakeClampsSleepProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := newTestWorker(t)
		boundMS := rapid.IntRange(10, 5000).Draw(rt, "boundMS")
		w.sleepBound = time.Duration(boundMS) * time.Millisecond

		dev := NewDemoDevice(0, "out0", DirOutput)
		devHandle := openDeviceFor(t, w, dev)

		deltaMS := rapid.IntRange(-5000, 50000).Draw(rt, "deltaMS")
		now := time.Now()
		s := NewDemoStream(1, DirOutput, 48000, 480)
		s.SetScheduling(true, now.Add(time.Duration(deltaMS)*time.Millisecond), true, -1, 0, 0)
		h := w.RegisterStream(s)
		require.NoError(t, w.addStream(h, []DeviceHandle{devHandle}))

		plan := w.planWake(now)
		assert.GreaterOrEqual(t, plan.sleep, time.Duration(0))
		assert.LessOrEqual(t, plan.sleep, w.sleepBound)
	})
}

// TestBusyLoopDetectorProperty is the randomized counterpart of
// TestBusyLoopDetectorFiresAfterThreshold (testable property 7): across any
// sequence of zero/non-zero waits, BusyLoopSignal fires exactly once per
// run of busyLoopThreshold consecutive zero waits.
func TestBusyLoopDetectorProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := newTestWorker(t)
		fired := 0
		w.BusyLoopSignal = func() { fired++ }

		n := rapid.IntRange(1, 30).Draw(rt, "n")
		zeroRun := 0
		wantFires := 0
		for i := 0; i < n; i++ {
			zero := rapid.Bool().Draw(rt, "zero")
			wait := time.Millisecond
			if zero {
				wait = 0
				zeroRun++
				if zeroRun == busyLoopThreshold {
					wantFires++
				}
			} else {
				zeroRun = 0
			}
			w.trackBusyLoop(wait)
		}
		assert.Equal(t, wantFires, fired)
	})
}

// TestBusyLoopDetectorFiresAfterThreshold checks that busyLoopThreshold
// consecutive zero-length sleeps trigger BusyLoopSignal exactly once
// (spec.md §4.3, testable property 7).
func TestBusyLoopDetectorFiresAfterThreshold(t *testing.T) {
	w := newTestWorker(t)
	fired := 0
	w.BusyLoopSignal = func() { fired++ }

	for i := 0; i < busyLoopThreshold; i++ {
		w.trackBusyLoop(0)
	}
	assert.Equal(t, 1, fired)

	w.trackBusyLoop(0)
	assert.Equal(t, 1, fired, "signal fires once per threshold crossing, not on every subsequent zero wait")

	w.trackBusyLoop(time.Millisecond)
	for i := 0; i < busyLoopThreshold; i++ {
		w.trackBusyLoop(0)
	}
	assert.Equal(t, 2, fired, "a non-zero wait resets the counter so the detector can fire again")
}
