package audiosched

import "time"

// appendStreamToDevice implements the attach algorithm of spec.md §4.6 for
// one (stream, device) pair. It is called only from the worker goroutine,
// once per requested device in addStream's loop.
//
// Returns the newly-created DevStream on success. A nil, nil return means
// "skipped silently" (device not open, or already bound) per steps 1-2.
func (w *Worker) appendStreamToDevice(stream Stream, dev Device) (DevStream, error) {
	list := w.devicesForDirection(stream.Direction())
	od, _ := findDevice(list, dev)
	if od == nil {
		return nil, nil // step 1: not open, skip silently
	}
	if _, bound := od.hasStream(stream.ID()); bound {
		return nil, nil // step 2: idempotent, skip silently
	}

	initTS := w.initCallbackTS(stream, od)

	ds, err := w.devStreamFactory(stream, od.dev.Index(), od.dev.ExtFormat(), dev, initTS)
	if err != nil {
		return nil, errorsWrapInvalidArg(err)
	}

	if stream.Direction() == DirInput && len(od.streams) == 0 {
		if err := od.dev.FlushBuffer(); err != nil {
			ds.Destroy()
			return nil, errorsWrapInvalidArg(err)
		}
	}

	first := od.firstStream()
	od.appendStream(ds)

	if stream.Direction() == DirInput && first != nil {
		w.alignInputOffsets(stream, ds, first, od.dev)
	}

	w.eventLog.add(EventStreamAdded, time.Now(), int64(od.dev.Index()))
	return ds, nil
}

// initCallbackTS implements step 3: for an output device with existing
// streams, the earliest of their next_cb_ts; otherwise now.
func (w *Worker) initCallbackTS(stream Stream, od *openDevice) time.Time {
	now := time.Now()
	if stream.Direction() != DirOutput || len(od.streams) == 0 {
		return now
	}

	earliest := time.Time{}
	found := false
	for _, ds := range od.streams {
		ts, ok := ds.NextCallbackTS()
		if !ok {
			continue
		}
		if !found || ts.Before(earliest) {
			earliest = ts
			found = true
		}
	}
	if !found {
		return now
	}
	return earliest
}

// alignInputOffsets implements step 7: when attaching a second-or-later
// capture stream to a device, copy the first stream's offsets onto the new
// binding and the new stream, each clamped to the new stream's callback
// threshold, so that neither reader starves (invariant 3). The first
// stream's own offsets are left untouched.
func (w *Worker) alignInputOffsets(stream Stream, ds, first DevStream, dev Device) {
	devIdx := dev.Index()
	newOffset := min(dev.StreamOffset(first.Stream().ID()), stream.CallbackThreshold())
	ds.SetOffset(newOffset)

	firstStream := first.Stream()
	devOffset := min(firstStream.DevOffset(devIdx), stream.CallbackThreshold())
	stream.SetDevOffset(devIdx, devOffset)
}

func errorsWrapInvalidArg(err error) error {
	if err == nil {
		return ErrInvalidArg
	}
	return &invalidArgError{cause: err}
}

// invalidArgError wraps an underlying construction failure while still
// satisfying errors.Is(err, ErrInvalidArg) at the reply boundary.
type invalidArgError struct {
	cause error
}

func (e *invalidArgError) Error() string { return "audiosched: invalid argument: " + e.cause.Error() }
func (e *invalidArgError) Unwrap() error { return ErrInvalidArg }

// devicesForDirection returns the worker's device list for dir.
func (w *Worker) devicesForDirection(dir Direction) []*openDevice {
	if dir == DirInput {
		return w.inDevs
	}
	return w.outDevs
}

// addStream implements the AddStream command's all-or-nothing attach
// across every requested device (spec.md §4.5 AddStream row).
func (w *Worker) addStream(streamHandle StreamHandle, devHandles []DeviceHandle) error {
	stream, ok := w.handles.stream(streamHandle)
	if !ok {
		return ErrInvalidArg
	}
	w.eventLog.add(EventWriteStreamsWait, time.Now(), int64(len(devHandles)))

	for _, dh := range devHandles {
		dev, ok := w.handles.device(dh)
		if !ok {
			continue // unknown device handle behaves like "not open": skip
		}
		if _, err := w.appendStreamToDevice(stream, dev); err != nil {
			w.rollbackStream(stream)
			return err
		}
	}
	return nil
}

// rollbackStream removes every binding of stream from every device in its
// direction's open list (spec.md §4.6 "Rollback").
func (w *Worker) rollbackStream(stream Stream) {
	list := w.devicesForDirection(stream.Direction())
	for _, od := range list {
		od.removeStream(stream.ID())
	}
}
