package audiosched

// This file is the controller-facing half of the command protocol: one
// method per row of spec.md §4.5/§6, each a synchronous round trip over
// the command codec (write frame, block for reply).

// AddOpenDev opens dev for servicing by the worker. Returns ErrAlreadyExists
// if dev is already open.
func (w *Worker) AddOpenDev(dev DeviceHandle) error {
	reply, err := w.sendCommand(CmdAddOpenDev, encodeU64(uint64(dev)))
	if err != nil {
		return err
	}
	return errFromReplyCode(reply)
}

// RmOpenDev closes dev. Returns ErrNotFound if it was not open.
func (w *Worker) RmOpenDev(dev DeviceHandle) error {
	reply, err := w.sendCommand(CmdRmOpenDev, encodeU64(uint64(dev)))
	if err != nil {
		return err
	}
	return errFromReplyCode(reply)
}

// IsDevOpen reports whether dev is currently open. Unlike every other
// command, the reply register here is a disjoint 0/1 value rather than
// an error code (spec.md §9 Open Question), so this method never returns
// an error for "not open" — only for transport failure.
func (w *Worker) IsDevOpen(dev DeviceHandle) (bool, error) {
	reply, err := w.sendCommand(CmdIsDevOpen, encodeU64(uint64(dev)))
	if err != nil {
		return false, err
	}
	return reply != 0, nil
}

// AddStream attaches stream to every device in devs. On any per-device
// failure, every binding made for this call is rolled back and the first
// failure is returned (spec.md §4.5 AddStream, §4.6 rollback).
func (w *Worker) AddStream(stream StreamHandle, devs []DeviceHandle) error {
	reply, err := w.sendCommand(CmdAddStream, encodeAddStream(stream, devs))
	if err != nil {
		return err
	}
	return errFromReplyCode(reply)
}

// DisconnectStream detaches stream from dev. Succeeds with nil if stream
// was not attached anywhere.
func (w *Worker) DisconnectStream(stream StreamHandle, dev DeviceHandle) error {
	payload := append(encodeU64(uint64(stream)), encodeU64(uint64(dev))...)
	reply, err := w.sendCommand(CmdDisconnectStream, payload)
	if err != nil {
		return err
	}
	return errFromReplyCode(reply)
}

// DrainStream marks an output stream draining and returns the number of
// milliseconds of buffered audio remaining, or 0 once fully drained (in
// which case the stream is detached from every device).
func (w *Worker) DrainStream(stream StreamHandle) (int, error) {
	reply, err := w.sendCommand(CmdDrainStream, encodeU64(uint64(stream)))
	if err != nil {
		return 0, err
	}
	if reply < 0 {
		return 0, errFromReplyCode(reply)
	}
	return int(reply), nil
}

// DumpThreadInfo returns a snapshot of device/stream/event-log state and
// resets the longest-observed-wake metric.
func (w *Worker) DumpThreadInfo() (*ThreadDump, error) {
	if _, err := w.sendCommand(CmdDumpThreadInfo, nil); err != nil {
		return nil, err
	}
	w.dumpMu.Lock()
	defer w.dumpMu.Unlock()
	return w.lastDump, nil
}

// ConfigGlobalRemix atomically installs conv as the global remix
// converter and returns the previous one so the caller can free it.
func (w *Worker) ConfigGlobalRemix(conv RemixHandle) (RemixHandle, error) {
	reply, err := w.sendCommand(CmdConfigGlobalRemix, encodeU64(uint64(conv)))
	if err != nil {
		return NoRemix, err
	}
	return RemixHandle(reply), nil
}

// DevStartRamp invokes a gain-ramp operation on dev, which must be open.
func (w *Worker) DevStartRamp(dev DeviceHandle, req RampRequest) error {
	payload := append(encodeU64(uint64(dev)), encodeI32(int32(req))...)
	reply, err := w.sendCommand(CmdDevStartRamp, payload)
	if err != nil {
		return err
	}
	return errFromReplyCode(reply)
}

// RemoveCallback removes the callback registry entry for fd. This is the
// cross-thread-safe variant of CallbackRegistry.Remove, run synchronously
// on the worker via the command protocol (spec.md §4.2).
func (w *Worker) RemoveCallback(fd int) error {
	_, err := w.sendCommand(CmdRemoveCallback, encodeI32(int32(fd)))
	return err
}

// AecDump forwards a start/stop AEC debug dump request to the matching
// input stream's processing list, if any.
func (w *Worker) AecDump(streamID uint64, start bool, fd int) error {
	payload := make([]byte, 13)
	copy(payload[0:8], encodeU64(streamID))
	if start {
		payload[8] = 1
	}
	copy(payload[9:13], encodeI32(int32(fd)))

	reply, err := w.sendCommand(CmdAecDump, payload)
	if err != nil {
		return err
	}
	return errFromReplyCode(reply)
}
