package audiosched

import "time"

// dispatchOne decodes one control-channel message and dispatches it by
// command id (spec.md §4.5). It always produces a reply, even on error,
// except after Stop — which replies first and then signals the main loop
// to exit. Returns stop=true only for CmdStop.
func (w *Worker) dispatchOne() (stop bool, err error) {
	id, payload, err := readFrame(w.toWorkerR)
	if err != nil {
		return false, err
	}
	w.eventLog.add(EventPbMsg, time.Now(), int64(id))

	if id == CmdStop {
		if werr := writeReply(w.toCtrlW, 0); werr != nil {
			return true, werr
		}
		return true, nil
	}

	reply := w.handleCommand(id, payload)
	if werr := writeReply(w.toCtrlW, reply); werr != nil {
		return false, werr
	}
	return false, nil
}

func (w *Worker) handleCommand(id CommandID, payload []byte) int64 {
	switch id {
	case CmdAddOpenDev:
		dh := DeviceHandle(decodeU64(payload))
		return replyCode(w.addOpenDev(dh))

	case CmdRmOpenDev:
		dh := DeviceHandle(decodeU64(payload))
		return replyCode(w.rmOpenDev(dh))

	case CmdIsDevOpen:
		dh := DeviceHandle(decodeU64(payload))
		return w.isDevOpen(dh)

	case CmdAddStream:
		sh, devs := decodeAddStream(payload)
		return replyCode(w.addStream(sh, devs))

	case CmdDisconnectStream:
		sh := StreamHandle(decodeU64(payload[0:8]))
		dh := DeviceHandle(decodeU64(payload[8:16]))
		return replyCode(w.disconnectStream(sh, dh))

	case CmdDrainStream:
		sh := StreamHandle(decodeU64(payload))
		ms, err := w.drainStream(sh)
		if err != nil {
			return replyCode(err)
		}
		return ms

	case CmdDumpThreadInfo:
		w.dumpThreadInfo()
		return 0

	case CmdConfigGlobalRemix:
		newConv := RemixHandle(decodeU64(payload))
		return w.configGlobalRemix(newConv)

	case CmdDevStartRamp:
		dh := DeviceHandle(decodeU64(payload[0:8]))
		req := RampRequest(decodeI32(payload[8:12]))
		return replyCode(w.devStartRamp(dh, req))

	case CmdRemoveCallback:
		fd := int(decodeI32(payload))
		w.removeCallback(fd)
		return 0

	case CmdAecDump:
		sid := decodeU64(payload[0:8])
		start := payload[8] != 0
		fd := int(decodeI32(payload[9:13]))
		return replyCode(w.aecDump(sid, start, fd))

	default:
		return replyCode(ErrInvalidArg)
	}
}

func (w *Worker) addOpenDev(devHandle DeviceHandle) error {
	dev, ok := w.handles.device(devHandle)
	if !ok {
		return ErrInvalidArg
	}
	list := w.devicesForDirection(dev.Direction())
	if od, _ := findDevice(list, dev); od != nil {
		return ErrAlreadyExists
	}

	if dev.Direction() == DirOutput {
		if err := dev.FillZeros(dev.MinBufferLevel()); err != nil {
			return err
		}
	}

	od := newOpenDevice(dev)
	if dev.Direction() == DirOutput {
		w.outDevs = append(w.outDevs, od)
	} else {
		w.inDevs = append(w.inDevs, od)
	}
	w.eventLog.add(EventDevAdded, time.Now(), int64(dev.Index()))
	return nil
}

func (w *Worker) rmOpenDev(devHandle DeviceHandle) error {
	dev, ok := w.handles.device(devHandle)
	if !ok {
		return ErrNotFound
	}

	list := w.devicesForDirection(dev.Direction())
	od, idx := findDevice(list, dev)
	if od == nil {
		return ErrNotFound
	}

	if dev.Direction() == DirOutput {
		w.outDevs = append(w.outDevs[:idx], w.outDevs[idx+1:]...)
	} else {
		w.inDevs = append(w.inDevs[:idx], w.inDevs[idx+1:]...)
	}
	w.handles.forgetDevice(devHandle)
	return nil
}

func (w *Worker) isDevOpen(devHandle DeviceHandle) int64 {
	dev, ok := w.handles.device(devHandle)
	if !ok {
		return 0
	}
	list := w.devicesForDirection(dev.Direction())
	if od, _ := findDevice(list, dev); od != nil {
		return 1
	}
	return 0
}

func (w *Worker) disconnectStream(streamHandle StreamHandle, devHandle DeviceHandle) error {
	stream, ok := w.handles.stream(streamHandle)
	if !ok {
		return ErrInvalidArg
	}

	list := w.devicesForDirection(stream.Direction())
	attached := false
	for _, od := range list {
		if _, bound := od.hasStream(stream.ID()); bound {
			attached = true
			break
		}
	}
	if !attached {
		return nil
	}

	dev, ok := w.handles.device(devHandle)
	if !ok {
		return ErrNotFound
	}
	od, _ := findDevice(list, dev)
	if od == nil || !od.removeStream(stream.ID()) {
		return ErrNotFound
	}
	return nil
}

func (w *Worker) drainStream(streamHandle StreamHandle) (int64, error) {
	stream, ok := w.handles.stream(streamHandle)
	if !ok {
		return 0, ErrInvalidArg
	}
	if stream.Direction() != DirOutput {
		return 0, ErrInvalidArg
	}

	if stream.FramesInSHM() == 0 {
		for _, od := range w.outDevs {
			od.removeStream(stream.ID())
		}
		stream.SetDraining(false)
		return 0, nil
	}

	stream.SetDraining(true)
	ms := 1 + FramesToMS(stream.FramesInSHM(), stream.FrameRate())
	return int64(ms), nil
}

// dumpThreadInfo implements spec.md §4.5 DumpThreadInfo: walk both
// direction lists, copy the ring-log snapshot, and reset longest_wake.
// Per SPEC_FULL.md §9, the reset happens once per dump call, not once per
// stream recorded.
func (w *Worker) dumpThreadInfo() {
	dump := &ThreadDump{
		Events:      w.eventLog.snapshot(),
		LongestWake: w.longestWake,
	}
	for _, od := range w.outDevs {
		dump.OutputDevices = append(dump.OutputDevices, deviceDumpOf(od))
	}
	for _, od := range w.inDevs {
		dump.InputDevices = append(dump.InputDevices, deviceDumpOf(od))
	}

	w.dumpMu.Lock()
	w.lastDump = dump
	w.dumpMu.Unlock()

	w.longestWake = 0
}

func deviceDumpOf(od *openDevice) DeviceDump {
	return DeviceDump{
		Index:       od.dev.Index(),
		Name:        od.dev.Name(),
		Level:       od.dev.Level(),
		Underruns:   od.dev.UnderrunCount(),
		StreamCount: len(od.streams),
	}
}

func (w *Worker) configGlobalRemix(newConv RemixHandle) int64 {
	old := w.remix
	w.remix = newConv
	return int64(old)
}

func (w *Worker) devStartRamp(devHandle DeviceHandle, req RampRequest) error {
	dev, ok := w.handles.device(devHandle)
	if !ok {
		return ErrInvalidArg
	}
	list := w.devicesForDirection(dev.Direction())
	if od, _ := findDevice(list, dev); od == nil {
		return ErrInvalidArg
	}
	return dev.StartRamp(req)
}

func (w *Worker) removeCallback(fd int) {
	w.callbacks.Remove(fd)
}

func (w *Worker) aecDump(streamID uint64, start bool, fd int) error {
	for _, od := range w.inDevs {
		for _, ds := range od.streams {
			if ds.Stream().ID() != streamID {
				continue
			}
			proc := ds.Stream().Processing()
			if proc == nil {
				return nil
			}
			return proc.Dump(od.dev, start, fd)
		}
	}
	return nil
}
