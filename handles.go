package audiosched

import "sync"

// handleTable is the shared object table behind DeviceHandle/StreamHandle.
// Both the controller and the worker run in the same process and share an
// address space, so there is no need to marshal a Device or Stream onto
// the wire: RegisterDevice/RegisterStream hand back a small opaque handle
// up front, and the control-channel commands carry only that handle,
// matching the "device handle" / "stream handle" wire payloads in
// spec.md §6. The table itself is guarded by a mutex since it is written
// by the controller and read by the worker goroutine.
type handleTable struct {
	mu      sync.Mutex
	nextID  uint64
	devices map[DeviceHandle]Device
	streams map[StreamHandle]Stream
}

func newHandleTable() *handleTable {
	return &handleTable{
		devices: make(map[DeviceHandle]Device),
		streams: make(map[StreamHandle]Stream),
	}
}

func (t *handleTable) registerDevice(d Device) DeviceHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	h := DeviceHandle(t.nextID)
	t.devices[h] = d
	return h
}

func (t *handleTable) registerStream(s Stream) StreamHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	h := StreamHandle(t.nextID)
	t.streams[h] = s
	return h
}

func (t *handleTable) device(h DeviceHandle) (Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.devices[h]
	return d, ok
}

func (t *handleTable) stream(h StreamHandle) (Stream, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.streams[h]
	return s, ok
}

// forgetDevice drops a handle once its backing object is no longer reachable
// through any command (e.g. after RmOpenDev). Safe to call even if the
// handle is still referenced elsewhere; it just stops the table from
// pinning the object.
func (t *handleTable) forgetDevice(h DeviceHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.devices, h)
}

func (t *handleTable) forgetStream(h StreamHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.streams, h)
}
