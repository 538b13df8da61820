package audiosched

import "time"

// openDevice wraps an external Device handle with the hardware-wake
// timestamp the wake planner needs, plus the core's own ordered list of
// attached DevStream bindings (spec.md §3's OpenDevice).
//
// The attached-stream list is authoritative here, not on Device: the
// input-offset alignment and output-init-timestamp algorithms (§4.6) both
// need to know which binding was *first*, and the core — not the device
// implementation — owns that ordering.
type openDevice struct {
	dev     Device
	wakeTS  time.Time
	streams []DevStream
}

func newOpenDevice(dev Device) *openDevice {
	return &openDevice{dev: dev}
}

func (od *openDevice) firstStream() DevStream {
	if len(od.streams) == 0 {
		return nil
	}
	return od.streams[0]
}

func (od *openDevice) hasStream(streamID uint64) (DevStream, bool) {
	for _, ds := range od.streams {
		if ds.Stream().ID() == streamID {
			return ds, true
		}
	}
	return nil, false
}

func (od *openDevice) appendStream(ds DevStream) {
	od.streams = append(od.streams, ds)
	od.dev.AddStream(ds)
}

// removeStream removes and destroys the binding for streamID, if present,
// reporting whether one was found.
func (od *openDevice) removeStream(streamID uint64) bool {
	for i, ds := range od.streams {
		if ds.Stream().ID() == streamID {
			od.dev.RemoveStream(ds)
			ds.Destroy()
			od.streams = append(od.streams[:i], od.streams[i+1:]...)
			return true
		}
	}
	return false
}

// devicesOf extracts the plain Device handles from a list of openDevice,
// for passing to the external RunDevIO pump.
func devicesOf(list []*openDevice) []Device {
	out := make([]Device, len(list))
	for i, od := range list {
		out[i] = od.dev
	}
	return out
}

// findDevice returns the openDevice for dev, if it is a member of list.
func findDevice(list []*openDevice, dev Device) (*openDevice, int) {
	for i, od := range list {
		if od.dev == dev {
			return od, i
		}
	}
	return nil, -1
}
