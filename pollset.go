package audiosched

import "golang.org/x/sys/unix"

// defaultPollCapacity is the initial descriptor-array capacity (spec.md
// §4.8 Create: "allocate the descriptor array at capacity 32").
const defaultPollCapacity = 32

// buildPollSet assembles the descriptor array for one iteration's
// multiplexed wait, per spec.md §4.4:
//
//	slot 0: control pipe read end
//	then each enabled callback record, insertion order
//	then each attached output-device stream's PollStreamFD (>=0)
//	then the same for input devices
//
// The array grows geometrically and, if growth would reallocate the
// backing array mid-build, the partial build is discarded and the whole
// thing restarts — callbackRecord.slot is a pointer into this array and
// must never survive a reallocation.
func (w *Worker) buildPollSet() []unix.PollFd {
	for {
		arr := make([]unix.PollFd, 0, w.pollCap)

		if !appendSlot(&arr, int(w.ctrlReadFd), unix.POLLIN) {
			w.growPollCap()
			continue
		}

		restarted := false
		w.callbacks.forEach(func(rec *callbackRecord) {
			rec.slot = nil
			if restarted || !rec.enabled {
				return
			}
			events := int16(unix.POLLOUT)
			if rec.dir == CallbackRead {
				events = unix.POLLIN
			}
			if !appendSlot(&arr, rec.fd, events) {
				restarted = true
				return
			}
			rec.slot = &arr[len(arr)-1]
		})
		if restarted {
			w.growPollCap()
			continue
		}

		if !appendStreamFDs(&arr, w.outDevs) {
			w.growPollCap()
			continue
		}
		if !appendStreamFDs(&arr, w.inDevs) {
			w.growPollCap()
			continue
		}

		return arr
	}
}

// appendSlot appends one entry to arr if capacity allows, reporting
// whether it succeeded without reallocating.
func appendSlot(arr *[]unix.PollFd, fd int, events int16) bool {
	if len(*arr) == cap(*arr) {
		return false
	}
	*arr = append(*arr, unix.PollFd{Fd: int32(fd), Events: events})
	return true
}

func appendStreamFDs(arr *[]unix.PollFd, devs []*openDevice) bool {
	for _, od := range devs {
		for _, ds := range od.streams {
			fd := ds.PollStreamFD()
			if fd < 0 {
				continue
			}
			if !appendSlot(arr, fd, unix.POLLIN) {
				return false
			}
		}
	}
	return true
}

func (w *Worker) growPollCap() {
	w.pollCap *= 2
}
