package audiosched

import (
	"container/list"

	"golang.org/x/sys/unix"
)

// CallbackDirection selects which readiness edge a registered callback
// fires on.
type CallbackDirection int

const (
	CallbackRead CallbackDirection = iota
	CallbackWrite
)

// CallbackHandler is invoked from the main loop's Dispatch step when its
// descriptor becomes ready. Handlers must not block (spec.md §5).
type CallbackHandler func(fd int, data interface{})

// callbackRecord is one (fd, direction, enabled, handler) registration.
// slot points into the current iteration's poll array; it is only valid
// for the duration of one BuildPollSet/Wait/Dispatch cycle (spec.md §4.2).
type callbackRecord struct {
	fd        int
	dir       CallbackDirection
	enabled   bool
	handler   CallbackHandler
	data      interface{}
	slot      *unix.PollFd
	listElem  *list.Element
}

// callbackRegistry is the ordered set of externally-registered callback
// descriptors, traversed in insertion order. Grounded on the teacher's
// per-fd list.List queues (fdDesc.readers/writers in watcher.go), which
// solve the same problem: stable identity across add/remove without
// reallocating a backing array mid-traversal.
type callbackRegistry struct {
	order list.List // of *callbackRecord
}

func newCallbackRegistry() *callbackRegistry {
	return &callbackRegistry{}
}

// Add registers fd/handler/data/direction, silently rejecting a duplicate
// (fd, data) pair.
func (r *callbackRegistry) Add(fd int, handler CallbackHandler, data interface{}, dir CallbackDirection) {
	for e := r.order.Front(); e != nil; e = e.Next() {
		rec := e.Value.(*callbackRecord)
		if rec.fd == fd && rec.data == data {
			return
		}
	}
	rec := &callbackRecord{fd: fd, dir: dir, enabled: true, handler: handler, data: data}
	rec.listElem = r.order.PushBack(rec)
}

// Remove removes the first record matching fd.
func (r *callbackRegistry) Remove(fd int) bool {
	for e := r.order.Front(); e != nil; e = e.Next() {
		rec := e.Value.(*callbackRecord)
		if rec.fd == fd {
			r.order.Remove(e)
			return true
		}
	}
	return false
}

// Enable flips the enabled flag of the record matching fd, if any.
func (r *callbackRegistry) Enable(fd int, enabled bool) {
	for e := r.order.Front(); e != nil; e = e.Next() {
		rec := e.Value.(*callbackRecord)
		if rec.fd == fd {
			rec.enabled = enabled
			return
		}
	}
}

// forEach traverses records in insertion order.
func (r *callbackRegistry) forEach(fn func(rec *callbackRecord)) {
	for e := r.order.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*callbackRecord))
	}
}

func (r *callbackRegistry) len() int {
	return r.order.Len()
}

// AddCallback registers an externally-driven descriptor to be multiplexed
// alongside the control channel and per-stream fds. Unlike RemoveCallback
// (the command-protocol variant), this mutates worker state directly and
// must only be called from the worker goroutine itself — typically from
// within RunDevIO or another callback handler — never from the
// controller (spec.md §4.2, §6).
func (w *Worker) AddCallback(fd int, handler CallbackHandler, data interface{}, dir CallbackDirection) {
	w.callbacks.Add(fd, handler, data, dir)
}

// EnableCallback flips a registered callback's enabled flag. Same
// worker-goroutine-only restriction as AddCallback.
func (w *Worker) EnableCallback(fd int, enabled bool) {
	w.callbacks.Enable(fd, enabled)
}
