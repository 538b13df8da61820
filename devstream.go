package audiosched

import "time"

// DevStream is the binding between one Stream and one Device, carrying
// per-device scheduling state. A given Stream may have several DevStreams
// simultaneously, one per Device it is attached to (spec.md §3).
type DevStream interface {
	Stream() Stream
	DeviceIndex() int

	// NextCallbackTS is the absolute monotonic time this binding next
	// needs servicing; ok is false if the binding has no pending
	// deadline (e.g. an input stream waiting on more capture data).
	NextCallbackTS() (ts time.Time, ok bool)

	// CanFetch reports whether the stream currently has a callback ready
	// to be invoked (output) or data ready to be consumed (input).
	CanFetch() bool

	// PollStreamFD is the client notification descriptor to multiplex on,
	// or -1 if this binding has none.
	PollStreamFD() int

	PlaybackFrames() int

	// IsDraining/RemainingFrames mirror the parent stream's drain state
	// as observed from this device binding, used by the wake planner's
	// zero-remaining-frames check (§4.3 step 2).
	IsDraining() bool
	RemainingFrames() int

	// SetOffset seeds the binding's offset when a later capture stream is
	// aligned to an earlier one (§4.6 step 7). SetInitCallbackTS overrides
	// the next callback time; the core does not call it, since the step-3
	// timestamp is passed to the DevStreamFactory instead.
	SetInitCallbackTS(t time.Time)
	SetOffset(offset int)
	Offset() int

	// Destroy releases any resources the binding holds. Called on
	// detach, rollback, and drain-to-zero.
	Destroy()
}

// DevStreamFactory constructs a DevStream binding a Stream to a Device.
// It is supplied externally (the core has no opinion on how the binding
// allocates its buffers) and may fail with ErrInvalidArg, matching
// spec.md §4.6 step 4.
type DevStreamFactory func(stream Stream, devIdx int, format Format, dev Device, initTS time.Time) (DevStream, error)
