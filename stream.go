package audiosched

// StreamHandle is an opaque reference to a Stream registered with a
// Worker, carried on the wire in place of the stream handle spec.md
// describes for AddStream/DisconnectStream/DrainStream.
type StreamHandle uint64

// AecProcessor is the optional per-stream echo-cancellation processing
// list a stream may expose; AecDump forwards to it when present.
type AecProcessor interface {
	Dump(dev Device, start bool, fd int) error
}

// Stream is the capability set the core requires from a client stream.
// Rate matching, format conversion and the shared-memory buffer between
// server and client are entirely out of scope; the core only reads
// scheduling state and routes a handful of commands. See spec.md §6.
type Stream interface {
	ID() uint64
	Direction() Direction
	FrameRate() int

	// CallbackThreshold is the smallest number of frames the client
	// requires before it is next woken (cb_threshold).
	CallbackThreshold() int

	// DevOffset/SetDevOffset track the per-device read/write offset used
	// by the input-offset-alignment algorithm (§4.6, invariant 3).
	DevOffset(devIdx int) int
	SetDevOffset(devIdx int, offset int)

	IsDraining() bool
	SetDraining(bool)

	// FramesInSHM is the number of frames currently queued in the
	// client's shared-memory ring (used by DrainStream).
	FramesInSHM() int
	NumOverruns() int

	// Processing returns the stream's AEC processing list, or nil if it
	// has none. AecDump is a no-op when this returns nil.
	Processing() AecProcessor
}

// FramesToMS converts a frame count at the given sample rate to whole
// milliseconds, rounding up so a caller never wakes before data is ready.
// Mirrors the frames_to_ms helper referenced in spec.md §6.
func FramesToMS(frames, rate int) int {
	if rate <= 0 {
		return 0
	}
	ms := (frames*1000 + rate - 1) / rate
	return ms
}
