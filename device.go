package audiosched

import "time"

// Direction is the data flow direction of a device or stream.
type Direction int

const (
	// DirOutput devices play audio (fill buffers); DirOutput streams
	// provide samples to be played.
	DirOutput Direction = iota
	// DirInput devices capture audio (drain buffers); DirInput streams
	// consume captured samples.
	DirInput
)

func (d Direction) String() string {
	if d == DirInput {
		return "input"
	}
	return "output"
}

// Format describes the negotiated sample format of a device or stream.
// Format conversion itself is out of scope for the core; this is just
// enough information for the core to size buffers and compute timing.
type Format struct {
	FrameRate int
	Channels  int
}

// RampRequest is the gain-ramp operation requested of a device, used to
// avoid audible artifacts at stream start/stop.
type RampRequest int

const (
	RampUp RampRequest = iota
	RampDown
	RampMute
)

// DeviceHandle is an opaque reference to a Device registered with a
// Worker. Commands on the wire protocol carry handles rather than raw
// interface values, matching the "device handle" payload spec.md
// describes for AddOpenDev/RmOpenDev/IsDevOpen/DevStartRamp.
type DeviceHandle uint64

// Device is the capability set the core requires from the hardware
// abstraction. Implementations own format conversion, buffer sizing,
// ramp control, underrun counting and sample movement; the core only
// calls the operations below. See spec.md §6.
type Device interface {
	Direction() Direction
	Index() int
	Name() string

	BufferSize() int
	MinBufferLevel() int
	MinCallbackLevel() int
	MaxCallbackLevel() int
	ExtFormat() Format

	// IsOpen reports whether the underlying hardware handle is usable.
	IsOpen() bool

	// ShouldWake reports whether the device's hardware clock requires the
	// worker to wake at WakeDeadline even with no stream activity.
	ShouldWake() bool
	WakeDeadline() time.Time

	// FlushBuffer discards any buffered input so the first attached
	// capture stream starts from a clean read offset. Returns an error on
	// failure (mirrors the negative-return convention of the reference
	// capability).
	FlushBuffer() error

	// FillZeros primes an output device's hardware buffer with n frames
	// of silence, used when a device is first opened.
	FillZeros(frames int) error

	StartRamp(req RampRequest) error

	// AddStream/RemoveStream notify the device of the device-local
	// binding so it can, for example, account for buffer occupancy.
	// The core keeps its own authoritative per-device stream ordering;
	// these calls are a notification hook for the device implementation.
	AddStream(ds DevStream)
	RemoveStream(ds DevStream)

	// StreamOffset is the per-stream hardware-buffer offset accessor read
	// by the input offset-alignment algorithm (§4.6).
	StreamOffset(streamID uint64) int

	// UnderrunCount and Level back DumpThreadInfo's per-device reporting.
	UnderrunCount() int
	Level() int
}
