package audiosched

import (
	"sync"
	"time"
)

// DemoDevice is a deterministic, in-memory stand-in for a real hardware
// Device, used by tests and the CLI demo harness. Grounded on
// phinze-belowdeck's internal/device/emulator package, which plays the
// same role for a Stream Deck: a software object satisfying the same
// capability interface the real hardware driver satisfies, so the
// scheduler core can be exercised without real hardware.
type DemoDevice struct {
	mu sync.Mutex

	dir            Direction
	index          int
	name           string
	bufferSize     int
	minBufferLevel int
	minCbLevel     int
	maxCbLevel     int
	format         Format

	shouldWake   bool
	wakeDeadline time.Time
	underruns    int
	level        int

	filledZerosFrames int
	flushCount        int
	ramps             []RampRequest
	streams           []DevStream
}

// NewDemoDevice constructs a fake Device ready to be registered with a
// Worker via RegisterDevice.
func NewDemoDevice(index int, name string, dir Direction) *DemoDevice {
	return &DemoDevice{
		dir:            dir,
		index:          index,
		name:           name,
		bufferSize:     4800,
		minBufferLevel: 240,
		minCbLevel:     240,
		maxCbLevel:     4800,
		format:         Format{FrameRate: 48000, Channels: 2},
	}
}

func (d *DemoDevice) Direction() Direction    { return d.dir }
func (d *DemoDevice) Index() int              { return d.index }
func (d *DemoDevice) Name() string            { return d.name }
func (d *DemoDevice) BufferSize() int         { return d.bufferSize }
func (d *DemoDevice) MinBufferLevel() int     { return d.minBufferLevel }
func (d *DemoDevice) MinCallbackLevel() int   { return d.minCbLevel }
func (d *DemoDevice) MaxCallbackLevel() int   { return d.maxCbLevel }
func (d *DemoDevice) ExtFormat() Format       { return d.format }
func (d *DemoDevice) IsOpen() bool            { return true }
func (d *DemoDevice) ShouldWake() bool        { return d.shouldWake }
func (d *DemoDevice) WakeDeadline() time.Time { return d.wakeDeadline }
func (d *DemoDevice) UnderrunCount() int      { return d.underruns }
func (d *DemoDevice) Level() int              { return d.level }

// SetShouldWake lets tests arrange for the device to demand a hardware-
// clock wake independent of any attached stream's callback deadline.
func (d *DemoDevice) SetShouldWake(should bool, deadline time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shouldWake = should
	d.wakeDeadline = deadline
}

func (d *DemoDevice) FlushBuffer() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushCount++
	return nil
}

func (d *DemoDevice) FillZeros(frames int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filledZerosFrames += frames
	return nil
}

func (d *DemoDevice) StartRamp(req RampRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ramps = append(d.ramps, req)
	return nil
}

func (d *DemoDevice) AddStream(ds DevStream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streams = append(d.streams, ds)
}

func (d *DemoDevice) RemoveStream(ds DevStream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.streams {
		if s == ds {
			d.streams = append(d.streams[:i], d.streams[i+1:]...)
			return
		}
	}
}

func (d *DemoDevice) StreamOffset(streamID uint64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.streams {
		if s.Stream().ID() == streamID {
			return s.Offset()
		}
	}
	return 0
}

// Flushes reports how many times FlushBuffer was called, for assertions.
func (d *DemoDevice) Flushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushCount
}

// ZerosFilled reports the cumulative frame count passed to FillZeros.
func (d *DemoDevice) ZerosFilled() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filledZerosFrames
}

// Ramps returns a copy of every ramp request this device has received.
func (d *DemoDevice) Ramps() []RampRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RampRequest, len(d.ramps))
	copy(out, d.ramps)
	return out
}

// DemoStream is a deterministic in-memory Stream used by tests and the
// CLI demo.
type DemoStream struct {
	mu sync.Mutex

	id          uint64
	dir         Direction
	frameRate   int
	cbThreshold int
	draining    bool
	framesInSHM int
	overruns    int
	proc        AecProcessor
	devOffsets  map[int]int

	// Scheduling knobs copied into every DevStream this stream is bound
	// to via the default DemoDevStreamFactory.
	canFetch       bool
	hasNextCB      bool
	nextCB         time.Time
	pollFD         int
	playbackFrames int
	remaining      int
}

// NewDemoStream constructs a fake Stream with sensible scheduling
// defaults: CanFetch true, no next-callback deadline (bindings from the
// default factory report none until SetScheduling supplies one), no poll
// descriptor.
func NewDemoStream(id uint64, dir Direction, frameRate, cbThreshold int) *DemoStream {
	return &DemoStream{
		id:          id,
		dir:         dir,
		frameRate:   frameRate,
		cbThreshold: cbThreshold,
		devOffsets:  make(map[int]int),
		canFetch:    true,
		pollFD:      -1,
	}
}

func (s *DemoStream) ID() uint64               { return s.id }
func (s *DemoStream) Direction() Direction     { return s.dir }
func (s *DemoStream) FrameRate() int           { return s.frameRate }
func (s *DemoStream) CallbackThreshold() int   { return s.cbThreshold }
func (s *DemoStream) Processing() AecProcessor { return s.proc }

// SetProcessing installs an AecProcessor for AecDump to forward to.
func (s *DemoStream) SetProcessing(p AecProcessor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proc = p
}

func (s *DemoStream) DevOffset(devIdx int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devOffsets[devIdx]
}

func (s *DemoStream) SetDevOffset(devIdx int, offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devOffsets[devIdx] = offset
}

func (s *DemoStream) IsDraining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draining
}

func (s *DemoStream) SetDraining(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draining = v
}

func (s *DemoStream) FramesInSHM() int { s.mu.Lock(); defer s.mu.Unlock(); return s.framesInSHM }
func (s *DemoStream) NumOverruns() int { s.mu.Lock(); defer s.mu.Unlock(); return s.overruns }

// SetFramesInSHM lets tests control DrainStream's remaining-audio
// calculation.
func (s *DemoStream) SetFramesInSHM(frames int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesInSHM = frames
}

// SetScheduling configures the knobs the default DemoDevStreamFactory
// copies onto every binding created for this stream.
func (s *DemoStream) SetScheduling(canFetch bool, nextCB time.Time, hasNextCB bool, pollFD, playbackFrames, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canFetch = canFetch
	s.nextCB = nextCB
	s.hasNextCB = hasNextCB
	s.pollFD = pollFD
	s.playbackFrames = playbackFrames
	s.remaining = remaining
}

// DemoDevStream is the DevStream implementation the default demo factory
// produces.
type DemoDevStream struct {
	mu sync.Mutex

	stream    Stream
	devIdx    int
	format    Format
	dev       Device
	nextCB    time.Time
	hasNextCB bool
	canFetch  bool
	pollFD    int
	playback  int
	remaining int
	offset    int
	destroyed bool
}

// NewDemoDevStreamFactory returns a DevStreamFactory that seeds each
// binding's scheduling state from the DemoStream's configured knobs, and
// records every created binding into created (for test introspection of
// per-device offsets and init timestamps). created may be nil.
func NewDemoDevStreamFactory(created *[]*DemoDevStream) DevStreamFactory {
	return func(stream Stream, devIdx int, format Format, dev Device, initTS time.Time) (DevStream, error) {
		fs, ok := stream.(*DemoStream)
		ds := &DemoDevStream{
			stream: stream,
			devIdx: devIdx,
			format: format,
			dev:    dev,
			nextCB: initTS,
		}
		if ok {
			fs.mu.Lock()
			ds.hasNextCB = fs.hasNextCB
			if fs.hasNextCB {
				ds.nextCB = fs.nextCB
			}
			ds.canFetch = fs.canFetch
			ds.pollFD = fs.pollFD
			ds.playback = fs.playbackFrames
			ds.remaining = fs.remaining
			fs.mu.Unlock()
		} else {
			ds.canFetch = true
			ds.pollFD = -1
		}
		if created != nil {
			*created = append(*created, ds)
		}
		return ds, nil
	}
}

func (ds *DemoDevStream) Stream() Stream      { return ds.stream }
func (ds *DemoDevStream) DeviceIndex() int    { return ds.devIdx }
func (ds *DemoDevStream) PollStreamFD() int   { return ds.pollFD }
func (ds *DemoDevStream) PlaybackFrames() int { return ds.playback }

// IsDraining mirrors the parent stream's drain state, as the DevStream
// interface documents, rather than caching its own copy.
func (ds *DemoDevStream) IsDraining() bool { return ds.stream.IsDraining() }

func (ds *DemoDevStream) RemainingFrames() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.remaining
}

func (ds *DemoDevStream) CanFetch() bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.canFetch
}

// SetCanFetch lets a test flip readiness after construction, e.g. to
// simulate a stream becoming ready mid-run.
func (ds *DemoDevStream) SetCanFetch(v bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.canFetch = v
}

func (ds *DemoDevStream) NextCallbackTS() (time.Time, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.nextCB, ds.hasNextCB
}

func (ds *DemoDevStream) SetInitCallbackTS(t time.Time) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.nextCB = t
	ds.hasNextCB = true
}

func (ds *DemoDevStream) SetOffset(offset int) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.offset = offset
}

func (ds *DemoDevStream) Offset() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.offset
}

func (ds *DemoDevStream) Destroy() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.destroyed = true
}

// Destroyed reports whether Destroy has been called, for assertions.
func (ds *DemoDevStream) Destroyed() bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.destroyed
}
