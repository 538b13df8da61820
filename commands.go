package audiosched

import (
	"encoding/binary"
	"time"
)

// RemixHandle is an opaque reference to the global remix converter, the
// format-conversion utility applied across output streams before mixing.
// The conversion logic itself is out of scope (spec.md §1); the core only
// moves ownership of the handle between controller and worker.
type RemixHandle uint64

// NoRemix is the nil RemixHandle, meaning "no converter installed".
const NoRemix RemixHandle = 0

// ThreadDump is the bounded snapshot DumpThreadInfo fills, per spec.md
// §4.5.
type ThreadDump struct {
	OutputDevices []DeviceDump
	InputDevices  []DeviceDump
	Events        []EventRecord
	LongestWake   time.Duration
}

// DeviceDump is one device's entry in a ThreadDump.
type DeviceDump struct {
	Index       int
	Name        string
	Level       int
	Underruns   int
	StreamCount int
}

// --- payload encode/decode helpers -----------------------------------

func encodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func decodeU64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

func encodeI32(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func decodeI32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

// encodeAddStream packs a stream handle and its target device handles:
// [stream:8][count:4][dev:8]*count
func encodeAddStream(stream StreamHandle, devs []DeviceHandle) []byte {
	buf := make([]byte, 8+4+8*len(devs))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(stream))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(devs)))
	for i, d := range devs {
		off := 12 + i*8
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(d))
	}
	return buf
}

func decodeAddStream(b []byte) (StreamHandle, []DeviceHandle) {
	stream := StreamHandle(decodeU64(b[0:8]))
	count := binary.LittleEndian.Uint32(b[8:12])
	devs := make([]DeviceHandle, count)
	for i := range devs {
		off := 12 + i*8
		devs[i] = DeviceHandle(decodeU64(b[off : off+8]))
	}
	return stream, devs
}
