package audiosched

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// CommandID identifies a control-channel message. Values match the table
// in spec.md §6.
type CommandID uint8

const (
	CmdAddOpenDev CommandID = iota
	CmdRmOpenDev
	CmdIsDevOpen
	CmdAddStream
	CmdDisconnectStream
	CmdDrainStream
	CmdDumpThreadInfo
	CmdConfigGlobalRemix
	CmdDevStartRamp
	CmdRemoveCallback
	CmdAecDump
	CmdStop
)

// frameHeaderSize is the length field plus the command-id byte.
const frameHeaderSize = 4 + 1

// maxCommandSize is the hard ceiling on one frame's total byte count,
// chosen so the codec's atomicity guarantee holds on any pipe (spec.md
// §4.1: "requires all commands ≤ 256 bytes").
const maxCommandSize = 256

// writeFrame writes one length-prefixed [length][id][payload] message in
// a single Write call, per spec.md §4.1. A short write is treated as
// fatal to the transport.
func writeFrame(w io.Writer, id CommandID, payload []byte) error {
	total := frameHeaderSize + len(payload)
	if total > maxCommandSize {
		return errors.Wrapf(ErrInvalidArg, "codec: frame of %d bytes exceeds %d byte limit", total, maxCommandSize)
	}

	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(total))
	buf[4] = byte(id)
	copy(buf[5:], payload)

	n, err := w.Write(buf)
	if err != nil {
		return errors.Wrap(ErrPipe, err.Error())
	}
	if n != total {
		return errors.Wrapf(ErrPipe, "codec: short write (%d of %d bytes)", n, total)
	}
	return nil
}

// readFrame reads one length-prefixed message: first the length field,
// then the remainder. io.ReadFull already retries short reads internally,
// which is the Go realization of spec.md §4.1's "retries on interruption".
func readFrame(r io.Reader) (CommandID, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, ErrClosed
		}
		return 0, nil, errors.Wrap(ErrPipe, err.Error())
	}

	total := binary.LittleEndian.Uint32(lenBuf[:])
	if total > maxCommandSize {
		return 0, nil, ErrOverflow
	}
	if total < frameHeaderSize {
		return 0, nil, errors.Wrap(ErrInvalidArg, "codec: frame shorter than header")
	}

	rest := make([]byte, total-4)
	if _, err := io.ReadFull(r, rest); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, ErrClosed
		}
		return 0, nil, errors.Wrap(ErrPipe, err.Error())
	}

	id := CommandID(rest[0])
	payload := rest[1:]
	return id, payload, nil
}

// writeReply writes the single machine-sized reply register: an int32
// return code for most commands, or a uintptr-sized converter handle for
// ConfigGlobalRemix, both carried in the same 8-byte slot (spec.md §4.1).
func writeReply(w io.Writer, val int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(val))
	n, err := w.Write(buf[:])
	if err != nil {
		return errors.Wrap(ErrPipe, err.Error())
	}
	if n != len(buf) {
		return errors.Wrapf(ErrPipe, "codec: short reply write (%d of %d bytes)", n, len(buf))
	}
	return nil
}

func readReply(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrClosed
		}
		return 0, errors.Wrap(ErrPipe, err.Error())
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}
