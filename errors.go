package audiosched

import "github.com/pkg/errors"

// Error kinds returned through the command reply channel. These are
// sentinels: dispatcher-side code wraps them with errors.Wrap/Wrapf for a
// stack-annotated message, but callers test for the kind with errors.Is.
var (
	// ErrAlreadyExists is returned by AddOpenDev for a device already open.
	ErrAlreadyExists = errors.New("audiosched: already exists")

	// ErrNotFound is returned by removal or lookup commands that miss.
	ErrNotFound = errors.New("audiosched: not found")

	// ErrInvalidArg is returned for malformed commands, failed stream
	// construction, ramp requests on non-open devices, and several commands
	// naming a handle that was never registered. A stream whose direction is not
	// DirInput is attached as an output stream; no direction is rejected.
	ErrInvalidArg = errors.New("audiosched: invalid argument")

	// ErrOutOfMemory is returned when a converter or record allocation fails.
	ErrOutOfMemory = errors.New("audiosched: out of memory")

	// ErrPipe is returned when a write to the control transport fails or
	// comes back short, or a read fails with an error other than EOF (EOF
	// and short reads are reported as ErrClosed).
	ErrPipe = errors.New("audiosched: pipe closed or truncated")

	// ErrInterrupted is retried internally by the codec and never surfaces
	// to a caller; exported only so tests can assert it never escapes.
	ErrInterrupted = errors.New("audiosched: interrupted")

	// ErrOverflow is returned by the codec when a frame's declared length
	// exceeds maxCommandSize.
	ErrOverflow = errors.New("audiosched: frame exceeds buffer")

	// ErrClosed is returned by the codec on EOF before a full frame arrives.
	ErrClosed = errors.New("audiosched: transport closed")

	// ErrStopped is returned by controller-facing command methods once the
	// worker has processed Stop; no further replies will arrive.
	ErrStopped = errors.New("audiosched: worker stopped")
)

// errFromReplyCode is the inverse of replyCode, used by the controller
// side to turn a negative reply register back into a sentinel error. Any
// non-negative code is treated as success (nil).
func errFromReplyCode(code int64) error {
	switch code {
	case 0:
		return nil
	case -1:
		return ErrAlreadyExists
	case -2:
		return ErrNotFound
	case -3:
		return ErrInvalidArg
	case -4:
		return ErrOutOfMemory
	case -5:
		return ErrPipe
	case -6:
		return ErrInterrupted
	default:
		if code < 0 {
			return ErrInvalidArg
		}
		return nil
	}
}

// replyCode maps an error kind to the small negative reply code carried in
// the wire reply register. Unrecognized errors map to -3 (InvalidArg), so
// the -1 slot is used only for a true AlreadyExists while anything else
// unexpected still carries a negative code on the wire.
func replyCode(err error) int64 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrAlreadyExists):
		return -1
	case errors.Is(err, ErrNotFound):
		return -2
	case errors.Is(err, ErrInvalidArg):
		return -3
	case errors.Is(err, ErrOutOfMemory):
		return -4
	case errors.Is(err, ErrPipe):
		return -5
	case errors.Is(err, ErrInterrupted):
		return -6
	default:
		return -3
	}
}
