package audiosched

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Worker is the real-time audio I/O scheduler core: one dedicated
// goroutine services a dynamic set of open devices and their attached
// streams, reachable only through the synchronous command protocol
// (spec.md §3). The fields in the "worker-goroutine-owned state" block at
// the end of the struct are touched exclusively by that goroutine once
// Start has run; everything above it is safe for the controller to touch.
type Worker struct {
	logger *log.Logger

	toWorkerR, toWorkerW *os.File
	toCtrlR, toCtrlW     *os.File
	ctrlReadFd           uintptr

	cmdMu sync.Mutex // serializes controller-side command calls

	handles  *handleTable
	realtime bool

	started  atomic.Bool
	group    *errgroup.Group
	groupCtx context.Context
	stopOnce sync.Once

	devStreamFactory DevStreamFactory

	dumpMu   sync.Mutex
	lastDump *ThreadDump

	// BusyLoopSignal, if set, is invoked from the worker goroutine when
	// the busy-loop detector fires. Must not block (spec.md §5).
	BusyLoopSignal func()

	// RunDevIO, if set, is the external device-I/O pump: it advances
	// hardware I/O for every open device on each loop iteration (spec.md
	// §4.7 RunDevIO). Device format conversion and sample movement are
	// entirely out of this package's scope, so the core only calls this
	// hook; it is nil-safe to leave unset in tests that don't care about
	// real hardware movement.
	RunDevIO func(outDevs, inDevs []Device, remix RemixHandle)

	// worker-goroutine-owned state
	outDevs       []*openDevice
	inDevs        []*openDevice
	callbacks     *callbackRegistry
	pollCap       int
	remix         RemixHandle
	eventLog      *eventLog
	busyLoopCount int
	longestWake   time.Duration
	lastWakeAt    time.Time
	sleepBound    time.Duration
}

// NewWorker creates a detached Worker: both pipes and the event log are
// allocated and the descriptor-array capacity is set (the array itself is
// built per loop iteration), but no goroutine runs yet (spec.md §4.8
// Create). factory constructs DevStream bindings for AddStream; it must
// be non-nil.
func NewWorker(cfg Config, factory DevStreamFactory, logger *log.Logger) (*Worker, error) {
	if factory == nil {
		return nil, errors.Wrap(ErrInvalidArg, "worker: nil DevStreamFactory")
	}
	if logger == nil {
		logger = log.Default()
	}

	toWorkerR, toWorkerW, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "worker: create controller->worker pipe")
	}
	toCtrlR, toCtrlW, err := os.Pipe()
	if err != nil {
		toWorkerR.Close()
		toWorkerW.Close()
		return nil, errors.Wrap(err, "worker: create worker->controller pipe")
	}

	w := &Worker{
		logger:           logger,
		toWorkerR:        toWorkerR,
		toWorkerW:        toWorkerW,
		toCtrlR:          toCtrlR,
		toCtrlW:          toCtrlW,
		ctrlReadFd:       toWorkerR.Fd(),
		handles:          newHandleTable(),
		realtime:         cfg.RealtimePriority,
		devStreamFactory: factory,
		callbacks:        newCallbackRegistry(),
		pollCap:          cfg.PollCapacity,
		eventLog:         newEventLog(cfg.EventLogCapacity),
		sleepBound:       cfg.SleepBound,
	}
	if w.pollCap <= 0 {
		w.pollCap = defaultPollCapacity
	}
	if w.sleepBound <= 0 || w.sleepBound > sleepBound {
		w.sleepBound = sleepBound
	}
	return w, nil
}

// RegisterDevice hands back a handle the controller can use in AddOpenDev
// / RmOpenDev / IsDevOpen / DevStartRamp commands. It does not open the
// device or touch worker state; it only makes the object reachable by
// handle.
func (w *Worker) RegisterDevice(d Device) DeviceHandle {
	return w.handles.registerDevice(d)
}

// RegisterStream hands back a handle for use in AddStream /
// DisconnectStream / DrainStream / AecDump commands.
func (w *Worker) RegisterStream(s Stream) StreamHandle {
	return w.handles.registerStream(s)
}

// Start spawns the worker goroutine (spec.md §4.8).
func (w *Worker) Start() error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.Wrap(ErrInvalidArg, "worker: already started")
	}

	if w.realtime {
		if err := acquireRealtimePriority(); err != nil {
			w.logger.Warn("realtime priority acquisition failed, continuing without it", "err", err)
		}
	}

	g, ctx := errgroup.WithContext(context.Background())
	w.group = g
	w.groupCtx = ctx
	g.Go(func() error {
		w.runLoop()
		// Closing the reply pipe's write end makes any later command read
		// EOF, which sendCommand reports as ErrStopped.
		w.toCtrlW.Close()
		return nil
	})
	return nil
}

// Stop posts the Stop command and waits for the reply; the worker
// goroutine exits immediately after replying (spec.md §4.5 Stop).
func (w *Worker) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		_, err = w.sendCommand(CmdStop, nil)
	})
	return err
}

// Destroy stops the worker if it is running, joins its goroutine, and
// releases the pipes (spec.md §4.8 Destroy). Destroy is idempotent-safe
// to call after a Stop that already ran.
func (w *Worker) Destroy() error {
	if w.started.Load() {
		if err := w.Stop(); err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, ErrStopped) {
			w.logger.Warn("stop during destroy returned an error", "err", err)
		}
		if w.group != nil {
			_ = w.group.Wait()
		}
	}

	w.toWorkerR.Close()
	w.toWorkerW.Close()
	w.toCtrlR.Close()
	w.toCtrlW.Close()
	return nil
}

// sendCommand is the controller-side half of the synchronous RPC: write
// one frame, block for the one reply that corresponds to it. Only one
// command is ever in flight at a time, enforced by cmdMu, matching
// spec.md §5's "no pipelining" ordering guarantee.
func (w *Worker) sendCommand(id CommandID, payload []byte) (int64, error) {
	w.cmdMu.Lock()
	defer w.cmdMu.Unlock()

	if err := writeFrame(w.toWorkerW, id, payload); err != nil {
		return 0, err
	}
	reply, err := readReply(w.toCtrlR)
	if err != nil {
		if errors.Is(err, ErrClosed) {
			return 0, ErrStopped
		}
		return 0, err
	}
	return reply, nil
}
