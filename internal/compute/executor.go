package compute

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// DefaultFenceTimeout bounds the completion wait when a job sets none.
const DefaultFenceTimeout = 10 * time.Second

// State is the lifecycle state of the executor's command buffer.
type State uint8

const (
	StateIdle State = iota
	StateRecording
	StateRecorded
	StateSubmitted
	StateCompleted
	StateTimedOut
	StateDeviceLost
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateRecorded:
		return "recorded"
	case StateSubmitted:
		return "submitted"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed-out"
	case StateDeviceLost:
		return "device-lost"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateDeviceLost
}

// next lists the allowed transitions. A command sequence runs once;
// there is no way back to idle.
var next = map[State][]State{
	StateIdle:      {StateRecording},
	StateRecording: {StateRecorded},
	StateRecorded:  {StateSubmitted, StateDeviceLost},
	StateSubmitted: {StateCompleted, StateTimedOut, StateDeviceLost},
}

// Executor records, submits and waits for the single command buffer of a run.
type Executor struct {
	dev   Device
	scope *Scope
	pool  Handle
	cmd   Handle
	fence Handle
	state State
	grid  Grid
}

// NewExecutor creates a command pool on the selected queue family and
// allocates one primary command buffer from it.
func NewExecutor(scope *Scope, dc DeviceContext) (*Executor, error) {
	dev := dc.Device
	pool, err := dev.CreateCommandPool(dc.QueueFamily)
	if err != nil {
		return nil, fmt.Errorf("create command pool: %w", err)
	}
	scope.Defer("command pool", func() { dev.DestroyCommandPool(pool) })

	cmd, err := dev.AllocateCommandBuffer(pool)
	if err != nil {
		return nil, fmt.Errorf("allocate command buffer: %w", err)
	}
	scope.Defer("command buffer", func() { dev.FreeCommandBuffer(pool, cmd) })

	return &Executor{dev: dev, scope: scope, pool: pool, cmd: cmd}, nil
}

// State returns the current state.
func (e *Executor) State() State { return e.state }

// Grid returns the recorded dispatch grid.
func (e *Executor) Grid() Grid { return e.grid }

func (e *Executor) advance(to State) error {
	for _, s := range next[e.state] {
		if s == to {
			e.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidState, e.state, to)
}

// WriteSeed stores seed little-endian in the seed buffer. The memory is
// host-coherent, so the write is visible to the device at submission
// without a flush.
func WriteSeed(dev Device, buf Buffer, seed uint32) error {
	data, err := dev.MapMemory(buf.Memory.Memory, 0, SeedSize)
	if err != nil {
		return fmt.Errorf("map seed buffer: %w", err)
	}
	binary.LittleEndian.PutUint32(data, seed)
	dev.UnmapMemory(buf.Memory.Memory)
	return nil
}

// Record records bind pipeline, bind set 0 and one dispatch of grid.
func (e *Executor) Record(p Pipeline, b Binding, grid Grid) error {
	if grid.Groups() == 0 {
		return fmt.Errorf("%w: empty dispatch grid", ErrInvalidJob)
	}
	if err := e.advance(StateRecording); err != nil {
		return err
	}
	if err := e.dev.BeginCommandBuffer(e.cmd); err != nil {
		return fmt.Errorf("begin command buffer: %w", err)
	}
	e.dev.CmdBindPipeline(e.cmd, p.Handle)
	e.dev.CmdBindDescriptorSet(e.cmd, p.Layout, 0, b.Set)
	e.dev.CmdDispatch(e.cmd, grid.X, grid.Y, grid.Z)
	if err := e.dev.EndCommandBuffer(e.cmd); err != nil {
		return fmt.Errorf("end command buffer: %w", err)
	}
	e.grid = grid
	return e.advance(StateRecorded)
}

// Submit queues the recorded buffer with a fresh fence. ctx is only
// consulted before submission; once submitted the work cannot be recalled.
func (e *Executor) Submit(ctx context.Context) error {
	if e.state != StateRecorded {
		return fmt.Errorf("%w: submit in state %s", ErrInvalidState, e.state)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fence, err := e.dev.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	e.scope.Defer("fence", func() { e.dev.DestroyFence(fence) })
	e.fence = fence

	if err := e.dev.Submit(e.cmd, fence); err != nil {
		if errors.Is(err, ErrDeviceLost) {
			e.state = StateDeviceLost
			return &DeviceLostError{Err: err}
		}
		return fmt.Errorf("submit: %w", err)
	}
	// Released before the fence and every older object, so nothing the
	// dispatch uses is destroyed while it may still execute.
	e.scope.DeferErr("queue idle", e.dev.WaitIdle)
	slogger().Debug("compute: submitted", "grid", fmt.Sprintf("%dx%dx%d", e.grid.X, e.grid.Y, e.grid.Z))
	return e.advance(StateSubmitted)
}

// Wait blocks on the completion fence for at most timeout, or
// DefaultFenceTimeout when timeout is not positive. This is the only
// blocking call of a run. A timeout or any wait failure leaves the
// executor in a terminal failure state.
func (e *Executor) Wait(timeout time.Duration) error {
	if e.state != StateSubmitted {
		return fmt.Errorf("%w: wait in state %s", ErrInvalidState, e.state)
	}
	if timeout <= 0 {
		timeout = DefaultFenceTimeout
	}

	err := e.dev.WaitForFence(e.fence, timeout)
	switch {
	case err == nil:
		return e.advance(StateCompleted)
	case errors.Is(err, ErrTimeout):
		e.state = StateTimedOut
		return &DeviceLostError{Timeout: true, Waited: timeout, Err: err}
	default:
		e.state = StateDeviceLost
		return &DeviceLostError{Waited: timeout, Err: err}
	}
}

// Dispatch is everything the executor needs for one run.
type Dispatch struct {
	Pipeline  Pipeline
	Binding   Binding
	Resources ResourceSet
	Grid      Grid
	Seed      func() uint32
	Timeout   time.Duration
}

// Execute writes a fresh seed, records, submits and waits. It returns the
// seed that was written.
func (e *Executor) Execute(ctx context.Context, d Dispatch) (uint32, error) {
	if e.state != StateIdle {
		return 0, fmt.Errorf("%w: execute in state %s", ErrInvalidState, e.state)
	}
	seedFn := d.Seed
	if seedFn == nil {
		seedFn = ClockSeed
	}
	seed := seedFn()
	if err := WriteSeed(e.dev, d.Resources.Seed, seed); err != nil {
		return 0, err
	}
	if err := e.Record(d.Pipeline, d.Binding, d.Grid); err != nil {
		return seed, err
	}
	if err := e.Submit(ctx); err != nil {
		return seed, err
	}
	return seed, e.Wait(d.Timeout)
}
