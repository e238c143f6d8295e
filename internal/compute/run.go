package compute

import (
	"context"
	"fmt"
	"time"
)

// Job describes one render.
type Job struct {
	Width, Height int
	// GroupSize is the kernel's work-group edge length in both dimensions.
	GroupSize int
	// Code is the SPIR-V kernel.
	Code       []uint32
	EntryPoint string
	// Memory overrides the property class of both buffers. Zero means HostMapped.
	Memory       MemoryPropertyFlags
	Validation   bool
	FenceTimeout time.Duration
	// Seed overrides the seed source. Nil means ClockSeed.
	Seed func() uint32
}

// Validate checks the job parameters.
func (j Job) Validate() error {
	switch {
	case j.Width <= 0 || j.Height <= 0:
		return fmt.Errorf("%w: image size %dx%d", ErrInvalidJob, j.Width, j.Height)
	case j.GroupSize <= 0:
		return fmt.Errorf("%w: group size %d", ErrInvalidJob, j.GroupSize)
	case len(j.Code) == 0:
		return fmt.Errorf("%w: no kernel code", ErrInvalidJob)
	}
	return nil
}

// Report summarizes a completed run.
type Report struct {
	Driver      string
	Device      DeviceInfo
	QueueFamily uint32
	Grid        Grid
	BufferBytes uint64
	Pixels      int
	Seed        uint32
	Elapsed     time.Duration
}

// Run performs a complete render on drv and passes the result to sink.
// Every object is released in reverse creation order before Run returns,
// whether it succeeds or fails. sink is called only after the completion
// fence signaled.
func Run(ctx context.Context, drv Driver, job Job, sink Sink) (rep Report, err error) {
	if err := job.Validate(); err != nil {
		return Report{}, err
	}
	start := time.Now()

	scope := NewScope()
	defer func() {
		if cerr := scope.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	dc, err := NewSelector(drv, job.Validation).Select(scope)
	if err != nil {
		return Report{}, err
	}
	rep = Report{
		Driver:      drv.Name(),
		Device:      dc.Info,
		QueueFamily: dc.QueueFamily,
		Grid:        GroupCount(job.Width, job.Height, job.GroupSize),
		BufferBytes: BufferSize(job.Width, job.Height),
		Pixels:      job.Width * job.Height,
	}

	res, err := NewResourceSet(scope, dc.Device, NewAllocator(dc), ResourceSpec{
		Width:  job.Width,
		Height: job.Height,
		Memory: job.Memory,
	})
	if err != nil {
		return rep, err
	}

	binding, err := NewBinding(scope, dc.Device, res)
	if err != nil {
		return rep, err
	}

	pipeline, err := NewPipeline(scope, dc.Device, binding, job.Code, job.EntryPoint)
	if err != nil {
		return rep, err
	}

	exec, err := NewExecutor(scope, dc)
	if err != nil {
		return rep, err
	}

	seed, err := exec.Execute(ctx, Dispatch{
		Pipeline:  pipeline,
		Binding:   binding,
		Resources: res,
		Grid:      rep.Grid,
		Seed:      job.Seed,
		Timeout:   job.FenceTimeout,
	})
	rep.Seed = seed
	if err != nil {
		return rep, err
	}

	if err := Readback(dc.Device, exec, res.Pixels, job.Width, job.Height, sink); err != nil {
		return rep, err
	}

	rep.Elapsed = time.Since(start)
	slogger().Info("compute: run complete",
		"device", dc.Info.Name,
		"pixels", rep.Pixels,
		"seed", seed,
		"elapsed", rep.Elapsed,
	)
	return rep, nil
}
