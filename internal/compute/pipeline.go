package compute

import (
	"errors"
	"fmt"
)

// DefaultEntryPoint is the kernel function invoked by the pipeline.
const DefaultEntryPoint = "main"

// Pipeline is a compiled compute pipeline with its layout.
type Pipeline struct {
	Module     Handle
	Layout     Handle
	Handle     Handle
	EntryPoint string
}

// NewPipeline wraps the SPIR-V words in a shader module and combines it
// with the binding's set layout into a compute pipeline.
func NewPipeline(scope *Scope, dev Device, binding Binding, code []uint32, entryPoint string) (Pipeline, error) {
	if len(code) == 0 {
		return Pipeline{}, &ShaderCompilationError{Err: errors.New("empty kernel binary")}
	}
	if entryPoint == "" {
		entryPoint = DefaultEntryPoint
	}

	module, err := dev.CreateShaderModule(code)
	if err != nil {
		return Pipeline{}, &ShaderCompilationError{Err: err}
	}
	scope.Defer("shader module", func() { dev.DestroyShaderModule(module) })

	layout, err := dev.CreatePipelineLayout([]Handle{binding.SetLayout})
	if err != nil {
		return Pipeline{}, &PipelineCreationError{Err: fmt.Errorf("pipeline layout: %w", err)}
	}
	scope.Defer("pipeline layout", func() { dev.DestroyPipelineLayout(layout) })

	pipeline, err := dev.CreateComputePipeline(module, layout, entryPoint)
	if err != nil {
		if errors.Is(err, ErrInvalidShader) {
			return Pipeline{}, &ShaderCompilationError{Err: err}
		}
		return Pipeline{}, &PipelineCreationError{Err: err}
	}
	scope.Defer("compute pipeline", func() { dev.DestroyPipeline(pipeline) })

	slogger().Debug("compute: pipeline created", "words", len(code), "entry", entryPoint)

	return Pipeline{Module: module, Layout: layout, Handle: pipeline, EntryPoint: entryPoint}, nil
}
