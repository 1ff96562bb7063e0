// Package tombflow provides composable dataflow blocks: independent
// processing stages with their own input queue, parallelism degree and
// lifecycle, connected by directed links that forward each stage's output
// into the next stage's queue. Completion and faults travel along links so
// a whole chain can be awaited through its terminal sink.
package tombflow

import "errors"

// Kind selects how a block's processing function relates inputs to outputs.
type Kind string

const (
	// Transform takes one input and produces exactly one output.
	Transform Kind = "transform"
	// TransformMany takes one input and produces zero or more outputs.
	TransformMany Kind = "transform-many"
	// Action takes one input and produces no output. Terminal sink.
	Action Kind = "action"
)

// State is the lifecycle position of a block.
// Created -> Running -> Completing -> Completed, or -> Faulted.
type State string

const (
	StateCreated    State = "CREATED"
	StateRunning    State = "RUNNING"
	StateCompleting State = "COMPLETING"
	StateCompleted  State = "COMPLETED"
	StateFaulted    State = "FAULTED"
)

// ErrPostRejected reports that a block refused an item, either because its
// bounded queue was full or because it already left the Running state.
var ErrPostRejected = errors.New("tombflow: post rejected")

// ErrFaulted is stored as a block's completion error when Fault is called
// with a nil error.
var ErrFaulted = errors.New("tombflow: block faulted")

// Inlet is the input side of a block, as seen by an upstream link.
// Implemented by Block.
type Inlet[T any] interface {
	Post(T) bool
	Complete()
	Fault(error)

	postWait(T) bool
	addUpstream()
	upstreamDone(error)
}

// Completion is the future side of a block. It resolves exactly once, when
// the block reaches Completed (nil) or Faulted (the fault error).
type Completion interface {
	Done() <-chan struct{}
	Wait() error
	Err() error
}
