package tombflow

import (
	"context"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Pipeline is a convenience handle over the blocks of one dataflow graph.
// It does not own the blocks; it only awaits their completion futures and
// aggregates their outcomes.
type Pipeline struct {
	log    logr.Logger
	blocks []Completion
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogr sets the pipeline logger.
var WithLogr = func(log logr.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = log
	}
}

// NewPipeline returns an empty pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		log: logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Add registers blocks to be awaited by Wait.
func (p *Pipeline) Add(blocks ...Completion) *Pipeline {
	p.blocks = append(p.blocks, blocks...)
	return p
}

// Wait blocks until every registered block has resolved its completion
// future and returns the combined fault errors, or nil if all blocks
// completed cleanly.
func (p *Pipeline) Wait() error {
	errs := make([]error, len(p.blocks))
	var g errgroup.Group
	for i, b := range p.blocks {
		i, b := i, b
		g.Go(func() error {
			errs[i] = b.Wait()
			return nil
		})
	}
	_ = g.Wait()

	err := multierr.Combine(errs...)
	if err != nil {
		p.log.Error(err, "pipeline finished with faults")
	}
	return err
}

// WaitContext is Wait bounded by ctx. The blocks keep running if ctx
// expires first; only the waiting is abandoned.
func (p *Pipeline) WaitContext(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- p.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
