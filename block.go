package tombflow

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gopkg.in/tomb.v2"
)

// Block is a single pipeline stage: a processing function behind an input
// queue, executed by up to parallelism workers, with links forwarding its
// outputs downstream. In holds the type of queued items, Out the type of
// produced items (struct{} for Action blocks).
//
// A block starts Running as soon as its constructor returns and keeps
// accepting posts until Complete or Fault is called.
type Block[In, Out any] struct {
	id    uuid.UUID
	name  string
	kind  Kind
	apply func(In) ([]Out, error)

	queue       *queue[In]
	sem         *semaphore.Weighted
	parallelism int64

	t   *tomb.Tomb
	log logr.Logger

	mu    sync.Mutex
	state State

	linkMu sync.RWMutex
	links  []*Link[Out]

	upstream upstreamSet
}

// Verify Block satisfies the link-facing and future-facing interfaces.
var _ Inlet[int] = (*Block[int, string])(nil)
var _ Completion = (*Block[int, string])(nil)

type config struct {
	name        string
	parallelism int
	capacity    int
	log         logr.Logger
}

// Option configures a block at construction time.
type Option func(*config)

// WithParallelism bounds how many items may be in flight through the
// processing function at once. The default of 1 gives strict FIFO
// forwarding; higher degrees leave output order unspecified.
func WithParallelism(n int) Option {
	return func(c *config) {
		c.parallelism = n
	}
}

// WithCapacity bounds the input queue. Posts beyond the bound are rejected
// (backpressure). The default of 0 means unbounded.
func WithCapacity(n int) Option {
	return func(c *config) {
		c.capacity = n
	}
}

// WithName sets the block name used in log output.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the block's logger. Defaults to logr.Discard.
func WithLogger(log logr.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// NewTransform returns a Running block that maps each input to exactly one
// output.
func NewTransform[In, Out any](fn func(In) (Out, error), opts ...Option) *Block[In, Out] {
	return newBlock[In, Out](Transform, func(in In) ([]Out, error) {
		out, err := fn(in)
		if err != nil {
			return nil, err
		}
		return []Out{out}, nil
	}, opts)
}

// NewTransformMany returns a Running block that maps each input to zero or
// more outputs.
func NewTransformMany[In, Out any](fn func(In) ([]Out, error), opts ...Option) *Block[In, Out] {
	return newBlock[In, Out](TransformMany, fn, opts)
}

// NewAction returns a Running terminal block that consumes each input and
// produces nothing.
func NewAction[In any](fn func(In) error, opts ...Option) *Block[In, struct{}] {
	return newBlock[In, struct{}](Action, func(in In) ([]struct{}, error) {
		return nil, fn(in)
	}, opts)
}

func newBlock[In, Out any](kind Kind, apply func(In) ([]Out, error), opts []Option) *Block[In, Out] {
	cfg := config{parallelism: 1, log: logr.Discard()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.parallelism < 1 {
		cfg.parallelism = 1
	}
	if cfg.capacity < 0 {
		cfg.capacity = 0
	}

	b := &Block[In, Out]{
		id:          uuid.New(),
		name:        cfg.name,
		kind:        kind,
		apply:       apply,
		queue:       newQueue[In](cfg.capacity),
		sem:         semaphore.NewWeighted(int64(cfg.parallelism)),
		parallelism: int64(cfg.parallelism),
		t:           new(tomb.Tomb),
		state:       StateCreated,
	}
	if b.name == "" {
		b.name = fmt.Sprintf("%s-%s", kind, b.id.String()[:8])
	}
	b.log = cfg.log.WithValues("block", b.name)

	b.mu.Lock()
	b.changeState(StateRunning)
	b.mu.Unlock()
	b.t.Go(b.run)
	return b
}

// ID returns the unique identity of this block instance.
func (b *Block[In, Out]) ID() uuid.UUID {
	return b.id
}

// Name returns the block name used in log output.
func (b *Block[In, Out]) Name() string {
	return b.name
}

// Kind returns the block's processing kind.
func (b *Block[In, Out]) Kind() Kind {
	return b.kind
}

// State returns the block's current lifecycle state.
func (b *Block[In, Out]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Queued returns how many items are buffered but not yet dispatched.
func (b *Block[In, Out]) Queued() int {
	return b.queue.len()
}

// Post attempts to enqueue item without blocking. It returns false when the
// block is no longer Running or a bounded queue is at capacity; the caller
// may retry or treat the rejection as backpressure.
func (b *Block[In, Out]) Post(item In) bool {
	if b.State() != StateRunning {
		return false
	}
	return b.queue.put(item)
}

// postWait enqueues item on behalf of an upstream link, waiting for queue
// space instead of rejecting. Returns false once the block stops accepting.
func (b *Block[In, Out]) postWait(item In) bool {
	return b.queue.putWait(item)
}

// Complete stops the block from accepting new items and lets it drain.
// Queued and in-flight items are still processed; once the queue is empty
// and nothing is in flight the block becomes Completed. No-op unless the
// block is Running.
func (b *Block[In, Out]) Complete() {
	b.mu.Lock()
	if b.state != StateRunning {
		b.mu.Unlock()
		return
	}
	b.changeState(StateCompleting)
	b.mu.Unlock()
	b.queue.close()
}

// Fault moves the block to Faulted immediately, discarding queued items.
// In-flight items finish but their results are not forwarded. The error is
// surfaced by Wait and propagated over completion-propagating links. A nil
// err is replaced by ErrFaulted.
func (b *Block[In, Out]) Fault(err error) {
	if err == nil {
		err = ErrFaulted
	}
	b.fault(err)
}

func (b *Block[In, Out]) fault(err error) {
	b.mu.Lock()
	if b.state == StateCompleted || b.state == StateFaulted {
		b.mu.Unlock()
		return
	}
	b.changeState(StateFaulted)
	b.mu.Unlock()

	b.log.Error(err, "block faulted")
	b.t.Kill(err)
	if n := b.queue.fail(); n > 0 {
		b.log.Info("discarded queued items", "count", n)
	}
}

// Done returns a channel closed once the block is Completed or Faulted.
func (b *Block[In, Out]) Done() <-chan struct{} {
	return b.t.Dead()
}

// Wait blocks until the block is Completed or Faulted and returns nil or
// the fault error.
func (b *Block[In, Out]) Wait() error {
	return b.t.Wait()
}

// Err returns the fault error once the block is Faulted, and nil while the
// block is alive or after it Completed.
func (b *Block[In, Out]) Err() error {
	err := b.t.Err()
	if err == tomb.ErrStillAlive {
		return nil
	}
	return err
}

// healthy reports whether the block may still forward results downstream.
func (b *Block[In, Out]) healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateRunning || b.state == StateCompleting
}

// changeState must be called with b.mu held.
func (b *Block[In, Out]) changeState(next State) {
	b.log.Info("change state", "from", b.state, "to", next)
	b.state = next
}
