package tombflow

import (
	"context"
	"fmt"
)

// Feed posts every item read from in to the head block, waiting for queue
// space on bounded blocks, and completes the block once in is closed.
// Cancellation of ctx is checked between items; it also completes the block
// and returns ctx's error. A rejected post (the block left Running) returns
// an error wrapping ErrPostRejected.
func Feed[In, Out any](ctx context.Context, b *Block[In, Out], in <-chan In) error {
	for {
		select {
		case item, ok := <-in:
			if !ok {
				b.Complete()
				return nil
			}
			if !b.postWait(item) {
				return fmt.Errorf("feed %s: %w", b.name, ErrPostRejected)
			}
		case <-ctx.Done():
			b.Complete()
			return ctx.Err()
		}
	}
}

// SliceChan streams the given items over a channel, stopping early if ctx
// is cancelled. Useful as the in argument of Feed.
func SliceChan[T any](ctx context.Context, items []T) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)
		for _, item := range items {
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
