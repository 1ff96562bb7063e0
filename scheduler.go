package tombflow

import "context"

// The scheduler is the single goroutine driving a block: it draws items
// from the queue and dispatches each to a worker goroutine under the
// block's tomb, never holding more than parallelism items in flight. With
// parallelism 1 the next item is not dequeued until the previous worker has
// forwarded its results, which preserves FIFO order end to end.

func (b *Block[In, Out]) run() error {
	ctx := b.t.Context(nil)
	for {
		// One permit per in-flight item. Acquire fails only once the
		// tomb is dying, i.e. the block faulted.
		if err := b.sem.Acquire(ctx, 1); err != nil {
			return nil
		}
		item, ok := b.queue.take()
		if !ok {
			b.sem.Release(1)
			return b.drain(ctx)
		}
		b.t.Go(func() error {
			defer b.sem.Release(1)
			return b.process(item)
		})
	}
}

// drain runs after the queue closed and emptied. It waits out in-flight
// workers by acquiring the full semaphore, then resolves the completion
// future. A block cannot become Completed while items are queued or in
// flight.
func (b *Block[In, Out]) drain(ctx context.Context) error {
	if err := b.sem.Acquire(ctx, b.parallelism); err != nil {
		return nil
	}
	b.sem.Release(b.parallelism)

	b.mu.Lock()
	if b.state != StateCompleting {
		// Faulted while draining; the fault already killed the tomb.
		b.mu.Unlock()
		return nil
	}
	b.changeState(StateCompleted)
	b.mu.Unlock()
	b.t.Kill(nil)
	return nil
}

// process applies the block's function to one item and forwards the
// results. A processing error faults the block; returning it lets the tomb
// record it as the completion error.
func (b *Block[In, Out]) process(item In) error {
	outs, err := b.apply(item)
	if err != nil {
		b.fault(err)
		return err
	}
	for _, out := range outs {
		if !b.healthy() {
			// Faulted mid-flight: finish, but forward nothing.
			return nil
		}
		b.forward(out)
	}
	return nil
}
