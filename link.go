package tombflow

import "sync/atomic"

// Link is a directed connection from one block's output to another block's
// input. Links are evaluated in registration order and the first link whose
// predicate accepts an item claims it; items no link claims are dropped.
type Link[T any] struct {
	target    Inlet[T]
	predicate func(T) bool
	dropped   atomic.Uint64
}

// Dropped returns how many claimed items this link had to drop because the
// target was no longer accepting them.
func (l *Link[T]) Dropped() uint64 {
	return l.dropped.Load()
}

// LinkTo registers a link from b to target. A nil predicate accepts every
// item. With propagateCompletion set, target enters Completing once b
// completes and Faulted (with the same error) if b faults; a target fed by
// several propagating sources completes only after all of them complete,
// and faults as soon as any of them faults.
//
// Links registered after items were posted are legal; they see only items
// forwarded after registration.
func (b *Block[In, Out]) LinkTo(target Inlet[Out], predicate func(Out) bool, propagateCompletion bool) *Link[Out] {
	l := &Link[Out]{target: target, predicate: predicate}
	b.linkMu.Lock()
	b.links = append(b.links, l)
	b.linkMu.Unlock()

	if propagateCompletion {
		watchCompletion[In, Out](b, target)
	}
	return l
}

// forward offers item to the block's links, first match wins. Forwarding
// into a bounded target waits for queue space, so a healthy chain never
// loses an accepted item. A target that stopped accepting drops the item;
// that is logged and counted on the link but is not fatal to b.
func (b *Block[In, Out]) forward(item Out) {
	b.linkMu.RLock()
	links := b.links
	b.linkMu.RUnlock()

	for _, l := range links {
		if l.predicate != nil && !l.predicate(item) {
			continue
		}
		if !l.target.postWait(item) {
			l.dropped.Add(1)
			b.log.Info("dropped item, target not accepting")
		}
		return
	}
	// No link claimed the item; it is discarded.
}
