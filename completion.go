package tombflow

import "sync"

// Completion propagation. Every completion-propagating link registers its
// source as an upstream of the target and watches the source's completion
// future from a dedicated goroutine, so delivery never blocks the source's
// processing loop and happens exactly once per link.
//
// Union semantics over multiple upstreams: the target keeps a count of
// propagating sources still alive. Each successful source completion
// decrements it and the last one completes the target; a source fault
// short-circuits and faults the target with the same error immediately.

type upstreamSet struct {
	mu        sync.Mutex
	remaining int
}

func (u *upstreamSet) add() {
	u.mu.Lock()
	u.remaining++
	u.mu.Unlock()
}

// done reports whether this was the last outstanding upstream.
func (u *upstreamSet) done() bool {
	u.mu.Lock()
	u.remaining--
	last := u.remaining == 0
	u.mu.Unlock()
	return last
}

func (b *Block[In, Out]) addUpstream() {
	b.upstream.add()
}

func (b *Block[In, Out]) upstreamDone(err error) {
	if err != nil {
		b.Fault(err)
		return
	}
	if b.upstream.done() {
		b.Complete()
	}
}

// watchCompletion subscribes target's lifecycle to source's completion
// future. The watcher goroutine lives exactly as long as the source.
func watchCompletion[In, Out any](source *Block[In, Out], target Inlet[Out]) {
	target.addUpstream()
	go func() {
		<-source.Done()
		target.upstreamDone(source.Err())
	}()
}
