package push

import (
	"context"
	"sync/atomic"
)

// resultSlot is a write-once, multi-reader outcome cell. Completion races
// collapse to a single compare-and-swap; the loser observes false.
type resultSlot struct {
	resolved atomic.Bool
	done     chan struct{}
	resp     Response
	err      error
}

func newResultSlot() *resultSlot {
	return &resultSlot{done: make(chan struct{})}
}

func (s *resultSlot) complete(resp Response) bool {
	if !s.resolved.CompareAndSwap(false, true) {
		return false
	}
	s.resp = resp
	close(s.done)
	return true
}

func (s *resultSlot) fail(err error) bool {
	if !s.resolved.CompareAndSwap(false, true) {
		return false
	}
	s.err = err
	close(s.done)
	return true
}

func (s *resultSlot) isResolved() bool {
	return s.resolved.Load()
}

func (s *resultSlot) await(ctx context.Context) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-s.done:
		return s.resp, s.err
	}
}
