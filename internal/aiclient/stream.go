// ABOUTME: Channel-based event streaming for content deltas from one request
// ABOUTME: A drain goroutine avoids the send-on-closed-channel race on finish

package aiclient

import (
	"sync"
	"sync/atomic"
)

// EventStream provides channel-based access to one streaming request's
// content deltas. Consumers range over Events() and call Err() once the
// channel closes to learn whether the stream ended cleanly.
//
// Send writes to an internal events channel that is never closed
// externally; Finish closes only the done channel. A drain goroutine
// forwards events to the consumer-facing out channel and closes it once
// done fires and the buffer empties, eliminating the send-on-closed-channel
// race between Send and Finish.
type EventStream struct {
	events chan string
	out    chan string
	done   chan struct{}
	err    atomic.Pointer[error]
	once   sync.Once
}

// NewEventStream creates an EventStream with the given buffer size. The
// spec requires a bounded-blocking sink with a buffer of at least 16.
func NewEventStream(bufSize int) *EventStream {
	s := &EventStream{
		events: make(chan string, bufSize),
		out:    make(chan string, bufSize),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *EventStream) drain() {
	defer close(s.out)
	for {
		select {
		case ev := <-s.events:
			s.out <- ev
		case <-s.done:
			for {
				select {
				case ev := <-s.events:
					s.out <- ev
				default:
					return
				}
			}
		}
	}
}

// Events returns the consumer-facing channel of content deltas. It closes
// when the stream completes.
func (s *EventStream) Events() <-chan string {
	return s.out
}

// Send delivers one content delta. Returns false if the stream has already
// finished.
func (s *EventStream) Send(text string) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- text:
		return true
	case <-s.done:
		return false
	}
}

// Finish completes the stream. err is nil on a clean terminal.
func (s *EventStream) Finish(err error) {
	s.once.Do(func() {
		if err != nil {
			s.err.Store(&err)
		}
		close(s.done)
	})
}

// Err blocks until the stream completes and returns its terminal error, if
// any.
func (s *EventStream) Err() error {
	<-s.done
	if p := s.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Done returns a channel closed when the stream completes.
func (s *EventStream) Done() <-chan struct{} {
	return s.done
}
