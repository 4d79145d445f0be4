/*
Package signal provides a coalescing notification between goroutines, modeled on how Unix
delivers SIGCHLD: any number of Signal() calls that happen before the receiver wakes up
produce a single wake up, but none of the values passed to Signal() are lost.

The receiver must drain everything pending each time it wakes, never assume one wake up
equals one event:

	sig := signal.New()

	go func() {
		for range sig.Receive() {
			for _, v := range sig.Drain() {
				fmt.Println(v)
			}
		}
	}()

	sig.Signal("child 1 exited")
	sig.Signal("child 2 exited") // May share a wake up with the first.

Signal() never blocks, so it is safe to call from a goroutine that is about to exit.
*/
package signal

import "sync"

// Option is an option for the New() constructor.
type Option func(s *Signaler)

// BufferSize sets the initial capacity of the pending list. It grows as needed.
func BufferSize(n int) Option {
	return func(s *Signaler) {
		s.bufferSize = n
	}
}

// Signaler provides an object that can be shared by any number of signaling goroutines and a
// single receiving goroutine.
type Signaler struct {
	wake       chan struct{}
	bufferSize int

	mu      sync.Mutex
	pending []interface{}
	closed  bool
}

// New is the constructor for Signaler.
func New(options ...Option) *Signaler {
	s := &Signaler{bufferSize: 1}
	for _, o := range options {
		o(s)
	}
	s.wake = make(chan struct{}, 1)
	s.pending = make([]interface{}, 0, s.bufferSize)
	return s
}

// Signal records x and wakes the receiver if it is not already due to wake. Signal after
// Close is a no-op.
func (s *Signaler) Signal(x interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending = append(s.pending, x)

	select {
	case s.wake <- struct{}{}:
	default:
		// A wake up is already queued, the receiver will see x when it drains.
	}
}

// Receive returns a channel that yields once for one or more Signal() calls.
func (s *Signaler) Receive() <-chan struct{} {
	return s.wake
}

// Drain returns everything signaled since the last Drain() and does not block.
func (s *Signaler) Drain() []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	out := s.pending
	s.pending = make([]interface{}, 0, s.bufferSize)
	return out
}

// Pending returns how many signaled values have not been drained.
func (s *Signaler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close closes the Receive() channel, which stops any for range loops over it. Values still
// pending can be collected with Drain(). This Signaler cannot be used again.
func (s *Signaler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.wake)
}
