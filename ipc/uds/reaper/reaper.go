/*
Package reaper runs one goroutine per worker and reclaims them as they terminate.

Each worker posts a termination notice when it returns. Notices coalesce: several workers can
exit while the reaper is busy and it will wake only once, so every wake up drains all pending
notices without blocking.

	r := reaper.New()
	go r.Run()

	r.Spawn(id, func() error { return worker.Run() })

The reaper only observes. It does not touch the worker's connection; the worker closes that
itself before it returns.
*/
package reaper

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/johnsiilver/sockcred/signal"

	log "github.com/golang/glog"
)

// ErrPanic is wrapped by the Exit error of a worker that panicked.
var ErrPanic = errors.New("worker panic")

// Exit is the termination notice of one worker.
type Exit struct {
	// ID is the id passed to Spawn().
	ID string
	// Err is what the worker returned, or the recovered panic.
	Err error
}

// Reaper spawns workers and reclaims them after they terminate.
type Reaper struct {
	sig *signal.Signaler

	mu     sync.Mutex
	live   map[string]struct{}
	reaped int
	idle   *sync.Cond

	onExit func(Exit)
}

// Option is an optional argument to New().
type Option func(r *Reaper)

// OnExit is called by Run() for every reclaimed worker, after it is logged.
func OnExit(f func(Exit)) Option {
	return func(r *Reaper) {
		r.onExit = f
	}
}

// New is the constructor for Reaper.
func New(options ...Option) *Reaper {
	r := &Reaper{
		sig:  signal.New(signal.BufferSize(16)),
		live: map[string]struct{}{},
	}
	r.idle = sync.NewCond(&r.mu)
	for _, o := range options {
		o(r)
	}
	return r
}

// Spawn runs f in a new goroutine identified by id. A panic in f is recovered and reported as
// the worker's error so that one worker cannot bring down the others.
func (r *Reaper) Spawn(id string, f func() error) {
	r.mu.Lock()
	r.live[id] = struct{}{}
	r.mu.Unlock()

	go func() {
		var err error
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%w: %v\n%s", ErrPanic, p, debug.Stack())
			}
			r.sig.Signal(Exit{ID: id, Err: err})
		}()
		err = f()
	}()
}

// Run reclaims terminated workers until Close() is called. It must be called at most once.
func (r *Reaper) Run() {
	for range r.sig.Receive() {
		r.drain()
	}
	r.drain()
}

// drain reclaims every worker that has posted a termination notice.
func (r *Reaper) drain() {
	for _, v := range r.sig.Drain() {
		exit := v.(Exit)

		r.mu.Lock()
		delete(r.live, exit.ID)
		r.reaped++
		if len(r.live) == 0 {
			r.idle.Broadcast()
		}
		r.mu.Unlock()

		// Workers log their own failures, a panic is the only one they never saw.
		switch {
		case errors.Is(exit.Err, ErrPanic):
			log.Errorf("worker %s terminated: %s", exit.ID, exit.Err)
		case exit.Err != nil:
			log.V(1).Infof("worker %s terminated: %s", exit.ID, exit.Err)
		default:
			log.Infof("worker %s terminated", exit.ID)
		}
		if r.onExit != nil {
			r.onExit(exit)
		}
	}
}

// Live returns the number of workers that have been spawned and not yet reclaimed. This
// includes workers that have terminated but whose notice has not been drained.
func (r *Reaper) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Unreclaimed returns the number of workers that have terminated but have not been reclaimed.
func (r *Reaper) Unreclaimed() int {
	return r.sig.Pending()
}

// Reaped returns the total number of workers reclaimed.
func (r *Reaper) Reaped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reaped
}

// Wait blocks until every spawned worker has been reclaimed. Run() must be running.
func (r *Reaper) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.live) > 0 {
		r.idle.Wait()
	}
}

// Close stops Run() after it reclaims whatever is pending. Workers still running are not
// stopped, but they will not be reclaimed.
func (r *Reaper) Close() {
	r.sig.Close()
}
