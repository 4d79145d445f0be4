/*
Package statemachine provides a generalized state machine. It is based on a talk by Rob Pike.

This statemachine does not use a state type to go from state to state, but instead uses state
functions to determine the next state to execute directly.

Example usage:
  // conn is a simple object holding our various StateFn's for our state machine. Attributes on
  // the object carry data from one state to the next.
  type conn struct {
    msg []byte
  }

  // Receive implements StateFn. This will be our starting state.
  func (c *conn) Receive() (StateFn, error) {
    ...
    if closed {
      return nil, nil // Ends execution.
    }
    return c.Send, nil
  }

  // Send implements StateFn.
  func (c *conn) Send() (StateFn, error) {
    ...
    return c.Receive, nil
  }

  func main() {
    c := &conn{}

    // Creates a new statemachine executor that will start execution with conn.Receive().
    exec := statemachine.New("conn", c.Receive, statemachine.NodeLimit(10))

    // This begins execution and gets our final error state.
    if err := exec.Execute(); err != nil {
      // Do something with the error.
    }
  }

The Executor records the StateFn's it called, available with Executor.Nodes(). A machine that
loops forever should set NodeLimit() so that only the most recent nodes are kept.

If you would like to have a running diagnostic mixed with your other logs, you can do the following:
  exec := statemachine.New("conn", c.Receive, statemachine.LogFacility(glog.V(2).Infof))
  exec.Log(true)
*/
package statemachine

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// StateFn represents a function that executes at a given state. It returns the next state to
// execute, or nil to stop.
type StateFn func() (StateFn, error)

// LogFn represents some logging function to handle logging when Executor.Log(true) is set. It should do
// variable substituion similar to fmt.Sprintf() does.
type LogFn func(s string, i ...interface{})

// Executor provides methods for executing a state machine. These methods are not thread safe.
type Executor interface {
	// Execute executes the statemachine. It stops the first time a StateFn returns an error or returns "nil" for the returned
	// StateFn. If the last StateFn returned an error, Execute returns it. Execute() causes the internal state to be cleared
	// and calls the function provided to New() by the Reset option, if provided.
	Execute() error

	// Nodes returns a list of the StateFn's that were executed during the last call to Execute(), oldest first.
	Nodes() []string

	// Log turns on/off detailed logging of the execution state. To use this you must have provided New() with the LogFacility() option.
	Log(b bool)
}

// Option provides an optional argument for New().
type Option func(e *executor)

// Reset provides a function that is called at the start of every Execute(). This function should reset any data
// needed by StateFn's used in the Executor.
func Reset(f func()) Option {
	return func(e *executor) {
		e.resetFn = f
	}
}

// LogFacility sets up the internal log function for Executor for when Executor.Log(true) is called.
func LogFacility(l LogFn) Option {
	return func(e *executor) {
		e.logger = l
	}
}

// NodeLimit keeps only the last n StateFn names for Nodes(). n <= 0 means no limit, which is the default.
func NodeLimit(n int) Option {
	return func(e *executor) {
		e.limit = n
	}
}

// New is the constructor for Executor. "start" is the StateFn that is first called when Executor.Execute() is called.
// "name" is used to prepend logging messages as a unique identifier.
func New(name string, start StateFn, opts ...Option) Executor {
	e := &executor{name: name, startFn: start}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// executor implements Executor.
type executor struct {
	// name is the name of this particular executor.
	name string

	// startFn is the StateFn that starts the execution.
	startFn StateFn

	// nodes are the StateFn names executed during the last execution, bounded by limit.
	nodes []string
	limit int

	// resetFn is a function provided by the user that is called before each execution.
	resetFn func()

	// logger holds a function for handling logging messages.
	logger LogFn

	// logOn indicates if we should be logging internal statemachine executions.
	logOn bool

	// used to protect nodes and logOn.
	sync.Mutex
}

// Execute implements Executor.Execute.
func (e *executor) Execute() error {
	defer func() {
		if e.logging() {
			e.log("The following is the StateFn's called with this execution:")
			for _, node := range e.Nodes() {
				e.log("\t%s", node)
			}
		}
	}()

	e.reset()

	f := e.startFn
	var err error

	for {
		f, err = e.fnWrapper(f)

		switch {
		case err != nil:
			e.log("Execute() completed with an error: %q", err)
			return err
		case f == nil:
			e.log("Execute() completed with no issues")
			return nil
		}
	}
}

func (e *executor) reset() {
	e.Lock()
	defer e.Unlock()

	e.nodes = make([]string, 0, 20)

	if e.resetFn != nil {
		e.resetFn()
	}
}

// fnWrapper does some internal tracking before execute "f".
func (e *executor) fnWrapper(f StateFn) (StateFn, error) {
	name := fNameScrub(f)

	e.Lock()
	if e.limit > 0 && len(e.nodes) >= e.limit {
		// Shift in place so the backing array does not grow.
		copy(e.nodes, e.nodes[1:])
		e.nodes = e.nodes[:len(e.nodes)-1]
	}
	e.nodes = append(e.nodes, name)
	e.Unlock()

	e.log("StateFn(%s) starting", name)

	fn, err := f()

	e.log("StateFn(%s) finished", name)

	return fn, err
}

// Nodes implements Executor.Nodes().
func (e *executor) Nodes() []string {
	e.Lock()
	defer e.Unlock()

	out := make([]string, len(e.nodes))
	copy(out, e.nodes)
	return out
}

// Log implements Executor.Log().
func (e *executor) Log(b bool) {
	if e.logger == nil {
		return
	}

	e.Lock()
	defer e.Unlock()
	e.logOn = b
}

func (e *executor) logging() bool {
	e.Lock()
	defer e.Unlock()
	return e.logOn
}

func (e *executor) log(s string, i ...interface{}) {
	if e.logging() && e.logger != nil {
		e.logger(fmt.Sprintf("StateMachine[%s]: %s", e.name, s), i...)
	}
}

// fNameScrub gets the name of funtion "f", removes package information and trailing stuff we
// don't care about and returns it.
func fNameScrub(f StateFn) string {
	v := reflect.ValueOf(f)
	pc := runtime.FuncForPC(v.Pointer())
	return fScrub(pc.Name())
}

// fScrub does the actual name scrub for fNameScrub. It is split out to allow the tests to scrub
// the name. The tests use a different way to get the function name.
func fScrub(s string) string {
	sp := strings.SplitAfter(s, ".")
	return strings.TrimSuffix(sp[len(sp)-1], "-fm")
}
