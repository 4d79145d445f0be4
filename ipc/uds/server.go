package uds

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/johnsiilver/sockcred/filewatcher"
	"github.com/johnsiilver/sockcred/network"

	log "github.com/golang/glog"
)

// BoundAddr is the address the listening socket was bound to, as reported by getsockname(2).
type BoundAddr struct {
	// Path is the filesystem path of the socket.
	Path string
	// Len is the address length the kernel returned.
	Len int
}

type options struct {
	backlog  int
	fileMode os.FileMode
	noWatch  bool
}

// Option is an optional argument to NewServer().
type Option func(o *options)

// Backlog sets the listen backlog. Defaults to network.ListenQ.
func Backlog(n int) Option {
	return func(o *options) {
		o.backlog = n
	}
}

// FileMode sets the mode of the socket file after it is created. Suggest 0770.
// If not set, the mode is whatever the umask leaves.
func FileMode(m os.FileMode) Option {
	return func(o *options) {
		o.fileMode = m
	}
}

// NoWatch disables watching the socket file for removal.
func NoWatch() Option {
	return func(o *options) {
		o.noWatch = true
	}
}

// Server provides a Unix Domain Socket server that clients can connect on. Every accepted
// connection has SO_PASSCRED set.
type Server struct {
	l     *net.UnixListener
	bound BoundAddr

	stopWatch func()
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewServer creates a new UDS server that creates and listens to the file at socketAddr.
// If socketAddr exists this will delete it first. All errors are ErrSetup.
func NewServer(socketAddr string, opts ...Option) (*Server, error) {
	if len(socketAddr) >= maxPathLen {
		return nil, ErrSetup{
			Op:  "socket path",
			Err: fmt.Errorf("socketAddr(%s) path length must be less than %d characters", socketAddr, maxPathLen),
		}
	}

	o := options{backlog: network.ListenQ}
	for _, opt := range opts {
		opt(&o)
	}

	l, bound, err := listen(socketAddr, o.backlog)
	if err != nil {
		return nil, err
	}
	log.Infof("bound name = %s, returned len = %d", bound.Path, bound.Len)

	if o.fileMode != 0 {
		if err := os.Chmod(socketAddr, o.fileMode); err != nil {
			l.Close()
			return nil, ErrSetup{Op: "chmod", Err: err}
		}
	}

	s := &Server{l: l, bound: bound, stopWatch: func() {}, done: make(chan struct{})}
	if !o.noWatch {
		s.watch(socketAddr)
	}
	return s, nil
}

// watch logs an error if the socket file disappears while we are still serving.
func (s *Server) watch(p string) {
	removed, closer, err := filewatcher.Removed(p)
	if err != nil {
		log.Warningf("cannot watch socket file %s for removal: %s", p, err)
		return
	}
	s.stopWatch = closer
	go func() {
		select {
		case <-removed:
			log.Errorf("socket file %s was removed, new clients cannot connect", p)
		case <-s.done:
		}
	}()
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() BoundAddr {
	return s.bound
}

// Accept blocks until a client connects. EINTR is retried. If the peer's credentials cannot be
// read the connection is dropped and Accept waits for the next one. Any other error means the
// listener is no longer usable and is returned as ErrConn.
func (s *Server) Accept() (*Conn, error) {
	for {
		var uc *net.UnixConn
		err := retryIntr(func() error {
			var aerr error
			uc, aerr = s.l.AcceptUnix()
			return aerr
		})
		if err != nil {
			return nil, ErrConn{Op: "accept", Err: err}
		}

		cred, err := readCreds(uc)
		if err != nil {
			log.Errorf("unable to read creds from socket client, rejecting conn: %s", err)
			uc.Close()
			continue
		}
		return newConn(uc, cred), nil
	}
}

// Close stops listening for connections and removes the socket file. Connections already
// accepted are not affected.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.stopWatch()
		s.closeErr = s.l.Close()
	})
	return s.closeErr
}
