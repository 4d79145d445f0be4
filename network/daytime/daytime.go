/*
Package daytime provides a TCP server that writes the current time to every client and then
closes the connection, in the manner of RFC 867.

Usage:
	s, err := daytime.New("", "daytime") // All addresses, port 13.
	if err != nil {
		// Do something
	}
	if err := s.Serve(); err != nil { // This blocks.
		// Do something
	}

The service can be a port number or a name from the services database.
*/
package daytime

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/johnsiilver/sockcred/network"

	log "github.com/golang/glog"
)

// Layout is the time format written to clients, the same as ctime(3).
const Layout = "Mon Jan _2 15:04:05 2006"

// Option is an optional argument to New().
type Option func(s *Server)

// Clock replaces time.Now as the source of the time written to clients.
func Clock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// Server is a daytime server.
type Server struct {
	l   net.Listener
	now func() time.Time
}

// New listens on host and service. An empty host listens on all addresses, IPv4 and IPv6.
func New(host, service string, options ...Option) (*Server, error) {
	port, err := net.LookupPort("tcp", service)
	if err != nil {
		return nil, fmt.Errorf("tcp_listen error for %s, %s: %w", host, service, err)
	}

	l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("tcp_listen error for %s, %s: %w", host, service, err)
	}

	s := &Server{l: l, now: time.Now}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.l.Addr()
}

// Serve handles clients one at a time until Close() is called, which returns nil. Any other
// accept error is returned.
func (s *Server) Serve() error {
	for {
		conn, err := s.l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept error: %w", err)
		}
		log.Infof("connection from %s", conn.RemoteAddr())

		if err := s.reply(conn); err != nil {
			log.Errorf("write to %s: %s", conn.RemoteAddr(), err)
		}
	}
}

func (s *Server) reply(conn net.Conn) error {
	defer conn.Close()

	line := s.now().Format(Layout) + "\r\n"
	if len(line) > network.MaxLine {
		line = line[:network.MaxLine]
	}
	log.V(1).Infof("sending %q", line)

	_, err := conn.Write([]byte(line))
	return err
}

// Close stops the server.
func (s *Server) Close() error {
	return s.l.Close()
}
