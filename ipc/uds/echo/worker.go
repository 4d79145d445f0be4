/*
Package echo implements a Unix domain socket echo server that reports who is on the other end
of every message.

For each message the worker decodes the SCM_CREDENTIALS record the kernel attached (if any),
separately asks the kernel for SO_PEERCRED, logs both and writes the message back unchanged.
The two identities can only differ if the peer changed its ids between sending and our query.

A malformed credential record ends that one connection. Other connections keep being served.
*/
package echo

import (
	"errors"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/johnsiilver/sockcred/ipc/uds"
	"github.com/johnsiilver/sockcred/network"
	"github.com/johnsiilver/sockcred/statemachine"

	log "github.com/golang/glog"
)

// MsgConn is the connection a Worker serves. *uds.Conn implements it.
type MsgConn interface {
	// ReadMsg reads one message and its ancillary data. n == 0 with a nil error or an error
	// wrapping io.EOF means the peer closed the connection.
	ReadMsg(b, oob []byte) (n, oobn int, err error)
	// Write writes all of b.
	Write(b []byte) (int, error)
	// PeerCred returns the peer's SO_PEERCRED credentials.
	PeerCred() (uds.Cred, error)
	// Close must be safe to call more than once.
	Close() error
}

// Message is what a Worker learned about one received message.
type Message struct {
	// Size is the number of payload bytes.
	Size int
	// Ancillary holds the SCM_CREDENTIALS identity, nil if the message carried none.
	Ancillary *uds.Cred
	// Peer is the SO_PEERCRED identity read after the message arrived.
	Peer uds.Cred
}

// Option is an optional argument to NewWorker().
type Option func(w *Worker)

// OnMessage is called after each message is processed and before it is echoed.
func OnMessage(f func(Message)) Option {
	return func(w *Worker) {
		w.onMessage = f
	}
}

// Worker echoes messages on a single connection. A Worker owns its connection: nothing else
// may read, write or close it once it is handed to NewWorker.
type Worker struct {
	id   string
	conn MsgConn

	// Set by receive(), consumed by process() and send().
	msg []byte
	oob []byte

	received, echoed uint64

	onMessage func(Message)
}

// NewWorker creates a Worker for conn. id is used in log messages.
func NewWorker(id string, conn MsgConn, options ...Option) *Worker {
	w := &Worker{id: id, conn: conn}
	for _, o := range options {
		o(w)
	}
	return w
}

// Run echoes messages until the peer closes the connection or an error occurs. The connection
// is closed when Run returns. An orderly close by the peer returns nil.
func (w *Worker) Run() error {
	defer w.conn.Close()

	exec := statemachine.New(
		"echo-"+w.id,
		w.receive,
		statemachine.NodeLimit(8),
		statemachine.LogFacility(log.V(3).Infof),
	)
	if log.V(3) {
		exec.Log(true)
	}

	err := exec.Execute()
	if err != nil {
		log.Errorf("conn %s: closing after %s in, %s out: %s", w.id, humanize.Bytes(w.received), humanize.Bytes(w.echoed), err)
		return err
	}
	log.Infof("conn %s: peer closed after %s in, %s out", w.id, humanize.Bytes(w.received), humanize.Bytes(w.echoed))
	return nil
}

// receive implements statemachine.StateFn. Buffers are allocated fresh for every message.
func (w *Worker) receive() (statemachine.StateFn, error) {
	msg := make([]byte, network.MaxLine)
	oob := make([]byte, uds.ControlLen)

	n, oobn, err := w.conn.ReadMsg(msg, oob)
	if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
		return nil, nil
	}
	if err != nil {
		return nil, uds.ErrConn{Op: "recvmsg", Err: err}
	}

	w.msg = msg[:n]
	w.oob = oob[:oobn]
	w.received += uint64(n)
	return w.process, nil
}

// process implements statemachine.StateFn.
func (w *Worker) process() (statemachine.StateFn, error) {
	m := Message{Size: len(w.msg)}

	if len(w.oob) > 0 {
		cred, err := uds.DecodeCred(w.oob)
		if err != nil {
			return nil, err
		}
		m.Ancillary = &cred
		w.logCred("SCM_CREDENTIALS", cred)
	}

	peer, err := w.conn.PeerCred()
	if err != nil {
		return nil, err
	}
	m.Peer = peer
	w.logCred("SO_PEERCRED", peer)

	if m.Ancillary != nil && *m.Ancillary != peer {
		log.Warningf("conn %s: peer identity changed between send and query: %s vs %s", w.id, *m.Ancillary, peer)
	}

	if w.onMessage != nil {
		w.onMessage(m)
	}
	return w.send, nil
}

// send implements statemachine.StateFn.
func (w *Worker) send() (statemachine.StateFn, error) {
	n, err := w.conn.Write(w.msg)
	w.echoed += uint64(n)
	if err != nil {
		return nil, uds.ErrConn{Op: "write", Err: err}
	}
	w.msg, w.oob = nil, nil
	return w.receive, nil
}

func (w *Worker) logCred(source string, c uds.Cred) {
	who := ""
	if log.V(1) {
		who = " " + uds.Describe(c)
	}
	if c.Root() {
		log.Infof("conn %s: %s: root sender %s%s", w.id, source, c, who)
		return
	}
	log.Infof("conn %s: %s: %s%s", w.id, source, c, who)
}
