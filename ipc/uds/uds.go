/*
Package uds provides a server and client for Unix Domain Sockets that surface the identity of the
process on the other end of a connection.

Identity comes from two independent places on Linux:

	SCM_CREDENTIALS ancillary data, delivered by the kernel alongside a message when the receiving
	socket has SO_PASSCRED set. Use Conn.ReadMsg() with a buffer of ControlLen bytes and pass the
	control bytes to DecodeCred().

	SO_PEERCRED, a socket option holding the kernel's view of the peer. Use Conn.PeerCred().

The package does not make authentication decisions. It reports the identity and lets the caller
decide what to do with it.

Server setup follows the classic sequence: create the socket, set SO_PASSCRED on the listening
socket (accepted sockets inherit it), remove any stale file at the socket path, bind, listen.

Unix/Linux Note:
	On Linux there seems to be an 108 character for path names. https://github.com/golang/go/issues/6895 .
	I have set this as the limit for all servers and clients so I don't have to interpret
	non-sensical errors (invalid argument doesn't mean all that much).
*/
package uds

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"strconv"
	"sync"
)

// maxPathLen is the size of sun_path on Linux, including the trailing NUL.
const maxPathLen = 108

// ID represents a numeric ID. Go in various libraries stores IDs such as Uid or Gid as strings.
// However in other more OS specific libraries, it might be int or int32. This simply unifies that
// so it is easier to translate for whatever need you have.
type ID int

// String returns the ID as a string.
func (i ID) String() string {
	return strconv.Itoa(int(i))
}

// Int returns the ID as an int.
func (i ID) Int() int {
	return int(i)
}

// Int32 returns the ID as an int32.
func (i ID) Int32() int32 {
	return int32(i)
}

// Uint32 returns the ID as an uint32.
func (i ID) Uint32() uint32 {
	return uint32(i)
}

// Current provides information about the current process and user.
func Current() (Cred, *user.User, error) {
	u, err := user.Current()
	if err != nil {
		return Cred{}, nil, err
	}

	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)

	cred := Cred{
		PID: ID(os.Getpid()),
		UID: ID(uid),
		GID: ID(gid),
	}
	return cred, u, nil
}

// Cred provides the credentials of a local process at the time they were read. A process may
// change its uid or gid at any time, so a Cred should not be cached across messages.
type Cred struct {
	// PID is the process id of the process.
	PID ID
	// UID is the user id of the process.
	UID ID
	// GID is the group id of the process.
	GID ID
}

// Root reports if the credentials belong to the superuser.
func (c Cred) Root() bool {
	return c.UID == 0
}

func (c Cred) String() string {
	return fmt.Sprintf("pid=%d uid=%d gid=%d", c.PID, c.UID, c.GID)
}

// Conn represents a UDS connection from a client. A Conn must only be used by one goroutine.
type Conn struct {
	// Cred is the peer's identity as reported by SO_PEERCRED when the connection was accepted.
	Cred Cred

	conn *net.UnixConn

	closeOnce sync.Once
	closeErr  error
}

func newConn(uc *net.UnixConn, cred Cred) *Conn {
	return &Conn{conn: uc, Cred: cred}
}

// UnixConn will return the underlying UnixConn object.
func (c *Conn) UnixConn() *net.UnixConn {
	return c.conn
}

// ReadMsg reads a single message into b and any ancillary data into oob. EINTR is retried.
// A return of n == 0 with a nil error or one wrapping io.EOF (ReadMsgUnix wraps it in a
// *net.OpError) means the peer has closed the connection.
func (c *Conn) ReadMsg(b, oob []byte) (n, oobn int, err error) {
	err = retryIntr(func() error {
		var rerr error
		n, oobn, _, _, rerr = c.conn.ReadMsgUnix(b, oob)
		return rerr
	})
	return n, oobn, err
}

// Read implements io.Reader.Read(). Any ancillary data is discarded.
func (c *Conn) Read(b []byte) (int, error) {
	var n int
	err := retryIntr(func() error {
		var rerr error
		n, rerr = c.conn.Read(b)
		return rerr
	})
	return n, err
}

// Write implements io.Writer.Write(). It does not return until all of b is written or
// an error occurs.
func (c *Conn) Write(b []byte) (int, error) {
	return writeFull(c.conn, b)
}

// PeerCred queries SO_PEERCRED on the connection. This is the kernel's current view of the peer
// and does not depend on what the peer attached to any message.
func (c *Conn) PeerCred() (Cred, error) {
	cred, err := readCreds(c.conn)
	if err != nil {
		return Cred{}, ErrConn{Op: "getsockopt(SO_PEERCRED)", Err: err}
	}
	return cred, nil
}

// Close implements io.Closer.Close(). Only the first call closes the socket, later calls
// return the result of the first.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Client provides a UDS client for connecting to a UDS server.
type Client struct {
	conn *net.UnixConn
}

// NewClient creates a new UDS client to the socket at socketAddr.
func NewClient(socketAddr string) (*Client, error) {
	if len(socketAddr) >= maxPathLen {
		return nil, fmt.Errorf("socketAddr(%s) path length must be less than %d characters", socketAddr, maxPathLen)
	}

	stats, err := os.Stat(socketAddr)
	if err != nil {
		return nil, fmt.Errorf("could not stat socket address(%s): %w", socketAddr, err)
	}
	if stats.Mode()&os.ModeSocket == 0 {
		return nil, fmt.Errorf("socket address(%s) is not a socket, mode is %v", socketAddr, stats.Mode())
	}

	conn, err := net.Dial("unix", socketAddr)
	if err != nil {
		return nil, fmt.Errorf("unable to dial socket(%s): %w", socketAddr, err)
	}
	return &Client{conn: conn.(*net.UnixConn)}, nil
}

// UnixConn will return the underlying UnixConn object.
func (c *Client) UnixConn() *net.UnixConn {
	return c.conn
}

// Read implements io.Reader.Read().
func (c *Client) Read(b []byte) (int, error) {
	var n int
	err := retryIntr(func() error {
		var rerr error
		n, rerr = c.conn.Read(b)
		return rerr
	})
	return n, err
}

// ReadFull reads exactly len(b) bytes.
func (c *Client) ReadFull(b []byte) error {
	_, err := io.ReadFull(c, b)
	return err
}

// Write implements io.Writer.Write(). The kernel attaches our credentials on its own if the
// server asked for them.
func (c *Client) Write(b []byte) (int, error) {
	return writeFull(c.conn, b)
}

// WriteCred writes b with an explicit SCM_CREDENTIALS record holding cred. Unless the process
// is privileged, cred must match the process' real ids or the kernel rejects the write.
func (c *Client) WriteCred(b []byte, cred Cred) error {
	return retryIntr(func() error {
		n, _, err := c.conn.WriteMsgUnix(b, EncodeCred(cred), nil)
		if err != nil {
			return err
		}
		if n != len(b) {
			return io.ErrShortWrite
		}
		return nil
	})
}

// CloseWrite shuts down the writing side of the connection, the server sees an orderly close.
func (c *Client) CloseWrite() error {
	return c.conn.CloseWrite()
}

// Close closes the connection to the server.
func (c *Client) Close() error {
	return c.conn.Close()
}
