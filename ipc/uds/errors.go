package uds

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

// ErrUnsupported is returned on platforms without SO_PASSCRED/SO_PEERCRED.
var ErrUnsupported = errors.New("unix credential passing is only supported on linux")

// Reasons carried by ErrStructural.
const (
	ReasonShort     = "short control message"
	ReasonLevel     = "wrong level"
	ReasonType      = "wrong type"
	ReasonTruncated = "truncated control message"
)

// ErrStructural indicates the ancillary data attached to a message was not a well formed
// SCM_CREDENTIALS record. The connection that delivered it should not be trusted further.
type ErrStructural struct {
	// Reason is one of the Reason constants.
	Reason string
	// Detail has the offending values.
	Detail string
}

func (e ErrStructural) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// ErrSetup indicates the listening socket could not be created. These are configuration
// problems and are not retried.
type ErrSetup struct {
	// Op is the failing operation, such as "bind".
	Op  string
	Err error
}

func (e ErrSetup) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e ErrSetup) Unwrap() error {
	return e.Err
}

// ErrConn indicates an I/O failure on a connection or on the listener that cannot be retried.
type ErrConn struct {
	// Op is the failing operation, such as "recvmsg".
	Op  string
	Err error
}

func (e ErrConn) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e ErrConn) Unwrap() error {
	return e.Err
}

// retryIntr calls f until it returns an error other than EINTR.
func retryIntr(f func() error) error {
	for {
		err := f()
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		return err
	}
}

// writeFull writes all of b to w, continuing after partial writes and EINTR.
func writeFull(w io.Writer, b []byte) (int, error) {
	written := 0
	for written < len(b) {
		n, err := w.Write(b[written:])
		written += n
		switch {
		case errors.Is(err, syscall.EINTR):
			continue
		case err != nil:
			return written, err
		case n == 0:
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}
