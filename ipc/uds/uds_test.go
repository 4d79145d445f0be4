package uds

import (
	"errors"
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestCurrent(t *testing.T) {
	cred, u, err := Current()
	if err != nil {
		t.Skipf("no user database entry for this process: %s", err)
	}
	if cred.PID.Int() != os.Getpid() {
		t.Errorf("TestCurrent: PID: got %d, want %d", cred.PID, os.Getpid())
	}
	if cred.UID.String() != u.Uid {
		t.Errorf("TestCurrent: UID: got %s, want %s", cred.UID, u.Uid)
	}
}

func TestCredString(t *testing.T) {
	c := Cred{PID: 12, UID: 0, GID: 5}
	if got, want := c.String(), "pid=12 uid=0 gid=5"; got != want {
		t.Errorf("TestCredString: got %q, want %q", got, want)
	}
	if !c.Root() {
		t.Errorf("TestCredString: Root(): got false, want true")
	}
	if (Cred{UID: 1000}).Root() {
		t.Errorf("TestCredString: Root() for uid 1000: got true, want false")
	}
}

// stingyWriter accepts at most max bytes per call and fails with EINTR every other call.
type stingyWriter struct {
	max   int
	calls int
	got   []byte
}

func (s *stingyWriter) Write(b []byte) (int, error) {
	s.calls++
	if s.calls%2 == 0 {
		return 0, syscall.EINTR
	}
	if len(b) > s.max {
		b = b[:s.max]
	}
	s.got = append(s.got, b...)
	return len(b), nil
}

type failWriter struct{}

func (failWriter) Write(b []byte) (int, error) {
	return 1, syscall.EPIPE
}

type zeroWriter struct{}

func (zeroWriter) Write(b []byte) (int, error) {
	return 0, nil
}

func TestWriteFull(t *testing.T) {
	want := []byte("the quick brown fox jumps over the lazy dog")

	sw := &stingyWriter{max: 3}
	n, err := writeFull(sw, want)
	if err != nil {
		t.Fatalf("TestWriteFull: got err %s", err)
	}
	if n != len(want) {
		t.Errorf("TestWriteFull: got n %d, want %d", n, len(want))
	}
	if diff := pretty.Compare(string(want), string(sw.got)); diff != "" {
		t.Errorf("TestWriteFull: -want/+got:\n%s", diff)
	}

	n, err = writeFull(failWriter{}, want)
	if !errors.Is(err, syscall.EPIPE) || n != 1 {
		t.Errorf("TestWriteFull(fail): got %d, %v, want 1, EPIPE", n, err)
	}

	if _, err := writeFull(zeroWriter{}, want); err != io.ErrShortWrite {
		t.Errorf("TestWriteFull(zero): got %v, want io.ErrShortWrite", err)
	}
}

func TestRetryIntr(t *testing.T) {
	calls := 0
	err := retryIntr(func() error {
		calls++
		if calls < 3 {
			return syscall.EINTR
		}
		return io.EOF
	})
	if err != io.EOF || calls != 3 {
		t.Errorf("TestRetryIntr: got %v after %d calls, want io.EOF after 3", err, calls)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	err := error(ErrConn{Op: "recvmsg", Err: syscall.ECONNRESET})
	if !errors.Is(err, syscall.ECONNRESET) {
		t.Errorf("TestErrorsUnwrap: ErrConn does not unwrap")
	}
	if got, want := err.Error(), "recvmsg: "+syscall.ECONNRESET.Error(); got != want {
		t.Errorf("TestErrorsUnwrap: got %q, want %q", got, want)
	}

	err = ErrSetup{Op: "bind", Err: syscall.EADDRINUSE}
	if !errors.Is(err, syscall.EADDRINUSE) {
		t.Errorf("TestErrorsUnwrap: ErrSetup does not unwrap")
	}

	se := ErrStructural{Reason: ReasonLevel, Detail: "control level 0 != SOL_SOCKET"}
	if got, want := se.Error(), "wrong level: control level 0 != SOL_SOCKET"; got != want {
		t.Errorf("TestErrorsUnwrap: got %q, want %q", got, want)
	}
}
