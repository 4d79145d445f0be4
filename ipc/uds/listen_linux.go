//go:build linux
// +build linux

package uds

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listen creates the listening socket at path. SO_PASSCRED is set before bind so that every
// accepted socket inherits it and the kernel attaches SCM_CREDENTIALS to every message.
func listen(path string, backlog int) (*net.UnixListener, BoundAddr, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, BoundAddr{}, ErrSetup{Op: "socket", Err: err}
	}
	owned := false
	defer func() {
		if !owned {
			unix.Close(fd)
		}
	}()

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_PASSCRED, 1); err != nil {
		return nil, BoundAddr{}, ErrSetup{Op: "setsockopt(SO_PASSCRED)", Err: err}
	}

	// An earlier run may have left the file behind, bind fails if it exists.
	os.Remove(path)

	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		return nil, BoundAddr{}, ErrSetup{Op: "bind", Err: err}
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, BoundAddr{}, ErrSetup{Op: "getsockname", Err: err}
	}
	bound := BoundAddr{Path: path}
	if ua, ok := sa.(*unix.SockaddrUnix); ok {
		bound.Path = ua.Name
	}
	// getsockname(2) reports sun_family plus the path and its NUL.
	bound.Len = 2 + len(bound.Path) + 1

	if err := unix.Listen(fd, backlog); err != nil {
		return nil, BoundAddr{}, ErrSetup{Op: "listen", Err: err}
	}

	f := os.NewFile(uintptr(fd), path)
	owned = true
	defer f.Close()

	fl, err := net.FileListener(f)
	if err != nil {
		return nil, BoundAddr{}, ErrSetup{Op: "listen", Err: err}
	}
	l := fl.(*net.UnixListener)
	l.SetUnlinkOnClose(true)
	return l, bound, nil
}
