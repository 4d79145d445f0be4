//go:build linux
// +build linux

package uds

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// readCreds asks the kernel for SO_PEERCRED on conn. The answer reflects the peer as the kernel
// sees it now and does not depend on anything the peer sent.
func readCreds(conn *net.UnixConn) (Cred, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Cred{}, fmt.Errorf("SyscallConn(): %w", err)
	}

	var (
		uc     *unix.Ucred
		optErr error
	)
	if err := raw.Control(func(fd uintptr) {
		uc, optErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return Cred{}, fmt.Errorf("Control(): %w", err)
	}
	if optErr != nil {
		return Cred{}, fmt.Errorf("getsockopt(SO_PEERCRED): %w", optErr)
	}

	return Cred{PID: ID(uc.Pid), UID: ID(uc.Uid), GID: ID(uc.Gid)}, nil
}
