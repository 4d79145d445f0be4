//go:build !linux
// +build !linux

package uds

import "net"

// ControlLen is zero where credential passing is not supported.
var ControlLen = 0

// DecodeCred always returns ErrUnsupported on this platform.
func DecodeCred(oob []byte) (Cred, error) {
	return Cred{}, ErrUnsupported
}

// EncodeCred returns nil on this platform.
func EncodeCred(cred Cred) []byte {
	return nil
}

func readCreds(conn *net.UnixConn) (Cred, error) {
	return Cred{}, ErrUnsupported
}

func listen(path string, backlog int) (*net.UnixListener, BoundAddr, error) {
	return nil, BoundAddr{}, ErrSetup{Op: "socket", Err: ErrUnsupported}
}
