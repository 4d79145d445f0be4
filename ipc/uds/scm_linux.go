//go:build linux
// +build linux

package uds

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ControlLen is the size of the ancillary buffer to hand to Conn.ReadMsg(): room for exactly one
// control message header and one ucred.
var ControlLen = unix.CmsgSpace(unix.SizeofUcred)

// DecodeCred decodes the SCM_CREDENTIALS record at the start of oob. Only call this when the
// receive returned ancillary data, a message without any is not an error.
// The returned Cred is a copy, oob may be reused as soon as this returns.
func DecodeCred(oob []byte) (Cred, error) {
	if len(oob) < unix.SizeofCmsghdr {
		return Cred{}, ErrStructural{Reason: ReasonShort, Detail: fmt.Sprintf("%d bytes of control data", len(oob))}
	}

	// Copy rather than cast, oob has no alignment guarantee.
	var h unix.Cmsghdr
	copy((*[unix.SizeofCmsghdr]byte)(unsafe.Pointer(&h))[:], oob)

	want := unix.CmsgLen(unix.SizeofUcred)
	switch {
	case int(h.Len) < want:
		return Cred{}, ErrStructural{Reason: ReasonShort, Detail: fmt.Sprintf("control length = %d, want %d", h.Len, want)}
	case h.Level != unix.SOL_SOCKET:
		return Cred{}, ErrStructural{Reason: ReasonLevel, Detail: fmt.Sprintf("control level %d != SOL_SOCKET", h.Level)}
	case h.Type != unix.SCM_CREDENTIALS:
		return Cred{}, ErrStructural{Reason: ReasonType, Detail: fmt.Sprintf("control type %d != SCM_CREDENTIALS", h.Type)}
	case int(h.Len) > len(oob):
		return Cred{}, ErrStructural{Reason: ReasonTruncated, Detail: fmt.Sprintf("control length = %d, received %d", h.Len, len(oob))}
	}

	var uc unix.Ucred
	copy((*[unix.SizeofUcred]byte)(unsafe.Pointer(&uc))[:], oob[unix.CmsgLen(0):want])

	return Cred{PID: ID(uc.Pid), UID: ID(uc.Uid), GID: ID(uc.Gid)}, nil
}

// EncodeCred returns an SCM_CREDENTIALS control message holding cred, ControlLen bytes long.
func EncodeCred(cred Cred) []byte {
	return unix.UnixCredentials(&unix.Ucred{Pid: cred.PID.Int32(), Uid: cred.UID.Uint32(), Gid: cred.GID.Uint32()})
}
