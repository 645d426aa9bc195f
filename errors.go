// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"errors"
	"fmt"

	"code.hybscloud.com/sesstype/proto"
)

var (
	// ErrDisconnected is matched by every transport failure: the peer hung
	// up or the underlying medium closed.
	ErrDisconnected = errors.New("sesstype: peer disconnected")
	// ErrClosed is returned when a carrier is used after its local close.
	ErrClosed = errors.New("sesstype: carrier closed")
	// ErrMalformedProtocol is matched by construction-time protocol errors.
	ErrMalformedProtocol = proto.ErrMalformed
	// ErrDualityMismatch is matched by *DualityError.
	ErrDualityMismatch = errors.New("sesstype: peer protocol is not dual")
	// ErrNotSelectable is returned by Select for carriers without readiness.
	ErrNotSelectable = errors.New("sesstype: carrier does not report readiness")
	// ErrInvalidOption is returned by NewPair and Attach for bad options.
	ErrInvalidOption = errors.New("sesstype: invalid option")
)

// DualityError reports that a remote peer announced a protocol that is not
// the dual of the local one.
type DualityError struct {
	Local  string
	Remote string
	Want   string
}

func (e *DualityError) Error() string {
	return fmt.Sprintf("sesstype: peer protocol %s is not the dual of %s (want %s)", e.Remote, e.Local, e.Want)
}

func (e *DualityError) Unwrap() error { return ErrDualityMismatch }

// ViolationError is the panic value of a protocol-violation defect: an
// operation invoked at a fragment that does not allow it, a payload of the
// wrong type, an out-of-range branch, reuse of a consumed handle.
//
// Violations are statically impossible when both sides follow dual
// protocols; they are not meant to be recovered from.
type ViolationError struct {
	Op     string
	Proto  string
	Serial Serial
	Reason string
}

func (e *ViolationError) Error() string {
	if e.Proto == "" {
		return fmt.Sprintf("sesstype: protocol violation in %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("sesstype: protocol violation in %s at %s (session %d): %s", e.Op, e.Proto, e.Serial, e.Reason)
}

// LeakError reports a handle abandoned before it was closed at End.
type LeakError struct {
	Proto  string
	Serial Serial
}

func (e *LeakError) Error() string {
	return fmt.Sprintf("sesstype: session %d abandoned at %s without close", e.Serial, e.Proto)
}

// PanicError carries a panic recovered from a participant run by Connect.
type PanicError struct {
	Participant string
	Value       any
	Stack       []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("sesstype: participant %s panicked: %v", e.Participant, e.Value)
}

// Unwrap exposes panics whose value is an error, so that a recovered
// *ViolationError or *LeakError can be matched with errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
