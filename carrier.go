// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"context"
	"reflect"
)

// Marker is the choice signal telling the peer which branch was picked.
// Every carrier transmits it with the same 32-bit width, whatever the
// arity of the choice.
type Marker uint32

// Carrier is the transport binding under a channel: it moves opaque
// values and choice markers between the two endpoints of one session.
//
// Every method is non-blocking and returns iox.ErrWouldBlock when it cannot
// make progress (full queue, nothing received yet). Any other error is a
// transport failure and should match ErrDisconnected or ErrClosed.
//
// Implementations deliver values and markers in FIFO order per direction,
// exactly once. A Carrier is owned by exactly one channel at a time and is
// not safe for concurrent use.
type Carrier interface {
	SendValue(v any) error
	// RecvValue receives the next value. t is the payload type the protocol
	// expects; in-process carriers may ignore it, serializing carriers use
	// it to decode.
	RecvValue(t reflect.Type) (any, error)
	SendChoice(m Marker) error
	RecvChoice() (Marker, error)
	// Close hangs up. The peer observes ErrDisconnected once it has drained
	// what was sent before.
	Close() error
}

// Readier is implemented by carriers that can report, without consuming
// anything, whether a receive would make progress. It backs Select.
// A hung-up carrier is ready: the receive will report the failure.
type Readier interface {
	ValueReady() bool
	ChoiceReady() bool
}

// Hello is exchanged by Handshaker carriers before the first operation.
type Hello struct {
	Session  string
	Protocol string
}

// Handshaker is implemented by carriers connecting independently built
// endpoints (network transports). Attach sends the local protocol and
// checks the peer's answer against its dual.
type Handshaker interface {
	Handshake(ctx context.Context, local Hello) (Hello, error)
}

// carrierKind labels a carrier in metrics and logs.
func carrierKind(c Carrier) string {
	if k, ok := c.(interface{ CarrierKind() string }); ok {
		return k.CarrierKind()
	}
	return "custom"
}
