// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"reflect"

	"code.hybscloud.com/sesstype/proto"
)

// Chan is a handle on one endpoint of a session, positioned at a protocol
// fragment. It is single-owner: every protocol operation consumes the
// receiver and returns a fresh handle at the successor fragment. Using a
// consumed handle, or a copy of one, panics with a *ViolationError.
//
// A handle that becomes unreachable before its session was closed at End is
// reported as a leak (see WithLeakHandler).
type Chan struct {
	ctx *sessionContext
	gen uint32
}

// handle mints the owning handle for the session's current generation.
func (ctx *sessionContext) handle() *Chan {
	c := &Chan{ctx: ctx, gen: ctx.gen.Load()}
	ctx.track(c)
	return c
}

// owner returns the session of a handle that still owns it.
func (c *Chan) owner(op string) *sessionContext {
	if c == nil || c.ctx == nil {
		panic(&ViolationError{Op: op, Reason: "use of a consumed channel handle"})
	}
	if c.ctx.gen.Load() != c.gen {
		panic(&ViolationError{Op: op, Proto: c.ctx.at().String(), Serial: c.ctx.serial, Reason: "use of a stale channel handle"})
	}
	return c.ctx
}

// take consumes c.
func (c *Chan) take(op string) *sessionContext {
	ctx := c.owner(op)
	c.ctx = nil
	ctx.gen.Add(1)
	return ctx
}

// transfer moves ownership of c to a new handle, for delegation.
func (c *Chan) transfer(op string) *Chan {
	ctx := c.take(op)
	ctx.delegated.Store(true)
	return ctx.handle()
}

// Live reports whether c still owns its session.
func (c *Chan) Live() bool {
	return c != nil && c.ctx != nil && c.ctx.gen.Load() == c.gen
}

// Proto returns the fragment c is positioned at, or nil for a consumed
// handle.
func (c *Chan) Proto() *proto.Proto {
	if !c.Live() {
		return nil
	}
	return c.ctx.at()
}

// Depth returns the number of rec scopes entered and not yet left.
func (c *Chan) Depth() int {
	return c.owner("Depth").env.Len()
}

// Serial returns the serial number shared by both endpoints of the session.
func (c *Chan) Serial() Serial {
	return c.owner("Serial").serial
}

// Send transmits v. The protocol must be at !T where v's type is assignable
// to T. Blocks while the carrier applies backpressure.
//
// Sending a *Chan delegates it: the sent handle is consumed and the peer
// receives the only live handle on that session. A send that violates the
// protocol leaves the handle with the caller.
//
// On a transport failure c is consumed, the carrier is closed and the error
// matches ErrDisconnected or the carrier's own cause.
func Send[T any](c *Chan, v T) (*Chan, error) {
	const op = "Send"
	ctx := c.take(op)
	t := reflect.TypeFor[T]()
	var payload any = v
	var delegated *Chan
	if d, ok := payload.(*Chan); ok && d != nil {
		if ctx.usable(op) == nil {
			ctx.sendable(op, t)
		}
		delegated = d.transfer(op)
		payload = delegated
	}
	err := wait(func() error { return ctx.trySend(op, t, payload) })
	if err != nil {
		if delegated != nil {
			delegated.take(op).abort()
		}
		return nil, err
	}
	return ctx.handle(), nil
}

// Recv receives the next value. The protocol must be at ?U where U is
// assignable to T. Blocks until the peer sends or hangs up.
func Recv[T any](c *Chan) (*Chan, T, error) {
	const op = "Recv"
	var zero T
	ctx := c.take(op)
	t := reflect.TypeFor[T]()
	var v any
	err := wait(func() error {
		var err error
		v, err = ctx.tryRecv(op, t)
		return err
	})
	if err != nil {
		return nil, zero, err
	}
	x, ok := v.(T)
	if !ok {
		return ctx.handle(), zero, nil
	}
	return ctx.handle(), x, nil
}

// Choose picks branch i of the current +{...} and tells the peer.
// An index outside the choice is a protocol violation.
func (c *Chan) Choose(i int) (*Chan, error) {
	const op = "Choose"
	ctx := c.take(op)
	if err := wait(func() error { return ctx.tryChoose(op, i) }); err != nil {
		return nil, err
	}
	return ctx.handle(), nil
}

// First picks branch 0.
func (c *Chan) First() (*Chan, error) { return c.Choose(0) }

// Second picks branch 1.
func (c *Chan) Second() (*Chan, error) { return c.Choose(1) }

// Third picks branch 2.
func (c *Chan) Third() (*Chan, error) { return c.Choose(2) }

// Fourth picks branch 3.
func (c *Chan) Fourth() (*Chan, error) { return c.Choose(3) }

// Branch waits for the peer's choice at the current &{...} and returns the
// picked index with a handle on that branch.
func (c *Chan) Branch() (int, *Chan, error) {
	const op = "Branch"
	ctx := c.take(op)
	var i int
	err := wait(func() error {
		var err error
		i, err = ctx.tryBranch(op)
		return err
	})
	if err != nil {
		return -1, nil, err
	}
	return i, ctx.handle(), nil
}

// Enter steps into the body of the current rec, pushing it on the
// environment. It never communicates.
func (c *Chan) Enter() *Chan {
	ctx := c.take("Enter")
	ctx.enter("Enter")
	return ctx.handle()
}

// Recurse resolves the variable $depth the protocol is at and jumps back to
// the start of that rec body. Depth 0 names the innermost rec; depth d
// leaves d inner scopes. It never communicates.
func (c *Chan) Recurse(depth int) *Chan {
	ctx := c.take("Recurse")
	ctx.recurse("Recurse", depth)
	return ctx.handle()
}

// Zero is Recurse(0).
func (c *Chan) Zero() *Chan { return c.Recurse(0) }

// Close ends the session. The protocol must be at end.
func (c *Chan) Close() error {
	return c.take("Close").close("Close")
}
