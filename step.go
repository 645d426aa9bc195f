// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"code.hybscloud.com/kont"

	"code.hybscloud.com/sesstype/proto"
)

// Endpoint is a session owned by a stepped effect program. It is obtained
// by consuming a *Chan and driven with Advance or AdvanceError, one
// operation at a time, from a proactor loop or any other scheduler.
type Endpoint struct {
	ctx *sessionContext
}

// Endpoint consumes c and returns it as a stepping endpoint. An endpoint
// dropped before its session was closed is reported as a leak.
func (c *Chan) Endpoint() *Endpoint {
	ctx := c.take("Endpoint")
	ep := &Endpoint{ctx: ctx}
	ctx.trackEndpoint(ep)
	return ep
}

// Serial returns the serial number assigned to this endpoint's session.
func (ep *Endpoint) Serial() Serial {
	return ep.ctx.serial
}

// Proto returns the fragment the endpoint is at.
func (ep *Endpoint) Proto() *proto.Proto {
	return ep.ctx.at()
}

// Done reports whether the session was closed or failed.
func (ep *Endpoint) Done() bool {
	return ep.ctx.state.Load() != stateOpen
}

// Step evaluates a session protocol until the first effect suspension.
// Returns (result, nil) on completion, or (zero, suspension) if pending.
func Step[R any](protocol kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(protocol)
}

// Advance dispatches the suspended session operation on the endpoint.
// DispatchSession is non-blocking: returns iox.ErrWouldBlock when the
// carrier cannot make progress (the I/O boundary).
//
// On success (nil error), the suspension is consumed and the protocol
// advances to the next effect or completion.
// On iox.ErrWouldBlock, the suspension is unconsumed and may be retried
// after the peer makes progress. Any other error is a transport failure:
// the session is hung up and the suspension should be discarded.
func Advance[R any](ep *Endpoint, susp *kont.Suspension[R]) (R, *kont.Suspension[R], error) {
	sop, ok := susp.Op().(sessionDispatcher)
	if !ok {
		panic("sesstype: unhandled effect in Advance")
	}
	v, err := sop.DispatchSession(ep.ctx)
	if err != nil {
		var zero R
		return zero, susp, err
	}
	result, next := susp.Resume(v)
	return result, next, nil
}

// Reify converts a Cont-world session protocol to Expr-world.
// The resulting Expr can be evaluated with ExecExpr, RunExpr,
// or stepped with Step and Advance.
func Reify[A any](m kont.Eff[A]) kont.Expr[A] {
	return kont.Reify(m)
}

// Reflect converts an Expr-world session protocol to Cont-world.
// The resulting Eff can be evaluated with Exec or Run.
func Reflect[A any](m kont.Expr[A]) kont.Eff[A] {
	return kont.Reflect(m)
}
