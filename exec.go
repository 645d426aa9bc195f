// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// sessionHandler implements kont.Handler for session effects.
// Waits on iox.ErrWouldBlock, converting non-blocking dispatch
// into blocking evaluation for Exec/ExecExpr. A transport failure is
// stored in err and ends the computation.
type sessionHandler[R any] struct {
	ctx *sessionContext
	err *error
}

// Dispatch implements kont.Handler via structural interface assertion.
// Waits past the iox.ErrWouldBlock boundary with adaptive backoff.
func (h sessionHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	sop, ok := op.(sessionDispatcher)
	if !ok {
		panic("sesstype: unhandled effect in sessionHandler")
	}
	v, err := dispatchWait(h.ctx, sop)
	if err != nil {
		*h.err = err
		var zero R
		return zero, false
	}
	return v, true
}

// dispatchWait blocks until DispatchSession succeeds or fails for a reason
// other than iox.ErrWouldBlock, backing off with iox.Backoff.
func dispatchWait(ctx *sessionContext, sop sessionDispatcher) (kont.Resumed, error) {
	var bo iox.Backoff
	for {
		v, err := sop.DispatchSession(ctx)
		if err == nil {
			return v, nil
		}
		if !iox.IsWouldBlock(err) {
			return nil, err
		}
		bo.Wait()
	}
}

// settle reports a session that an effect program left open.
func (ctx *sessionContext) settle() {
	if ctx.state.Load() == stateOpen {
		ctx.leak()
	}
}

// Exec consumes c and runs a Cont-world session protocol on it.
// Blocks on iox.ErrWouldBlock via adaptive backoff (iox.Backoff),
// without spawning goroutines or creating channels.
//
// A transport failure ends the program and is returned. A program that
// completes without closing its session is reported as a leak.
func Exec[R any](c *Chan, protocol kont.Eff[R]) (R, error) {
	ctx := c.take("Exec")
	var err error
	r := kont.Handle(protocol, sessionHandler[R]{ctx: ctx, err: &err})
	if err != nil {
		var zero R
		return zero, err
	}
	ctx.settle()
	return r, nil
}

// ExecExpr consumes c and runs an Expr-world session protocol on it.
// See Exec.
func ExecExpr[R any](c *Chan, protocol kont.Expr[R]) (R, error) {
	ctx := c.take("ExecExpr")
	var err error
	r := kont.HandleExpr(protocol, sessionHandler[R]{ctx: ctx, err: &err})
	if err != nil {
		var zero R
		return zero, err
	}
	ctx.settle()
	return r, nil
}
