// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"errors"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"

	"code.hybscloud.com/sesstype/proto"
)

// sessionErrorHandler handles both session and error effects.
// Session ops wait on ErrWouldBlock via iox.Backoff. Error ops short-circuit on Throw.
type sessionErrorHandler[E, A any] struct {
	ctx    *sessionContext
	errCtx *kont.ErrorContext[E]
	err    *error
}

// Dispatch implements kont.Handler for the composed Session+Error handler.
// Dispatch order: Session → Error.
func (h sessionErrorHandler[E, A]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	if sop, ok := op.(sessionDispatcher); ok {
		v, err := dispatchWait(h.ctx, sop)
		if err != nil {
			*h.err = err
			var zero kont.Either[E, A]
			return zero, false
		}
		return v, true
	}
	if eop, ok := op.(interface {
		DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
	}); ok {
		v, _ := eop.DispatchError(h.errCtx)
		if h.errCtx.HasErr {
			return kont.Left[E, A](h.errCtx.Err), false
		}
		return v, true
	}
	panic("sesstype: unhandled effect in sessionErrorHandler")
}

// settleEither finishes a session after a program with error effects: a
// thrown error hangs the session up, a normal result must have closed it.
func settleEither[E, R any](ctx *sessionContext, r kont.Either[E, R]) {
	if r.IsLeft() {
		ctx.abort()
		return
	}
	ctx.settle()
}

// ExecError consumes c and runs a session protocol with error handling.
// Returns Either[E, R]: Right on success, Left on Throw. A Throw hangs up
// the session, so the peer observes ErrDisconnected. A transport failure is
// returned as the error.
func ExecError[E, R any](c *Chan, protocol kont.Eff[R]) (kont.Either[E, R], error) {
	ctx := c.take("ExecError")
	wrapped := kont.Map[kont.Resumed, R, kont.Either[E, R]](protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	var err error
	r := kont.Handle(wrapped, sessionErrorHandler[E, R]{ctx: ctx, errCtx: &errCtx, err: &err})
	if err != nil {
		var zero kont.Either[E, R]
		return zero, err
	}
	settleEither(ctx, r)
	return r, nil
}

// ExecErrorExpr consumes c and runs an Expr session protocol with error
// handling. See ExecError.
func ExecErrorExpr[E, R any](c *Chan, protocol kont.Expr[R]) (kont.Either[E, R], error) {
	ctx := c.take("ExecErrorExpr")
	wrapped := kont.ExprMap(protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	var err error
	r := kont.HandleExpr(wrapped, sessionErrorHandler[E, R]{ctx: ctx, errCtx: &errCtx, err: &err})
	if err != nil {
		var zero kont.Either[E, R]
		return zero, err
	}
	settleEither(ctx, r)
	return r, nil
}

// RunError creates a pair at p, runs both Cont-world protocols with error
// handling, and returns both results as Either values. a runs at p and b
// at Dual(p). Interleaves execution on the calling goroutine using
// adaptive backoff (iox.Backoff).
func RunError[E, A, B any](p *proto.Proto, a kont.Eff[A], b kont.Eff[B], opts ...Option) (kont.Either[E, A], kont.Either[E, B], error) {
	return RunErrorExpr[E](p, Reify(a), Reify(b), opts...)
}

// RunErrorExpr creates a pair at p, runs both Expr-world protocols with
// error handling, and returns both results as Either values. Interleaves
// execution on the calling goroutine using adaptive backoff (iox.Backoff).
// Each side is settled as soon as its program returns, so that its peer
// observes a session left open as a hang-up. Transport failures of either
// side are joined into the returned error.
func RunErrorExpr[E, A, B any](p *proto.Proto, a kont.Expr[A], b kont.Expr[B], opts ...Option) (kont.Either[E, A], kont.Either[E, B], error) {
	var resultA kont.Either[E, A]
	var resultB kont.Either[E, B]
	ctxA, ctxB, err := newPair(p, opts)
	if err != nil {
		return resultA, resultB, err
	}
	epA, epB := &Endpoint{ctx: ctxA}, &Endpoint{ctx: ctxB}
	resultA, suspA := StepError[E, A](a)
	if suspA == nil {
		settleEither(ctxA, resultA)
	}
	resultB, suspB := StepError[E, B](b)
	if suspB == nil {
		settleEither(ctxB, resultB)
	}
	var errA, errB error
	var bo iox.Backoff
	for suspA != nil || suspB != nil {
		progress := false
		if suspA != nil {
			var err error
			resultA, suspA, err = AdvanceError[E](epA, suspA)
			switch {
			case err == nil:
				progress = true
				if suspA == nil {
					settleEither(ctxA, resultA)
				}
			case !iox.IsWouldBlock(err):
				suspA.Discard()
				suspA, errA = nil, err
				progress = true
			}
		}
		if suspB != nil {
			var err error
			resultB, suspB, err = AdvanceError[E](epB, suspB)
			switch {
			case err == nil:
				progress = true
				if suspB == nil {
					settleEither(ctxB, resultB)
				}
			case !iox.IsWouldBlock(err):
				suspB.Discard()
				suspB, errB = nil, err
				progress = true
			}
		}
		if !progress {
			bo.Wait()
		} else {
			bo.Reset()
		}
	}
	return resultA, resultB, errors.Join(errA, errB)
}

// StepError evaluates a session protocol with error support until the first
// effect suspension. Returns (Either[E, R], nil) on completion or error,
// or (zero, suspension) if pending.
func StepError[E, R any](protocol kont.Expr[R]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]]) {
	wrapped := kont.ExprMap(protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	return kont.StepExpr(wrapped)
}

// AdvanceError dispatches the suspended operation on the endpoint.
// Session ops are non-blocking (ErrWouldBlock). Error ops are eager:
// Throw discards the suspension, hangs up the session and returns Left.
func AdvanceError[E, R any](ep *Endpoint, susp *kont.Suspension[kont.Either[E, R]]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]], error) {
	// Session ops: non-blocking dispatch
	if sop, ok := susp.Op().(sessionDispatcher); ok {
		v, err := sop.DispatchSession(ep.ctx)
		if err != nil {
			var zero kont.Either[E, R]
			return zero, susp, err
		}
		result, next := susp.Resume(v)
		return result, next, nil
	}
	// Error ops: eager dispatch
	if eop, ok := susp.Op().(interface {
		DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
	}); ok {
		var ctx kont.ErrorContext[E]
		v, _ := eop.DispatchError(&ctx)
		if ctx.HasErr {
			susp.Discard()
			ep.ctx.abort()
			return kont.Left[E, R](ctx.Err), nil, nil
		}
		result, next := susp.Resume(v)
		return result, next, nil
	}
	panic("sesstype: unhandled effect in AdvanceError")
}
