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

// Run creates a pair at p, runs both Cont-world protocols, and returns
// both results: a runs at p and b at Dual(p). Interleaves execution of
// both sides on the calling goroutine using adaptive backoff (iox.Backoff)
// when neither side can make progress. Does not spawn goroutines or
// create channels.
func Run[A, B any](p *proto.Proto, a kont.Eff[A], b kont.Eff[B], opts ...Option) (A, B, error) {
	return RunExpr(p, Reify(a), Reify(b), opts...)
}

// stepper drives one side of RunExpr.
type stepper[R any] struct {
	ctx    *sessionContext
	result R
	susp   *kont.Suspension[R]
	sop    sessionDispatcher
	err    error
}

func (s *stepper[R]) start(m kont.Expr[R]) {
	s.result, s.susp = Step[R](m)
	s.load()
}

// load picks up the next operation. A program that returned is settled
// right away, so that a peer still waiting on the session sees the hang-up.
func (s *stepper[R]) load() {
	if s.susp == nil {
		s.ctx.settle()
		return
	}
	s.sop = s.susp.Op().(sessionDispatcher)
}

// advance reports whether the side made progress.
func (s *stepper[R]) advance() bool {
	if s.susp == nil {
		return false
	}
	v, err := s.sop.DispatchSession(s.ctx)
	if err != nil {
		if iox.IsWouldBlock(err) {
			return false
		}
		s.susp.Discard()
		s.susp, s.err = nil, err
		return true
	}
	s.result, s.susp = s.susp.Resume(v)
	s.load()
	return true
}

func (s *stepper[R]) finish() (R, error) {
	if s.err != nil {
		var zero R
		return zero, s.err
	}
	return s.result, nil
}

// RunExpr creates a pair at p, runs both Expr-world protocols, and
// returns both results. Interleaves execution of both sides on the
// calling goroutine using adaptive backoff (iox.Backoff) when neither
// side can make progress. Does not spawn goroutines or create channels.
//
// A transport failure stops the failing side; its peer then observes the
// hang-up. So does a side that returns with its session still open, which
// is reported as a leak. Both failures are joined into the returned error.
func RunExpr[A, B any](p *proto.Proto, a kont.Expr[A], b kont.Expr[B], opts ...Option) (A, B, error) {
	ctxA, ctxB, err := newPair(p, opts)
	if err != nil {
		var zeroA A
		var zeroB B
		return zeroA, zeroB, err
	}
	sa := &stepper[A]{ctx: ctxA}
	sb := &stepper[B]{ctx: ctxB}
	sa.start(a)
	sb.start(b)
	var bo iox.Backoff
	for sa.susp != nil || sb.susp != nil {
		progressA := sa.advance()
		progressB := sb.advance()
		if !progressA && !progressB {
			bo.Wait()
		} else {
			bo.Reset()
		}
	}
	resultA, errA := sa.finish()
	resultB, errB := sb.finish()
	return resultA, resultB, errors.Join(errA, errB)
}
