// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"code.hybscloud.com/kont"
)

// Pre-allocated erased operations and frames to eliminate heap escapes
// when boxing empty structs into any/kont.Frame during Expr-world execution.
var (
	exprReturnFrame kont.Frame  = kont.ReturnFrame{}
	exprClose       kont.Erased = CloseOp{}
	exprEnter       kont.Erased = EnterOp{}
	exprRecurse0    kont.Erased = RecurseOp{}
)

// identityResume is the identity resume function for EffectFrame construction.
// Named function produces a static function value, consistent with kont convention.
func identityResume(v kont.Erased) kont.Erased { return v }

// exprThen suspends on op and continues with next.
func exprThen[B any](op kont.Erased, next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = op
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

// ExprSendThen sends a value and then continues with next.
// Fuses ExprPerform(SendOp[T]{Value: v}) + ExprThen.
func ExprSendThen[T, B any](v T, next kont.Expr[B]) kont.Expr[B] {
	return exprThen(SendOp[T]{Value: v}, next)
}

func recvBindUnwind[T, B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(T) kont.Expr[B])
	result := f(current.(T))
	return kont.Erased(result.Value), result.Frame
}

// ExprRecvBind receives a value and passes it to f.
// Fuses ExprPerform(RecvOp[T]{}) + a bind frame.
func ExprRecvBind[T, B any](f func(T) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = recvBindUnwind[T, B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = RecvOp[T]{}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

// ExprCloseDone closes the session and returns a.
// Fuses ExprPerform(CloseOp{}) + ExprThen + ExprReturn.
func ExprCloseDone[A any](a A) kont.Expr[A] {
	return exprThen(exprClose, kont.Expr[A]{Value: a, Frame: exprReturnFrame})
}

// ExprSelectThen picks branch i and continues with next.
// Fuses ExprPerform(SelectOp{Index: i}) + ExprThen.
func ExprSelectThen[B any](i int, next kont.Expr[B]) kont.Expr[B] {
	return exprThen(SelectOp{Index: i}, next)
}

func offerBranchUnwind[A any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	handlers := data.([]func() kont.Expr[A])
	result := handlers[current.(int)]()
	return kont.Erased(result.Value), result.Frame
}

// ExprOfferBranch waits for the peer's choice and continues with the
// handler of the picked branch. There must be one handler per branch.
// Fuses ExprPerform(OfferOp{}) + a bind frame + dispatch on the index.
func ExprOfferBranch[A any](handlers ...func() kont.Expr[A]) kont.Expr[A] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = handlers
	bf.Unwind = offerBranchUnwind[A]
	ef := kont.AcquireEffectFrame()
	ef.Operation = OfferOp{Arity: len(handlers)}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[A](ef)
}

// ExprEnterThen steps into the current rec body and continues with next.
func ExprEnterThen[B any](next kont.Expr[B]) kont.Expr[B] {
	return exprThen(exprEnter, next)
}

// ExprRecurseThen jumps back to the rec named by $depth and continues
// with next.
func ExprRecurseThen[B any](depth int, next kont.Expr[B]) kont.Expr[B] {
	if depth == 0 {
		return exprThen(exprRecurse0, next)
	}
	return exprThen(RecurseOp{Depth: depth}, next)
}
