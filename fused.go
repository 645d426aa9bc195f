// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"code.hybscloud.com/kont"
)

// SendThen sends a value and then continues with next.
// Fuses Perform(SendOp[T]{Value: v}) + Then.
func SendThen[T, B any](v T, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(SendOp[T]{Value: v}), next)
}

// RecvBind receives a value and passes it to f.
// Fuses Perform(RecvOp[T]{}) + Bind.
func RecvBind[T, B any](f func(T) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(RecvOp[T]{}), f)
}

// CloseDone closes the session and returns a.
// Fuses Perform(CloseOp{}) + Then + Pure.
func CloseDone[A any](a A) kont.Eff[A] {
	return kont.Then(kont.Perform(CloseOp{}), kont.Pure(a))
}

// SelectThen picks branch i and continues with next.
// Fuses Perform(SelectOp{Index: i}) + Then.
func SelectThen[B any](i int, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(SelectOp{Index: i}), next)
}

// OfferBranch waits for the peer's choice and continues with the handler
// of the picked branch. There must be one handler per branch.
// Fuses Perform(OfferOp{}) + Bind + dispatch on the index.
func OfferBranch[A any](handlers ...func() kont.Eff[A]) kont.Eff[A] {
	return kont.Bind(kont.Perform(OfferOp{Arity: len(handlers)}), func(i int) kont.Eff[A] {
		return handlers[i]()
	})
}

// EnterThen steps into the current rec body and continues with next.
func EnterThen[B any](next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(EnterOp{}), next)
}

// RecurseThen jumps back to the rec named by $depth and continues with
// next, which describes the body again.
func RecurseThen[B any](depth int, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(RecurseOp{Depth: depth}), next)
}
