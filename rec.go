// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"code.hybscloud.com/kont"
)

// Loop runs a state loop (Cont-world).
// step returns Left(nextState) to continue or Right(result) to finish.
// Loop performs no session operation of its own; see RecLoop for loops
// over a rec fragment.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if left, ok := e.GetLeft(); ok {
			return Loop(left, step)
		}
		right, _ := e.GetRight()
		return kont.Pure(right)
	})
}

// RecLoop runs a recursive session protocol rec.P (Cont-world).
// It enters the rec once, then runs step over the body. step ends each
// pass either at the variable $0 returning Left(nextState), upon which
// RecLoop recurses and runs the body again, or returning Right(result)
// after leaving the loop through another branch.
func RecLoop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return EnterThen(Loop(initial, func(s S) kont.Eff[kont.Either[S, A]] {
		return kont.Bind(step(s), func(e kont.Either[S, A]) kont.Eff[kont.Either[S, A]] {
			if e.IsLeft() {
				return RecurseThen(0, kont.Pure(e))
			}
			return kont.Pure(e)
		})
	}))
}

// ExprLoop runs a state loop (Expr-world).
// step returns Left(nextState) to continue or Right(result) to finish.
// Chains the bind frame directly instead of going through Reflect.
func ExprLoop[S, A any](initial S, step func(S) kont.Expr[kont.Either[S, A]]) kont.Expr[A] {
	m := step(initial)
	if _, ok := m.Frame.(kont.ReturnFrame); ok {
		if left, ok := m.Value.GetLeft(); ok {
			return ExprLoop(left, step)
		}
		right, _ := m.Value.GetRight()
		return kont.ExprReturn(right)
	}
	bf := kont.AcquireBindFrame()
	bf.F = func(a kont.Erased) kont.Expr[kont.Erased] {
		e := a.(kont.Either[S, A])
		if left, ok := e.GetLeft(); ok {
			result := ExprLoop(left, step)
			return kont.Expr[kont.Erased]{Value: kont.Erased(result.Value), Frame: result.Frame}
		}
		right, _ := e.GetRight()
		return kont.Expr[kont.Erased]{Value: kont.Erased(right), Frame: kont.ReturnFrame{}}
	}
	bf.Next = kont.ReturnFrame{}
	var zero A
	return kont.Expr[A]{
		Value: zero,
		Frame: kont.ChainFrames(m.Frame, bf),
	}
}

// ExprRecLoop runs a recursive session protocol rec.P (Expr-world).
// See RecLoop.
func ExprRecLoop[S, A any](initial S, step func(S) kont.Expr[kont.Either[S, A]]) kont.Expr[A] {
	return ExprEnterThen(ExprLoop(initial, func(s S) kont.Expr[kont.Either[S, A]] {
		m := step(s)
		if _, ok := m.Frame.(kont.ReturnFrame); ok {
			if m.Value.IsLeft() {
				return ExprRecurseThen(0, m)
			}
			return m
		}
		bf := kont.AcquireBindFrame()
		bf.F = func(a kont.Erased) kont.Expr[kont.Erased] {
			if a.(kont.Either[S, A]).IsLeft() {
				result := ExprRecurseThen(0, kont.ExprReturn(a.(kont.Either[S, A])))
				return kont.Expr[kont.Erased]{Value: kont.Erased(result.Value), Frame: result.Frame}
			}
			return kont.Expr[kont.Erased]{Value: a, Frame: kont.ReturnFrame{}}
		}
		bf.Next = kont.ReturnFrame{}
		return kont.Expr[kont.Either[S, A]]{
			Frame: kont.ChainFrames(m.Frame, bf),
		}
	}))
}
