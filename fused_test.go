// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype_test

import (
	"fmt"
	"testing"

	"code.hybscloud.com/kont"

	"code.hybscloud.com/sesstype"
	"code.hybscloud.com/sesstype/proto"
)

func TestSendThen(t *testing.T) {
	skipRace(t)
	client := sesstype.SendThen(42, sesstype.CloseDone("sent"))

	server := sesstype.RecvBind(func(n int) kont.Eff[string] {
		return sesstype.CloseDone(fmt.Sprintf("got %d", n))
	})

	clientResult, serverResult, err := sesstype.Run[string, string](oneProto, client, server, quiet(nil)...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if clientResult != "sent" {
		t.Fatalf("client got %q, want %q", clientResult, "sent")
	}
	if serverResult != "got 42" {
		t.Fatalf("server got %q, want %q", serverResult, "got 42")
	}
}

// Fused constructors and their unfused Perform/Bind spelling are
// interchangeable across the two participants.
func TestFusedMatchesPerform(t *testing.T) {
	skipRace(t)
	// +{!int.?int.end, end}
	p := proto.Choose(proto.Send[int](proto.Recv[int](proto.End())), proto.End())

	client := kont.Then(kont.Perform(sesstype.SelectOp{Index: 0}),
		kont.Then(kont.Perform(sesstype.SendOp[int]{Value: 21}),
			kont.Bind(kont.Perform(sesstype.RecvOp[int]{}), func(n int) kont.Eff[int] {
				return kont.Then(kont.Perform(sesstype.CloseOp{}), kont.Pure(n))
			}),
		),
	)
	server := kont.Bind(kont.Perform(sesstype.OfferOp{}), func(i int) kont.Eff[int] {
		if i != 0 {
			return sesstype.CloseDone(-1)
		}
		return sesstype.RecvBind(func(n int) kont.Eff[int] {
			return sesstype.SendThen(n*2, sesstype.CloseDone(n))
		})
	})

	clientResult, serverResult, err := sesstype.Run[int, int](p, client, server, quiet(nil)...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if clientResult != 42 || serverResult != 21 {
		t.Fatalf("got (%d, %d), want (42, 21)", clientResult, serverResult)
	}
}

func TestExprSendThen(t *testing.T) {
	skipRace(t)
	client := sesstype.ExprSendThen(99, sesstype.ExprCloseDone("done"))

	server := sesstype.ExprRecvBind(func(n int) kont.Expr[int] {
		return sesstype.ExprCloseDone(n * 2)
	})

	_, serverResult, err := sesstype.RunExpr[string, int](oneProto, client, server, quiet(nil)...)
	if err != nil {
		t.Fatalf("RunExpr: %v", err)
	}
	if serverResult != 198 {
		t.Fatalf("server got %d, want 198", serverResult)
	}
}

func TestFusedRecursion(t *testing.T) {
	skipRace(t)
	// One pass of rec.+{!int.$0, end} spelled without RecLoop.
	client := sesstype.EnterThen(
		sesstype.SelectThen(0, sesstype.SendThen(5,
			sesstype.RecurseThen(0, sesstype.SelectThen(1, sesstype.CloseDone("done"))),
		)),
	)
	var pass func(acc int) kont.Eff[int]
	pass = func(acc int) kont.Eff[int] {
		return sesstype.OfferBranch(
			func() kont.Eff[int] {
				return sesstype.RecvBind(func(n int) kont.Eff[int] {
					return sesstype.RecurseThen(0, pass(acc+n))
				})
			},
			func() kont.Eff[int] { return sesstype.CloseDone(acc) },
		)
	}
	server := sesstype.EnterThen(pass(0))

	c, s, err := sesstype.Run[string, int](streamProto, client, server, quiet(nil)...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c != "done" || s != 5 {
		t.Fatalf("got (%q, %d), want (done, 5)", c, s)
	}
}

func TestOfferBranchArityChecked(t *testing.T) {
	skipRace(t)
	client := sesstype.SelectThen(0, sesstype.SendThen(1, sesstype.CloseDone(struct{}{})))
	server := sesstype.OfferBranch(
		func() kont.Eff[struct{}] { return sesstype.CloseDone(struct{}{}) },
	)
	defer func() {
		v, ok := recover().(*sesstype.ViolationError)
		if !ok || v.Op != "OfferOp" {
			t.Fatalf("expected an OfferOp violation, got %v", v)
		}
	}()
	sesstype.Run[struct{}, struct{}](pickProto, client, server, quiet(nil)...)
}
