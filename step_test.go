// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype_test

import (
	"errors"
	"fmt"
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"

	"code.hybscloud.com/sesstype"
	"code.hybscloud.com/sesstype/proto"
)

func TestStepAdvanceSendRecv(t *testing.T) {
	skipRace(t)
	// Full protocol via Step+Advance loop
	a, b := mustPair(t, pingProto)
	epA, epB := a.Endpoint(), b.Endpoint()

	client := sesstype.ExprSendThen(42,
		sesstype.ExprRecvBind(func(s string) kont.Expr[string] {
			return sesstype.ExprCloseDone(s)
		}),
	)
	server := sesstype.ExprRecvBind(func(n int) kont.Expr[string] {
		return sesstype.ExprSendThen(fmt.Sprintf("got %d", n),
			sesstype.ExprCloseDone("done"),
		)
	})

	var clientResult string
	var clientErr error
	done := make(chan struct{})
	go func() {
		clientResult, clientErr = execExpr(epA, client)
		close(done)
	}()
	serverResult, err := execExpr(epB, server)
	<-done

	if err != nil || clientErr != nil {
		t.Fatalf("errors: %v, %v", clientErr, err)
	}
	if clientResult != "got 42" {
		t.Fatalf("client got %q, want %q", clientResult, "got 42")
	}
	if serverResult != "done" {
		t.Fatalf("server got %q, want %q", serverResult, "done")
	}
	if !epA.Done() || !epB.Done() {
		t.Fatal("endpoints not done after close")
	}
}

func TestStepInspectOperations(t *testing.T) {
	// susp.Op() returns the concrete SendOp[int], then CloseOp
	protocol := sesstype.ExprSendThen(42, sesstype.ExprCloseDone[struct{}](struct{}{}))

	_, susp := sesstype.Step[struct{}](protocol)
	if susp == nil {
		t.Fatal("expected suspension for SendOp")
	}
	sendOp, ok := susp.Op().(sesstype.SendOp[int])
	if !ok {
		t.Fatalf("expected SendOp[int], got %T", susp.Op())
	}
	if sendOp.Value != 42 {
		t.Fatalf("SendOp value got %d, want 42", sendOp.Value)
	}

	a, _ := mustPair(t, oneProto)
	ep := a.Endpoint()
	if ep.Serial() == 0 || ep.Proto() != oneProto {
		t.Fatalf("endpoint serial %d at %s", ep.Serial(), ep.Proto())
	}
	_, susp, err := sesstype.Advance(ep, susp)
	if err != nil {
		t.Fatalf("Advance SendOp: %v", err)
	}
	if _, ok := susp.Op().(sesstype.CloseOp); !ok {
		t.Fatalf("expected CloseOp, got %T", susp.Op())
	}
	if ep.Proto().Kind() != proto.KindEnd {
		t.Fatalf("endpoint at %s after send", ep.Proto())
	}

	_, susp, err = sesstype.Advance(ep, susp)
	if err != nil {
		t.Fatalf("Advance CloseOp: %v", err)
	}
	if susp != nil {
		t.Fatal("expected nil suspension after CloseOp")
	}
}

func TestStepAdvanceSelectOffer(t *testing.T) {
	skipRace(t)
	a, b := mustPair(t, pickProto)
	epA, epB := a.Endpoint(), b.Endpoint()

	selector := sesstype.ExprSelectThen(1,
		sesstype.ExprSendThen("hi", sesstype.ExprCloseDone("second")),
	)
	offerer := sesstype.ExprOfferBranch(
		func() kont.Expr[string] {
			return sesstype.ExprRecvBind(func(n int) kont.Expr[string] {
				return sesstype.ExprCloseDone(fmt.Sprint(n))
			})
		},
		func() kont.Expr[string] {
			return sesstype.ExprRecvBind(func(s string) kont.Expr[string] {
				return sesstype.ExprCloseDone("second:" + s)
			})
		},
	)

	var selectResult string
	done := make(chan struct{})
	go func() {
		selectResult, _ = execExpr(epA, selector)
		close(done)
	}()
	offerResult, err := execExpr(epB, offerer)
	<-done

	if err != nil {
		t.Fatalf("offerer: %v", err)
	}
	if selectResult != "second" {
		t.Fatalf("selector got %q, want %q", selectResult, "second")
	}
	if offerResult != "second:hi" {
		t.Fatalf("offerer got %q, want %q", offerResult, "second:hi")
	}
}

func TestAdvanceWouldBlock(t *testing.T) {
	skipRace(t)
	// Advance returns iox.ErrWouldBlock when nothing arrived, retryable
	protocol := sesstype.ExprRecvBind(func(n int) kont.Expr[int] {
		return sesstype.ExprCloseDone(n)
	})
	_, susp := sesstype.Step[int](protocol)

	sender, receiver := mustPair(t, oneProto)
	ep := receiver.Endpoint()

	_, retrySusp, err := sesstype.Advance(ep, susp)
	if !iox.IsWouldBlock(err) {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
	if retrySusp != susp {
		t.Fatal("suspension should be returned unconsumed on error")
	}
	if !proto.Equal(ep.Proto(), proto.Dual(oneProto)) {
		t.Fatalf("ErrWouldBlock moved the endpoint to %s", ep.Proto())
	}

	if _, err := sesstype.Exec(sender, sesstype.SendThen(99, sesstype.CloseDone(struct{}{}))); err != nil {
		t.Fatalf("sender: %v", err)
	}

	result, err := drive(ep, susp)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if result != 99 {
		t.Fatalf("result got %d, want 99", result)
	}
}

// drive finishes a suspended program on ep.
func drive[R any](ep *sesstype.Endpoint, susp *kont.Suspension[R]) (R, error) {
	var result R
	var err error
	for susp != nil {
		result, susp, err = sesstype.Advance(ep, susp)
		if err != nil && !iox.IsWouldBlock(err) {
			return result, err
		}
	}
	return result, nil
}

func TestAdvanceWouldBlockSend(t *testing.T) {
	skipRace(t)
	// Backpressure: the fifth send blocks on a queue of capacity 4.
	p := proto.Send[int](proto.Send[int](proto.Send[int](proto.Send[int](proto.Send[int](proto.End())))))
	protocol := sesstype.ExprSendThen(1,
		sesstype.ExprSendThen(2,
			sesstype.ExprSendThen(3,
				sesstype.ExprSendThen(4,
					sesstype.ExprSendThen(5, sesstype.ExprCloseDone[struct{}](struct{}{})),
				),
			),
		),
	)

	a, b, err := sesstype.NewPair(p, append(quiet(nil), sesstype.WithCapacity(4))...)
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	ep := a.Endpoint()

	_, susp := sesstype.Step[struct{}](protocol)
	for i := range 4 {
		_, susp, err = sesstype.Advance(ep, susp)
		if err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
	}
	_, retrySusp, err := sesstype.Advance(ep, susp)
	if !iox.IsWouldBlock(err) {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
	if retrySusp != susp {
		t.Fatal("suspension should be returned unconsumed on error")
	}

	done := make(chan int, 1)
	go func() {
		sum := 0
		for range 5 {
			var n int
			b, n, _ = sesstype.Recv[int](b)
			sum += n
		}
		_ = b.Close()
		done <- sum
	}()

	if _, err := drive(ep, susp); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if sum := <-done; sum != 15 {
		t.Fatalf("receiver sum got %d, want 15", sum)
	}
}

func TestAdvanceTransportFailure(t *testing.T) {
	skipRace(t)
	a, b := mustPair(t, oneProto)
	ep := b.Endpoint()
	_, susp := sesstype.Step[int](sesstype.ExprRecvBind(func(n int) kont.Expr[int] {
		return sesstype.ExprCloseDone(n)
	}))

	// The sender gives up without sending.
	if _, err := sesstype.ExecErrorExpr[string](a, kont.ExprThrowError[string, struct{}]("quit")); err != nil {
		t.Fatalf("ExecErrorExpr: %v", err)
	}

	_, _, err := sesstype.Advance(ep, susp)
	if !errors.Is(err, sesstype.ErrDisconnected) {
		t.Fatalf("Advance got %v, want ErrDisconnected", err)
	}
	if !ep.Done() {
		t.Fatal("endpoint open after a transport failure")
	}
	susp.Discard()
}

func TestAdvanceUnhandledPanics(t *testing.T) {
	type bogus struct{ kont.Phantom[int] }
	_, susp := sesstype.Step[int](kont.ExprPerform(bogus{}))

	a, _ := mustPair(t, proto.End())
	ep := a.Endpoint()
	defer func() {
		msg, ok := recover().(string)
		if !ok || msg != "sesstype: unhandled effect in Advance" {
			t.Fatalf("unexpected panic: %q", msg)
		}
	}()
	sesstype.Advance(ep, susp)
}

func TestReifyContToExpr(t *testing.T) {
	skipRace(t)
	cont := sesstype.SendThen(42,
		sesstype.RecvBind(func(s string) kont.Eff[string] {
			return sesstype.CloseDone(s)
		}),
	)
	server := sesstype.ExprRecvBind(func(n int) kont.Expr[string] {
		return sesstype.ExprSendThen(fmt.Sprintf("got %d", n),
			sesstype.ExprCloseDone("done"),
		)
	})

	clientResult, serverResult, err := sesstype.RunExpr[string, string](pingProto, sesstype.Reify(cont), server, quiet(nil)...)
	if err != nil {
		t.Fatalf("RunExpr: %v", err)
	}
	if clientResult != "got 42" || serverResult != "done" {
		t.Fatalf("got (%q, %q)", clientResult, serverResult)
	}
}

func TestRoundTripReflectReify(t *testing.T) {
	skipRace(t)
	// Reify(Reflect(expr)) and Reflect(Reify(cont)) preserve semantics.
	p := proto.Send[int](proto.Recv[int](proto.End()))
	expr := sesstype.ExprSendThen(5,
		sesstype.ExprRecvBind(func(n int) kont.Expr[int] {
			return sesstype.ExprCloseDone(n)
		}),
	)
	cont := sesstype.RecvBind(func(n int) kont.Eff[int] {
		return sesstype.SendThen(n*4, sesstype.CloseDone(n*4))
	})

	clientResult, serverResult, err := sesstype.RunExpr[int, int](p,
		sesstype.Reify(sesstype.Reflect(expr)), sesstype.Reify(sesstype.Reflect(sesstype.Reify(cont))), quiet(nil)...)
	if err != nil {
		t.Fatalf("RunExpr: %v", err)
	}
	if clientResult != 20 || serverResult != 20 {
		t.Fatalf("got (%d, %d), want (20, 20)", clientResult, serverResult)
	}
}
