// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype_test

import (
	"io"
	"log/slog"
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"

	"code.hybscloud.com/sesstype"
	"code.hybscloud.com/sesstype/proto"
)

// execExpr drives a protocol to completion on ep via Step+Advance loop.
// Retries on iox.ErrWouldBlock (peer not ready yet) and stops at the first
// transport failure. Used by stepping tests to exercise the non-blocking
// path.
func execExpr[R any](ep *sesstype.Endpoint, protocol kont.Expr[R]) (R, error) {
	result, susp := sesstype.Step[R](protocol)
	for susp != nil {
		var err error
		result, susp, err = sesstype.Advance(ep, susp)
		if err == nil {
			continue
		}
		if !iox.IsWouldBlock(err) {
			susp.Discard()
			var zero R
			return zero, err
		}
	}
	return result, nil
}

// quiet silences logging and records leaks instead of panicking.
func quiet(leaks *[]*sesstype.LeakError) []sesstype.Option {
	return []sesstype.Option{
		sesstype.WithLogHandler(slog.NewTextHandler(io.Discard, nil)),
		sesstype.WithLeakHandler(func(err *sesstype.LeakError) {
			if leaks != nil {
				*leaks = append(*leaks, err)
			}
		}),
	}
}

// mustPair is NewPair with a silent logger.
func mustPair(t testing.TB, p *proto.Proto) (*sesstype.Chan, *sesstype.Chan) {
	t.Helper()
	a, b, err := sesstype.NewPair(p, quiet(nil)...)
	if err != nil {
		t.Fatalf("NewPair(%s): %v", p, err)
	}
	return a, b
}

// expectViolation runs f and fails unless it panics with a
// *sesstype.ViolationError for op.
func expectViolation(t *testing.T, op string, f func()) *sesstype.ViolationError {
	t.Helper()
	var got *sesstype.ViolationError
	func() {
		defer func() {
			r := recover()
			v, ok := r.(*sesstype.ViolationError)
			if !ok {
				t.Fatalf("expected *ViolationError panic, got %v", r)
			}
			got = v
		}()
		f()
	}()
	if got.Op != op {
		t.Fatalf("violation op got %q, want %q", got.Op, op)
	}
	return got
}

// Protocols shared across tests.
var (
	// !int.?string.end
	pingProto = proto.Send[int](proto.Recv[string](proto.End()))
	// !int.!int.?int.end
	sumProto = proto.Send[int](proto.Send[int](proto.Recv[int](proto.End())))
	// +{!int.end, !string.end}
	pickProto = proto.Choose(proto.Send[int](proto.End()), proto.Send[string](proto.End()))
	// rec.+{!int.$0, end}
	streamProto = proto.Rec(proto.Choose(proto.Send[int](proto.Zero()), proto.End()))
)
