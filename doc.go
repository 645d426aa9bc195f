// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sesstype provides session-typed channels: two endpoints that
// follow dual protocols, checked at every operation.
//
// A protocol is a value built with package [code.hybscloud.com/sesstype/proto]:
// send, receive, n-ary choice and offer, recursion and end. [NewPair]
// validates it and returns a [*Chan] at the protocol and one at its dual.
// Each operation consumes its handle and returns a new one at the
// successor fragment, so the position in the protocol moves with the
// value that is passed along.
//
// # Checks
//
//   - Construction: malformed protocols (unbound variables, empty choices)
//     are rejected before any conversation starts.
//   - Operations: an operation that the current fragment does not allow,
//     a payload of the wrong type, an out-of-range branch and reuse of a
//     consumed handle panic with a [*ViolationError].
//   - Leaks: a handle dropped before its session was closed at end is
//     reported through the leak handler; by default it panics.
//   - Remote peers: [Attach] exchanges rendered protocols and rejects a peer
//     that is not dual with a [*DualityError].
//
// Transport failures are ordinary errors matching [ErrDisconnected].
//
// # Transport
//
//   - In-process: lock-free bounded SPSC queues via [code.hybscloud.com/lfq].
//   - Custom: any [Carrier]. Its methods are non-blocking and return
//     [code.hybscloud.com/iox.ErrWouldBlock] on backpressure; blocking is
//     layered on top with adaptive backoff. Stream, WebSocket and QUIC
//     carriers live under transport/.
//
// # Effect programs
//
// The same conversation can be written as an effect program on
// [code.hybscloud.com/kont] and run against a checked endpoint:
//
//   - Operations: [SendOp], [RecvOp], [CloseOp], [SelectOp], [OfferOp], [EnterOp], [RecurseOp].
//   - Cont-world: [SendThen], [RecvBind], [CloseDone], [SelectThen], [OfferBranch], [EnterThen], [RecurseThen].
//   - Expr-world: [ExprSendThen], [ExprRecvBind], etc. Bridge via [Reify] and [Reflect].
//   - Recursive: [RecLoop] and [ExprRecLoop] over rec fragments.
//   - Blocking: [Exec], [Run] (and Error/Expr variants).
//   - Stepping: [Step] and [Advance] on an [Endpoint], for proactor loops.
//
// # Example
//
//	p := proto.Send[int](proto.Recv[string](proto.End()))
//	err := sesstype.Connect(p,
//		func(c *sesstype.Chan) error {
//			c, err := sesstype.Send(c, 42)
//			if err != nil {
//				return err
//			}
//			c, s, err := sesstype.Recv[string](c)
//			if err != nil {
//				return err
//			}
//			fmt.Println(s)
//			return c.Close()
//		},
//		func(c *sesstype.Chan) error {
//			c, n, err := sesstype.Recv[int](c)
//			if err != nil {
//				return err
//			}
//			if c, err = sesstype.Send(c, strconv.Itoa(n)); err != nil {
//				return err
//			}
//			return c.Close()
//		},
//	)
package sesstype
