// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package proto is the protocol grammar of session-typed channels.
//
// A protocol is a tree of immutable [Proto] fragments built from
// [End], [Send], [Recv], [Choose], [Offer], [Rec] and [Var]. [Dual]
// computes the protocol of the other participant, [Validate] rejects
// malformed protocols (unresolved recursion variables, empty choices)
// before any conversation starts, and [Env] is the recursion environment
// a channel carries while it walks a protocol.
//
// # Example
//
//	// Client: send two ints, receive their sum, done.
//	add := proto.Send[int](proto.Send[int](proto.Recv[int](proto.End())))
//	fmt.Println(add)             // !int.!int.?int.end
//	fmt.Println(proto.Dual(add)) // ?int.?int.!int.end
package proto
