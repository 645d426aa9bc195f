// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"reflect"
	"strconv"

	"code.hybscloud.com/kont"

	"code.hybscloud.com/sesstype/proto"
)

// sessionDispatcher is the structural interface for session operations.
// DispatchSession is non-blocking: it returns iox.ErrWouldBlock at the
// I/O boundary when the carrier cannot make progress, and leaves the
// protocol position untouched in that case.
type sessionDispatcher interface {
	DispatchSession(ctx *sessionContext) (kont.Resumed, error)
}

// unit is the pre-boxed resume value of operations returning nothing.
var unit kont.Resumed = struct{}{}

// SendOp is the effect operation for sending a value of type T.
// Perform(SendOp[T]{Value: v}) sends v at a !T fragment.
type SendOp[T any] struct {
	kont.Phantom[struct{}]
	Value T
}

// DispatchSession handles SendOp on the session carrier.
func (s SendOp[T]) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	if err := ctx.trySend("SendOp", reflect.TypeFor[T](), s.Value); err != nil {
		return nil, err
	}
	return unit, nil
}

// RecvOp is the effect operation for receiving a value of type T.
// Perform(RecvOp[T]{}) receives at a ?T fragment.
type RecvOp[T any] struct {
	kont.Phantom[T]
}

// DispatchSession handles RecvOp on the session carrier.
func (RecvOp[T]) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	v, err := ctx.tryRecv("RecvOp", reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if v == nil {
		var zero T
		return zero, nil
	}
	return v, nil
}

// CloseOp is the effect operation for closing the session at end.
type CloseOp struct {
	kont.Phantom[struct{}]
}

// DispatchSession handles CloseOp. Never blocks.
func (CloseOp) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	if err := ctx.close("CloseOp"); err != nil {
		return nil, err
	}
	return unit, nil
}

// SelectOp is the effect operation for picking branch Index of a choice.
type SelectOp struct {
	kont.Phantom[struct{}]
	Index int
}

// DispatchSession handles SelectOp.
// Non-blocking: returns iox.ErrWouldBlock if the choice queue is full.
func (s SelectOp) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	if err := ctx.tryChoose("SelectOp", s.Index); err != nil {
		return nil, err
	}
	return unit, nil
}

// OfferOp is the effect operation for receiving the peer's choice. It
// resumes with the picked branch index. A non-zero Arity is checked
// against the offer.
type OfferOp struct {
	kont.Phantom[int]
	Arity int
}

// DispatchSession handles OfferOp.
// Non-blocking: returns iox.ErrWouldBlock if no choice arrived yet.
func (o OfferOp) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	if p := ctx.at(); o.Arity != 0 && p.Kind() == proto.KindOffer && p.Arity() != o.Arity {
		panic(ctx.violation("OfferOp", strconv.Itoa(o.Arity)+" handlers for "+strconv.Itoa(p.Arity())+" branches"))
	}
	i, err := ctx.tryBranch("OfferOp")
	if err != nil {
		return nil, err
	}
	return i, nil
}

// EnterOp is the effect operation for stepping into a rec body.
type EnterOp struct {
	kont.Phantom[struct{}]
}

// DispatchSession handles EnterOp. Never blocks.
func (EnterOp) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	if err := ctx.usable("EnterOp"); err != nil {
		return nil, err
	}
	ctx.enter("EnterOp")
	return unit, nil
}

// RecurseOp is the effect operation for jumping back to the rec named by
// the variable $Depth.
type RecurseOp struct {
	kont.Phantom[struct{}]
	Depth int
}

// DispatchSession handles RecurseOp. Never blocks.
func (r RecurseOp) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	if err := ctx.usable("RecurseOp"); err != nil {
		return nil, err
	}
	ctx.recurse("RecurseOp", r.Depth)
	return unit, nil
}
