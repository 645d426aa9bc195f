// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"fmt"
	"reflect"
	"strconv"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/hashicorp/go-metrics"

	"code.hybscloud.com/sesstype/proto"
)

// Session states. A session leaves stateOpen exactly once.
const (
	stateOpen uint32 = iota
	stateClosed
	stateFailed
)

// sessionContext is one endpoint of a conversation: the carrier, the
// fragment the endpoint is at and its environment stack.
//
// The step methods are non-blocking: they return iox.ErrWouldBlock at the
// I/O boundary and leave the protocol position untouched, so that the
// caller may retry. A protocol position only advances after the carrier
// accepted or delivered the message.
type sessionContext struct {
	carrier Carrier
	cur     atomic.Pointer[proto.Proto]
	env     proto.Env
	serial  Serial
	kind    string
	cfg     *config
	labels  []metrics.Label

	// gen is bumped every time the handle owning the session is consumed.
	gen   atomix.Uint32
	state atomix.Uint32
	// delegated is set once a handle on the session was sent to the peer.
	delegated atomix.Bool
}

func newSession(cfg *config, c Carrier, p *proto.Proto, serial Serial) *sessionContext {
	ctx := &sessionContext{
		carrier: c,
		serial:  serial,
		kind:    carrierKind(c),
		cfg:     cfg,
	}
	ctx.cur.Store(p)
	ctx.labels = cfg.labels(ctx.kind)
	ctx.count(MetricSessionOpenCount)
	cfg.logger.Debug("session opened",
		LabelSerial.L(serial), LabelCarrier.L(ctx.kind), LabelProtocol.L(p.String()))
	return ctx
}

func (ctx *sessionContext) at() *proto.Proto { return ctx.cur.Load() }

func (ctx *sessionContext) count(key []string) {
	ctx.cfg.msink.IncrCounterWithLabels(key, 1.0, ctx.labels)
}

// violation builds the defect for op at the current position and hangs up
// the carrier, so that the peer observes a disconnect rather than waiting
// forever on a participant that is about to unwind.
func (ctx *sessionContext) violation(op, reason string) *ViolationError {
	err := &ViolationError{Op: op, Proto: ctx.at().String(), Serial: ctx.serial, Reason: reason}
	if ctx.state.Load() == stateOpen {
		ctx.state.Store(stateFailed)
		_ = ctx.carrier.Close()
	}
	ctx.count(MetricViolationCount)
	ctx.cfg.logger.Error("protocol violation",
		LabelSerial.L(ctx.serial), LabelOp.L(op), LabelProtocol.L(err.Proto), LabelError.L(reason))
	return err
}

// usable reports whether the session can still carry operations.
func (ctx *sessionContext) usable(op string) error {
	switch ctx.state.Load() {
	case stateOpen:
		return nil
	case stateClosed:
		return fmt.Errorf("sesstype: %s on session %d: %w", op, ctx.serial, ErrClosed)
	default:
		return fmt.Errorf("sesstype: %s on session %d: %w", op, ctx.serial, ErrDisconnected)
	}
}

// expect returns the current fragment, panicking unless it has kind k.
func (ctx *sessionContext) expect(op string, k proto.Kind) *proto.Proto {
	p := ctx.at()
	if p.Kind() != k {
		panic(ctx.violation(op, "protocol requires "+p.Kind().String()+", not "+k.String()))
	}
	return p
}

// fail turns a carrier error into the session's terminal transport
// failure. iox.ErrWouldBlock passes through untouched.
func (ctx *sessionContext) fail(op string, err error) error {
	if iox.IsWouldBlock(err) {
		return err
	}
	ctx.state.Store(stateFailed)
	_ = ctx.carrier.Close()
	ctx.count(MetricTransportErrorCount)
	ctx.cfg.logger.Warn("transport failure",
		LabelSerial.L(ctx.serial), LabelOp.L(op), LabelCarrier.L(ctx.kind), LabelError.L(err))
	return fmt.Errorf("sesstype: %s on session %d: %w", op, ctx.serial, err)
}

// sendable returns the current fragment, panicking unless it accepts a
// value of type t.
func (ctx *sessionContext) sendable(op string, t reflect.Type) *proto.Proto {
	p := ctx.expect(op, proto.KindSend)
	if !t.AssignableTo(p.Payload()) {
		panic(ctx.violation(op, "cannot send "+t.String()+" where "+p.Payload().String()+" is expected"))
	}
	return p
}

func (ctx *sessionContext) trySend(op string, t reflect.Type, v any) error {
	if err := ctx.usable(op); err != nil {
		return err
	}
	p := ctx.sendable(op, t)
	if err := ctx.carrier.SendValue(v); err != nil {
		return ctx.fail(op, err)
	}
	ctx.cur.Store(p.Next())
	ctx.count(MetricValueSentCount)
	return nil
}

func (ctx *sessionContext) tryRecv(op string, t reflect.Type) (any, error) {
	if err := ctx.usable(op); err != nil {
		return nil, err
	}
	p := ctx.expect(op, proto.KindRecv)
	if !p.Payload().AssignableTo(t) {
		panic(ctx.violation(op, "cannot receive "+p.Payload().String()+" as "+t.String()))
	}
	v, err := ctx.carrier.RecvValue(p.Payload())
	if err != nil {
		return nil, ctx.fail(op, err)
	}
	if v != nil && !reflect.TypeOf(v).AssignableTo(t) {
		panic(ctx.violation(op, fmt.Sprintf("peer sent %T where %s is expected", v, t)))
	}
	ctx.cur.Store(p.Next())
	ctx.count(MetricValueRecvCount)
	return v, nil
}

func (ctx *sessionContext) tryChoose(op string, i int) error {
	if err := ctx.usable(op); err != nil {
		return err
	}
	p := ctx.expect(op, proto.KindChoose)
	if i < 0 || i >= p.Arity() {
		panic(ctx.violation(op, "branch "+strconv.Itoa(i)+" out of range for arity "+strconv.Itoa(p.Arity())))
	}
	if err := ctx.carrier.SendChoice(Marker(i)); err != nil {
		return ctx.fail(op, err)
	}
	ctx.cur.Store(p.Branch(i))
	ctx.count(MetricChoiceSentCount)
	return nil
}

func (ctx *sessionContext) tryBranch(op string) (int, error) {
	if err := ctx.usable(op); err != nil {
		return -1, err
	}
	p := ctx.expect(op, proto.KindOffer)
	m, err := ctx.carrier.RecvChoice()
	if err != nil {
		return -1, ctx.fail(op, err)
	}
	if uint64(m) >= uint64(p.Arity()) {
		panic(ctx.violation(op, "peer picked branch "+strconv.FormatUint(uint64(m), 10)+" of "+strconv.Itoa(p.Arity())))
	}
	i := int(m)
	ctx.cur.Store(p.Branch(i))
	ctx.count(MetricChoiceRecvCount)
	return i, nil
}

// enter pushes the body of the current rec onto the environment.
func (ctx *sessionContext) enter(op string) {
	p := ctx.expect(op, proto.KindRec)
	ctx.env = ctx.env.Push(p.Body())
	ctx.cur.Store(p.Body())
}

// recurse resolves the current variable, which must have the given depth.
func (ctx *sessionContext) recurse(op string, depth int) {
	p := ctx.expect(op, proto.KindVar)
	if p.Depth() != depth {
		panic(ctx.violation(op, "protocol is at $"+strconv.Itoa(p.Depth())+", not $"+strconv.Itoa(depth)))
	}
	env, body, ok := ctx.env.Restart(depth)
	if !ok {
		panic(ctx.violation(op, "environment holds "+strconv.Itoa(ctx.env.Len())+" scopes"))
	}
	ctx.env = env
	ctx.cur.Store(body)
}

// close ends the session at End and releases the carrier. A carrier error
// is reported, but the session is closed either way.
func (ctx *sessionContext) close(op string) error {
	if err := ctx.usable(op); err != nil {
		return err
	}
	ctx.expect(op, proto.KindEnd)
	ctx.state.Store(stateClosed)
	ctx.count(MetricSessionCloseCount)
	if err := ctx.carrier.Close(); err != nil {
		return fmt.Errorf("sesstype: %s on session %d: %w", op, ctx.serial, err)
	}
	return nil
}

// abort hangs up a session that is still open.
func (ctx *sessionContext) abort() {
	if ctx.state.Load() != stateOpen {
		return
	}
	ctx.state.Store(stateFailed)
	_ = ctx.carrier.Close()
}

// wait retries f past iox.ErrWouldBlock with adaptive backoff.
func wait(f func() error) error {
	var bo iox.Backoff
	for {
		err := f()
		if err == nil || !iox.IsWouldBlock(err) {
			return err
		}
		bo.Wait()
	}
}
