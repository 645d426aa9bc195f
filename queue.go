// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"reflect"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// defaultCapacity is the bounded capacity for in-process queues.
// 4 balances amortizing producer-side cached-index refresh cost while
// keeping ring buffers within a single cache line.
const defaultCapacity = 4

// queueCarrier is one end of the in-process transport.
// Each direction is a single-producer single-consumer bounded queue.
type queueCarrier struct {
	sendQ   *lfq.SPSC[any]
	recvQ   *lfq.SPSC[any]
	signalQ *lfq.SPSC[Marker]
	awaitQ  *lfq.SPSC[Marker]
	hungUp  *atomix.Uint32 // set by this end's Close
	peerUp  *atomix.Uint32 // set by the peer's Close

	sendSlot any
	markSlot Marker

	// one-element lookahead filled by ValueReady/ChoiceReady
	peekValue any
	hasValue  bool
	peekMark  Marker
	hasMark   bool
}

// queuePair holds both carriers, queues, and hang-up flags in a single
// allocation. SPSC queues are embedded as values; only the ring buffers
// are separate heap objects.
type queuePair struct {
	a        queueCarrier
	b        queueCarrier
	hungA    atomix.Uint32
	hungB    atomix.Uint32
	dataAB   lfq.SPSC[any]
	dataBA   lfq.SPSC[any]
	choiceAB lfq.SPSC[Marker]
	choiceBA lfq.SPSC[Marker]
}

// NewQueueCarriers returns a connected pair of in-process carriers backed
// by four bounded lock-free SPSC queues: data and choice, one per
// direction. capacity is rounded up to a power of two; values below 1
// select the default.
func NewQueueCarriers(capacity int) (Carrier, Carrier) {
	a, b := newQueuePair(capacity)
	return a, b
}

func newQueuePair(capacity int) (*queueCarrier, *queueCarrier) {
	capacity = roundCapacity(capacity)
	pair := &queuePair{}
	pair.dataAB.Init(capacity)
	pair.dataBA.Init(capacity)
	pair.choiceAB.Init(capacity)
	pair.choiceBA.Init(capacity)

	pair.a = queueCarrier{
		sendQ:   &pair.dataAB,
		recvQ:   &pair.dataBA,
		signalQ: &pair.choiceAB,
		awaitQ:  &pair.choiceBA,
		hungUp:  &pair.hungA,
		peerUp:  &pair.hungB,
	}
	pair.b = queueCarrier{
		sendQ:   &pair.dataBA,
		recvQ:   &pair.dataAB,
		signalQ: &pair.choiceBA,
		awaitQ:  &pair.choiceAB,
		hungUp:  &pair.hungB,
		peerUp:  &pair.hungA,
	}
	return &pair.a, &pair.b
}

func roundCapacity(n int) int {
	if n < 1 {
		return defaultCapacity
	}
	c := 1
	for c < n {
		c <<= 1
	}
	return c
}

func (q *queueCarrier) CarrierKind() string { return "queue" }

// check reports local and remote hang-ups for the send side.
func (q *queueCarrier) check() error {
	if q.hungUp.Load() != 0 {
		return ErrClosed
	}
	if q.peerUp.Load() != 0 {
		return ErrDisconnected
	}
	return nil
}

// SendValue enqueues v. Returns iox.ErrWouldBlock when the queue is full.
func (q *queueCarrier) SendValue(v any) error {
	if err := q.check(); err != nil {
		return err
	}
	q.sendSlot = v
	err := q.sendQ.Enqueue(&q.sendSlot)
	q.sendSlot = nil
	return err
}

// RecvValue dequeues the next value. Returns iox.ErrWouldBlock when empty,
// ErrDisconnected when empty and the peer has hung up.
func (q *queueCarrier) RecvValue(reflect.Type) (any, error) {
	if q.hasValue {
		v := q.peekValue
		q.peekValue, q.hasValue = nil, false
		return v, nil
	}
	if q.hungUp.Load() != 0 {
		return nil, ErrClosed
	}
	v, err := q.recvQ.Dequeue()
	if err == nil {
		return v, nil
	}
	if !iox.IsWouldBlock(err) || q.peerUp.Load() == 0 {
		return nil, err
	}
	// The peer enqueues before it hangs up: one more attempt drains a
	// value published just before the flag.
	if v, err = q.recvQ.Dequeue(); err == nil {
		return v, nil
	}
	return nil, ErrDisconnected
}

// SendChoice enqueues the branch marker.
func (q *queueCarrier) SendChoice(m Marker) error {
	if err := q.check(); err != nil {
		return err
	}
	q.markSlot = m
	return q.signalQ.Enqueue(&q.markSlot)
}

// RecvChoice dequeues the next branch marker.
func (q *queueCarrier) RecvChoice() (Marker, error) {
	if q.hasMark {
		m := q.peekMark
		q.hasMark = false
		return m, nil
	}
	if q.hungUp.Load() != 0 {
		return 0, ErrClosed
	}
	m, err := q.awaitQ.Dequeue()
	if err == nil {
		return m, nil
	}
	if !iox.IsWouldBlock(err) || q.peerUp.Load() == 0 {
		return 0, err
	}
	if m, err = q.awaitQ.Dequeue(); err == nil {
		return m, nil
	}
	return 0, ErrDisconnected
}

// Close sets the hang-up flag. Never blocks; closing twice is a no-op.
func (q *queueCarrier) Close() error {
	if q.hungUp.Load() == 0 {
		q.hungUp.Add(1)
	}
	return nil
}

// ValueReady implements Readier.
func (q *queueCarrier) ValueReady() bool {
	if q.hasValue {
		return true
	}
	v, err := q.recvQ.Dequeue()
	if err == nil {
		q.peekValue, q.hasValue = v, true
		return true
	}
	return q.peerUp.Load() != 0
}

// ChoiceReady implements Readier.
func (q *queueCarrier) ChoiceReady() bool {
	if q.hasMark {
		return true
	}
	m, err := q.awaitQ.Dequeue()
	if err == nil {
		q.peekMark, q.hasMark = m, true
		return true
	}
	return q.peerUp.Load() != 0
}
