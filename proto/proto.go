// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package proto

import (
	"reflect"
	"strconv"
	"strings"
)

// Kind identifies the variant of a protocol fragment.
type Kind uint8

const (
	KindEnd Kind = iota
	KindSend
	KindRecv
	KindChoose
	KindOffer
	KindRec
	KindVar
)

func (k Kind) String() string {
	switch k {
	case KindEnd:
		return "end"
	case KindSend:
		return "send"
	case KindRecv:
		return "recv"
	case KindChoose:
		return "choose"
	case KindOffer:
		return "offer"
	case KindRec:
		return "rec"
	case KindVar:
		return "var"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Proto is one node of a protocol: the remaining steps of a conversation
// as seen by one participant. Fragments are immutable once built and may
// be shared freely between goroutines and protocols.
type Proto struct {
	kind     Kind
	payload  reflect.Type
	next     *Proto
	branches []*Proto
	depth    int
}

// end is shared: End carries no state.
var end = &Proto{kind: KindEnd}

// End is the terminated conversation. The only legal operation is close.
func End() *Proto { return end }

// Send transmits a value of type T, then continues as next.
func Send[T any](next *Proto) *Proto {
	return SendOf(reflect.TypeFor[T](), next)
}

// Recv receives a value of type T, then continues as next.
func Recv[T any](next *Proto) *Proto {
	return RecvOf(reflect.TypeFor[T](), next)
}

// SendOf is Send with a payload type known only at run time.
func SendOf(t reflect.Type, next *Proto) *Proto {
	return &Proto{kind: KindSend, payload: t, next: next}
}

// RecvOf is Recv with a payload type known only at run time.
func RecvOf(t reflect.Type, next *Proto) *Proto {
	return &Proto{kind: KindRecv, payload: t, next: next}
}

// Choose picks exactly one of branches and signals the pick to the peer.
// Branch order is significant: the index is the wire encoding of the pick.
func Choose(branches ...*Proto) *Proto {
	return &Proto{kind: KindChoose, branches: clone(branches)}
}

// Offer waits for the peer to pick one of branches.
func Offer(branches ...*Proto) *Proto {
	return &Proto{kind: KindOffer, branches: clone(branches)}
}

// Rec marks the start of a recursive region whose body may restart
// itself through Var.
func Rec(body *Proto) *Proto {
	return &Proto{kind: KindRec, next: body}
}

// Var restarts the body of the Rec depth levels up; 0 is the innermost.
func Var(depth int) *Proto {
	return &Proto{kind: KindVar, depth: depth}
}

// Zero is Var(0).
func Zero() *Proto { return Var(0) }

func clone(ps []*Proto) []*Proto {
	if ps == nil {
		return nil
	}
	out := make([]*Proto, len(ps))
	copy(out, ps)
	return out
}

// Kind returns the fragment variant.
func (p *Proto) Kind() Kind { return p.kind }

// Payload returns the value type of a Send or Recv fragment, nil otherwise.
func (p *Proto) Payload() reflect.Type { return p.payload }

// Next returns the continuation of a Send or Recv fragment.
func (p *Proto) Next() *Proto {
	if p.kind == KindSend || p.kind == KindRecv {
		return p.next
	}
	return nil
}

// Body returns the body of a Rec fragment.
func (p *Proto) Body() *Proto {
	if p.kind == KindRec {
		return p.next
	}
	return nil
}

// Branches returns a copy of the continuations of a Choose or Offer fragment.
func (p *Proto) Branches() []*Proto { return clone(p.branches) }

// Branch returns continuation i of a Choose or Offer fragment.
func (p *Proto) Branch(i int) *Proto { return p.branches[i] }

// Arity returns the number of branches of a Choose or Offer fragment.
func (p *Proto) Arity() int { return len(p.branches) }

// Depth returns the recursion depth of a Var fragment.
func (p *Proto) Depth() int { return p.depth }

// String renders p in the usual session-type notation:
//
//	end         termination
//	!T.P  ?T.P  send / receive T then P
//	+{P,Q}      choose
//	&{P,Q}      offer
//	rec.P       recursion entry
//	$N          recursion variable
func (p *Proto) String() string {
	var sb strings.Builder
	p.render(&sb)
	return sb.String()
}

func (p *Proto) render(sb *strings.Builder) {
	if p == nil {
		sb.WriteString("<nil>")
		return
	}
	switch p.kind {
	case KindEnd:
		sb.WriteString("end")
	case KindSend, KindRecv:
		if p.kind == KindSend {
			sb.WriteByte('!')
		} else {
			sb.WriteByte('?')
		}
		if p.payload == nil {
			sb.WriteString("<nil>")
		} else {
			sb.WriteString(p.payload.String())
		}
		sb.WriteByte('.')
		p.next.render(sb)
	case KindChoose, KindOffer:
		if p.kind == KindChoose {
			sb.WriteString("+{")
		} else {
			sb.WriteString("&{")
		}
		for i, b := range p.branches {
			if i > 0 {
				sb.WriteByte(',')
			}
			b.render(sb)
		}
		sb.WriteByte('}')
	case KindRec:
		sb.WriteString("rec.")
		p.next.render(sb)
	case KindVar:
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(p.depth))
	default:
		sb.WriteString(p.kind.String())
	}
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b *Proto) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindEnd:
		return true
	case KindSend, KindRecv:
		return a.payload == b.payload && Equal(a.next, b.next)
	case KindChoose, KindOffer:
		if len(a.branches) != len(b.branches) {
			return false
		}
		for i := range a.branches {
			if !Equal(a.branches[i], b.branches[i]) {
				return false
			}
		}
		return true
	case KindRec:
		return Equal(a.next, b.next)
	case KindVar:
		return a.depth == b.depth
	}
	return false
}
