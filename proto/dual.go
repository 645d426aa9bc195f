// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package proto

// Dual returns the protocol the other participant must follow.
//
//	dual(end)      = end
//	dual(!T.P)     = ?T.dual(P)
//	dual(?T.P)     = !T.dual(P)
//	dual(+{Pi})    = &{dual(Pi)}
//	dual(&{Pi})    = +{dual(Pi)}
//	dual(rec.P)    = rec.dual(P)
//	dual($N)       = $N
//
// Dual is total and pure; Dual(Dual(p)) is Equal to p. A nil fragment
// maps to nil.
func Dual(p *Proto) *Proto {
	if p == nil {
		return nil
	}
	switch p.kind {
	case KindEnd:
		return end
	case KindSend:
		return &Proto{kind: KindRecv, payload: p.payload, next: Dual(p.next)}
	case KindRecv:
		return &Proto{kind: KindSend, payload: p.payload, next: Dual(p.next)}
	case KindChoose:
		return &Proto{kind: KindOffer, branches: dualAll(p.branches)}
	case KindOffer:
		return &Proto{kind: KindChoose, branches: dualAll(p.branches)}
	case KindRec:
		return &Proto{kind: KindRec, next: Dual(p.next)}
	case KindVar:
		return p
	}
	return p
}

func dualAll(ps []*Proto) []*Proto {
	if ps == nil {
		return nil
	}
	out := make([]*Proto, len(ps))
	for i, b := range ps {
		out[i] = Dual(b)
	}
	return out
}

// IsDual reports whether b is the dual of a.
func IsDual(a, b *Proto) bool {
	return Equal(Dual(a), b)
}
