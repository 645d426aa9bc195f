// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package proto

// Env is the recursion environment: the bodies of the Rec fragments
// currently in scope, innermost last.
//
// Env is a value type with copy-on-write semantics; Push and Restart
// never mutate the receiver's backing array in a way visible to other
// copies.
type Env struct {
	bodies []*Proto
}

// Len returns the number of bodies in scope.
func (e Env) Len() int { return len(e.bodies) }

// Top returns the innermost body, or nil when the environment is empty.
func (e Env) Top() *Proto {
	if len(e.bodies) == 0 {
		return nil
	}
	return e.bodies[len(e.bodies)-1]
}

// Push returns e with body entered as the new innermost scope.
func (e Env) Push(body *Proto) Env {
	n := len(e.bodies)
	return Env{bodies: append(e.bodies[:n:n], body)}
}

// Restart resolves Var(depth): it drops depth scopes and returns the
// environment together with the body to restart. ok is false when fewer
// than depth+1 scopes are in scope.
func (e Env) Restart(depth int) (next Env, body *Proto, ok bool) {
	n := len(e.bodies)
	if depth < 0 || depth >= n {
		return e, nil, false
	}
	kept := e.bodies[: n-depth : n-depth]
	return Env{bodies: kept}, kept[len(kept)-1], true
}

// Step applies one transition of the grammar to the pair (p, e) without
// any communication, resolving Rec and Var. It is the reference model the
// channel state machine follows: Rec pushes its body, Var restarts.
// Other fragments are returned unchanged.
func Step(p *Proto, e Env) (*Proto, Env, bool) {
	switch p.kind {
	case KindRec:
		return p.next, e.Push(p.next), true
	case KindVar:
		next, body, ok := e.Restart(p.depth)
		if !ok {
			return p, e, false
		}
		return body, next, true
	}
	return p, e, true
}
