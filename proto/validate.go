// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package proto

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed is matched by every error returned from Validate.
var ErrMalformed = errors.New("proto: malformed protocol")

// Error describes why a protocol was rejected and where.
// Path is the route from the root, e.g. "rec.offer[1].recv".
type Error struct {
	Path   string
	Reason string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "proto: " + e.Reason
	}
	return fmt.Sprintf("proto: %s: %s", e.Path, e.Reason)
}

func (e *Error) Unwrap() error { return ErrMalformed }

// Validate checks that p is closed and well formed: no nil fragments,
// no empty choice lists, payload types present, and every Var(d)
// enclosed by at least d+1 Rec fragments.
func Validate(p *Proto) error {
	return validate(p, 0, "")
}

func validate(p *Proto, recs int, path string) error {
	if p == nil {
		return &Error{Path: path, Reason: "nil fragment"}
	}
	here := join(path, p.kind.String())
	switch p.kind {
	case KindEnd:
		return nil
	case KindSend, KindRecv:
		if p.payload == nil {
			return &Error{Path: here, Reason: "missing payload type"}
		}
		return validate(p.next, recs, here)
	case KindChoose, KindOffer:
		if len(p.branches) == 0 {
			return &Error{Path: here, Reason: "empty branch list"}
		}
		for i, b := range p.branches {
			if err := validate(b, recs, join(path, p.kind.String()+"["+strconv.Itoa(i)+"]")); err != nil {
				return err
			}
		}
		return nil
	case KindRec:
		return validate(p.next, recs+1, here)
	case KindVar:
		if p.depth < 0 {
			return &Error{Path: here, Reason: fmt.Sprintf("negative recursion depth %d", p.depth)}
		}
		if p.depth >= recs {
			return &Error{Path: here, Reason: fmt.Sprintf("unresolved recursion variable $%d under %d rec", p.depth, recs)}
		}
		return nil
	}
	return &Error{Path: here, Reason: "unknown fragment kind"}
}

func join(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}

// MustValidate panics with the validation error if p is malformed.
func MustValidate(p *Proto) *Proto {
	if err := Validate(p); err != nil {
		panic(err)
	}
	return p
}
