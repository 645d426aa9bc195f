// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"fmt"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/sesstype/proto"
)

// Select blocks until one of chans can receive without waiting and returns
// its index. Every handle must be at a recv or an offer fragment; none is
// consumed. A handle whose peer hung up counts as ready, so that its
// receive reports the failure.
//
// Select needs carriers implementing Readier and returns ErrNotSelectable
// otherwise.
func Select(chans []*Chan) (int, error) {
	if len(chans) == 0 {
		panic(&ViolationError{Op: "Select", Reason: "no channels to select from"})
	}
	ready := make([]func() bool, len(chans))
	for i, c := range chans {
		ctx := c.owner("Select")
		r, ok := ctx.carrier.(Readier)
		if !ok {
			return -1, fmt.Errorf("sesstype: select on %s carrier: %w", ctx.kind, ErrNotSelectable)
		}
		switch k := ctx.at().Kind(); k {
		case proto.KindRecv:
			ready[i] = r.ValueReady
		case proto.KindOffer:
			ready[i] = r.ChoiceReady
		default:
			panic(ctx.violation("Select", "protocol requires "+k.String()+", not recv or offer"))
		}
	}
	var bo iox.Backoff
	for start := 0; ; start = (start + 1) % len(ready) {
		for n := range ready {
			i := (start + n) % len(ready)
			if ready[i]() {
				return i, nil
			}
		}
		bo.Wait()
	}
}

// SelectRemove is Select that also splits the picked handle off: it
// returns the ready handle and a new slice holding the others in order.
func SelectRemove(chans []*Chan) (*Chan, []*Chan, error) {
	i, err := Select(chans)
	if err != nil {
		return nil, chans, err
	}
	rest := make([]*Chan, 0, len(chans)-1)
	rest = append(rest, chans[:i]...)
	rest = append(rest, chans[i+1:]...)
	return chans[i], rest, nil
}
