// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"strconv"

	"code.hybscloud.com/sesstype/proto"
)

// Offer waits for the peer's choice at the current &{...} and runs the
// handler of the picked branch with a handle on it. There must be exactly
// one handler per branch, in branch order.
//
//	n, err := sesstype.Offer(c,
//		func(c *sesstype.Chan) (int, error) { return 0, c.Close() },
//		func(c *sesstype.Chan) (int, error) {
//			c, n, err := sesstype.Recv[int](c)
//			...
//		},
//	)
func Offer[R any](c *Chan, handlers ...func(*Chan) (R, error)) (R, error) {
	var zero R
	ctx := c.owner("Offer")
	if p := ctx.at(); p.Kind() == proto.KindOffer && p.Arity() != len(handlers) {
		panic(ctx.violation("Offer", strconv.Itoa(len(handlers))+" handlers for "+strconv.Itoa(p.Arity())+" branches"))
	}
	i, next, err := c.Branch()
	if err != nil {
		return zero, err
	}
	return handlers[i](next)
}
