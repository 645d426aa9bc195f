// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import "runtime"

// leakProbe identifies the handle generation a cleanup was registered for.
// It must not reference the handle itself.
type leakProbe struct {
	ctx *sessionContext
	gen uint32
}

// track arranges for the session to be reported when h becomes unreachable
// while it still owns an open session.
func (ctx *sessionContext) track(h *Chan) {
	runtime.AddCleanup(h, reportAbandoned, leakProbe{ctx: ctx, gen: h.gen})
}

func (ctx *sessionContext) trackEndpoint(ep *Endpoint) {
	runtime.AddCleanup(ep, reportAbandoned, leakProbe{ctx: ctx, gen: ctx.gen.Load()})
}

func reportAbandoned(p leakProbe) {
	if p.ctx.state.Load() != stateOpen || p.ctx.gen.Load() != p.gen {
		return
	}
	p.ctx.leak()
}

// leak hangs up an abandoned session and hands a *LeakError to the
// configured leak handler.
func (ctx *sessionContext) leak() {
	ctx.cfg.onLeak(ctx.abandon())
}

// abandon hangs up a session left open by its owner and returns the
// *LeakError describing it.
func (ctx *sessionContext) abandon() *LeakError {
	err := &LeakError{Proto: ctx.at().String(), Serial: ctx.serial}
	ctx.abort()
	ctx.count(MetricLeakCount)
	ctx.cfg.logger.Error("session abandoned without close",
		LabelSerial.L(ctx.serial), LabelProtocol.L(err.Proto), LabelCarrier.L(ctx.kind))
	return err
}

// leftOpen reports whether the session is still open in its owner's hands.
// A delegated session belongs to whoever received it.
func (ctx *sessionContext) leftOpen() bool {
	return ctx.state.Load() == stateOpen && !ctx.delegated.Load()
}
