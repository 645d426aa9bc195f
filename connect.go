// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"errors"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/sesstype/proto"
)

// Connect creates a pair at p and runs the two participants to completion:
// b on a new goroutine, a on the calling one.
//
// A participant that returns an error or panics has its session hung up,
// so the other one observes ErrDisconnected instead of waiting forever.
// Panics are recovered into *PanicError. A participant that returns nil
// without closing or delegating its session has it hung up as well, and
// reports a *LeakError. Connect returns the participants' errors joined
// with errors.Join, or nil when both succeeded.
func Connect(p *proto.Proto, a, b func(*Chan) error, opts ...Option) error {
	ca, cb, err := newPair(p, opts)
	if err != nil {
		return err
	}
	var g errgroup.Group
	g.Go(func() error {
		return participate("b", cb, b)
	})
	errA := participate("a", ca, a)
	errB := g.Wait()
	return errors.Join(errA, errB)
}

func participate(name string, ctx *sessionContext, fn func(*Chan) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Participant: name, Value: r, Stack: debug.Stack()}
		}
		if err != nil {
			ctx.abort()
			ctx.count(MetricParticipantErrorCount)
			ctx.cfg.logger.Error("participant failed",
				LabelParticipant.L(name), LabelSerial.L(ctx.serial), LabelError.L(err))
			return
		}
		if ctx.leftOpen() {
			err = ctx.abandon()
		}
	}()
	return fn(ctx.handle())
}
