// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/sesstype"
	"code.hybscloud.com/sesstype/proto"
	"code.hybscloud.com/sesstype/transport"
	"code.hybscloud.com/sesstype/transport/stream"
)

// participant runs one side of a session.
type participant func(*sesstype.Chan) error

// sessionOptions are the sesstype options every run uses. Leaks are logged
// instead of panicking on the cleanup goroutine.
func (o *RootOptions) sessionOptions() []sesstype.Option {
	logger := slog.New(o.handler)
	return []sesstype.Option{
		sesstype.WithCapacity(o.Config.Capacity),
		sesstype.WithLogHandler(o.handler),
		sesstype.WithLeakHandler(func(err *sesstype.LeakError) {
			logger.Error("session leaked", sesstype.LabelError.L(err))
		}),
	}
}

// connect runs server at p and client at its dual over the configured
// carrier. With --listen only server runs, with --dial only client.
func (o *RootOptions) connect(ctx context.Context, p *proto.Proto, server, client participant) error {
	sopts := o.sessionOptions()
	if o.Config.Carrier == CarrierQueue {
		return sesstype.Connect(p, server, client, sopts...)
	}
	topts := []transport.Option{transport.WithLogHandler(o.handler)}
	if o.Config.Dial != "" {
		carrier, err := stream.Dial(ctx, "tcp", o.Config.Dial, topts...)
		if err != nil {
			return err
		}
		return attach(ctx, proto.Dual(p), carrier, client, sopts)
	}

	addr := o.Config.Listen
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := stream.Listen("tcp", addr, topts...)
	if err != nil {
		return err
	}
	defer ln.Close()
	slog.New(o.handler).Info("listening", "addr", ln.Addr().String())

	var g errgroup.Group
	if o.Config.Listen == "" {
		g.Go(func() error {
			carrier, err := stream.Dial(ctx, "tcp", ln.Addr().String(), topts...)
			if err != nil {
				return err
			}
			return attach(ctx, proto.Dual(p), carrier, client, sopts)
		})
	}
	carrier, err := ln.Accept()
	if err != nil {
		return errors.Join(err, g.Wait())
	}
	err = attach(ctx, p, carrier, server, sopts)
	return errors.Join(err, g.Wait())
}

// attach binds one side to carrier and runs fn on it. When fn fails the
// carrier is closed so that the peer sees a hang-up.
func attach(ctx context.Context, p *proto.Proto, carrier sesstype.Carrier, fn participant, opts []sesstype.Option) error {
	c, err := sesstype.Attach(ctx, p, carrier, opts...)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		_ = carrier.Close()
		return err
	}
	return nil
}
