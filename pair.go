// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"context"
	"fmt"

	"code.hybscloud.com/sesstype/proto"
)

// NewPair validates p and returns two connected handles over the in-process
// carrier: the first at p, the second at Dual(p). Both share one serial.
func NewPair(p *proto.Proto, opts ...Option) (*Chan, *Chan, error) {
	a, b, err := newPair(p, opts)
	if err != nil {
		return nil, nil, err
	}
	return a.handle(), b.handle(), nil
}

// MustPair is NewPair for protocols known to be well-formed. It panics on
// error.
func MustPair(p *proto.Proto, opts ...Option) (*Chan, *Chan) {
	a, b, err := NewPair(p, opts...)
	if err != nil {
		panic(err)
	}
	return a, b
}

func newPair(p *proto.Proto, opts []Option) (*sessionContext, *sessionContext, error) {
	if err := proto.Validate(p); err != nil {
		return nil, nil, err
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	qa, qb := newQueuePair(cfg.capacity)
	s := nextSerial()
	return newSession(cfg, qa, p, s), newSession(cfg, qb, proto.Dual(p), s), nil
}

// Attach binds one endpoint at p to an externally created carrier, such as
// one end of a network connection. The peer attaches its own endpoint at
// Dual(p) to the other end.
//
// When the carrier implements Handshaker the two ends exchange their
// rendered protocols first; a peer whose protocol is not the dual of p is
// rejected with a *DualityError and the carrier is closed. ctx bounds the
// handshake only.
func Attach(ctx context.Context, p *proto.Proto, c Carrier, opts ...Option) (*Chan, error) {
	if err := proto.Validate(p); err != nil {
		return nil, err
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if hs, ok := c.(Handshaker); ok {
		remote, err := hs.Handshake(ctx, Hello{Protocol: p.String()})
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("sesstype: handshake: %w", err)
		}
		if want := proto.Dual(p).String(); remote.Protocol != want {
			_ = c.Close()
			cfg.msink.IncrCounterWithLabels(MetricHandshakeRejectCount, 1.0, cfg.labels(carrierKind(c)))
			cfg.logger.Warn("peer protocol is not dual",
				LabelSession.L(remote.Session), LabelProtocol.L(p.String()), LabelRemote.L(remote.Protocol))
			return nil, &DualityError{Local: p.String(), Remote: remote.Protocol, Want: want}
		}
	}
	return newSession(cfg, c, p, nextSerial()).handle(), nil
}
