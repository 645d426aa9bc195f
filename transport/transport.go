// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transport adapts frame-oriented connections into
// sesstype.Carrier implementations. Subpackages provide the connections:
// stream (TCP and any io.ReadWriteCloser), websocket and quic.
package transport

import (
	"errors"
	"log/slog"

	"code.hybscloud.com/sesstype/transport/wire"
)

// ErrNotSerializable is returned when a payload cannot leave the process,
// such as a delegated *sesstype.Chan.
var ErrNotSerializable = errors.New("transport: payload cannot be serialized")

// FrameConn is a reliable, ordered, bidirectional frame connection.
// ReadFrame blocks and is only called from one goroutine; WriteFrame may be
// called concurrently with ReadFrame. Close unblocks a pending ReadFrame.
type FrameConn interface {
	ReadFrame() (wire.Frame, error)
	WriteFrame(f wire.Frame) error
	Close() error
}

type config struct {
	codec      wire.Codec
	buffer     int
	logHandler slog.Handler
}

// Option configures a Carrier.
type Option func(*config)

// WithCodec selects the payload codec. Both ends must agree.
// Defaults to wire.JSON.
func WithCodec(c wire.Codec) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.codec = c
		}
	}
}

// WithBuffer sets how many received frames are buffered ahead of the
// session. Defaults to 64.
func WithBuffer(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.buffer = n
		}
	}
}

// WithLogHandler specifies which `slog.Handler` to use.
func WithLogHandler(h slog.Handler) Option {
	return func(cfg *config) {
		cfg.logHandler = h
	}
}

func newConfig(opts []Option) config {
	cfg := config{codec: wire.JSON, buffer: 64}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
