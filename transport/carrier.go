// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/iox"
	"github.com/google/uuid"

	"code.hybscloud.com/sesstype"
	"code.hybscloud.com/sesstype/transport/wire"
)

// Carrier is a sesstype.Carrier over a FrameConn. A read loop decodes
// frames into a buffered channel; receives poll it without blocking.
// Once the connection fails or the peer hangs up, receives drain what was
// buffered and then report sesstype.ErrDisconnected.
type Carrier struct {
	conn   FrameConn
	codec  wire.Codec
	kind   string
	logger *slog.Logger

	incoming chan wire.Frame
	done     chan struct{} // closed by Close
	readErr  error         // set before incoming is closed

	closed    atomic.Bool
	readDone  atomic.Bool
	closeOnce sync.Once

	peek    wire.Frame
	hasPeek bool
	eof     bool
}

var (
	_ sesstype.Carrier    = (*Carrier)(nil)
	_ sesstype.Readier    = (*Carrier)(nil)
	_ sesstype.Handshaker = (*Carrier)(nil)
)

// NewCarrier starts reading conn. kind labels the carrier in logs and
// metrics.
func NewCarrier(kind string, conn FrameConn, opts ...Option) *Carrier {
	cfg := newConfig(opts)
	c := &Carrier{
		conn:     conn,
		codec:    cfg.codec,
		kind:     kind,
		incoming: make(chan wire.Frame, cfg.buffer),
		done:     make(chan struct{}),
	}
	if cfg.logHandler != nil {
		c.logger = slog.New(cfg.logHandler)
	} else {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slog.String("carrier", kind))
	go c.readLoop()
	return c
}

// CarrierKind labels the carrier in sesstype metrics.
func (c *Carrier) CarrierKind() string { return c.kind }

func (c *Carrier) readLoop() {
	defer close(c.incoming)
	for {
		f, err := c.conn.ReadFrame()
		if err != nil {
			c.readErr = err
			c.readDone.Store(true)
			c.logger.Debug("read loop stopped", slog.Any("error", err))
			return
		}
		select {
		case c.incoming <- f:
		case <-c.done:
			// Closed locally: keep reading until the connection ends so
			// that the peer's hang-up is still observed.
		}
	}
}

func (c *Carrier) disconnected() error {
	return fmt.Errorf("transport: %s: %w: %w", c.kind, sesstype.ErrDisconnected, c.readErr)
}

// poll returns the next frame without blocking.
func (c *Carrier) poll() (wire.Frame, error) {
	if c.closed.Load() {
		return wire.Frame{}, sesstype.ErrClosed
	}
	if c.hasPeek {
		f := c.peek
		c.peek, c.hasPeek = wire.Frame{}, false
		return f, nil
	}
	if c.eof {
		return wire.Frame{}, c.disconnected()
	}
	select {
	case f, ok := <-c.incoming:
		if !ok {
			c.eof = true
			return wire.Frame{}, c.disconnected()
		}
		return f, nil
	default:
		return wire.Frame{}, iox.ErrWouldBlock
	}
}

// ready fills the lookahead and reports whether a receive would progress.
func (c *Carrier) ready() bool {
	if c.hasPeek || c.eof {
		return true
	}
	select {
	case f, ok := <-c.incoming:
		if !ok {
			c.eof = true
			return true
		}
		c.peek, c.hasPeek = f, true
		return true
	default:
		return false
	}
}

func (c *Carrier) write(f wire.Frame) error {
	if c.closed.Load() {
		return sesstype.ErrClosed
	}
	if err := c.conn.WriteFrame(f); err != nil {
		return fmt.Errorf("transport: %s: %w: %w", c.kind, sesstype.ErrDisconnected, err)
	}
	return nil
}

// SendValue encodes v with the codec and writes a value frame.
func (c *Carrier) SendValue(v any) error {
	if _, ok := v.(*sesstype.Chan); ok {
		return fmt.Errorf("%w: channel handles cannot be delegated over %s", ErrNotSerializable, c.kind)
	}
	b, err := c.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotSerializable, err)
	}
	return c.write(wire.Frame{Kind: wire.KindValue, Body: b})
}

// RecvValue decodes the next value frame as t.
func (c *Carrier) RecvValue(t reflect.Type) (any, error) {
	f, err := c.poll()
	if err != nil {
		return nil, err
	}
	if err := f.Expect(wire.KindValue); err != nil {
		return nil, err
	}
	v, err := c.codec.Unmarshal(f.Body, t)
	if err != nil {
		return nil, fmt.Errorf("transport: %s codec: %w", c.codec.Name(), err)
	}
	return v, nil
}

// SendChoice writes a choice frame.
func (c *Carrier) SendChoice(m sesstype.Marker) error {
	return c.write(wire.ChoiceFrame(uint32(m)))
}

// RecvChoice decodes the next choice frame.
func (c *Carrier) RecvChoice() (sesstype.Marker, error) {
	f, err := c.poll()
	if err != nil {
		return 0, err
	}
	m, err := f.Choice()
	if err != nil {
		return 0, err
	}
	return sesstype.Marker(m), nil
}

// ValueReady implements sesstype.Readier.
func (c *Carrier) ValueReady() bool { return c.ready() }

// ChoiceReady implements sesstype.Readier.
func (c *Carrier) ChoiceReady() bool { return c.ready() }

// Handshake sends a hello frame announcing local and waits for the peer's.
// A fresh session identifier is generated when local has none.
func (c *Carrier) Handshake(ctx context.Context, local sesstype.Hello) (sesstype.Hello, error) {
	if local.Session == "" {
		local.Session = uuid.NewString()
	}
	hello, err := wire.HelloFrame(wire.Hello{Session: local.Session, Protocol: local.Protocol})
	if err != nil {
		return sesstype.Hello{}, err
	}
	if err := c.write(hello); err != nil {
		return sesstype.Hello{}, err
	}
	var f wire.Frame
	select {
	case got, ok := <-c.incoming:
		if !ok {
			c.eof = true
			return sesstype.Hello{}, c.disconnected()
		}
		f = got
	case <-ctx.Done():
		return sesstype.Hello{}, ctx.Err()
	}
	remote, err := f.Hello()
	if err != nil {
		return sesstype.Hello{}, err
	}
	c.logger.Debug("handshake completed",
		slog.String("local_session", local.Session), slog.String("remote_session", remote.Session))
	return sesstype.Hello{Session: remote.Session, Protocol: remote.Protocol}, nil
}

// Close hangs up. Closing twice is a no-op, and so is closing after the
// peer already tore the connection down.
func (c *Carrier) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.conn.Close()
		if c.readDone.Load() {
			err = nil
		}
	})
	return err
}
