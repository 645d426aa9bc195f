// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stream carries sessions over byte streams: TCP connections,
// pipes, or any io.ReadWriteCloser.
//
// Streams have no message boundaries, so every frame is length-prefixed
// (see package wire).
package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"code.hybscloud.com/sesstype/transport"
	"code.hybscloud.com/sesstype/transport/wire"
)

// Conn is a transport.FrameConn over a byte stream.
type Conn struct {
	rwc     io.ReadWriteCloser
	br      *bufio.Reader
	writeMu sync.Mutex // one writer at a time
	buf     []byte
}

var _ transport.FrameConn = (*Conn)(nil)

func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{rwc: rwc, br: bufio.NewReader(rwc)}
}

func (c *Conn) ReadFrame() (wire.Frame, error) {
	return wire.ReadFrame(c.br)
}

// WriteFrame writes f with a single Write on the stream.
func (c *Conn) WriteFrame(f wire.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	var err error
	c.buf, err = wire.AppendFrame(c.buf[:0], f)
	if err != nil {
		return err
	}
	_, err = c.rwc.Write(c.buf)
	return err
}

func (c *Conn) Close() error {
	return c.rwc.Close()
}

// New wraps an established stream in a carrier.
func New(rwc io.ReadWriteCloser, opts ...transport.Option) *transport.Carrier {
	kind := "stream"
	if _, ok := rwc.(net.Conn); ok {
		kind = "tcp"
	}
	return transport.NewCarrier(kind, NewConn(rwc), opts...)
}

// Pipe returns two carriers connected by an in-memory full-duplex pipe.
func Pipe(opts ...transport.Option) (*transport.Carrier, *transport.Carrier) {
	a, b := net.Pipe()
	return transport.NewCarrier("pipe", NewConn(a), opts...), transport.NewCarrier("pipe", NewConn(b), opts...)
}

// Dial connects to addr on the named network.
func Dial(ctx context.Context, network, addr string, opts ...transport.Option) (*transport.Carrier, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("stream: dial %s: %w", addr, err)
	}
	return New(conn, opts...), nil
}

// Listener accepts stream carriers.
type Listener struct {
	ln   net.Listener
	opts []transport.Option
}

// Listen announces on the local network address.
func Listen(network, addr string, opts ...transport.Option) (*Listener, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("stream: listen %s: %w", addr, err)
	}
	return &Listener{ln: ln, opts: opts}, nil
}

// Accept waits for the next connection and wraps it in a carrier.
func (l *Listener) Accept() (*transport.Carrier, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return New(conn, l.opts...), nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error { return l.ln.Close() }
