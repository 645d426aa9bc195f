// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package quic carries each session on one bidirectional QUIC stream of
// its own connection.
package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"code.hybscloud.com/sesstype/transport"
	"code.hybscloud.com/sesstype/transport/stream"
	"code.hybscloud.com/sesstype/transport/wire"
)

// NextProto is the ALPN protocol negotiated by Dial and Listen.
const NextProto = "sesstype"

// drainTimeout bounds how long Close waits for the peer to finish its
// side of the stream before tearing the connection down.
const drainTimeout = 2 * time.Second

const errCodeSessionClosed = quic.ApplicationErrorCode(0x0)

// Conn is a transport.FrameConn over a QUIC stream.
type Conn struct {
	conn   quic.Connection
	stream quic.Stream
	frames *stream.Conn
	eof    chan struct{}
}

var _ transport.FrameConn = (*Conn)(nil)

func newConn(conn quic.Connection, st quic.Stream) *Conn {
	return &Conn{
		conn:   conn,
		stream: st,
		frames: stream.NewConn(st),
		eof:    make(chan struct{}),
	}
}

func (c *Conn) ReadFrame() (wire.Frame, error) {
	f, err := c.frames.ReadFrame()
	if err != nil {
		select {
		case <-c.eof:
		default:
			close(c.eof)
		}
	}
	return f, err
}

func (c *Conn) WriteFrame(f wire.Frame) error {
	return c.frames.WriteFrame(f)
}

// Close finishes the send side, waits for the peer to finish its own or for
// drainTimeout, then closes the connection. Closing the connection right
// away would discard frames still in flight. Errors are only reported when
// the peer did not finish in time.
func (c *Conn) Close() error {
	err := c.stream.Close()
	select {
	case <-c.eof:
		_ = c.conn.CloseWithError(errCodeSessionClosed, "session closed")
		return nil
	case <-c.conn.Context().Done():
		return nil
	case <-time.After(drainTimeout):
	}
	return errors.Join(err, c.conn.CloseWithError(errCodeSessionClosed, "session closed"))
}

func quicConfig() *quic.Config {
	return &quic.Config{
		Versions:       []quic.Version{quic.Version2, quic.Version1},
		MaxIdleTimeout: time.Minute,
	}
}

func withProto(tlsConf *tls.Config) *tls.Config {
	tlsConf = tlsConf.Clone()
	if len(tlsConf.NextProtos) == 0 {
		tlsConf.NextProtos = []string{NextProto}
	}
	return tlsConf
}

// Dial opens a connection to addr and a stream on it. The stream becomes
// visible to the listener once the first frame is written, which Attach's
// handshake does.
func Dial(ctx context.Context, addr string, tlsConf *tls.Config, opts ...transport.Option) (*transport.Carrier, error) {
	if tlsConf == nil {
		return nil, errors.New("quic: nil tls config")
	}
	conn, err := quic.DialAddr(ctx, addr, withProto(tlsConf), quicConfig())
	if err != nil {
		return nil, fmt.Errorf("quic: dial %s: %w", addr, err)
	}
	st, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(errCodeSessionClosed, "cannot open stream")
		return nil, fmt.Errorf("quic: open stream: %w", err)
	}
	return transport.NewCarrier("quic", newConn(conn, st), opts...), nil
}

// Listener accepts QUIC carriers.
type Listener struct {
	ln   *quic.Listener
	opts []transport.Option
}

// Listen announces on the local UDP address.
func Listen(addr string, tlsConf *tls.Config, opts ...transport.Option) (*Listener, error) {
	if tlsConf == nil {
		return nil, errors.New("quic: nil tls config")
	}
	ln, err := quic.ListenAddr(addr, withProto(tlsConf), quicConfig())
	if err != nil {
		return nil, fmt.Errorf("quic: listen %s: %w", addr, err)
	}
	return &Listener{ln: ln, opts: opts}, nil
}

// Accept waits for the next connection and its first stream.
func (l *Listener) Accept(ctx context.Context) (*transport.Carrier, error) {
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	st, err := conn.AcceptStream(ctx)
	if err != nil {
		_ = conn.CloseWithError(errCodeSessionClosed, "no stream")
		return nil, fmt.Errorf("quic: accept stream: %w", err)
	}
	return transport.NewCarrier("quic", newConn(conn, st), l.opts...), nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error { return l.ln.Close() }
