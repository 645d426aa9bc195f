// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package websocket carries sessions over WebSocket connections.
// WebSocket already has message boundaries, so each frame travels as one
// binary message without a length prefix.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"nhooyr.io/websocket"

	"code.hybscloud.com/sesstype/transport"
	"code.hybscloud.com/sesstype/transport/wire"
)

// ErrTextMessage is returned when the peer sends a text message.
var ErrTextMessage = errors.New("websocket: unexpected text message")

// Conn is a transport.FrameConn over a *websocket.Conn.
type Conn struct {
	ws     *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

var _ transport.FrameConn = (*Conn)(nil)

func NewConn(ws *websocket.Conn) *Conn {
	ws.SetReadLimit(wire.MaxFrameSize + 1)
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{ws: ws, ctx: ctx, cancel: cancel}
}

func (c *Conn) ReadFrame() (wire.Frame, error) {
	typ, b, err := c.ws.Read(c.ctx)
	if err != nil {
		return wire.Frame{}, err
	}
	if typ != websocket.MessageBinary {
		return wire.Frame{}, ErrTextMessage
	}
	return wire.Unmarshal(b)
}

func (c *Conn) WriteFrame(f wire.Frame) error {
	return c.ws.Write(c.ctx, websocket.MessageBinary, f.Marshal())
}

// Close performs the closing handshake with a normal closure status.
// Every frame was written before Close is called, so a failed handshake
// loses nothing and is not reported.
func (c *Conn) Close() error {
	_ = c.ws.Close(websocket.StatusNormalClosure, "session closed")
	c.cancel()
	return nil
}

// New wraps an established WebSocket connection in a carrier.
func New(ws *websocket.Conn, opts ...transport.Option) *transport.Carrier {
	return transport.NewCarrier("websocket", NewConn(ws), opts...)
}

// Dial opens a WebSocket connection to url.
func Dial(ctx context.Context, url string, opts ...transport.Option) (*transport.Carrier, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket: dial %s: %w", url, err)
	}
	return New(ws, opts...), nil
}

// Accept upgrades an HTTP request to a WebSocket connection.
func Accept(w http.ResponseWriter, r *http.Request, opts ...transport.Option) (*transport.Carrier, error) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket: accept: %w", err)
	}
	return New(ws, opts...), nil
}
