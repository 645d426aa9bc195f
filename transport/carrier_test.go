// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"code.hybscloud.com/sesstype"
	"code.hybscloud.com/sesstype/proto"
	"code.hybscloud.com/sesstype/transport"
	"code.hybscloud.com/sesstype/transport/stream"
	"code.hybscloud.com/sesstype/transport/wire"
)

func quiet() sesstype.Option {
	return sesstype.WithLeakHandler(func(*sesstype.LeakError) {})
}

// attachPair attaches p and its dual to the two ends of a pipe.
func attachPair(t *testing.T, p *proto.Proto, opts ...transport.Option) (*sesstype.Chan, *sesstype.Chan) {
	t.Helper()
	ca, cb := stream.Pipe(opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		c   *sesstype.Chan
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := sesstype.Attach(ctx, proto.Dual(p), cb, quiet())
		done <- result{c, err}
	}()
	a, err := sesstype.Attach(ctx, p, ca, quiet())
	require.NoError(t, err)
	r := <-done
	require.NoError(t, r.err)
	return a, r.c
}

func TestConversationOverPipe(t *testing.T) {
	p := proto.Send[int](proto.Recv[string](proto.End()))
	a, b := attachPair(t, p)

	errCh := make(chan error, 1)
	go func() {
		b, n, err := sesstype.Recv[int](b)
		if err != nil {
			errCh <- err
			return
		}
		if b, err = sesstype.Send(b, "got "+strconv.Itoa(n)); err != nil {
			errCh <- err
			return
		}
		errCh <- b.Close()
	}()

	a, err := sesstype.Send(a, 7)
	require.NoError(t, err)
	a, s, err := sesstype.Recv[string](a)
	require.NoError(t, err)
	assert.Equal(t, "got 7", s)
	require.NoError(t, a.Close())
	require.NoError(t, <-errCh)
}

func TestChoiceOverPipe(t *testing.T) {
	p := proto.Choose(proto.End(), proto.Send[bool](proto.End()), proto.End())
	a, b := attachPair(t, p)

	errCh := make(chan error, 1)
	go func() {
		a, err := a.Second()
		if err == nil {
			a, err = sesstype.Send(a, true)
		}
		if err == nil {
			err = a.Close()
		}
		errCh <- err
	}()

	i, b, err := b.Branch()
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	b, v, err := sesstype.Recv[bool](b)
	require.NoError(t, err)
	assert.True(t, v)
	require.NoError(t, b.Close())
	require.NoError(t, <-errCh)
}

func TestHandshakeRejectsNonDual(t *testing.T) {
	p := proto.Send[int](proto.End())
	ca, cb := stream.Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := sesstype.Attach(ctx, p, cb)
		done <- err
	}()
	_, err := sesstype.Attach(ctx, p, ca)
	var derr *sesstype.DualityError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "!int.end", derr.Remote)
	assert.Equal(t, "?int.end", derr.Want)
	assert.ErrorIs(t, err, sesstype.ErrDualityMismatch)
	assert.ErrorIs(t, <-done, sesstype.ErrDualityMismatch)
}

func TestHandshakeContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sesstype.Attach(ctx, proto.End(), transport.NewCarrier("silent", silentConn{}))
	assert.ErrorIs(t, err, context.Canceled)
}

// silentConn accepts writes and never delivers a frame.
type silentConn struct{}

func (silentConn) ReadFrame() (wire.Frame, error) { select {} }
func (silentConn) WriteFrame(wire.Frame) error    { return nil }
func (silentConn) Close() error                   { return nil }

func TestPeerHangUp(t *testing.T) {
	p := proto.Recv[int](proto.End())
	ca, cb := stream.Pipe()
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := sesstype.Attach(ctx, proto.Dual(p), cb, quiet())
		if err == nil {
			err = cb.Close()
		}
		done <- err
	}()
	a, err := sesstype.Attach(ctx, p, ca, quiet())
	require.NoError(t, err)
	require.NoError(t, <-done)

	_, _, err = sesstype.Recv[int](a)
	assert.ErrorIs(t, err, sesstype.ErrDisconnected)
}

func TestDelegationNotSerializable(t *testing.T) {
	inner := proto.End()
	p := proto.Send[*sesstype.Chan](proto.End())
	a, _ := attachPair(t, p)
	x, y := sesstype.MustPair(inner, quiet())
	defer func() { _ = y.Close() }()

	_, err := sesstype.Send(a, x)
	assert.ErrorIs(t, err, transport.ErrNotSerializable)
	assert.False(t, x.Live())
}

func TestProtoCodecOverPipe(t *testing.T) {
	p := proto.Send[*wrapperspb.Int64Value](proto.End())
	a, b := attachPair(t, p, transport.WithCodec(wire.Proto))

	errCh := make(chan error, 1)
	go func() {
		a, err := sesstype.Send(a, wrapperspb.Int64(-12))
		if err == nil {
			err = a.Close()
		}
		errCh <- err
	}()
	b, v, err := sesstype.Recv[*wrapperspb.Int64Value](b)
	require.NoError(t, err)
	assert.Equal(t, int64(-12), v.GetValue())
	require.NoError(t, b.Close())
	require.NoError(t, <-errCh)
}

func TestReadinessAndSelect(t *testing.T) {
	p := proto.Send[string](proto.End())
	a1, b1 := attachPair(t, p)
	a2, b2 := attachPair(t, p)

	a2, err := sesstype.Send(a2, "second")
	require.NoError(t, err)
	require.NoError(t, a2.Close())

	i, err := sesstype.Select([]*sesstype.Chan{b1, b2})
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	b2, s, err := sesstype.Recv[string](b2)
	require.NoError(t, err)
	assert.Equal(t, "second", s)
	require.NoError(t, b2.Close())

	a1, err = sesstype.Send(a1, "first")
	require.NoError(t, err)
	require.NoError(t, a1.Close())
	b1, s, err = sesstype.Recv[string](b1)
	require.NoError(t, err)
	assert.Equal(t, "first", s)
	require.NoError(t, b1.Close())
}

func TestUnexpectedFrame(t *testing.T) {
	p := proto.Recv[int](proto.End())
	ca, cb := stream.Pipe()
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := cb.Handshake(ctx, sesstype.Hello{Protocol: proto.Dual(p).String()})
		if err == nil {
			err = cb.SendChoice(0)
		}
		done <- err
	}()
	a, err := sesstype.Attach(ctx, p, ca, quiet())
	require.NoError(t, err)
	require.NoError(t, <-done)

	_, _, err = sesstype.Recv[int](a)
	assert.True(t, errors.Is(err, wire.ErrUnexpectedFrame), "got %v", err)
	_ = cb.Close()
}
