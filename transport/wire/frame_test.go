// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire_test

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"code.hybscloud.com/sesstype/transport/wire"
)

func TestStreamFraming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteFrame(&buf, wire.Frame{Kind: wire.KindValue, Body: []byte(`"hi"`)}))
	require.NoError(t, wire.WriteFrame(&buf, wire.ChoiceFrame(7)))
	// 300 bytes need a two-byte length prefix.
	big := bytes.Repeat([]byte{'x'}, 300)
	require.NoError(t, wire.WriteFrame(&buf, wire.Frame{Kind: wire.KindValue, Body: big}))

	f, err := wire.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, wire.KindValue, f.Kind)
	assert.Equal(t, `"hi"`, string(f.Body))

	f, err = wire.ReadFrame(&buf)
	require.NoError(t, err)
	m, err := f.Choice()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), m)

	f, err = wire.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, big, f.Body)

	_, err = wire.ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameTruncated(t *testing.T) {
	b, err := wire.AppendFrame(nil, wire.Frame{Kind: wire.KindValue, Body: []byte("abcdef")})
	require.NoError(t, err)
	_, err = wire.ReadFrame(bytes.NewReader(b[:len(b)-2]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// Only a continuation byte of the prefix.
	_, err = wire.ReadFrame(bytes.NewReader([]byte{0x80}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrameRejects(t *testing.T) {
	_, err := wire.ReadFrame(bytes.NewReader([]byte{0x00}))
	assert.ErrorIs(t, err, wire.ErrMalformedFrame)

	huge := []byte{0xff, 0xff, 0xff, 0xff, 0x0f}
	_, err = wire.ReadFrame(bytes.NewReader(huge))
	assert.ErrorIs(t, err, wire.ErrFrameTooLarge)

	_, err = wire.AppendFrame(nil, wire.Frame{Kind: wire.KindValue, Body: make([]byte, wire.MaxFrameSize)})
	assert.ErrorIs(t, err, wire.ErrFrameTooLarge)
}

// oneByteReader hides io.ByteReader from ReadFrame.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return o.r.Read(p)
}

func TestReadFramePlainReader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteFrame(&buf, wire.ChoiceFrame(1)))
	f, err := wire.ReadFrame(oneByteReader{&buf})
	require.NoError(t, err)
	assert.Equal(t, wire.KindChoice, f.Kind)
}

func TestMessageForm(t *testing.T) {
	in := wire.Frame{Kind: wire.KindHello, Body: []byte("{}")}
	out, err := wire.Unmarshal(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = wire.Unmarshal(nil)
	assert.ErrorIs(t, err, wire.ErrMalformedFrame)
}

func TestFrameKinds(t *testing.T) {
	_, err := wire.Frame{Kind: wire.KindValue}.Choice()
	assert.ErrorIs(t, err, wire.ErrUnexpectedFrame)

	_, err = wire.Frame{Kind: wire.KindChoice, Body: []byte{1}}.Choice()
	assert.ErrorIs(t, err, wire.ErrMalformedFrame)

	_, err = wire.Frame{Kind: wire.KindHello, Body: []byte("not json")}.Hello()
	assert.ErrorIs(t, err, wire.ErrMalformedFrame)

	assert.Equal(t, "kind(9)", wire.Kind(9).String())
}

func TestHelloFrame(t *testing.T) {
	f, err := wire.HelloFrame(wire.Hello{Session: "s-1", Protocol: "!int.end"})
	require.NoError(t, err)
	h, err := f.Hello()
	require.NoError(t, err)
	assert.Equal(t, "s-1", h.Session)
	assert.Equal(t, "!int.end", h.Protocol)
}

type point struct {
	X, Y float64
}

func TestJSONCodec(t *testing.T) {
	b, err := wire.JSON.Marshal(point{1.5, -2})
	require.NoError(t, err)
	v, err := wire.JSON.Unmarshal(b, reflect.TypeFor[point]())
	require.NoError(t, err)
	assert.Equal(t, point{1.5, -2}, v)

	_, err = wire.JSON.Unmarshal([]byte("{"), reflect.TypeFor[point]())
	assert.Error(t, err)
}

func TestProtoCodec(t *testing.T) {
	b, err := wire.Proto.Marshal(wrapperspb.String("hello"))
	require.NoError(t, err)
	v, err := wire.Proto.Unmarshal(b, reflect.TypeFor[*wrapperspb.StringValue]())
	require.NoError(t, err)
	assert.Equal(t, "hello", v.(*wrapperspb.StringValue).GetValue())

	_, err = wire.Proto.Marshal(42)
	assert.True(t, errors.Is(err, wire.ErrNotMessage))
	_, err = wire.Proto.Unmarshal(b, reflect.TypeFor[string]())
	assert.ErrorIs(t, err, wire.ErrNotMessage)
}
