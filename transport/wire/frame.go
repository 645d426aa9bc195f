// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire defines the frames exchanged by remote carriers and the
// codecs turning payloads into frame bodies.
//
// On a byte stream a frame is laid out as
//
//	varint(len) | kind | body
//
// where len counts the kind byte and the body. Message-oriented transports
// carry kind | body as one message.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize bounds kind plus body.
const MaxFrameSize = 16 << 20

var (
	ErrFrameTooLarge   = errors.New("wire: frame too large")
	ErrMalformedFrame  = errors.New("wire: malformed frame")
	ErrUnexpectedFrame = errors.New("wire: unexpected frame")
)

type Kind byte

const (
	KindValue Kind = iota + 1
	KindChoice
	KindHello
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindChoice:
		return "choice"
	case KindHello:
		return "hello"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

type Frame struct {
	Kind Kind
	Body []byte
}

// Expect returns an error wrapping ErrUnexpectedFrame unless f has kind k.
func (f Frame) Expect(k Kind) error {
	if f.Kind != k {
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedFrame, f.Kind, k)
	}
	return nil
}

// Marshal returns kind | body, the message form of f.
func (f Frame) Marshal() []byte {
	b := make([]byte, 1+len(f.Body))
	b[0] = byte(f.Kind)
	copy(b[1:], f.Body)
	return b
}

// Unmarshal parses the message form of a frame. The body aliases b.
func Unmarshal(b []byte) (Frame, error) {
	if len(b) == 0 {
		return Frame{}, fmt.Errorf("%w: empty message", ErrMalformedFrame)
	}
	if len(b) > MaxFrameSize {
		return Frame{}, ErrFrameTooLarge
	}
	return Frame{Kind: Kind(b[0]), Body: b[1:]}, nil
}

// AppendFrame appends the stream form of f to b.
func AppendFrame(b []byte, f Frame) ([]byte, error) {
	n := 1 + len(f.Body)
	if n > MaxFrameSize {
		return b, ErrFrameTooLarge
	}
	b = protowire.AppendVarint(b, uint64(n))
	b = append(b, byte(f.Kind))
	return append(b, f.Body...), nil
}

// WriteFrame writes the stream form of f to w in a single Write.
func WriteFrame(w io.Writer, f Frame) error {
	b, err := AppendFrame(nil, f)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadFrame reads one frame in stream form. It returns io.EOF only when
// the stream ends on a frame boundary.
func ReadFrame(r io.Reader) (Frame, error) {
	var prefix [binary.MaxVarintLen64]byte
	n := 0
	for {
		if n == len(prefix) {
			return Frame{}, fmt.Errorf("%w: length prefix overflows", ErrMalformedFrame)
		}
		c, err := readByte(r)
		if err != nil {
			if n > 0 && errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Frame{}, err
		}
		prefix[n] = c
		n++
		if c < 0x80 {
			break
		}
	}
	size, m := protowire.ConsumeVarint(prefix[:n])
	if err := protowire.ParseError(m); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if size == 0 {
		return Frame{}, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}
	if size > MaxFrameSize {
		return Frame{}, ErrFrameTooLarge
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return Frame{Kind: Kind(buf[0]), Body: buf[1:]}, nil
}

func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	for {
		n, err := r.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// ChoiceFrame carries a branch marker as 4 bytes big-endian.
func ChoiceFrame(m uint32) Frame {
	return Frame{Kind: KindChoice, Body: binary.BigEndian.AppendUint32(nil, m)}
}

// Choice decodes the marker of a choice frame.
func (f Frame) Choice() (uint32, error) {
	if err := f.Expect(KindChoice); err != nil {
		return 0, err
	}
	if len(f.Body) != 4 {
		return 0, fmt.Errorf("%w: choice body of %d bytes", ErrMalformedFrame, len(f.Body))
	}
	return binary.BigEndian.Uint32(f.Body), nil
}

// Hello opens a conversation: the announcing side's session identifier and
// rendered protocol.
type Hello struct {
	Session  string `json:"session"`
	Protocol string `json:"protocol"`
}

func HelloFrame(h Hello) (Frame, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Kind: KindHello, Body: b}, nil
}

// Hello decodes the body of a hello frame.
func (f Frame) Hello() (Hello, error) {
	var h Hello
	if err := f.Expect(KindHello); err != nil {
		return h, err
	}
	if err := json.Unmarshal(f.Body, &h); err != nil {
		return h, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	return h, nil
}
