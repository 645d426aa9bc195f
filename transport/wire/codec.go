// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

var ErrNotMessage = errors.New("wire: payload is not a protobuf message")

// Codec turns payloads into value frame bodies and back. Unmarshal gets the
// payload type the protocol expects at that point.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, t reflect.Type) (any, error)
}

var (
	// JSON encodes payloads with encoding/json.
	JSON Codec = jsonCodec{}
	// Proto encodes payloads that are protobuf messages.
	Proto Codec = protoCodec{}
)

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(b []byte, t reflect.Type) (any, error) {
	ptr := reflect.New(t)
	if err := json.Unmarshal(b, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

type protoCodec struct{}

func (protoCodec) Name() string { return "proto" }

func (protoCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotMessage, v)
	}
	return proto.Marshal(m)
}

func (protoCodec) Unmarshal(b []byte, t reflect.Type) (any, error) {
	if t.Kind() != reflect.Pointer || !t.Implements(reflect.TypeFor[proto.Message]()) {
		return nil, fmt.Errorf("%w: %s", ErrNotMessage, t)
	}
	m := reflect.New(t.Elem()).Interface().(proto.Message)
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}
