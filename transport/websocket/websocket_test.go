// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/sesstype"
	"code.hybscloud.com/sesstype/proto"
	"code.hybscloud.com/sesstype/transport/websocket"
)

func sumProto() *proto.Proto {
	return proto.Send[[]int](proto.Recv[int](proto.End()))
}

func TestWebSocketSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		carrier, err := websocket.Accept(w, r)
		if err != nil {
			serverErr <- err
			return
		}
		c, err := sesstype.Attach(ctx, proto.Dual(sumProto()), carrier)
		if err != nil {
			serverErr <- err
			return
		}
		c, xs, err := sesstype.Recv[[]int](c)
		if err != nil {
			serverErr <- err
			return
		}
		sum := 0
		for _, x := range xs {
			sum += x
		}
		if c, err = sesstype.Send(c, sum); err != nil {
			serverErr <- err
			return
		}
		serverErr <- c.Close()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	carrier, err := websocket.Dial(ctx, url)
	require.NoError(t, err)
	c, err := sesstype.Attach(ctx, sumProto(), carrier)
	require.NoError(t, err)

	c, err = sesstype.Send(c, []int{1, 2, 3, 4})
	require.NoError(t, err)
	c, sum, err := sesstype.Recv[int](c)
	require.NoError(t, err)
	assert.Equal(t, 10, sum)
	require.NoError(t, c.Close())
	require.NoError(t, <-serverErr)
}

func TestWebSocketDualityMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		carrier, err := websocket.Accept(w, r)
		if err != nil {
			serverErr <- err
			return
		}
		_, err = sesstype.Attach(ctx, sumProto(), carrier)
		serverErr <- err
	}))
	defer srv.Close()

	carrier, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	_, err = sesstype.Attach(ctx, sumProto(), carrier)
	assert.ErrorIs(t, err, sesstype.ErrDualityMismatch)
	assert.ErrorIs(t, <-serverErr, sesstype.ErrDualityMismatch)
}
