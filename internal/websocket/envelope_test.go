package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	in, err := decodeInbound([]byte(`{"event":"get_channels","ack":4}`))
	require.NoError(t, err)
	assert.Equal(t, "get_channels", in.Event)
	require.NotNil(t, in.Ack)
	assert.Equal(t, int64(4), *in.Ack)

	_, err = decodeInbound([]byte(`{"event":`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeInbound_EmptyEventKeepsAck(t *testing.T) {
	in, err := decodeInbound([]byte(`{"event":"","ack":7}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
	require.NotNil(t, in.Ack)
	assert.Equal(t, int64(7), *in.Ack)
}
