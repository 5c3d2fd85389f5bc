package broadcast

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

type fakeConn struct {
	messages [][]byte
	writeErr error
	closed   bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newTestHub() *Hub {
	return NewHub(logger.Nop(), repository.NopMetrics{})
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := newTestHub()
	a, b := &fakeConn{}, &fakeConn{}
	h.Register(a)
	h.Register(b)

	h.Publish(map[string]string{"status": "ok"})

	require.Len(t, a.messages, 1)
	require.Len(t, b.messages, 1)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(a.messages[0], &decoded))
	assert.Equal(t, "ok", decoded["status"])
}

func TestPublishPrunesFailedConnections(t *testing.T) {
	h := newTestHub()
	healthy := &fakeConn{}
	broken := &fakeConn{writeErr: errors.New("pipe closed")}
	h.Register(healthy)
	h.Register(broken)

	h.Publish("payload")

	assert.Equal(t, 1, h.Count())
	assert.True(t, broken.closed)
	assert.Len(t, healthy.messages, 1)

	// the healthy subscriber keeps receiving after the prune
	h.Publish("again")
	assert.Len(t, healthy.messages, 2)
}

func TestUnregisterClosesConnection(t *testing.T) {
	h := newTestHub()
	c := &fakeConn{}
	h.Register(c)
	h.Unregister(c)

	assert.True(t, c.closed)
	assert.Equal(t, 0, h.Count())

	h.Publish("nobody home")
	assert.Empty(t, c.messages)
}

func TestUnregisterUnknownConnIsNoOp(t *testing.T) {
	h := newTestHub()
	c := &fakeConn{}
	h.Unregister(c)
	assert.False(t, c.closed)
}
