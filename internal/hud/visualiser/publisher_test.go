package visualiser

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/overlay.report/internal/config"
	"github.com/banshee-data/overlay.report/internal/hud/engine"
)

func wsURL(t *testing.T, server *httptest.Server) string {
	t.Helper()
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testFrame(t *testing.T, seed int64) *engine.FrameBundle {
	t.Helper()
	cfg := engine.EngineConfigFromTuning(config.MustLoadDefaultConfig())
	cfg.Seed = seed
	e := engine.NewEngine(cfg, 1280, 720, false)
	return e.TickDelta(1.0 / 60.0)
}

func TestEncodeDecodeFrame(t *testing.T) {
	t.Parallel()

	frame := testFrame(t, 21)
	data, err := EncodeFrame(frame)
	require.NoError(t, err)

	decoded, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, frame.FrameID, decoded.FrameID)
	assert.Equal(t, frame.SceneID, decoded.SceneID)
	assert.Equal(t, len(frame.Boxes), len(decoded.Boxes))
	assert.Equal(t, frame.Labels[0].Text, decoded.Labels[0].Text)
}

func TestEncodeNilFrame(t *testing.T) {
	t.Parallel()

	_, err := EncodeFrame(nil)
	assert.Error(t, err)
}

func TestPublisherStreamsFrames(t *testing.T) {
	t.Parallel()

	p := NewPublisher(DefaultConfig())
	require.NoError(t, p.Start())
	defer p.Stop()

	server := httptest.NewServer(p)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(t, server), nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the handler a moment to register the client.
	require.Eventually(t, func() bool {
		return p.Stats().ClientCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	frame := testFrame(t, 23)
	p.Publish(frame)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	decoded, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, frame.FrameID, decoded.FrameID)
	assert.Equal(t, len(frame.Boxes), len(decoded.Boxes))
}

func TestPublisherRejectsExcessClients(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxClients = 1
	p := NewPublisher(cfg)
	require.NoError(t, p.Start())
	defer p.Stop()

	server := httptest.NewServer(p)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(t, server), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return p.Stats().ClientCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(t, server), nil)
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, 503, resp.StatusCode)
	}
}

func TestPublishBeforeStartIsNoOp(t *testing.T) {
	t.Parallel()

	p := NewPublisher(DefaultConfig())
	p.Publish(testFrame(t, 25))
	assert.Zero(t, p.Stats().FrameCount)
}

func TestPublisherStopDisconnectsClients(t *testing.T) {
	t.Parallel()

	p := NewPublisher(DefaultConfig())
	require.NoError(t, p.Start())

	server := httptest.NewServer(p)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(t, server), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return p.Stats().ClientCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	p.Stop()
	assert.False(t, p.Stats().Running)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "read should fail after publisher stop")
}

func TestPublisherCountsDroppedFrames(t *testing.T) {
	t.Parallel()

	p := NewPublisher(DefaultConfig())
	// Not started: broadcast loop is not draining, so fill the queue by hand.
	p.running.Store(true)
	frame := testFrame(t, 27)
	for i := 0; i < 150; i++ {
		p.Publish(frame)
	}
	stats := p.Stats()
	assert.Equal(t, uint64(100), stats.FrameCount, "queue capacity worth of frames accepted")
	assert.Equal(t, uint64(50), stats.DroppedFrames)
}
