// Package visualiser streams rendered frame bundles to browser overlay
// clients over websockets. It implements the host boundary: the engine
// produces frame bundles, the publisher fans them out, and the browser is
// solely responsible for turning them into pixels.
package visualiser

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/banshee-data/overlay.report/internal/hud/engine"
	"github.com/banshee-data/overlay.report/internal/httputil"
	"github.com/banshee-data/overlay.report/internal/monitoring"
)

// Config holds configuration for the websocket frame publisher.
type Config struct {
	// MaxClients is the maximum number of concurrent overlay clients.
	MaxClients int

	// ClientBuffer is the per-client frame queue depth. A client that falls
	// behind by more than this many frames starts dropping frames rather
	// than stalling the broadcast loop.
	ClientBuffer int

	// WriteTimeout bounds a single websocket write. A client that cannot
	// accept a frame within this window is disconnected.
	WriteTimeout time.Duration
}

// DefaultConfig returns a default publisher configuration.
func DefaultConfig() Config {
	return Config{
		MaxClients:   8,
		ClientBuffer: 16,
		WriteTimeout: 5 * time.Second,
	}
}

// Publisher fans frame bundles out to connected websocket clients. Slow
// clients drop frames individually; they never block the engine or other
// clients.
type Publisher struct {
	config   Config
	upgrader websocket.Upgrader

	frameChan chan *engine.FrameBundle
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	frameCount    atomic.Uint64
	droppedFrames atomic.Uint64
	clientCount   atomic.Int32

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// clientStream represents a connected overlay client.
type clientStream struct {
	id       string
	conn     *websocket.Conn
	frameCh  chan *engine.FrameBundle
	doneCh   chan struct{}
	doneOnce sync.Once
}

func (c *clientStream) markDone() {
	c.doneOnce.Do(func() { close(c.doneCh) })
}

// NewPublisher creates a publisher with the given configuration.
func NewPublisher(cfg Config) *Publisher {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultConfig().MaxClients
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = DefaultConfig().ClientBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Publisher{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// The overlay is served from the same origin as this endpoint.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		frameChan: make(chan *engine.FrameBundle, 100),
		clients:   make(map[string]*clientStream),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the broadcast loop.
func (p *Publisher) Start() error {
	if p.running.Load() {
		return fmt.Errorf("publisher already running")
	}
	p.running.Store(true)
	p.wg.Add(1)
	go p.broadcastLoop()
	return nil
}

// Stop disconnects all clients and stops the broadcast loop.
func (p *Publisher) Stop() {
	if !p.running.Load() {
		return
	}
	p.running.Store(false)
	close(p.stopCh)

	p.clientsMu.Lock()
	for id, client := range p.clients {
		client.conn.Close()
		client.markDone()
		delete(p.clients, id)
	}
	p.clientsMu.Unlock()

	p.wg.Wait()
	monitoring.Logf("visualiser: publisher stopped (frames=%d dropped=%d)", p.frameCount.Load(), p.droppedFrames.Load())
}

// Publish queues a frame for broadcast. If the queue is full the frame is
// dropped and counted; publishing never blocks the engine tick.
func (p *Publisher) Publish(frame *engine.FrameBundle) {
	if !p.running.Load() || frame == nil {
		return
	}
	select {
	case p.frameChan <- frame:
		p.frameCount.Add(1)
	default:
		dropped := p.droppedFrames.Add(1)
		if dropped%100 == 1 {
			monitoring.Logf("visualiser: dropped frame %d, queue full (total dropped: %d)", frame.FrameID, dropped)
		}
	}
}

// broadcastLoop distributes queued frames to every connected client.
func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case frame := <-p.frameChan:
			p.clientsMu.RLock()
			for _, client := range p.clients {
				select {
				case client.frameCh <- frame:
				default:
					// Client is slow, drop this frame for it only.
					p.droppedFrames.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams frames until
// the client disconnects or the publisher stops.
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !p.running.Load() {
		httputil.ServiceUnavailable(w, "publisher not running")
		return
	}
	if int(p.clientCount.Load()) >= p.config.MaxClients {
		httputil.ServiceUnavailable(w, "too many clients")
		return
	}

	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("visualiser: websocket upgrade failed: %v", err)
		return
	}

	client := p.addClient(conn)
	defer p.removeClient(client.id)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.readLoop(client)
	}()

	p.writeLoop(client)
}

func (p *Publisher) addClient(conn *websocket.Conn) *clientStream {
	client := &clientStream{
		id:      uuid.NewString(),
		conn:    conn,
		frameCh: make(chan *engine.FrameBundle, p.config.ClientBuffer),
		doneCh:  make(chan struct{}),
	}

	p.clientsMu.Lock()
	p.clients[client.id] = client
	p.clientsMu.Unlock()

	count := p.clientCount.Add(1)
	monitoring.Logf("visualiser: client %s connected (total: %d)", client.id, count)
	return client
}

func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	client, ok := p.clients[id]
	if ok {
		delete(p.clients, id)
	}
	p.clientsMu.Unlock()
	if !ok {
		return
	}

	client.markDone()
	client.conn.Close()
	count := p.clientCount.Add(-1)
	monitoring.Logf("visualiser: client %s disconnected (remaining: %d)", id, count)
}

// writeLoop serialises frames for one client.
func (p *Publisher) writeLoop(client *clientStream) {
	for {
		select {
		case <-p.stopCh:
			return
		case <-client.doneCh:
			return
		case frame := <-client.frameCh:
			data, err := EncodeFrame(frame)
			if err != nil {
				monitoring.Logf("visualiser: encode error for client %s: %v", client.id, err)
				continue
			}
			client.conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// readLoop drains control messages so pings and close frames are processed,
// and unblocks the write loop when the peer goes away.
func (p *Publisher) readLoop(client *clientStream) {
	defer client.markDone()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// PublisherStats contains publisher counters for the stats endpoint.
type PublisherStats struct {
	FrameCount    uint64 `json:"frame_count"`
	DroppedFrames uint64 `json:"dropped_frames"`
	ClientCount   int32  `json:"client_count"`
	Running       bool   `json:"running"`
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		FrameCount:    p.frameCount.Load(),
		DroppedFrames: p.droppedFrames.Load(),
		ClientCount:   p.clientCount.Load(),
		Running:       p.running.Load(),
	}
}
