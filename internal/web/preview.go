package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"libdb.so/strobbie/internal/led"
	"libdb.so/strobbie/internal/strip"
)

const (
	previewWriteTimeout = 200 * time.Millisecond
	previewQueue        = 4
)

// PreviewFrame is the message sent to preview subscribers.
type PreviewFrame struct {
	Frame  uint64 `json:"frame"`
	Pixels string `json:"pixels"`
}

// Preview is a strip that mirrors every frame to websocket subscribers. Slow
// subscribers miss frames instead of slowing down the control loop.
type Preview struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*previewClient]struct{}
	last    []byte
	frame   uint64
	closed  bool
}

var _ strip.Strip = (*Preview)(nil)

type previewClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewPreview creates a preview with no subscribers.
func NewPreview(logger *slog.Logger) *Preview {
	return &Preview{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*previewClient]struct{}),
	}
}

// Show implements strip.Strip.
func (p *Preview) Show(leds led.LEDs) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frame++
	b, err := json.Marshal(PreviewFrame{
		Frame:  p.frame,
		Pixels: leds.Hex(),
	})
	if err != nil {
		return err
	}
	p.last = b

	for c := range p.clients {
		select {
		case c.send <- b:
		default:
			// dropped
		}
	}
	return nil
}

// Clear implements strip.Strip. Subscribers see the next frame instead.
func (p *Preview) Clear() error {
	return nil
}

// Close implements strip.Strip. It disconnects every subscriber.
func (p *Preview) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for c := range p.clients {
		p.dropLocked(c)
	}
	return nil
}

// Subscribers returns the number of connected subscribers.
func (p *Preview) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// ServeHTTP upgrades the request to a websocket and streams frames to it
// until the client goes away.
func (p *Preview) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Debug("failed to upgrade preview connection", "err", err)
		return
	}

	c := &previewClient{
		conn: conn,
		send: make(chan []byte, previewQueue),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		conn.Close()
		return
	}
	if p.last != nil {
		c.send <- p.last
	}
	p.clients[c] = struct{}{}
	p.mu.Unlock()

	p.logger.Debug("preview subscriber connected", "remote", r.RemoteAddr)

	go p.writeLoop(c)

	// Reading is only needed to notice the client closing the connection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	p.mu.Lock()
	p.dropLocked(c)
	p.mu.Unlock()

	p.logger.Debug("preview subscriber disconnected", "remote", r.RemoteAddr)
}

func (p *Preview) writeLoop(c *previewClient) {
	defer c.conn.Close()

	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(previewWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			p.logger.Debug("failed to write preview frame", "err", err)
			return
		}
	}
}

func (p *Preview) dropLocked(c *previewClient) {
	if _, ok := p.clients[c]; !ok {
		return
	}
	delete(p.clients, c)
	close(c.send)
}
