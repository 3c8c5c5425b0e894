package netconn

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket carries one chat line per text frame.
type WebSocket struct {
	conn *websocket.Conn
	opts Options
	addr string

	wmu sync.Mutex
}

// Upgrader is shared by every WebSocket listener. The chat speaks plain text,
// so any origin is accepted.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// UpgradeWebSocket upgrades an HTTP request. On failure the upgrader has
// already replied to the client.
func UpgradeWebSocket(w http.ResponseWriter, r *http.Request, opts Options) (*WebSocket, error) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("netconn: upgrade: %w", err)
	}
	return NewWebSocket(conn, RequestHost(r), opts), nil
}

// NewWebSocket wraps an established connection; addr is the peer host.
func NewWebSocket(conn *websocket.Conn, addr string, opts Options) *WebSocket {
	opts = opts.withDefaults()
	conn.SetReadLimit(int64(opts.MaxLineLength))
	return &WebSocket{conn: conn, opts: opts, addr: addr}
}

// ReadLine returns the next text frame with line terminators stripped.
// Binary frames are skipped.
func (c *WebSocket) ReadLine() (string, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

// WriteLine sends line as one text frame.
func (c *WebSocket) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return fmt.Errorf("netconn: set deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("netconn: write: %w", err)
	}
	return nil
}

// RemoteAddr returns the peer host.
func (c *WebSocket) RemoteAddr() string {
	return c.addr
}

// Close tears down the connection without a close handshake.
func (c *WebSocket) Close() error {
	return c.conn.Close()
}

// RequestHost extracts the peer host of an HTTP request.
func RequestHost(r *http.Request) string {
	return HostOfString(r.RemoteAddr)
}
