package netconn

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPReadLine(t *testing.T) {
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	lc := NewTCP(server, Options{})
	go func() {
		_, _ = client.Write([]byte("hello\r\nsecond line \nlast"))
		_ = client.Close()
	}()

	for _, want := range []string{"hello", "second line ", "last"} {
		got, err := lc.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := lc.ReadLine()
	assert.Error(t, err)
}

func TestTCPWriteLine(t *testing.T) {
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	lc := NewTCP(server, Options{WriteTimeout: time.Second})
	errc := make(chan error, 1)
	go func() { errc <- lc.WriteLine("Alice: hola") }()

	line, err := bufio.NewReader(client).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Alice: hola\n", line)
	require.NoError(t, <-errc)
}

func TestTCPWriteLineTimesOut(t *testing.T) {
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	lc := NewTCP(server, Options{WriteTimeout: 20 * time.Millisecond})
	err := lc.WriteLine("nobody reads this")
	require.Error(t, err)
}

func TestTCPLineTooLong(t *testing.T) {
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	lc := NewTCP(server, Options{MaxLineLength: 16})
	go func() { _, _ = client.Write([]byte(strings.Repeat("x", 64) + "\nhola\r\n")) }()

	_, err := lc.ReadLine()
	require.ErrorIs(t, err, ErrLineTooLong)

	got, err := lc.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hola", got)
}

func TestTCPLineTooLongThenEOF(t *testing.T) {
	server, client := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })

	lc := NewTCP(server, Options{MaxLineLength: 16})
	go func() {
		_, _ = client.Write([]byte(strings.Repeat("x", 64)))
		_ = client.Close()
	}()

	_, err := lc.ReadLine()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLineTooLong)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "10.0.0.5", HostOf(&net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 4242}))
	assert.Equal(t, "::1", HostOf(&net.TCPAddr{IP: net.ParseIP("::1"), Port: 1}))
	assert.Equal(t, "", HostOf(nil))
	assert.Equal(t, "192.0.2.1", HostOfString("192.0.2.1:8080"))
	assert.Equal(t, "pipe", HostOfString("pipe"))
}

func TestWebSocketRoundTrip(t *testing.T) {
	addrc := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lc, err := UpgradeWebSocket(w, r, Options{})
		if err != nil {
			return
		}
		defer func() { _ = lc.Close() }()
		addrc <- lc.RemoteAddr()
		for {
			line, err := lc.ReadLine()
			if err != nil {
				return
			}
			if err := lc.WriteLine(strings.ToUpper(line)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte("ignored")))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("hola\n")))

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, "HOLA", string(data))
	assert.Equal(t, "127.0.0.1", <-addrc)
}
