// Package netconn adapts network connections to the line interface the chat
// core consumes: one UTF-8 line in, one line out.
package netconn

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// ErrLineTooLong is returned when a peer sends more than MaxLineLength bytes without a newline.
var ErrLineTooLong = errors.New("netconn: line too long")

// Defaults applied when Options fields are zero.
const (
	DefaultMaxLineLength = 4096
	DefaultWriteTimeout  = 10 * time.Second
)

// Options tunes a line connection.
type Options struct {
	MaxLineLength int
	WriteTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxLineLength <= 0 {
		o.MaxLineLength = DefaultMaxLineLength
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	return o
}

// TCP frames a stream connection into newline-terminated lines.
type TCP struct {
	conn   net.Conn
	reader *bufio.Reader
	opts   Options
	addr   string

	wmu sync.Mutex
}

// NewTCP wraps conn.
func NewTCP(conn net.Conn, opts Options) *TCP {
	opts = opts.withDefaults()
	return &TCP{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, opts.MaxLineLength),
		opts:   opts,
		addr:   HostOf(conn.RemoteAddr()),
	}
}

// ReadLine blocks until a full line arrives. The trailing "\n" or "\r\n" is stripped.
// A final unterminated line before EOF is returned as a line.
//
// A line longer than MaxLineLength is consumed up to its newline and reported
// as ErrLineTooLong; the connection stays usable for the next line.
func (c *TCP) ReadLine() (string, error) {
	line, err := c.reader.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		if err := c.discardLine(); err != nil {
			return "", err
		}
		return "", ErrLineTooLong
	case err != nil && len(line) == 0:
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// discardLine skips input up to and including the next newline.
func (c *TCP) discardLine() error {
	for {
		_, err := c.reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return err
	}
}

// WriteLine writes line followed by "\n" under a write deadline.
func (c *TCP) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return fmt.Errorf("netconn: set deadline: %w", err)
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("netconn: write: %w", err)
	}
	return nil
}

// RemoteAddr returns the peer host without port, the unit used for blocking.
func (c *TCP) RemoteAddr() string {
	return c.addr
}

// Close closes the underlying connection, unblocking a pending ReadLine.
func (c *TCP) Close() error {
	return c.conn.Close()
}

// HostOf strips the port from a network address. Addresses that do not
// carry a port are returned unchanged.
func HostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String()
	case *net.UDPAddr:
		return a.IP.String()
	}
	return HostOfString(addr.String())
}

// HostOfString is HostOf for textual "host:port" addresses.
func HostOfString(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
