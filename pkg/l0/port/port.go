// Package port opens links to L0 controllers.
package port

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/tarm/serial"
	"golang.org/x/net/websocket"
)

// Config describes the link to open.
type Config struct {
	// Device is a serial device path (e.g. /dev/ttyACM0, COM3), or a URL
	// tcp://host:port, ws://host/path, wss://host/path.
	Device string
	// Baud applies to serial devices only.
	Baud int
	// ReadTimeout applies to serial devices only, 0 blocks.
	ReadTimeout time.Duration
}

// DefaultBaud is the baud rate used when Config.Baud is 0.
const DefaultBaud = 230400

// Scheme returns the URL scheme of Device, or "serial".
func (c *Config) Scheme() string {
	if i := strings.Index(c.Device, "://"); i > 0 {
		return strings.ToLower(c.Device[:i])
	}
	return "serial"
}

// UsesReadTimeout tells if Read on the opened link returns on timeout.
func (c *Config) UsesReadTimeout() bool {
	return c.Scheme() == "serial" && c.ReadTimeout > 0
}

// Open opens the link.
func Open(c *Config) (io.ReadWriteCloser, error) {
	if c == nil || c.Device == "" {
		return nil, fmt.Errorf("device not specified")
	}
	switch scheme := c.Scheme(); scheme {
	case "serial":
		baud := c.Baud
		if baud == 0 {
			baud = DefaultBaud
		}
		p, err := serial.OpenPort(&serial.Config{
			Name:        c.Device,
			Baud:        baud,
			ReadTimeout: c.ReadTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", c.Device, err)
		}
		return p, nil
	case "tcp":
		u, err := url.Parse(c.Device)
		if err != nil {
			return nil, fmt.Errorf("invalid device URL: %w", err)
		}
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", u.Host, err)
		}
		return conn, nil
	case "ws", "wss":
		origin := "http://localhost/"
		if scheme == "wss" {
			origin = "https://localhost/"
		}
		conn, err := websocket.Dial(c.Device, "", origin)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", c.Device, err)
		}
		conn.PayloadType = websocket.BinaryFrame
		return conn, nil
	default:
		return nil, fmt.Errorf("unknown device scheme: %q", scheme)
	}
}
