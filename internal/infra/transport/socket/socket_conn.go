package socket

import (
	"fmt"
	"net"
	"time"
)

// Conn is a framed connection carrying CBOR values in both directions.
// Every read and write is bounded by its own deadline.
type Conn struct {
	net.Conn

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxFrameSize int
}

// NewConn wraps a network connection with the timeouts and frame limit of cfg.
func NewConn(conn net.Conn, cfg SocketTransportConfig) *Conn {
	return &Conn{
		Conn:         conn,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxFrameSize: cfg.MaxFrameSize,
	}
}

// Receive reads the next frame and decodes it into v.
func (c *Conn) Receive(v any) error {
	if c.ReadTimeout > 0 {
		if err := c.SetReadDeadline(time.Now().Add(c.ReadTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
	}

	return ReadValue(c.Conn, c.MaxFrameSize, v)
}

// Send encodes v and writes it as one frame.
func (c *Conn) Send(v any) error {
	if c.WriteTimeout > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(c.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	return WriteValue(c.Conn, v)
}
