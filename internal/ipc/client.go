package ipc

import (
	"bufio"
	"fmt"
	"net"
	"time"
)

// Client dials the daemon socket for a single request/response exchange.
// Timeouts are short by design: a hung daemon must not stall a hook
// invocation, the caller falls back to direct file access instead.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    3 * time.Second,
	}
}

func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Send performs one request/response exchange.
func (c *Client) Send(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon at %s: %w", c.socketPath, err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if err := WriteLine(conn, req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := ReadLine(bufio.NewReader(conn), &resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &resp, nil
}

// SendCommand marshals params and performs one exchange.
func (c *Client) SendCommand(cmd string, params any) (*Response, error) {
	req, err := NewRequest(cmd, params)
	if err != nil {
		return nil, err
	}
	return c.Send(req)
}

// Ping reports whether a daemon answers on the socket.
func (c *Client) Ping() bool {
	resp, err := c.SendCommand("ping", nil)
	return err == nil && resp.Status == StatusOK
}
