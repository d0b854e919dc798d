package echo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-playground/core/status"
)

const (
	DefaultURL       = "wss://echo.websocket.events"
	closeGracePeriod = time.Second
)

var ErrNotConnected = errors.New("websocket not connected")

type Client struct {
	url    string
	dialer *websocket.Dialer
	header http.Header

	connMu sync.Mutex
	conn   *websocket.Conn
	status status.Status

	onStatus  func(status.Update)
	onMessage func(string)
}

type ClientOption func(*Client)

func WithOnStatus(callback func(status.Update)) ClientOption {
	return func(c *Client) {
		if callback != nil {
			c.onStatus = callback
		}
	}
}

// WithOnMessage sets the callback receiving every text frame verbatim.
func WithOnMessage(callback func(message string)) ClientOption {
	return func(c *Client) {
		if callback != nil {
			c.onMessage = callback
		}
	}
}

func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		c.header = header.Clone()
	}
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func NewClient(url string, opts ...ClientOption) *Client {
	if url == "" {
		url = DefaultURL
	}

	c := &Client{
		url:    url,
		dialer: websocket.DefaultDialer,
		status: status.Initializing,

		onStatus:  func(status.Update) {},
		onMessage: func(string) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial creates a client and connects it.
func Dial(ctx context.Context, url string, opts ...ClientOption) (*Client, error) {
	c := NewClient(url, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	if c.conn != nil {
		c.connMu.Unlock()
		return nil
	}
	c.connMu.Unlock()
	c.setStatus(status.Initializing, "")

	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		err = fmt.Errorf("failed to open websocket connection: %w", err)
		c.setStatus(status.Error, err.Error())
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	logger.Info("websocket connected", "url", c.url)
	c.setStatus(status.Connected, "")

	go c.readMessages(conn)
	return nil
}

func (c *Client) Send(text string) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}

func (c *Client) Status() status.Status {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.status
}

// Close closes the connection. Closing a client that is not connected is a
// no-op.
func (c *Client) Close() error {
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod),
	)
	if closeErr := conn.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	c.setStatus(status.Closed, "")
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("failed to close websocket: %w", err)
	}
	return nil
}

func (c *Client) readMessages(conn *websocket.Conn) {
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			c.connMu.Lock()
			closedByUs := c.conn != conn
			if !closedByUs {
				c.conn = nil
			}
			c.connMu.Unlock()
			if closedByUs {
				return
			}

			conn.Close()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.setStatus(status.Closed, "")
			} else {
				logger.Warn("failed to read websocket message", "error", err)
				c.setStatus(status.Error, err.Error())
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			c.onMessage(string(msg))
		case websocket.BinaryMessage:
			logger.Debug("ignoring binary websocket message", "size", len(msg))
		}
	}
}

func (c *Client) setStatus(s status.Status, message string) {
	c.connMu.Lock()
	if c.status == s && s != status.Error {
		c.connMu.Unlock()
		return
	}
	c.status = s
	c.connMu.Unlock()

	c.onStatus(status.Update{Status: s, Message: message})
}
