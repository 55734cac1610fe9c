// Package client is a Go consumer of the chat hub's WebSocket protocol.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/vovakirdan/chathub/internal/proto"
)

// ErrClosed is returned once the connection to the hub is gone.
var ErrClosed = errors.New("connection closed")

const (
	readLimit     = 16 << 20
	streamBacklog = 64
)

// Client is one session on a chat hub.
type Client struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[string]chan proto.Frame
	streams map[string]chan proto.Frame

	done      chan struct{}
	err       error
	closeOnce sync.Once
}

// Dial connects to the hub's WebSocket endpoint, e.g. ws://localhost:8080/ws.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	conn.SetReadLimit(readLimit)

	c := &Client{
		conn:    conn,
		pending: make(map[string]chan proto.Frame),
		streams: make(map[string]chan proto.Frame),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection ended, once Done is closed.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

// Close ends the session.
func (c *Client) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "bye")
	c.shutdown(ErrClosed)
	return err
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
	})
}

func (c *Client) readLoop() {
	ctx := context.Background()
	for {
		var frame proto.Frame
		if err := wsjson.Read(ctx, c.conn, &frame); err != nil {
			c.shutdown(fmt.Errorf("%w: %w", ErrClosed, err))
			return
		}
		c.route(frame)
	}
}

func (c *Client) route(frame proto.Frame) {
	c.mu.Lock()
	if ch, ok := c.pending[frame.ID]; ok {
		delete(c.pending, frame.ID)
		c.mu.Unlock()
		ch <- frame
		return
	}
	ch, ok := c.streams[frame.ID]
	if ok && frame.Type == proto.OutboundTypeEnd {
		delete(c.streams, frame.ID)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	select {
	case ch <- frame:
	case <-c.done:
	}
}

func (c *Client) write(ctx context.Context, id, typ string, data any) error {
	inbound := proto.Inbound{ID: id, Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		inbound.Data = raw
	}
	if err := wsjson.Write(ctx, c.conn, inbound); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

// call sends a request and waits for its result frame.
func (c *Client) call(ctx context.Context, id, typ string, data any) (proto.Frame, error) {
	reply := make(chan proto.Frame, 1)
	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	if err := c.write(ctx, id, typ, data); err != nil {
		forget()
		return proto.Frame{}, err
	}

	select {
	case frame := <-reply:
		if frame.Type == proto.OutboundTypeError {
			if frame.Error == nil {
				return frame, fmt.Errorf("%s failed", typ)
			}
			return frame, frame.Error
		}
		return frame, nil
	case <-c.done:
		forget()
		return proto.Frame{}, c.err
	case <-ctx.Done():
		forget()
		return proto.Frame{}, ctx.Err()
	}
}

// UserName returns the name the hub assigned to this session.
func (c *Client) UserName(ctx context.Context) (string, error) {
	frame, err := c.call(ctx, uuid.NewString(), proto.InboundTypeUserName, nil)
	if err != nil {
		return "", err
	}
	var res proto.UserNameResult
	if err := json.Unmarshal(frame.Data, &res); err != nil {
		return "", fmt.Errorf("decode user_name: %w", err)
	}
	return res.Name, nil
}

// UserNames returns the names of the other connected users.
func (c *Client) UserNames(ctx context.Context) ([]string, error) {
	frame, err := c.call(ctx, uuid.NewString(), proto.InboundTypeUserNames, nil)
	if err != nil {
		return nil, err
	}
	var res proto.UserNamesResult
	if err := json.Unmarshal(frame.Data, &res); err != nil {
		return nil, fmt.Errorf("decode user_names: %w", err)
	}
	return res.Names, nil
}

// Message broadcasts text to everyone, this session included.
func (c *Client) Message(ctx context.Context, text string) error {
	_, err := c.call(ctx, uuid.NewString(), proto.InboundTypeMessage, proto.MessageData{Text: text})
	return err
}

// Fibonacci asks the hub's worker for F(n).
func (c *Client) Fibonacci(ctx context.Context, n uint64) (*big.Int, error) {
	return c.compute(ctx, proto.InboundTypeFibonacci, n)
}

// Factorial asks the hub's worker for n!.
func (c *Client) Factorial(ctx context.Context, n uint64) (*big.Int, error) {
	return c.compute(ctx, proto.InboundTypeFactorial, n)
}

func (c *Client) compute(ctx context.Context, typ string, n uint64) (*big.Int, error) {
	frame, err := c.call(ctx, uuid.NewString(), typ, proto.NumberData{N: n})
	if err != nil {
		return nil, err
	}
	var res proto.ComputeResult
	if err := json.Unmarshal(frame.Data, &res); err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	v, ok := new(big.Int).SetString(res.Value, 10)
	if !ok {
		return nil, fmt.Errorf("decode %s: invalid integer %q", typ, res.Value)
	}
	return v, nil
}

// Messages subscribes to chat messages.
func (c *Client) Messages(ctx context.Context) (*Stream[proto.MessageEvent], error) {
	return subscribe(ctx, c, proto.InboundTypeMessages, func(raw json.RawMessage) (proto.MessageEvent, error) {
		var ev proto.MessageEvent
		err := json.Unmarshal(raw, &ev)
		return ev, err
	})
}

// Connected subscribes to names of users joining.
func (c *Client) Connected(ctx context.Context) (*Stream[string], error) {
	return subscribe(ctx, c, proto.InboundTypeConnected, decodeUser)
}

// Disconnected subscribes to names of users leaving.
func (c *Client) Disconnected(ctx context.Context) (*Stream[string], error) {
	return subscribe(ctx, c, proto.InboundTypeDisconnected, decodeUser)
}

func decodeUser(raw json.RawMessage) (string, error) {
	var ev proto.EventUser
	err := json.Unmarshal(raw, &ev)
	return ev.User, err
}
