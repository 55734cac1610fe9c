package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/chathub/internal/compute"
	"github.com/vovakirdan/chathub/internal/core"
	"github.com/vovakirdan/chathub/internal/proto"
)

// sessionConn serves one session's requests over a WebSocket and forwards
// its subscribed streams back to the client.
type sessionConn struct {
	conn    *websocket.Conn
	svc     *core.Service
	worker  *compute.Worker
	limiter *rateLimiter
	out     chan proto.Outbound
	log     zerolog.Logger

	mu      sync.Mutex
	streams map[string]context.CancelFunc
}

type sessionOptions struct {
	outboundBuffer   int
	messageRateLimit int
}

func newSessionConn(conn *websocket.Conn, svc *core.Service, worker *compute.Worker, opts sessionOptions, logger zerolog.Logger) *sessionConn {
	if opts.outboundBuffer <= 0 {
		opts.outboundBuffer = 1
	}
	return &sessionConn{
		conn:    conn,
		svc:     svc,
		worker:  worker,
		limiter: newRateLimiter(opts.messageRateLimit, time.Minute),
		out:     make(chan proto.Outbound, opts.outboundBuffer),
		log:     logger,
		streams: make(map[string]context.CancelFunc),
	}
}

// run blocks until the connection fails in either direction. Every goroutine
// it started has exited when it returns.
func (c *sessionConn) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	c.limiter.startReset(ctx.Done())

	g.Go(func() error { return c.writeLoop(ctx) })
	g.Go(func() error { return c.readLoop(ctx, g) })

	return g.Wait()
}

func (c *sessionConn) readLoop(ctx context.Context, g *errgroup.Group) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read inbound: %w", err)
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			c.log.Debug().Err(err).Msg("malformed inbound frame")
			if err := c.send(ctx, errorFrame("", proto.ErrCodeBadRequest, "malformed frame")); err != nil {
				return err
			}
			continue
		}

		if err := c.dispatch(ctx, g, inbound); err != nil {
			return err
		}
	}
}

func (c *sessionConn) writeLoop(ctx context.Context) error {
	for {
		select {
		case frame := <-c.out:
			if err := wsjson.Write(ctx, c.conn, frame); err != nil {
				return fmt.Errorf("write outbound: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// send queues a frame for the write loop.
func (c *sessionConn) send(ctx context.Context, frame proto.Outbound) error {
	select {
	case c.out <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch handles one request. A returned error ends the session; protocol
// mistakes are answered with an error frame instead.
func (c *sessionConn) dispatch(ctx context.Context, g *errgroup.Group, in proto.Inbound) error {
	if in.ID == "" {
		return c.send(ctx, errorFrame("", proto.ErrCodeBadRequest, "id is required"))
	}

	c.log.Debug().Str("method", in.Type).Str("request_id", in.ID).Msg("inbound request")

	switch in.Type {
	case proto.InboundTypeUserName:
		return c.send(ctx, resultFrame(in.ID, proto.UserNameResult{Name: c.svc.UserName()}))

	case proto.InboundTypeUserNames:
		return c.send(ctx, resultFrame(in.ID, proto.UserNamesResult{Names: c.svc.UserNames()}))

	case proto.InboundTypeMessage:
		msg, err := decodeMessage(in)
		if err != nil {
			return c.send(ctx, errorFrame(in.ID, proto.ErrCodeBadRequest, err.Error()))
		}
		if !c.limiter.allow() {
			c.log.Warn().Msg("message rate limit exceeded")
			return c.send(ctx, errorFrame(in.ID, proto.ErrCodeRateLimited, "too many messages"))
		}
		c.svc.Message(msg.Text)
		return c.send(ctx, resultFrame(in.ID, nil))

	case proto.InboundTypeMessages:
		return subscribe(ctx, g, c, in.ID, c.svc.Messages, messageFrame)

	case proto.InboundTypeConnected:
		return subscribe(ctx, g, c, in.ID, c.svc.Connected, func(id, name string) proto.Outbound {
			return userFrame(id, proto.EventConnected, name)
		})

	case proto.InboundTypeDisconnected:
		return subscribe(ctx, g, c, in.ID, c.svc.Disconnected, func(id, name string) proto.Outbound {
			return userFrame(id, proto.EventDisconnected, name)
		})

	case proto.InboundTypeCancel:
		if !c.cancelStream(in.ID) {
			return c.send(ctx, errorFrame(in.ID, proto.ErrCodeUnknownStream, "no such stream"))
		}
		return c.send(ctx, endFrame(in.ID))

	case proto.InboundTypeFibonacci, proto.InboundTypeFactorial:
		op, _ := computeOp(in.Type)
		num, err := decodeNumber(in)
		if err != nil {
			return c.send(ctx, errorFrame(in.ID, proto.ErrCodeBadRequest, err.Error()))
		}
		g.Go(func() error {
			v, err := c.worker.Run(ctx, op, num.N)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.log.Debug().Err(err).Str("method", in.Type).Msg("compute failed")
				return c.sendQuiet(ctx, errorFrame(in.ID, proto.ErrCodeComputeFailed, err.Error()))
			}
			return c.sendQuiet(ctx, computeFrame(in.ID, num.N, v))
		})
		return nil

	default:
		return c.send(ctx, errorFrame(in.ID, proto.ErrCodeUnknownType, "unknown request type "+in.Type))
	}
}

// sendQuiet is send for helper goroutines: a closed session is not their error to report.
func (c *sessionConn) sendQuiet(ctx context.Context, frame proto.Outbound) error {
	_ = c.send(ctx, frame)
	return nil
}

// reserveStream claims id for a new stream and returns the stream's context.
func (c *sessionConn) reserveStream(ctx context.Context, id string) (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.streams[id]; dup {
		return nil, false
	}
	sctx, cancel := context.WithCancel(ctx)
	c.streams[id] = cancel
	return sctx, true
}

func (c *sessionConn) cancelStream(id string) bool {
	c.mu.Lock()
	cancel, ok := c.streams[id]
	delete(c.streams, id)
	c.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

func (c *sessionConn) dropStream(id string) {
	c.mu.Lock()
	if cancel, ok := c.streams[id]; ok {
		cancel()
		delete(c.streams, id)
	}
	c.mu.Unlock()
}

// subscribe opens a stream under id, acknowledges it and starts forwarding.
// The subscription exists before the acknowledgement is queued, so the client
// sees everything published after it receives the result.
func subscribe[T any](ctx context.Context, g *errgroup.Group, c *sessionConn, id string, open func() core.Stream[T], toFrame func(string, T) proto.Outbound) error {
	sctx, ok := c.reserveStream(ctx, id)
	if !ok {
		return c.send(ctx, errorFrame(id, proto.ErrCodeDuplicateStream, "stream id already in use"))
	}

	stream := open()
	if err := c.send(ctx, resultFrame(id, nil)); err != nil {
		stream.Close()
		c.dropStream(id)
		return err
	}

	g.Go(func() error {
		defer c.dropStream(id)
		return forward(sctx, c, id, stream, toFrame)
	})
	return nil
}

// forward relays a stream to the client until the stream ends or ctx is
// cancelled. It never fails the session: write errors surface in the write loop.
func forward[T any](ctx context.Context, c *sessionConn, id string, stream core.Stream[T], toFrame func(string, T) proto.Outbound) error {
	defer stream.Close()

	for {
		v, err := stream.Recv(ctx)

		var lagged *core.LaggedError
		switch {
		case err == nil:
			if c.send(ctx, toFrame(id, v)) != nil {
				return nil
			}
		case errors.As(err, &lagged):
			c.log.Debug().Str("stream_id", id).Uint64("skipped", lagged.Skipped).Msg("stream lagged")
			if c.send(ctx, laggedFrame(id, lagged.Skipped)) != nil {
				return nil
			}
		case errors.Is(err, core.ErrClosed):
			return c.sendQuiet(ctx, endFrame(id))
		default:
			return nil
		}
	}
}
