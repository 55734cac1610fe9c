package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/chathub/internal/core"
	"github.com/vovakirdan/chathub/internal/proto"
)

const cancelTimeout = 2 * time.Second

// Stream is a subscription opened on the hub. Recv returns io.EOF once the
// hub ends the stream and a *core.LaggedError when the hub dropped events
// for this subscriber; the stream stays usable after a lag.
type Stream[T any] struct {
	c      *Client
	id     string
	frames chan proto.Frame
	decode func(json.RawMessage) (T, error)
	ended  bool
}

func subscribe[T any](ctx context.Context, c *Client, typ string, decode func(json.RawMessage) (T, error)) (*Stream[T], error) {
	s := &Stream[T]{
		c:      c,
		id:     uuid.NewString(),
		frames: make(chan proto.Frame, streamBacklog),
		decode: decode,
	}

	c.mu.Lock()
	c.streams[s.id] = s.frames
	c.mu.Unlock()

	if _, err := c.call(ctx, s.id, typ, nil); err != nil {
		c.mu.Lock()
		delete(c.streams, s.id)
		c.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// Recv blocks for the next event.
func (s *Stream[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	if s.ended {
		return zero, io.EOF
	}

	select {
	case frame := <-s.frames:
		switch frame.Type {
		case proto.OutboundTypeEvent:
			v, err := s.decode(frame.Data)
			if err != nil {
				return zero, fmt.Errorf("decode %s event: %w", frame.Event, err)
			}
			return v, nil
		case proto.OutboundTypeLagged:
			var lag proto.Lagged
			if err := json.Unmarshal(frame.Data, &lag); err != nil {
				return zero, fmt.Errorf("decode lag: %w", err)
			}
			return zero, &core.LaggedError{Skipped: lag.Skipped}
		case proto.OutboundTypeEnd:
			s.ended = true
			return zero, io.EOF
		case proto.OutboundTypeError:
			if frame.Error != nil {
				return zero, frame.Error
			}
			return zero, fmt.Errorf("stream %s failed", s.id)
		default:
			return zero, fmt.Errorf("unexpected frame type %q", frame.Type)
		}
	case <-s.c.done:
		return zero, s.c.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close cancels the subscription on the hub.
func (s *Stream[T]) Close() error {
	s.c.mu.Lock()
	_, open := s.c.streams[s.id]
	delete(s.c.streams, s.id)
	s.c.mu.Unlock()

	if !open || s.ended {
		return nil
	}
	s.ended = true

	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()
	return s.c.write(ctx, s.id, proto.InboundTypeCancel, nil)
}
