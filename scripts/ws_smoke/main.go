package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/chathub/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run opens two raw sessions against a live hub: the first subscribes to
// messages, the second sends one, and the first must see it.
func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	listener, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial listener: %w", err)
	}
	defer listener.Close(websocket.StatusNormalClosure, "bye")

	sender, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial sender: %w", err)
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, listener, proto.Inbound{ID: "sub", Type: proto.InboundTypeMessages}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if _, err := await(ctx, listener, "sub", proto.OutboundTypeResult); err != nil {
		return err
	}

	msgPayload, err := json.Marshal(proto.MessageData{Text: *text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := wsjson.Write(ctx, sender, proto.Inbound{ID: "send", Type: proto.InboundTypeMessage, Data: msgPayload}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	frame, err := await(ctx, listener, "sub", proto.OutboundTypeEvent)
	if err != nil {
		return err
	}
	var evt proto.MessageEvent
	if err := json.Unmarshal(frame.Data, &evt); err != nil {
		fmt.Printf("Raw data: %s\n", string(frame.Data))
		return fmt.Errorf("unmarshal message: %w", err)
	}
	fmt.Printf("MessageEvent: user=%s text=%q\n", evt.User, evt.Text)

	if evt.Text != *text {
		return fmt.Errorf("got text %q, want %q", evt.Text, *text)
	}
	return nil
}

// await reads frames until one for id arrives and checks its type.
func await(ctx context.Context, conn *websocket.Conn, id, typ string) (proto.Frame, error) {
	for {
		var frame proto.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return frame, fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s id=%s", frame.Type, frame.ID)
		if frame.Event != "" {
			fmt.Printf(" event=%s", frame.Event)
		}
		fmt.Println()

		if frame.Error != nil {
			fmt.Printf("Error: %s\n", frame.Error)
		}
		if frame.ID != id {
			continue
		}
		if frame.Type != typ {
			return frame, fmt.Errorf("expected %s for %s, got %s", typ, id, frame.Type)
		}
		return frame, nil
	}
}
