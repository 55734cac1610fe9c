package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/chathub/internal/client"
	"github.com/vovakirdan/chathub/internal/compute"
	"github.com/vovakirdan/chathub/internal/core"
	"github.com/vovakirdan/chathub/internal/proto"
)

var chatURL string

// chatCmd is the interactive terminal client.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join a chat hub from the terminal",
	Long: `Join a chat hub from the terminal.

Lines typed are broadcast to everyone. 'fibonacci(n)' and 'n!' are computed
locally instead of being sent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Hello.")
		fmt.Fprintln(out, "Connecting to server...")

		c, err := client.Dial(ctx, chatURL)
		if err != nil {
			return err
		}
		defer c.Close()
		fmt.Fprintln(out, "Connected.")

		return runChat(ctx, c, compute.NewWorker(0), cmd.InOrStdin(), out)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatURL, "url", "u", "ws://localhost:8080/ws", "hub WebSocket URL")
}

var (
	fibonacciPattern = regexp.MustCompile(`^fibonacci\((0|[1-9][0-9]*)\)$`)
	factorialPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)!$`)
)

type computeRequest struct {
	op compute.Op
	n  uint64
}

// parseLine recognizes compute commands. ok is false for plain chat text.
func parseLine(line string) (req computeRequest, ok bool, err error) {
	var m []string
	if m = fibonacciPattern.FindStringSubmatch(line); m != nil {
		req.op = compute.OpFibonacci
	} else if m = factorialPattern.FindStringSubmatch(line); m != nil {
		req.op = compute.OpFactorial
	} else {
		return req, false, nil
	}

	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return req, true, fmt.Errorf("%s is not a non-negative integer", m[1])
	}
	req.n = n
	return req, true, nil
}

func formatResult(op compute.Op, n uint64, v *big.Int) string {
	if op == compute.OpFactorial {
		return fmt.Sprintf("%d! = %s", n, v)
	}
	return fmt.Sprintf("fibonacci(%d) = %s", n, v)
}

func formatPending(req computeRequest) string {
	if req.op == compute.OpFactorial {
		return fmt.Sprintf("Calculating %d!...", req.n)
	}
	return fmt.Sprintf("Calculating fibonacci(%d)...", req.n)
}

// printer serializes output from the stream and compute goroutines.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format+"\n", args...)
}

// runChat drives one chat session until input ends, the hub goes away or ctx
// is cancelled.
func runChat(ctx context.Context, c *client.Client, worker *compute.Worker, in io.Reader, out io.Writer) error {
	p := &printer{w: out}

	name, err := c.UserName(ctx)
	if err != nil {
		return fmt.Errorf("user name: %w", err)
	}
	others, err := c.UserNames(ctx)
	if err != nil {
		return fmt.Errorf("user names: %w", err)
	}

	messages, err := c.Messages(ctx)
	if err != nil {
		return fmt.Errorf("subscribe messages: %w", err)
	}
	defer messages.Close()
	connected, err := c.Connected(ctx)
	if err != nil {
		return fmt.Errorf("subscribe connected: %w", err)
	}
	defer connected.Close()
	disconnected, err := c.Disconnected(ctx)
	if err != nil {
		return fmt.Errorf("subscribe disconnected: %w", err)
	}
	defer disconnected.Close()

	p.printf("Your name: <%s>.", name)
	if len(others) > 0 {
		quoted := make([]string, 0, len(others))
		for _, other := range others {
			quoted = append(quoted, "<"+other+">")
		}
		p.printf("Other connected users: %s.", strings.Join(quoted, ", "))
	}
	p.printf("Type 'fibonacci(n)' to calculate n-th element of Fibonacci sequence.")
	p.printf("Type 'n!' to calculate factorial on n.")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		err := follow(ctx, p, messages, func(msg proto.MessageEvent) string {
			return "<" + msg.User + "> " + msg.Text
		})
		if err == nil {
			p.printf("Server disconnected.")
			p.printf("Exiting...")
		}
		return nil
	})
	g.Go(func() error {
		_ = follow(ctx, p, connected, func(user string) string {
			return "New user connected: <" + user + ">."
		})
		return nil
	})
	g.Go(func() error {
		_ = follow(ctx, p, disconnected, func(user string) string {
			return "User <" + user + "> left."
		})
		return nil
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					p.printf("Exiting...")
					cancel()
					return nil
				}
				if err := handleLine(ctx, g, c, worker, p, strings.TrimSpace(line)); err != nil {
					return err
				}
			}
		}
	})

	return g.Wait()
}

func handleLine(ctx context.Context, g *errgroup.Group, c *client.Client, worker *compute.Worker, p *printer, line string) error {
	req, isCompute, err := parseLine(line)
	switch {
	case err != nil:
		p.printf("Error: %v.", err)
		return nil
	case !isCompute:
		if line == "" {
			return nil
		}
		if err := c.Message(ctx, line); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		return nil
	}

	g.Go(func() error {
		p.printf("%s", formatPending(req))
		v, err := worker.Run(ctx, req.op, req.n)
		if err != nil {
			if ctx.Err() == nil {
				p.printf("Error: %v.", err)
			}
			return nil
		}
		p.printf("%s", formatResult(req.op, req.n, v))
		return nil
	})
	return nil
}

// follow prints every event of stream until it ends. It returns nil when the
// hub ended the stream and the terminating error otherwise.
func follow[T any](ctx context.Context, p *printer, stream *client.Stream[T], render func(T) string) error {
	for {
		v, err := stream.Recv(ctx)
		var lagged *core.LaggedError
		switch {
		case err == nil:
			p.printf("%s", render(v))
		case errors.As(err, &lagged):
			p.printf("(missed %d events)", lagged.Skipped)
		case errors.Is(err, io.EOF), errors.Is(err, client.ErrClosed):
			return nil
		default:
			return err
		}
	}
}
