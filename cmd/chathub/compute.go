package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chathub/internal/client"
	"github.com/vovakirdan/chathub/internal/compute"
)

var computeURL string

// computeCmd evaluates a fibonacci or factorial number, locally or on a hub.
var computeCmd = &cobra.Command{
	Use:       "compute {fibonacci|factorial} N",
	Short:     "Compute fibonacci(N) or N!",
	Long:      "Compute fibonacci(N) or N! locally, or on a running hub when --url is set.",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(compute.OpFibonacci), string(compute.OpFactorial)},
	RunE: func(cmd *cobra.Command, args []string) error {
		op := compute.Op(args[0])
		if op != compute.OpFibonacci && op != compute.OpFactorial {
			return fmt.Errorf("unknown operation %q", args[0])
		}
		n, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("%s is not a non-negative integer", args[1])
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		v, err := computeValue(ctx, op, n)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatResult(op, n, v))
		return nil
	},
}

func computeValue(ctx context.Context, op compute.Op, n uint64) (*big.Int, error) {
	if computeURL == "" {
		return compute.NewWorker(1).Run(ctx, op, n)
	}

	c, err := client.Dial(ctx, computeURL)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if op == compute.OpFibonacci {
		return c.Fibonacci(ctx, n)
	}
	return c.Factorial(ctx, n)
}

func init() {
	rootCmd.AddCommand(computeCmd)
	computeCmd.Flags().StringVarP(&computeURL, "url", "u", "", "hub WebSocket URL; computes locally when empty")
}
