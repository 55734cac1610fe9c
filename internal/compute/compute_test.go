package compute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFibonacci(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{2, "1"},
		{10, "55"},
		{93, "12200160415121876738"},
		{100, "354224848179261915075"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fibonacci(tt.n).String(), "fibonacci(%d)", tt.n)
	}
}

func TestFactorial(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "1"},
		{1, "1"},
		{5, "120"},
		{20, "2432902008176640000"},
		{25, "15511210043330985984000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Factorial(tt.n).String(), "%d!", tt.n)
	}
}

func TestEvalUnknownOp(t *testing.T) {
	_, err := Eval("sqrt", 4)
	require.Error(t, err)
}

func TestWorkerRun(t *testing.T) {
	w := NewWorker(2)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := w.Run(ctx, OpFactorial, 10)
	require.NoError(t, err)
	assert.Equal(t, "3628800", v.String())

	v, err = w.Run(ctx, OpFibonacci, 50)
	require.NoError(t, err)
	assert.Equal(t, "12586269025", v.String())
}

func TestWorkerRejectsLargeInput(t *testing.T) {
	w := NewWorker(1)

	_, err := w.Run(context.Background(), OpFibonacci, MaxInput+1)
	require.True(t, errors.Is(err, ErrInputTooLarge), "got %v", err)
}

func TestWorkerAcquireHonorsContext(t *testing.T) {
	w := NewWorker(1)
	require.NoError(t, w.sem.Acquire(context.Background(), 1))
	defer w.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.Run(ctx, OpFactorial, 3)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
