// Package compute holds the numeric jobs clients may offload: Fibonacci
// numbers and factorials on arbitrary-precision integers.
package compute

import (
	"fmt"
	"math/big"
)

// Op names a computation.
type Op string

const (
	OpFibonacci Op = "fibonacci"
	OpFactorial Op = "factorial"
)

// Fibonacci returns F(n) with F(0) = 0 and F(1) = 1.
func Fibonacci(n uint64) *big.Int {
	a, b := big.NewInt(0), big.NewInt(1)
	for i := uint64(0); i < n; i++ {
		a.Add(a, b)
		a, b = b, a
	}
	return a
}

// Factorial returns n!, with 0! = 1.
func Factorial(n uint64) *big.Int {
	if n < 2 {
		return big.NewInt(1)
	}
	return new(big.Int).MulRange(1, int64(n))
}

// Eval runs op for n.
func Eval(op Op, n uint64) (*big.Int, error) {
	switch op {
	case OpFibonacci:
		return Fibonacci(n), nil
	case OpFactorial:
		return Factorial(n), nil
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}
