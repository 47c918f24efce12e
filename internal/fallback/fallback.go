// Package fallback runs an ordered list of strategies until one succeeds.
// Each strategy reports Success, Skip (not applicable here) or Fail.
package fallback

import (
	"context"
	"errors"
	"fmt"
)

type Result int

const (
	Success Result = iota
	Skip
	Fail
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Skip:
		return "skip"
	default:
		return "fail"
	}
}

var (
	// ErrNoStrategy means every strategy skipped.
	ErrNoStrategy = errors.New("no applicable strategy")
	// ErrExhausted means at least one strategy ran and all that ran failed.
	ErrExhausted = errors.New("all strategies failed")
)

type Outcome[T any] struct {
	Result Result
	Value  T
	Err    error
}

func Succeeded[T any](v T) Outcome[T] { return Outcome[T]{Result: Success, Value: v} }
func Skipped[T any]() Outcome[T]      { return Outcome[T]{Result: Skip} }
func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{Result: Fail, Err: err}
}

// From turns a (value, error) pair into a Success or Fail outcome.
func From[T any](v T, err error) Outcome[T] {
	if err != nil {
		return Failed[T](err)
	}
	return Succeeded(v)
}

type Strategy[T any] struct {
	Name string
	Try  func(ctx context.Context) Outcome[T]
}

// Run tries strategies in order and returns the first success together
// with the name of the strategy that produced it.
func Run[T any](ctx context.Context, strategies []Strategy[T]) (T, string, error) {
	var (
		zero T
		errs []error
	)
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		out := s.Try(ctx)
		switch out.Result {
		case Success:
			return out.Value, s.Name, nil
		case Skip:
			continue
		default:
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, out.Err))
		}
	}
	if len(errs) == 0 {
		return zero, "", ErrNoStrategy
	}
	return zero, "", fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}
