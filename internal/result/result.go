// Package result provides Result and Option types for divban: a Result
// carries a fallible operation's value or error (stack.Compose returns one;
// most other core functions use plain (T, error) returns), and an Option
// carries a partial lookup.
package result

import "context"

// Result is the outcome of a fallible operation: exactly one of a value or
// an error, never both, never neither.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Err wraps a failure.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// IsOk reports whether the Result holds a value.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports whether the Result holds an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Unwrap returns the value and error as a conventional Go pair, for
// interop at the edges of the core.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.err
}

// UnwrapOr returns the value, or def if the Result is an error.
func (r Result[T]) UnwrapOr(def T) T {
	if r.ok {
		return r.value
	}
	return def
}

// Error returns the wrapped error, or nil if the Result is Ok.
func (r Result[T]) Error() error { return r.err }

// Map transforms the contained value, leaving an error untouched.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.IsErr() {
		return Err[U](r.err)
	}
	return Ok(f(r.value))
}

// MapErr transforms the contained error, leaving a value untouched.
func MapErr[T any](r Result[T], f func(error) error) Result[T] {
	if r.IsErr() {
		return Err[T](f(r.err))
	}
	return r
}

// FlatMap (a.k.a. and_then) chains a fallible continuation.
func FlatMap[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.IsErr() {
		return Err[U](r.err)
	}
	return f(r.value)
}

// OrElse supplies a fallback Result when r is an error.
func OrElse[T any](r Result[T], f func(error) Result[T]) Result[T] {
	if r.IsErr() {
		return f(r.err)
	}
	return r
}

// Collect (a.k.a. sequence) turns a slice of Results into a Result of a
// slice, short-circuiting on the first error.
func Collect[T any](rs []Result[T]) Result[[]T] {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		if r.IsErr() {
			return Err[[]T](r.err)
		}
		out = append(out, r.value)
	}
	return Ok(out)
}

// Combine2 joins two Results into a tuple, returning the first error.
func Combine2[A, B any](a Result[A], b Result[B]) Result[struct {
	A A
	B B
}] {
	type pair = struct {
		A A
		B B
	}
	if a.IsErr() {
		return Err[pair](a.err)
	}
	if b.IsErr() {
		return Err[pair](b.err)
	}
	return Ok(pair{A: a.value, B: b.value})
}

// Combine3 joins three Results into a tuple, returning the first error.
func Combine3[A, B, C any](a Result[A], b Result[B], c Result[C]) Result[struct {
	A A
	B B
	C C
}] {
	type triple = struct {
		A A
		B B
		C C
	}
	if a.IsErr() {
		return Err[triple](a.err)
	}
	if b.IsErr() {
		return Err[triple](b.err)
	}
	if c.IsErr() {
		return Err[triple](c.err)
	}
	return Ok(triple{A: a.value, B: b.value, C: c.value})
}

// Parallel awaits every thunk, returning the first error encountered (by
// slice order) if any failed, otherwise every value in order.
func Parallel[T any](ctx context.Context, thunks ...func(context.Context) Result[T]) Result[[]T] {
	type slot struct {
		v   T
		err error
	}
	slots := make([]slot, len(thunks))
	done := make(chan int, len(thunks))
	for i, th := range thunks {
		i, th := i, th
		go func() {
			v, err := th(ctx).Unwrap()
			slots[i] = slot{v: v, err: err}
			done <- i
		}()
	}
	for range thunks {
		<-done
	}
	out := make([]T, len(thunks))
	for i, s := range slots {
		if s.err != nil {
			return Err[[]T](s.err)
		}
		out[i] = s.v
	}
	return Ok(out)
}

// TryCatchSync wraps a function that may panic with a recovered-error
// boundary, for calling into libraries that signal failure via panic.
func TryCatchSync[T any](f func() T) (result Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = &PanicError{Recovered: r}
			}
			result = Err[T](err)
		}
	}()
	return Ok(f())
}

// TryCatchAsync is the context-aware counterpart of TryCatchSync.
func TryCatchAsync[T any](ctx context.Context, f func(context.Context) T) (result Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = &PanicError{Recovered: r}
			}
			result = Err[T](err)
		}
	}()
	return Ok(f(ctx))
}

// PanicError wraps a non-error panic value recovered at a tryCatch boundary.
type PanicError struct {
	Recovered any
}

func (e *PanicError) Error() string {
	return "recovered panic: " + errorString(e.Recovered)
}

func errorString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "non-error panic value"
}
