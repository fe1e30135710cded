// Package result provides a two-variant success/failure container used
// on the data path instead of null values or sentinel returns. A Result
// is either successful and carries a value, or failed and carries an
// error description. Extracting the wrong side is a programming error
// and panics.
package result

import "fmt"

// Unit is the value carried by results that have no payload, such as
// the outcome of a publish.
type Unit struct{}

// Result holds either a value of type T or an error description.
// Exactly one side is populated. The zero value is a failure with an
// empty description; construct through Ok or Fail.
type Result[T any] struct {
	value T
	err   string
	ok    bool
}

// Ok creates a successful Result carrying value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Fail creates a failed Result carrying the error description.
func Fail[T any](problem string) Result[T] {
	return Result[T]{err: problem}
}

// Failf creates a failed Result with a formatted error description.
func Failf[T any](format string, args ...any) Result[T] {
	return Result[T]{err: fmt.Sprintf(format, args...)}
}

// Successful reports whether this Result carries a value.
func (r Result[T]) Successful() bool {
	return r.ok
}

// Value extracts the successful value. Panics if the Result is a
// failure; callers must check Successful first.
func (r Result[T]) Value() T {
	if !r.ok {
		panic(fmt.Sprintf("result: Value called on failure: %s", r.err))
	}
	return r.value
}

// Error extracts the error description. Panics if the Result is
// successful.
func (r Result[T]) Error() string {
	if r.ok {
		panic("result: Error called on success")
	}
	return r.err
}
