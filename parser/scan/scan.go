// Package scan contains small generic scanner combinators. A scanner reads a
// value from the front of its input and hands back whatever it did not read.
package scan

import (
	"strings"
	"unicode"
)

// A Scanner reads a T from the front of input and returns the rest.
type Scanner[T any] interface {
	Scan(input string) (T, string, error)
}

// Func adapts a plain function to a Scanner.
type Func[T any] func(input string) (T, string, error)

func (f Func[T]) Scan(input string) (T, string, error) {
	return f(input)
}

// Pair holds the results of Concat.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Concat runs a then b on what a left over.
func Concat[A, B any](a Scanner[A], b Scanner[B]) Scanner[Pair[A, B]] {
	return Func[Pair[A, B]](func(input string) (Pair[A, B], string, error) {
		first, rest, err := a.Scan(input)
		if err != nil {
			return Pair[A, B]{}, input, err
		}
		second, rest, err := b.Scan(rest)
		if err != nil {
			return Pair[A, B]{}, input, err
		}
		return Pair[A, B]{First: first, Second: second}, rest, nil
	})
}

// A Branch is one alternative of Disjoint. The prefix is stripped before the
// scanner runs. An empty prefix marks the fallback branch.
type Branch[T any] struct {
	Prefix  string
	Scanner Scanner[T]
}

// Prefixed is shorthand for a Branch.
func Prefixed[T any](prefix string, s Scanner[T]) Branch[T] {
	return Branch[T]{Prefix: prefix, Scanner: s}
}

// Disjoint picks the first branch whose prefix starts the input. Without a
// match it runs the fallback branch, if any, on the whole input; otherwise it
// fails with ExpectedEither listing every prefix.
func Disjoint[T any](branches ...Branch[T]) Scanner[T] {
	return Func[T](func(input string) (T, string, error) {
		var fallback Scanner[T]
		for _, b := range branches {
			if b.Prefix == "" {
				if fallback == nil {
					fallback = b.Scanner
				}
				continue
			}
			if rest, ok := strings.CutPrefix(input, b.Prefix); ok {
				return b.Scanner.Scan(rest)
			}
		}
		if fallback != nil {
			return fallback.Scan(input)
		}

		var zero T
		expected := make([]string, 0, len(branches))
		for _, b := range branches {
			expected = append(expected, b.Prefix)
		}
		return zero, input, &Error{Kind: ExpectedEither, Expected: expected}
	})
}

// Kleene runs s zero or more times and stops at the first failure or when s
// stops making progress. It never fails.
func Kleene[T any](s Scanner[T]) Scanner[[]T] {
	return Func[[]T](func(input string) ([]T, string, error) {
		var out []T
		for input != "" {
			v, rest, err := s.Scan(input)
			if err != nil || len(rest) == len(input) {
				break
			}
			out = append(out, v)
			input = rest
		}
		return out, input, nil
	})
}

// Map converts the value produced by s. An error from f fails the scan.
func Map[T, U any](s Scanner[T], f func(T) (U, error)) Scanner[U] {
	return Func[U](func(input string) (U, string, error) {
		var zero U
		v, rest, err := s.Scan(input)
		if err != nil {
			return zero, input, err
		}
		u, err := f(v)
		if err != nil {
			return zero, input, err
		}
		return u, rest, nil
	})
}

// MapInput rewrites the input before s sees it.
func MapInput[T any](s Scanner[T], f func(string) string) Scanner[T] {
	return Func[T](func(input string) (T, string, error) {
		return s.Scan(f(input))
	})
}

// Consume requires s to read all of its input.
func Consume[T any](s Scanner[T]) Scanner[T] {
	return Func[T](func(input string) (T, string, error) {
		v, rest, err := s.Scan(input)
		if err != nil {
			return v, rest, err
		}
		if rest != "" {
			var zero T
			return zero, rest, &Error{Kind: TrailingInput, Remaining: rest}
		}
		return v, "", nil
	})
}

// Trim skips whitespace on both sides of s.
func Trim[T any](s Scanner[T]) Scanner[T] {
	return Func[T](func(input string) (T, string, error) {
		v, rest, err := s.Scan(strings.TrimLeftFunc(input, unicode.IsSpace))
		if err != nil {
			return v, input, err
		}
		return v, strings.TrimLeftFunc(rest, unicode.IsSpace), nil
	})
}

// Literal matches lit exactly.
func Literal(lit string) Scanner[string] {
	return Func[string](func(input string) (string, string, error) {
		if rest, ok := strings.CutPrefix(input, lit); ok {
			return lit, rest, nil
		}
		return "", input, Errorf("expected %q at %q", lit, preview(input))
	})
}

// Space reads any amount of whitespace, including none.
func Space() Scanner[string] {
	return Func[string](func(input string) (string, string, error) {
		rest := strings.TrimLeftFunc(input, unicode.IsSpace)
		return input[:len(input)-len(rest)], rest, nil
	})
}

// Span reads one or more bytes accepted by ok.
func Span(what string, ok func(byte) bool) Scanner[string] {
	return Func[string](func(input string) (string, string, error) {
		i := 0
		for i < len(input) && ok(input[i]) {
			i++
		}
		if i == 0 {
			return "", input, Errorf("expected %s at %q", what, preview(input))
		}
		return input[:i], input[i:], nil
	})
}

// preview shortens input for error messages.
func preview(input string) string {
	const max = 16
	if len(input) > max {
		return input[:max] + "..."
	}
	return input
}
