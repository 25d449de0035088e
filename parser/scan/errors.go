package scan

import (
	"fmt"
	"strings"
)

// Kind classifies a parse failure.
type Kind int

const (
	Generic Kind = iota
	ExpectedEither
	UnbalancedBracket
	TrailingInput
	MissingStart
)

func (k Kind) String() string {
	switch k {
	case Generic:
		return "generic"
	case ExpectedEither:
		return "expected either"
	case UnbalancedBracket:
		return "unbalanced bracket"
	case TrailingInput:
		return "trailing input"
	case MissingStart:
		return "missing start"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the single error type produced while scanning. Only the fields
// relevant to Kind are set.
type Error struct {
	Kind    Kind
	Message string

	// Expected holds the alternatives of an exhausted disjunction.
	Expected []string
	// Bracket is the opening bracket that had no match.
	Bracket byte
	// Remaining is the unparsed input, for trailing input errors.
	Remaining string
}

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrGeneric           = &Error{Kind: Generic}
	ErrExpectedEither    = &Error{Kind: ExpectedEither}
	ErrUnbalancedBracket = &Error{Kind: UnbalancedBracket}
	ErrTrailingInput     = &Error{Kind: TrailingInput}
	ErrMissingStart      = &Error{Kind: MissingStart}
)

// Errorf builds a Generic error.
func Errorf(format string, args ...any) *Error {
	return &Error{Kind: Generic, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch e.Kind {
	case ExpectedEither:
		quoted := make([]string, len(e.Expected))
		for i, s := range e.Expected {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		return fmt.Sprintf("expected either %s", strings.Join(quoted, " or "))
	case UnbalancedBracket:
		return fmt.Sprintf("unbalanced bracket %q", e.Bracket)
	case TrailingInput:
		return fmt.Sprintf("unexpected trailing input %q", e.Remaining)
	case MissingStart:
		if e.Message != "" {
			return "missing start line: " + e.Message
		}
		return "missing start line"
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
