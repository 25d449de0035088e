package scan

// FindMatching returns the index in input of the bracket that closes an
// already consumed opening bracket. Only opening and closing are counted, so other bracket
// kinds may appear unbalanced inside.
func FindMatching(input string, opening, closing byte) (int, error) {
	depth := 1
	for i := 0; i < len(input); i++ {
		switch input[i] {
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return -1, &Error{Kind: UnbalancedBracket, Bracket: opening}
}

var closers = map[byte]byte{
	'{': '}',
	'[': ']',
	'<': '>',
}

// SplitTopLevel splits input on sep wherever sep is not nested inside {}, []
// or <>. It always returns at least one part.
func SplitTopLevel(input string, sep byte) []string {
	var parts []string
	var stack []byte
	start := 0
	for i := 0; i < len(input); i++ {
		c := input[i]
		if want, ok := closers[c]; ok {
			stack = append(stack, want)
			continue
		}
		if len(stack) > 0 && c == stack[len(stack)-1] {
			stack = stack[:len(stack)-1]
			continue
		}
		if c == sep && len(stack) == 0 {
			parts = append(parts, input[start:i])
			start = i + 1
		}
	}
	return append(parts, input[start:])
}
