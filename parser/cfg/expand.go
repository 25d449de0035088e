package cfg

import (
	"errors"
	"fmt"
)

// MaxExpansionDepth bounds how deeply productions may nest while expanding.
// Left-recursive and endlessly recursive grammars hit it.
const MaxExpansionDepth = 1024

var ErrExpansionDepthExceeded = errors.New("grammar expansion exceeded the maximum depth")

// UndefinedNonTerminalError is returned when a non-terminal has no production.
type UndefinedNonTerminalError struct {
	Name NonTerminal
}

func (e *UndefinedNonTerminalError) Error() string {
	return fmt.Sprintf("undefined non-terminal %q", string(e.Name))
}

// Expand replaces every non-terminal, starting from the start symbol, until
// only terminals, splits and transforms are left. Non-terminals nested in
// splits and transforms are expanded in place.
func (g *Grammar) Expand() (MusicString, error) {
	bodies := make(map[NonTerminal]MusicString, len(g.Productions))
	for _, prod := range g.Productions {
		bodies[prod.Name] = prod.Body
	}
	return expand(MusicString{Simple{Symbol: g.Start}}, bodies, 0)
}

func expand(ms MusicString, bodies map[NonTerminal]MusicString, depth int) (MusicString, error) {
	if depth > MaxExpansionDepth {
		return nil, ErrExpansionDepthExceeded
	}
	out := make(MusicString, 0, len(ms))
	for _, prim := range ms {
		switch prim := prim.(type) {
		case Simple:
			name, ok := prim.Symbol.(NonTerminal)
			if !ok {
				out = append(out, prim)
				continue
			}
			body, ok := bodies[name]
			if !ok {
				return nil, &UndefinedNonTerminalError{Name: name}
			}
			sub, err := expand(body, bodies, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)

		case Split:
			split := Split{Branches: make([]MusicString, len(prim.Branches))}
			for i, branch := range prim.Branches {
				sub, err := expand(branch, bodies, depth)
				if err != nil {
					return nil, err
				}
				split.Branches[i] = sub
			}
			out = append(out, split)

		case Transform:
			content, err := expand(prim.Content, bodies, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, Transform{Transform: prim.Transform, Content: content})

		default:
			return nil, fmt.Errorf("unknown primitive %T", prim)
		}
	}
	return out, nil
}
