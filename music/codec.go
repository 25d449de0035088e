package music

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects a persisted form of a composition.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat accepts "json" or "msgpack".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatMsgpack:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown composition format %q (expected json|msgpack)", s)
}

// Encode writes the composition to w.
func (c *Composition) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(c)
	}
	return fmt.Errorf("unknown composition format %q", format)
}

// Decode reads a composition written by Encode. Events are re-sorted and the
// duration is recovered from the last event end.
func Decode(r io.Reader, format Format) (*Composition, error) {
	var c Composition
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&c)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(&c)
	default:
		return nil, fmt.Errorf("unknown composition format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("error decoding composition: %w", err)
	}
	if err := c.TimeSignature.Validate(); err != nil {
		return nil, err
	}
	for i := range c.Tracks {
		c.Tracks[i].Sort()
	}
	c.Duration = c.End()
	return &c, nil
}
