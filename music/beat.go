package music

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// A Beat is an exact, always reduced fraction of a whole note. A quarter note is 1/4.
// The zero value is 0.
type Beat struct {
	num int64
	den int64 // 0 only for the zero value.
}

// NewBeat returns the reduced fraction num/den. It panics if den is zero.
func NewBeat(num, den int64) Beat {
	if den == 0 {
		panic("music: beat with zero denominator")
	}
	if num == 0 {
		return Beat{}
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs(num), den)
	return Beat{num: num / g, den: den / g}
}

// Whole returns a beat of n whole notes.
func Whole(n int64) Beat {
	return NewBeat(n, 1)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

// Num returns the numerator of the reduced fraction.
func (b Beat) Num() int64 { return b.num }

// Den returns the denominator of the reduced fraction, which is always positive.
func (b Beat) Den() int64 {
	if b.den == 0 {
		return 1
	}
	return b.den
}

func (b Beat) Add(o Beat) Beat {
	return NewBeat(b.num*o.Den()+o.num*b.Den(), b.Den()*o.Den())
}

func (b Beat) Sub(o Beat) Beat {
	return NewBeat(b.num*o.Den()-o.num*b.Den(), b.Den()*o.Den())
}

func (b Beat) Mul(o Beat) Beat {
	return NewBeat(b.num*o.num, b.Den()*o.Den())
}

// Div returns b/o. It panics if o is zero.
func (b Beat) Div(o Beat) Beat {
	if o.num == 0 {
		panic("music: division by a zero beat")
	}
	return NewBeat(b.num*o.Den(), b.Den()*o.num)
}

// MulInt returns b*n.
func (b Beat) MulInt(n int64) Beat {
	return NewBeat(b.num*n, b.Den())
}

// Recip returns 1/b. It panics if b is zero.
func (b Beat) Recip() Beat {
	return Whole(1).Div(b)
}

// Floor returns the greatest integer less than or equal to b.
func (b Beat) Floor() int64 {
	q := b.num / b.Den()
	if b.num%b.Den() != 0 && b.num < 0 {
		q--
	}
	return q
}

// Cmp returns -1, 0 or +1 depending on whether b is less than, equal to or greater than o.
func (b Beat) Cmp(o Beat) int {
	l, r := b.num*o.Den(), o.num*b.Den()
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

func (b Beat) Sign() int {
	switch {
	case b.num < 0:
		return -1
	case b.num > 0:
		return 1
	}
	return 0
}

func (b Beat) IsZero() bool { return b.num == 0 }

func (b Beat) Float64() float64 {
	return float64(b.num) / float64(b.Den())
}

// String formats the beat as "n/d", which is also its persisted form.
func (b Beat) String() string {
	return fmt.Sprintf("%d/%d", b.num, b.Den())
}

// BeatFromFloat returns the largest multiple of 1/resolution that is not greater than f.
func BeatFromFloat(f float64, resolution int64) Beat {
	return NewBeat(int64(math.Floor(f*float64(resolution))), resolution)
}

// ParseBeat parses "n" or "n/d". The denominator must be positive.
func ParseBeat(s string) (Beat, error) {
	s = strings.TrimSpace(s)
	numStr, denStr, hasDen := strings.Cut(s, "/")
	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return Beat{}, fmt.Errorf("invalid beat numerator %q: %w", numStr, err)
	}
	if !hasDen {
		return Whole(num), nil
	}
	den, err := strconv.ParseInt(denStr, 10, 64)
	if err != nil {
		return Beat{}, fmt.Errorf("invalid beat denominator %q: %w", denStr, err)
	}
	if den <= 0 {
		return Beat{}, fmt.Errorf("beat denominator must be positive, got %d", den)
	}
	return NewBeat(num, den), nil
}

func (b Beat) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Beat) UnmarshalText(text []byte) error {
	parsed, err := ParseBeat(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func (b Beat) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(b.String())
}

func (b *Beat) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}
	return b.UnmarshalText([]byte(s))
}
