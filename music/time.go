package music

import (
	"encoding/json"
	"fmt"
)

// SecondsResolution is the grid, in fractions of a whole note, that wall clock time is floored to
// when it is converted back into musical time.
const SecondsResolution = 1920

// BPM is the tempo in beats per minute, where the beat unit is the time signature's denominator.
type BPM float64

// A TimeSignature defines how many beats of unit 1/Denominator make up one measure.
type TimeSignature struct {
	Numerator   int `msgpack:"numerator"`
	Denominator int `msgpack:"denominator"`
}

// CommonTime is 4/4.
var CommonTime = TimeSignature{Numerator: 4, Denominator: 4}

// Validate checks that both parts are positive and that the denominator is a power of two.
func (ts TimeSignature) Validate() error {
	if ts.Numerator <= 0 {
		return fmt.Errorf("time signature numerator must be positive, got %d", ts.Numerator)
	}
	if ts.Denominator <= 0 || ts.Denominator&(ts.Denominator-1) != 0 {
		return fmt.Errorf("time signature denominator must be a positive power of two, got %d", ts.Denominator)
	}
	return nil
}

// MeasureLength returns the length of one measure in whole notes.
func (ts TimeSignature) MeasureLength() Beat {
	return NewBeat(int64(ts.Numerator), int64(ts.Denominator))
}

// BeatLength returns the length of one beat (1/Denominator) in whole notes.
func (ts TimeSignature) BeatLength() Beat {
	return NewBeat(1, int64(ts.Denominator))
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Numerator, ts.Denominator)
}

// MarshalJSON encodes the signature as [numerator, denominator].
func (ts TimeSignature) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{ts.Numerator, ts.Denominator})
}

func (ts *TimeSignature) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("time signature: %w", err)
	}
	*ts = TimeSignature{Numerator: pair[0], Denominator: pair[1]}
	return nil
}

// MusicTime is a position or length in musical time. A normalized MusicTime has
// 0 <= Beat < one measure of the time signature it was built with, so two
// normalized values of the same signature compare lexicographically.
type MusicTime struct {
	Measures int  `json:"m" msgpack:"m"`
	Beat     Beat `json:"beat" msgpack:"beat"`
}

// Measures returns a MusicTime of n whole measures.
func Measures(n int) MusicTime {
	return MusicTime{Measures: n}
}

// FromWhole converts a length in whole notes into a normalized MusicTime.
func FromWhole(ts TimeSignature, w Beat) MusicTime {
	measure := ts.MeasureLength()
	m := w.Div(measure).Floor()
	return MusicTime{
		Measures: int(m),
		Beat:     w.Sub(measure.MulInt(m)),
	}
}

// Beats returns a normalized MusicTime of n beats of the signature's beat unit.
func Beats(ts TimeSignature, n int64) MusicTime {
	return FromWhole(ts, ts.BeatLength().MulInt(n))
}

// Whole returns the time in whole notes.
func (t MusicTime) Whole(ts TimeSignature) Beat {
	return ts.MeasureLength().MulInt(int64(t.Measures)).Add(t.Beat)
}

// Normalize carries any excess beat into measures.
func (t MusicTime) Normalize(ts TimeSignature) MusicTime {
	return FromWhole(ts, t.Whole(ts))
}

func (t MusicTime) Add(ts TimeSignature, o MusicTime) MusicTime {
	return FromWhole(ts, t.Whole(ts).Add(o.Whole(ts)))
}

func (t MusicTime) Sub(ts TimeSignature, o MusicTime) MusicTime {
	return FromWhole(ts, t.Whole(ts).Sub(o.Whole(ts)))
}

// Scale multiplies the time by factor.
func (t MusicTime) Scale(ts TimeSignature, factor Beat) MusicTime {
	return FromWhole(ts, t.Whole(ts).Mul(factor))
}

// Times returns the time repeated n times.
func (t MusicTime) Times(ts TimeSignature, n int) MusicTime {
	return FromWhole(ts, t.Whole(ts).MulInt(int64(n)))
}

// Mod reduces t modulo period. It panics if period is zero.
func (t MusicTime) Mod(ts TimeSignature, period MusicTime) MusicTime {
	w, p := t.Whole(ts), period.Whole(ts)
	return FromWhole(ts, w.Sub(p.MulInt(w.Div(p).Floor())))
}

// Compare orders two normalized times.
func (t MusicTime) Compare(o MusicTime) int {
	switch {
	case t.Measures < o.Measures:
		return -1
	case t.Measures > o.Measures:
		return 1
	}
	return t.Beat.Cmp(o.Beat)
}

func (t MusicTime) Before(o MusicTime) bool { return t.Compare(o) < 0 }

func (t MusicTime) After(o MusicTime) bool { return t.Compare(o) > 0 }

func (t MusicTime) IsZero() bool { return t.Measures == 0 && t.Beat.IsZero() }

// Seconds converts the time to seconds: (measures*num + beat_in_beats) * 60 / bpm.
func (t MusicTime) Seconds(ts TimeSignature, bpm BPM) float64 {
	beats := t.Whole(ts).MulInt(int64(ts.Denominator))
	return beats.Float64() * 60 / float64(bpm)
}

// FromSeconds converts seconds into musical time, floored to SecondsResolution.
func FromSeconds(ts TimeSignature, bpm BPM, seconds float64) MusicTime {
	beats := seconds * float64(bpm) / 60
	return FromWhole(ts, BeatFromFloat(beats/float64(ts.Denominator), SecondsResolution))
}

// BeatSeconds converts a length in whole notes to seconds.
func BeatSeconds(ts TimeSignature, bpm BPM, b Beat) float64 {
	return b.MulInt(int64(ts.Denominator)).Float64() * 60 / float64(bpm)
}

func (t MusicTime) String() string {
	return fmt.Sprintf("%d:%s", t.Measures, t.Beat)
}
