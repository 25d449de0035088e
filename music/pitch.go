package music

import (
	"encoding/json"
	"fmt"
	"math"
)

// A Pitch is an octave and a semitone offset from A within that octave.
// Octave 4 runs from :4a (MIDI 57) up to :4g# (MIDI 68), so :4c is middle C.
type Pitch struct {
	Octave   int `msgpack:"octave"`
	Semitone int `msgpack:"semitone"`
}

// semitoneNames maps a semitone offset from A to its canonical note name.
var semitoneNames = [12]string{"a", "a#", "b", "c", "c#", "d", "d#", "e", "f", "f#", "g", "g#"}

// NoteOffsets maps note letters to their semitone offset from A.
var NoteOffsets = map[byte]int{
	'a': 0,
	'b': 2,
	'c': 3,
	'd': 5,
	'e': 7,
	'f': 8,
	'g': 10,
}

// PitchFromMIDI is the inverse of Pitch.MIDI.
func PitchFromMIDI(note int) Pitch {
	return pitchFromAbsolute(note - 9)
}

func pitchFromAbsolute(n int) Pitch {
	octave := n / 12
	semitone := n % 12
	if semitone < 0 {
		semitone += 12
		octave--
	}
	return Pitch{Octave: octave, Semitone: semitone}
}

func (p Pitch) absolute() int {
	return p.Octave*12 + p.Semitone
}

// MIDI returns the MIDI note number.
func (p Pitch) MIDI() int {
	return p.absolute() + 9
}

// Frequency returns the frequency in Hz with A4 (MIDI 69) at 440 Hz.
func (p Pitch) Frequency() float64 {
	return 440 * math.Pow(2, float64(p.MIDI()-69)/12)
}

// Transpose shifts the pitch by semitones, carrying into the octave.
func (p Pitch) Transpose(semitones int) Pitch {
	return pitchFromAbsolute(p.absolute() + semitones)
}

// Name returns the note name without octave, e.g. "c#".
func (p Pitch) Name() string {
	return semitoneNames[((p.Semitone%12)+12)%12]
}

func (p Pitch) String() string {
	return fmt.Sprintf("%d%s", p.Octave, p.Name())
}

// MarshalJSON encodes the pitch as [octave, semitone].
func (p Pitch) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.Octave, p.Semitone})
}

func (p *Pitch) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("pitch: %w", err)
	}
	if pair[1] < 0 || pair[1] > 11 {
		return fmt.Errorf("pitch semitone %d out of range 0..11", pair[1])
	}
	*p = Pitch{Octave: pair[0], Semitone: pair[1]}
	return nil
}

// Volume is a loudness between 0 and 100 inclusive.
type Volume int

const (
	MaxVolume     Volume = 100
	DefaultVolume Volume = 50
)

func (v Volume) Valid() bool {
	return v >= 0 && v <= MaxVolume
}

// Velocity maps the volume onto a MIDI velocity, round(volume/100 * 127).
func (v Volume) Velocity() uint8 {
	return uint8(math.Round(float64(v) / float64(MaxVolume) * 127))
}
