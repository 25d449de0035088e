// Package cfg parses music strings and the context-free grammars built on top
// of them, and expands a grammar into a single flat music string.
package cfg

import "github.com/QEStudios/MusicTurtles/music"

// DurationUnit says how a written duration is measured.
type DurationUnit int

const (
	// UnitBeats counts beats of the time signature's beat unit, as in <3>.
	UnitBeats DurationUnit = iota
	// UnitWhole counts whole notes, as in <3/8>.
	UnitWhole
)

// A Duration is the length written after a note. Beats are only resolved to
// whole notes once the time signature is known.
type Duration struct {
	Value music.Beat
	Unit  DurationUnit
}

// DefaultDuration is used when a note has no explicit duration: one beat.
var DefaultDuration = Duration{Value: music.Whole(1), Unit: UnitBeats}

// Whole returns the duration in whole notes.
func (d Duration) Whole(ts music.TimeSignature) music.Beat {
	if d.Unit == UnitBeats {
		return d.Value.Mul(ts.BeatLength())
	}
	return d.Value
}

// A Symbol is either a NonTerminal or a Terminal.
type Symbol interface {
	isSymbol()
}

// A Terminal is a Music note or a MetaControl.
type Terminal interface {
	Symbol
	isTerminal()
}

// A MetaControl changes the composer state without taking any time.
type MetaControl interface {
	Terminal
	isMetaControl()
}

// NonTerminal names a production of a grammar.
type NonTerminal string

// Note is either a pitch or a rest.
type Note struct {
	Rest  bool
	Pitch music.Pitch
}

// Music is a note or rest lasting Duration.
type Music struct {
	Duration Duration
	Note     Note
}

type ChangeInstrument struct {
	Instrument music.Instrument
}

type ChangeVolume struct {
	Volume music.Volume
}

func (NonTerminal) isSymbol() {}
func (Music) isSymbol() {}
func (Music) isTerminal() {}
func (ChangeInstrument) isSymbol() {}
func (ChangeInstrument) isTerminal() {}
func (ChangeInstrument) isMetaControl() {}
func (ChangeVolume) isSymbol() {}
func (ChangeVolume) isTerminal() {}
func (ChangeVolume) isMetaControl() {}

// A MusicTransform changes the music it wraps.
type MusicTransform interface {
	isTransform()
}

// Repeat plays the content N times in a row. N is at least 1.
type Repeat struct {
	N int
}

// Transpose shifts every pitch by Semitones.
type Transpose struct {
	Semitones int
}

// Compression scales time by Factor. It is the inverse of what was written,
// so >>2 has a Factor of 1/2 and plays twice as fast.
type Compression struct {
	Factor music.Beat
}

func (Repeat) isTransform() {}
func (Transpose) isTransform() {}
func (Compression) isTransform() {}

// A Primitive is one element of a MusicString.
type Primitive interface {
	isPrimitive()
}

// Simple wraps a single symbol.
type Simple struct {
	Symbol Symbol
}

// Split plays its branches in parallel. Every branch must last equally long.
type Split struct {
	Branches []MusicString
}

// Transform applies a MusicTransform to Content.
type Transform struct {
	Transform MusicTransform
	Content   MusicString
}

func (Simple) isPrimitive() {}
func (Split) isPrimitive() {}
func (Transform) isPrimitive() {}

// A MusicString is an ordered sequence of primitives.
type MusicString []Primitive

// A Production replaces Name with Body.
type Production struct {
	Name NonTerminal
	Body MusicString
}

// A Grammar is a start symbol and its productions.
type Grammar struct {
	Start       NonTerminal
	Productions []Production
}
