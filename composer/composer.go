// Package composer turns a parsed music string into a composition: one track
// per instrument, each holding absolutely timed events.
package composer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/QEStudios/MusicTurtles/music"
	"github.com/QEStudios/MusicTurtles/parser/cfg"
)

// NonUniformSplitError is returned when the branches of a split do not all last
// equally long.
type NonUniformSplitError struct {
	Durations []music.MusicTime
}

func (e *NonUniformSplitError) Error() string {
	parts := make([]string, len(e.Durations))
	for i, d := range e.Durations {
		parts[i] = d.String()
	}
	return fmt.Sprintf("split branches have different durations: %s", strings.Join(parts, ", "))
}

// state is what meta controls change. Nested music starts from the state of
// its enclosing string, and changes made inside do not leak back out.
type state struct {
	instrument music.Instrument
	volume     music.Volume
}

var initialState = state{
	instrument: music.SineWave,
	volume:     music.DefaultVolume,
}

// A part is composed music starting at time zero.
type part struct {
	tracks   map[music.Instrument]*music.Track
	duration music.MusicTime
}

func newPart() *part {
	return &part{tracks: make(map[music.Instrument]*music.Track)}
}

func (p *part) track(instrument music.Instrument) *music.Track {
	t, ok := p.tracks[instrument]
	if !ok {
		track := music.NewTrack(instrument)
		t = &track
		p.tracks[instrument] = t
	}
	return t
}

// merge copies the events of other into p, moved later by offset.
func (p *part) merge(ts music.TimeSignature, other *part, offset music.MusicTime) {
	for instrument, t := range other.tracks {
		shifted := music.Track{Instrument: instrument, Events: slices.Clone(t.Events)}
		shifted.Shift(ts, offset)
		p.track(instrument).Append(shifted)
	}
}

// events visits every event of the part.
func (p *part) events(f func(e *music.Event)) {
	for _, t := range p.tracks {
		for i := range t.Events {
			f(&t.Events[i])
		}
	}
}

type composer struct {
	ts music.TimeSignature
}

// Compose maps ms onto a composition in time signature ts. Non-terminals left
// in ms are silent and take no time; expand a grammar first to resolve them.
func Compose(ms cfg.MusicString, ts music.TimeSignature) (*music.Composition, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	c := composer{ts: ts}
	p, err := c.compose(ms, initialState)
	if err != nil {
		return nil, err
	}

	comp := &music.Composition{
		TimeSignature: ts,
		Duration:      p.duration,
	}
	for _, instrument := range music.Instruments() {
		t, ok := p.tracks[instrument]
		if !ok {
			continue
		}
		t.Sort()
		comp.Tracks = append(comp.Tracks, *t)
	}
	return comp, nil
}

func (c *composer) compose(ms cfg.MusicString, st state) (*part, error) {
	p := newPart()
	for _, prim := range ms {
		var advance music.MusicTime

		switch prim := prim.(type) {
		case cfg.Simple:
			switch sym := prim.Symbol.(type) {
			case cfg.NonTerminal:
				// Unresolved non-terminals are silent.
			case cfg.Music:
				advance = music.FromWhole(c.ts, sym.Duration.Whole(c.ts))
				if !sym.Note.Rest {
					t := p.track(st.instrument)
					t.Events = append(t.Events, music.Event{
						Start:    p.duration,
						Duration: sym.Duration.Whole(c.ts),
						Volume:   st.volume,
						Pitch:    sym.Note.Pitch,
					})
				}
			case cfg.ChangeInstrument:
				st.instrument = sym.Instrument
			case cfg.ChangeVolume:
				st.volume = sym.Volume
			default:
				return nil, fmt.Errorf("unknown symbol %T", sym)
			}

		case cfg.Split:
			var err error
			advance, err = c.split(p, prim, st)
			if err != nil {
				return nil, err
			}

		case cfg.Transform:
			var err error
			advance, err = c.transform(p, prim, st)
			if err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("unknown primitive %T", prim)
		}

		p.duration = p.duration.Add(c.ts, advance)
	}
	return p, nil
}

// split composes every branch from zero, checks they all last equally long
// and merges them at the end of p.
func (c *composer) split(p *part, split cfg.Split, st state) (music.MusicTime, error) {
	branches := make([]*part, 0, len(split.Branches))
	for _, ms := range split.Branches {
		branch, err := c.compose(ms, st)
		if err != nil {
			return music.MusicTime{}, err
		}
		branches = append(branches, branch)
	}
	if len(branches) == 0 {
		return music.MusicTime{}, nil
	}

	duration := branches[0].duration
	for _, branch := range branches[1:] {
		if branch.duration != duration {
			durations := make([]music.MusicTime, len(branches))
			for i, b := range branches {
				durations[i] = b.duration
			}
			return music.MusicTime{}, &NonUniformSplitError{Durations: durations}
		}
	}

	for _, branch := range branches {
		p.merge(c.ts, branch, p.duration)
	}
	return duration, nil
}

// transform composes the content from zero, applies the transform to it and
// merges the result at the end of p.
func (c *composer) transform(p *part, tr cfg.Transform, st state) (music.MusicTime, error) {
	content, err := c.compose(tr.Content, st)
	if err != nil {
		return music.MusicTime{}, err
	}

	switch t := tr.Transform.(type) {
	case cfg.Repeat:
		offset := p.duration
		for i := 0; i < t.N; i++ {
			p.merge(c.ts, content, offset)
			offset = offset.Add(c.ts, content.duration)
		}
		return content.duration.Times(c.ts, t.N), nil

	case cfg.Transpose:
		content.events(func(e *music.Event) {
			e.Pitch = e.Pitch.Transpose(t.Semitones)
		})
		p.merge(c.ts, content, p.duration)
		return content.duration, nil

	case cfg.Compression:
		content.events(func(e *music.Event) {
			e.Start = e.Start.Scale(c.ts, t.Factor)
			e.Duration = e.Duration.Mul(t.Factor)
		})
		p.merge(c.ts, content, p.duration)
		return content.duration.Scale(c.ts, t.Factor), nil
	}
	return music.MusicTime{}, fmt.Errorf("unknown transform %T", tr.Transform)
}
