// Package scheduler hands out the events of a composition a little ahead of
// when they must sound, driven by the wall clock time since playback started.
package scheduler

import (
	"errors"
	"fmt"
	"slices"

	"github.com/QEStudios/MusicTurtles/music"
)

// ReleaseGap shortens every sound so that repeated notes of the same pitch do
// not overlap.
const ReleaseGap = 0.9

var ErrInvalidLoop = errors.New("loop time must be positive when looping")

// Options configures a Scheduler.
type Options struct {
	BPM           music.BPM
	TimeSignature music.TimeSignature
	// Lookahead is how far past the current time each call to Next looks.
	Lookahead music.MusicTime
	Looped    bool
	// LoopTime is where playback wraps back to the start. Only used when Looped.
	LoopTime music.MusicTime
}

// Validate checks the options the same way New does.
func (o Options) Validate() error {
	if o.BPM <= 0 {
		return fmt.Errorf("bpm must be positive, got %v", o.BPM)
	}
	if err := o.TimeSignature.Validate(); err != nil {
		return err
	}
	if o.Lookahead.Whole(o.TimeSignature).Sign() <= 0 {
		return fmt.Errorf("lookahead must be positive, got %s", o.Lookahead)
	}
	if o.Looped && o.LoopTime.Whole(o.TimeSignature).Sign() <= 0 {
		return ErrInvalidLoop
	}
	return nil
}

// A ScheduledSound is an event placed on the wall clock, in seconds since
// playback started.
type ScheduledSound struct {
	Time       float64
	Duration   float64
	Volume     music.Volume
	Instrument music.Instrument
	Pitch      music.Pitch
}

type trackCursor struct {
	track  music.Track
	cursor music.MusicTime
	end    music.MusicTime
	empty  bool
}

// Scheduler is not safe for concurrent use; see Shared.
type Scheduler struct {
	opts   Options
	tracks []trackCursor
}

// New validates opts and returns a scheduler with no composition loaded. When
// looping, a lookahead not shorter than the loop is cut to half the loop.
func New(opts Options) (*Scheduler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ts := opts.TimeSignature
	opts.Lookahead = opts.Lookahead.Normalize(ts)
	opts.LoopTime = opts.LoopTime.Normalize(ts)
	// A window as long as the loop would wrap onto itself and come out empty.
	if opts.Looped && !opts.Lookahead.Before(opts.LoopTime) {
		opts.Lookahead = opts.LoopTime.Scale(ts, music.NewBeat(1, 2))
	}
	return &Scheduler{opts: opts}, nil
}

func (s *Scheduler) Options() Options {
	return s.opts
}

// LookaheadSeconds returns the lookahead window on the wall clock.
func (s *Scheduler) LookaheadSeconds() float64 {
	return s.opts.Lookahead.Seconds(s.opts.TimeSignature, s.opts.BPM)
}

// SetComposition replaces the composition being played and moves every cursor
// back to the start.
func (s *Scheduler) SetComposition(c *music.Composition) error {
	if c.TimeSignature != s.opts.TimeSignature {
		return fmt.Errorf("composition is in %s but the scheduler runs in %s", c.TimeSignature, s.opts.TimeSignature)
	}
	s.tracks = s.tracks[:0]
	for _, t := range c.Tracks {
		end, ok := t.End(c.TimeSignature)
		s.tracks = append(s.tracks, trackCursor{track: t, end: end, empty: !ok})
	}
	return nil
}

// Next returns every sound starting inside the lookahead window after elapsed
// seconds, ordered by time, and moves the cursors past the window. Each event
// is returned once per pass through the composition.
func (s *Scheduler) Next(elapsed float64) []ScheduledSound {
	ts, bpm := s.opts.TimeSignature, s.opts.BPM
	loop := s.opts.LoopTime

	current := music.FromSeconds(ts, bpm, elapsed)
	if s.opts.Looped {
		current = current.Mod(ts, loop)
	}
	end := current.Add(ts, s.opts.Lookahead)
	if s.opts.Looped && end.After(loop) {
		end = end.Mod(ts, loop)
	}

	var sounds []ScheduledSound
	for i := range s.tracks {
		tc := &s.tracks[i]
		var events []music.Event
		switch {
		case !tc.cursor.After(end):
			events = tc.track.EventsStartingBetween(tc.cursor, end)
		case s.opts.Looped:
			// The window wrapped past the loop point since the last call.
			events = tc.track.EventsStartingBetween(tc.cursor, loop)
			events = append(events, tc.track.EventsStartingBetween(music.MusicTime{}, end)...)
		default:
			// Never move backwards without a loop.
			continue
		}
		tc.cursor = end

		for _, e := range events {
			sounds = append(sounds, ScheduledSound{
				Time:       e.Start.Seconds(ts, bpm),
				Duration:   music.BeatSeconds(ts, bpm, e.Duration) * ReleaseGap,
				Volume:     e.Volume,
				Instrument: tc.track.Instrument,
				Pitch:      e.Pitch,
			})
		}
	}

	if s.opts.Looped {
		s.project(sounds, elapsed)
	}
	slices.SortStableFunc(sounds, func(a, b ScheduledSound) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return sounds
}

// project moves looped sounds, which are timed within one pass of the loop,
// forward to the first pass that is not already behind elapsed.
func (s *Scheduler) project(sounds []ScheduledSound, elapsed float64) {
	ts, bpm := s.opts.TimeSignature, s.opts.BPM
	loopSeconds := s.opts.LoopTime.Seconds(ts, bpm)
	// elapsed is floored to this grid when it is converted to music time, so
	// a sound up to one step behind elapsed is due now rather than a loop later.
	step := music.BeatSeconds(ts, bpm, music.NewBeat(1, music.SecondsResolution))

	for i := range sounds {
		for sounds[i].Time+step < elapsed {
			sounds[i].Time += loopSeconds
		}
		if sounds[i].Time < elapsed {
			sounds[i].Time = elapsed
		}
	}
}

// Ended reports whether every track has been scheduled to its end. A looped
// scheduler never ends.
func (s *Scheduler) Ended() bool {
	if s.opts.Looped {
		return false
	}
	for _, tc := range s.tracks {
		if !tc.empty && tc.cursor.Before(tc.end) {
			return false
		}
	}
	return true
}
