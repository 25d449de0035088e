package music

import (
	"slices"
	"sort"
)

// An Event is a pitched sound at an absolute position in a composition.
// Rests never produce events.
type Event struct {
	Start    MusicTime `json:"start" msgpack:"start"`
	Duration Beat      `json:"duration" msgpack:"duration"`
	Volume   Volume    `json:"volume" msgpack:"volume"`
	Pitch    Pitch     `json:"pitch" msgpack:"pitch"`
}

// End returns the position right after the event.
func (e Event) End(ts TimeSignature) MusicTime {
	return FromWhole(ts, e.Start.Whole(ts).Add(e.Duration))
}

// A Track holds every event played by one instrument.
type Track struct {
	Identifier string     `json:"identifier" msgpack:"identifier"`
	Instrument Instrument `json:"instrument" msgpack:"instrument"`
	Events     []Event    `json:"events" msgpack:"events"`
}

// NewTrack returns an empty track identified by its instrument.
func NewTrack(instrument Instrument) Track {
	return Track{
		Identifier: instrument.String(),
		Instrument: instrument,
	}
}

// Append concatenates the events of other onto the track. Events are not deduplicated
// and not re-sorted.
func (t *Track) Append(other Track) {
	t.Events = append(t.Events, other.Events...)
}

// Shift moves every event later by offset.
func (t *Track) Shift(ts TimeSignature, offset MusicTime) {
	if offset.IsZero() {
		return
	}
	for i := range t.Events {
		t.Events[i].Start = t.Events[i].Start.Add(ts, offset)
	}
}

// Sort orders the events by start time, keeping the relative order of simultaneous events.
func (t *Track) Sort() {
	slices.SortStableFunc(t.Events, func(a, b Event) int {
		return a.Start.Compare(b.Start)
	})
}

// End returns the latest end time of any event, or false if the track is empty.
func (t Track) End(ts TimeSignature) (MusicTime, bool) {
	if len(t.Events) == 0 {
		return MusicTime{}, false
	}
	end := t.Events[0].End(ts)
	for _, e := range t.Events[1:] {
		if candidate := e.End(ts); candidate.After(end) {
			end = candidate
		}
	}
	return end, true
}

// EventsStartingBetween returns the events with from <= start < to. The events must be sorted.
func (t Track) EventsStartingBetween(from, to MusicTime) []Event {
	if !from.Before(to) {
		return nil
	}
	lo := sort.Search(len(t.Events), func(i int) bool {
		return !t.Events[i].Start.Before(from)
	})
	hi := sort.Search(len(t.Events), func(i int) bool {
		return !t.Events[i].Start.Before(to)
	})
	if lo >= hi {
		return nil
	}
	return slices.Clone(t.Events[lo:hi])
}

// A Composition is a set of instrument tracks of absolutely timed events.
type Composition struct {
	Tracks        []Track       `json:"tracks" msgpack:"tracks"`
	TimeSignature TimeSignature `json:"time_signature" msgpack:"time_signature"`

	// Duration is the composed length including trailing rests. It is not persisted.
	Duration MusicTime `json:"-" msgpack:"-"`
}

// Track returns the track for instrument, if there is one.
func (c *Composition) Track(instrument Instrument) (*Track, bool) {
	for i := range c.Tracks {
		if c.Tracks[i].Instrument == instrument {
			return &c.Tracks[i], true
		}
	}
	return nil, false
}

// EventCount returns the number of events over all tracks.
func (c *Composition) EventCount() int {
	n := 0
	for _, t := range c.Tracks {
		n += len(t.Events)
	}
	return n
}

// End returns the latest event end over all tracks, which for a decoded
// composition stands in for the unpersisted Duration.
func (c *Composition) End() MusicTime {
	var end MusicTime
	for _, t := range c.Tracks {
		if trackEnd, ok := t.End(c.TimeSignature); ok && trackEnd.After(end) {
			end = trackEnd
		}
	}
	return end
}
