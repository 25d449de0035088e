package player

import (
	"fmt"
	"io"
	"math"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/QEStudios/MusicTurtles/music"
	"github.com/QEStudios/MusicTurtles/scheduler"
)

// TicksPerQuarter is the resolution of files written by WriteSMF.
const TicksPerQuarter = 960

// drumChannel is where General MIDI expects percussion.
const drumChannel = 9

type timedMessage struct {
	tick uint32
	off  bool
	msg  midi.Message
}

// WriteSMF writes c as a format 1 standard MIDI file at bpm. The first track
// carries the tempo and meter, then one track per instrument follows, each on
// its own channel with the instrument's program selected.
func WriteSMF(w io.Writer, c *music.Composition, bpm music.BPM) error {
	ts := c.TimeSignature
	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(uint8(ts.Numerator), uint8(ts.Denominator)))
	conductor.Add(0, smf.MetaTempo(float64(bpm)*4/float64(ts.Denominator)))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return err
	}

	channels := channelAssignment(c)
	for _, t := range c.Tracks {
		channel := channels[t.Instrument]
		messages := []timedMessage{{msg: midi.ProgramChange(channel, t.Instrument.Program())}}
		for _, e := range t.Events {
			n := e.Pitch.MIDI()
			if n < 0 || n > 127 {
				return fmt.Errorf("pitch %s on %s is outside the MIDI range", e.Pitch, t.Instrument)
			}
			start := ticks(e.Start.Whole(ts))
			length := uint32(math.Round(float64(ticks(e.Duration)) * scheduler.ReleaseGap))
			messages = append(messages,
				timedMessage{tick: start, msg: midi.NoteOn(channel, uint8(n), e.Volume.Velocity())},
				timedMessage{tick: start + length, off: true, msg: midi.NoteOff(channel, uint8(n))},
			)
		}
		// Note offs go first so a repeated pitch is released before it is struck again.
		slices.SortStableFunc(messages, func(a, b timedMessage) int {
			if a.tick != b.tick {
				return int(a.tick) - int(b.tick)
			}
			switch {
			case a.off && !b.off:
				return -1
			case !a.off && b.off:
				return 1
			}
			return 0
		})

		var track smf.Track
		track.Add(0, smf.MetaTrackSequenceName(t.Instrument.String()))
		var last uint32
		for _, m := range messages {
			track.Add(m.tick-last, m.msg)
			last = m.tick
		}
		track.Close(0)
		if err := s.Add(track); err != nil {
			return err
		}
	}

	_, err := s.WriteTo(w)
	return err
}

// ticks converts a length in whole notes.
func ticks(whole music.Beat) uint32 {
	return uint32(math.Round(whole.Float64() * 4 * TicksPerQuarter))
}

// channelAssignment gives drums the percussion channel and every other
// instrument the next free channel, wrapping when there are more than fifteen.
func channelAssignment(c *music.Composition) map[music.Instrument]uint8 {
	channels := make(map[music.Instrument]uint8)
	var next uint8
	for _, t := range c.Tracks {
		if t.Instrument == music.Drums {
			channels[t.Instrument] = drumChannel
			continue
		}
		if next == drumChannel {
			next++
		}
		channels[t.Instrument] = next % 16
		next = (next + 1) % 16
	}
	return channels
}
