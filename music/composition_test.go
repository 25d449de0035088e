package music

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPitchMIDI(t *testing.T) {
	middleC := Pitch{Octave: 4, Semitone: NoteOffsets['c']}
	assert.Equal(t, 60, middleC.MIDI())
	assert.Equal(t, 57, Pitch{Octave: 4}.MIDI())
	assert.Equal(t, middleC, PitchFromMIDI(60))
	assert.InDelta(t, 440.0, PitchFromMIDI(69).Frequency(), 1e-9)
	assert.Equal(t, "4c", middleC.String())
}

func TestPitchTransposeCarries(t *testing.T) {
	gSharp := Pitch{Octave: 4, Semitone: 11}
	assert.Equal(t, Pitch{Octave: 5, Semitone: 0}, gSharp.Transpose(1))
	assert.Equal(t, Pitch{Octave: 3, Semitone: 11}, Pitch{Octave: 4}.Transpose(-1))
	assert.Equal(t, Pitch{Octave: 2, Semitone: 3}, Pitch{Octave: 4, Semitone: 3}.Transpose(-24))
}

func TestVolumeVelocity(t *testing.T) {
	assert.Equal(t, uint8(127), MaxVolume.Velocity())
	assert.Equal(t, uint8(64), DefaultVolume.Velocity())
	assert.Equal(t, uint8(0), Volume(0).Velocity())
	assert.False(t, Volume(101).Valid())
}

func TestParseInstrument(t *testing.T) {
	tests := []struct {
		in   string
		want Instrument
	}{
		{in: "SineWave", want: SineWave},
		{in: "sine_wave", want: SineWave},
		{in: "piano", want: Piano},
		{in: "Sax", want: Saxophone},
		{in: "viol", want: Violin},
		{in: "clar", want: Clarinet},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInstrument(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseInstrument("kazoo")
	assert.ErrorContains(t, err, "unknown instrument")
	_, err = ParseInstrument("e")
	assert.ErrorContains(t, err, "ambiguous instrument")
}

func TestEventsStartingBetween(t *testing.T) {
	ts := CommonTime
	track := NewTrack(Piano)
	for i := int64(0); i < 8; i++ {
		track.Events = append(track.Events, Event{
			Start:    Beats(ts, i),
			Duration: NewBeat(1, 4),
			Volume:   DefaultVolume,
		})
	}

	got := track.EventsStartingBetween(Beats(ts, 2), Measures(1))
	require.Len(t, got, 2)
	assert.Equal(t, Beats(ts, 2), got[0].Start)
	assert.Equal(t, Beats(ts, 3), got[1].Start)

	assert.Empty(t, track.EventsStartingBetween(Measures(1), Measures(1)))
	assert.Empty(t, track.EventsStartingBetween(Measures(3), Measures(4)))

	end, ok := track.End(ts)
	require.True(t, ok)
	assert.Equal(t, Measures(2), end)
}

func sampleComposition() *Composition {
	ts := CommonTime
	piano := NewTrack(Piano)
	piano.Events = []Event{
		{Start: MusicTime{}, Duration: NewBeat(1, 4), Volume: 50, Pitch: Pitch{Octave: 4, Semitone: 3}},
		{Start: Beats(ts, 1), Duration: NewBeat(1, 8), Volume: 80, Pitch: Pitch{Octave: 4, Semitone: 5}},
	}
	sine := NewTrack(SineWave)
	sine.Events = []Event{
		{Start: Beats(ts, 3), Duration: NewBeat(1, 2), Volume: 50, Pitch: Pitch{Octave: 3}},
	}
	return &Composition{
		Tracks:        []Track{sine, piano},
		TimeSignature: ts,
		Duration:      MusicTime{Measures: 1, Beat: NewBeat(1, 4)},
	}
}

func TestCompositionJSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleComposition().Encode(&buf, FormatJSON))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, []any{4.0, 4.0}, raw["time_signature"])

	tracks := raw["tracks"].([]any)
	require.Len(t, tracks, 2)
	piano := tracks[1].(map[string]any)
	assert.Equal(t, "Piano", piano["instrument"])
	first := piano["events"].([]any)[0].(map[string]any)
	assert.Equal(t, "1/4", first["duration"])
	assert.Equal(t, []any{4.0, 3.0}, first["pitch"])
	assert.Equal(t, map[string]any{"m": 0.0, "beat": "0/1"}, first["start"])
}

func TestCompositionRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatMsgpack} {
		t.Run(string(format), func(t *testing.T) {
			original := sampleComposition()
			var buf bytes.Buffer
			require.NoError(t, original.Encode(&buf, format))

			decoded, err := Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, original.Tracks, decoded.Tracks)
			assert.Equal(t, original.TimeSignature, decoded.TimeSignature)
			// The trailing rest is not persisted.
			assert.Equal(t, MusicTime{Measures: 1, Beat: NewBeat(1, 4)}, decoded.Duration)
		})
	}
}

func TestDecodeRejectsBadTimeSignature(t *testing.T) {
	_, err := Decode(bytes.NewBufferString(`{"tracks":[],"time_signature":[3,5]}`), FormatJSON)
	assert.Error(t, err)
}
