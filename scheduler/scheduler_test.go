package scheduler

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QEStudios/MusicTurtles/composer"
	"github.com/QEStudios/MusicTurtles/music"
	"github.com/QEStudios/MusicTurtles/parser/cfg"
)

var quarterMeasure = music.MusicTime{Beat: music.NewBeat(1, 4)}

func composition(t *testing.T, s string) *music.Composition {
	t.Helper()
	ms, err := cfg.ParseMusicString(s)
	require.NoError(t, err)
	c, err := composer.Compose(ms, music.CommonTime)
	require.NoError(t, err)
	return c
}

func newScheduler(t *testing.T, opts Options, c *music.Composition) *Scheduler {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, s.SetComposition(c))
	return s
}

func baseOptions() Options {
	return Options{
		BPM:           120,
		TimeSignature: music.CommonTime,
		Lookahead:     quarterMeasure,
	}
}

func millis(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}

func TestNewValidates(t *testing.T) {
	opts := baseOptions()
	opts.Looped = true
	_, err := New(opts)
	assert.ErrorIs(t, err, ErrInvalidLoop)

	opts = baseOptions()
	opts.BPM = 0
	_, err = New(opts)
	assert.Error(t, err)

	opts = baseOptions()
	opts.Lookahead = music.MusicTime{}
	_, err = New(opts)
	assert.Error(t, err)

	opts = baseOptions()
	opts.TimeSignature = music.TimeSignature{Numerator: 4, Denominator: 6}
	_, err = New(opts)
	assert.Error(t, err)
}

func TestSetCompositionChecksTimeSignature(t *testing.T) {
	s, err := New(baseOptions())
	require.NoError(t, err)
	err = s.SetComposition(&music.Composition{TimeSignature: music.TimeSignature{Numerator: 3, Denominator: 4}})
	assert.Error(t, err)
}

func TestNextConvertsEvents(t *testing.T) {
	s := newScheduler(t, baseOptions(), composition(t, "::i=Piano ::v=70 :4c :4d"))

	sounds := s.Next(0)
	require.Len(t, sounds, 1)
	assert.Equal(t, ScheduledSound{
		Time:       0,
		Duration:   0.5 * ReleaseGap,
		Volume:     70,
		Instrument: music.Piano,
		Pitch:      music.Pitch{Octave: 4, Semitone: 3},
	}, sounds[0])

	// The window now reaches past the second note at 0.5s.
	sounds = s.Next(0.1)
	require.Len(t, sounds, 1)
	assert.InDelta(t, 0.5, sounds[0].Time, 1e-9)

	assert.Empty(t, s.Next(0.3))
}

func TestCompleteness(t *testing.T) {
	c := composition(t, ":4c :4d [x3][:4e<1/8>] {:4f<2> | :4g :4a} ::i=Piano :4b<3> :_<1/16> ::i=Bass :2c<1/16>")
	bpm := music.BPM(120)
	durationSeconds := c.Duration.Seconds(c.TimeSignature, bpm)

	for _, tick := range []float64{0.05, 0.1, 0.37, 0.5} {
		s := newScheduler(t, baseOptions(), c)
		lookahead := s.LookaheadSeconds()
		require.LessOrEqual(t, tick, lookahead)

		var got []ScheduledSound
		for elapsed := 0.0; elapsed <= durationSeconds+lookahead; elapsed += tick {
			batch := s.Next(elapsed)
			for i := 1; i < len(batch); i++ {
				assert.LessOrEqual(t, batch[i-1].Time, batch[i].Time)
			}
			got = append(got, batch...)
		}
		assert.True(t, s.Ended())

		require.Len(t, got, c.EventCount(), "tick %v", tick)
		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i-1].Time, got[i].Time, "tick %v", tick)
		}

		type key struct {
			ms    int64
			pitch music.Pitch
			inst  music.Instrument
		}
		want := map[key]int{}
		for _, track := range c.Tracks {
			for _, e := range track.Events {
				want[key{millis(e.Start.Seconds(c.TimeSignature, bpm)), e.Pitch, track.Instrument}]++
			}
		}
		have := map[key]int{}
		for _, snd := range got {
			have[key{millis(snd.Time), snd.Pitch, snd.Instrument}]++
		}
		assert.Equal(t, want, have, "tick %v", tick)
	}
}

func TestNoBackwardsWithoutLoop(t *testing.T) {
	s := newScheduler(t, baseOptions(), composition(t, ":4c :4d :4e :4f"))
	assert.Len(t, s.Next(1.0), 3)
	assert.Empty(t, s.Next(0))
	assert.Len(t, s.Next(1.6), 1)
}

func TestEnded(t *testing.T) {
	s := newScheduler(t, baseOptions(), composition(t, ":4c :4d"))
	assert.False(t, s.Ended())
	s.Next(0)
	assert.False(t, s.Ended())
	s.Next(1.0)
	assert.True(t, s.Ended())

	empty := newScheduler(t, baseOptions(), &music.Composition{TimeSignature: music.CommonTime})
	assert.True(t, empty.Ended())

	opts := baseOptions()
	opts.Looped = true
	opts.LoopTime = music.Measures(1)
	looped := newScheduler(t, opts, composition(t, ":4c"))
	looped.Next(10)
	assert.False(t, looped.Ended())
}

func loopedOptions() Options {
	opts := baseOptions()
	opts.Looped = true
	opts.LoopTime = music.Measures(1)
	return opts
}

func TestLoopFirstEventProjected(t *testing.T) {
	s := newScheduler(t, loopedOptions(), composition(t, ":4c :4d :4e :4f"))
	loopSeconds := music.Measures(1).Seconds(music.CommonTime, 120)

	elapsed := loopSeconds + 1e-6
	sounds := s.Next(elapsed)
	require.Len(t, sounds, 1)
	assert.Equal(t, music.Pitch{Octave: 4, Semitone: 3}, sounds[0].Pitch)
	assert.InDelta(t, loopSeconds, sounds[0].Time, 1e-3)
	assert.GreaterOrEqual(t, sounds[0].Time, elapsed)
}

func TestLoopProjection(t *testing.T) {
	s := newScheduler(t, loopedOptions(), composition(t, ":4c :4d :4e :4f"))

	seen := map[int64]int{}
	for k := 0; k < 50; k++ {
		elapsed := float64(k) * 0.1
		for _, snd := range s.Next(elapsed) {
			assert.GreaterOrEqual(t, snd.Time, elapsed)
			seen[millis(snd.Time)]++
		}
	}

	// One sound every half second, each emitted exactly once.
	want := map[int64]int{}
	for ms := int64(0); ms <= 5000; ms += 500 {
		want[ms] = 1
	}
	assert.Equal(t, want, seen)
}

func TestLoopShorterThanComposition(t *testing.T) {
	opts := loopedOptions()
	opts.LoopTime = music.MusicTime{Beat: music.NewBeat(1, 2)}
	s := newScheduler(t, opts, composition(t, ":4c :4d :4e :4f"))

	var pitches []int
	for k := 0; k < 20; k++ {
		for _, snd := range s.Next(float64(k) * 0.1) {
			pitches = append(pitches, snd.Pitch.Semitone)
		}
	}
	// Only the first half measure is ever played.
	for _, p := range pitches {
		assert.Contains(t, []int{3, 5}, p)
	}
	assert.NotEmpty(t, pitches)
}

func TestLookaheadLongerThanLoop(t *testing.T) {
	c := composition(t, ":4c :4d")
	opts := baseOptions()
	opts.Lookahead = music.Measures(1)
	opts.Looped = true
	opts.LoopTime = c.Duration
	s := newScheduler(t, opts, c)

	loopSeconds := c.Duration.Seconds(music.CommonTime, 120)
	require.InDelta(t, 1.0, loopSeconds, 1e-9)
	assert.Less(t, s.LookaheadSeconds(), loopSeconds)

	first := s.Next(0)
	require.Len(t, first, 1)
	assert.Equal(t, music.Pitch{Octave: 4, Semitone: 3}, first[0].Pitch)
	assert.Zero(t, first[0].Time)

	seen := map[int64]int{0: 1}
	for k := 1; k < 40; k++ {
		elapsed := float64(k) * 0.05
		for _, snd := range s.Next(elapsed) {
			assert.GreaterOrEqual(t, snd.Time, elapsed)
			seen[millis(snd.Time)]++
		}
	}
	assert.Equal(t, map[int64]int{0: 1, 500: 1, 1000: 1, 1500: 1, 2000: 1}, seen)
}

func TestSharedIsSafe(t *testing.T) {
	c := composition(t, "[x16][:4c<1/16>]")
	sh := NewShared(newScheduler(t, loopedOptions(), c))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				sh.Next(float64(k) * 0.01)
				if k%25 == 0 {
					assert.NoError(t, sh.SetComposition(c))
				}
				sh.Ended()
			}
		}()
	}
	wg.Wait()
	assert.Positive(t, sh.LookaheadSeconds())
}
