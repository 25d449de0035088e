package music

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBeatReduces(t *testing.T) {
	assert.Equal(t, NewBeat(1, 2), NewBeat(2, 4))
	assert.Equal(t, NewBeat(-1, 2), NewBeat(1, -2))
	assert.Equal(t, Beat{}, NewBeat(0, 7))
	assert.Equal(t, int64(1), Beat{}.Den())
	assert.Panics(t, func() { NewBeat(1, 0) })
}

func TestBeatArithmetic(t *testing.T) {
	quarter := NewBeat(1, 4)
	eighth := NewBeat(1, 8)

	assert.Equal(t, NewBeat(3, 8), quarter.Add(eighth))
	assert.Equal(t, eighth, quarter.Sub(eighth))
	assert.Equal(t, NewBeat(1, 32), quarter.Mul(eighth))
	assert.Equal(t, Whole(2), quarter.Div(eighth))
	assert.Equal(t, Whole(4), quarter.Recip())
	assert.Equal(t, -1, eighth.Cmp(quarter))
	assert.Equal(t, 0, NewBeat(2, 8).Cmp(quarter))
	assert.Equal(t, int64(-1), NewBeat(-1, 3).Floor())
	assert.Equal(t, int64(2), NewBeat(7, 3).Floor())
	assert.Equal(t, "3/8", NewBeat(3, 8).String())
}

func TestParseBeat(t *testing.T) {
	tests := []struct {
		in      string
		want    Beat
		wantErr bool
	}{
		{in: "1/4", want: NewBeat(1, 4)},
		{in: "3", want: Whole(3)},
		{in: "-3/4", want: NewBeat(-3, 4)},
		{in: "2/0", wantErr: true},
		{in: "a/4", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBeat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMusicTimeNormalizes(t *testing.T) {
	waltz := TimeSignature{Numerator: 3, Denominator: 4}

	got := FromWhole(waltz, NewBeat(7, 4))
	assert.Equal(t, MusicTime{Measures: 2, Beat: NewBeat(1, 4)}, got)

	sum := MusicTime{Beat: NewBeat(1, 2)}.Add(waltz, MusicTime{Beat: NewBeat(1, 2)})
	assert.Equal(t, MusicTime{Measures: 1, Beat: NewBeat(1, 4)}, sum)

	assert.Equal(t, MusicTime{Beat: NewBeat(2, 4)}, Beats(waltz, 2))
	assert.Equal(t, MusicTime{Measures: 1}, Beats(waltz, 3))
}

func TestMusicTimeCompareAndMod(t *testing.T) {
	ts := CommonTime
	a := MusicTime{Measures: 1, Beat: NewBeat(1, 4)}
	b := MusicTime{Measures: 1, Beat: NewBeat(1, 2)}

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(a))

	loop := Measures(1)
	assert.Equal(t, MusicTime{Beat: NewBeat(1, 4)}, a.Mod(ts, loop))
	assert.Equal(t, MusicTime{}, Measures(3).Mod(ts, loop))
}

func TestSecondsConversion(t *testing.T) {
	ts := CommonTime

	// One measure of 4/4 at 120 bpm is two seconds.
	assert.InDelta(t, 2.0, Measures(1).Seconds(ts, 120), 1e-9)
	assert.InDelta(t, 0.5, MusicTime{Beat: NewBeat(1, 4)}.Seconds(ts, 120), 1e-9)
	assert.InDelta(t, 0.25, BeatSeconds(ts, 120, NewBeat(1, 8)), 1e-9)

	assert.Equal(t, MusicTime{Beat: NewBeat(1, 4)}, FromSeconds(ts, 120, 0.5))
	assert.Equal(t, Measures(2), FromSeconds(ts, 120, 4.0))

	// 6/8 counts eighth notes.
	sixEight := TimeSignature{Numerator: 6, Denominator: 8}
	assert.InDelta(t, 3.0, Measures(1).Seconds(sixEight, 120), 1e-9)
}

func TestTimeSignatureValidate(t *testing.T) {
	assert.NoError(t, CommonTime.Validate())
	assert.NoError(t, TimeSignature{Numerator: 7, Denominator: 8}.Validate())
	assert.Error(t, TimeSignature{Numerator: 3, Denominator: 3}.Validate())
	assert.Error(t, TimeSignature{Numerator: 0, Denominator: 4}.Validate())
}
