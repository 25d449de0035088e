package player

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// FadeTime is the length of the fade in at the start of every sine sound and
// of the fade out tail after it.
const FadeTime = 0.04

// DefaultSampleRate is used when a SinePlayer is created with a zero rate.
const DefaultSampleRate = 44100

// A Sink starts playing mono float32 samples and returns without waiting for
// them to finish.
type Sink interface {
	Play(samples []float32) error
}

// SinePlayer ignores the instrument of a sound and plays a sine wave at its
// pitch.
type SinePlayer struct {
	sink       Sink
	sampleRate int
}

func NewSinePlayer(sink Sink, sampleRate int) *SinePlayer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &SinePlayer{sink: sink, sampleRate: sampleRate}
}

func (p *SinePlayer) Play(s AtomicSound) error {
	return p.sink.Play(p.Render(s))
}

// Render returns the samples for s: the sound itself followed by the fade out
// tail.
func (p *SinePlayer) Render(s AtomicSound) []float32 {
	rate := float64(p.sampleRate)
	freq := s.Pitch.Frequency()
	amplitude := clamp(3*44/freq, 0, 1)

	body := int(math.Round(max(s.Duration, 0) * rate))
	fade := int(math.Round(FadeTime * rate))
	samples := make([]float32, body+fade)

	for i := range samples {
		gain := amplitude
		switch {
		case i >= body:
			// Tail.
			gain *= 1 - float64(i-body)/float64(fade)
		case i < fade:
			gain *= float64(i) / float64(fade)
		}
		samples[i] = float32(gain * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return samples
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

// OtoSink plays every buffer on its own oto player, letting oto mix
// overlapping sounds.
type OtoSink struct {
	ctx *oto.Context

	mu      sync.Mutex
	playing []*oto.Player
}

// NewOtoSink opens the audio device for mono float32 output and waits for it
// to become ready.
func NewOtoSink(sampleRate int) (*OtoSink, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	return &OtoSink{ctx: ctx}, nil
}

func (s *OtoSink) Play(samples []float32) error {
	buf := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	player := s.ctx.NewPlayer(bytes.NewReader(buf))
	player.Play()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reap()
	s.playing = append(s.playing, player)
	return s.ctx.Err()
}

// reap closes players that have run out of samples. Callers hold s.mu.
func (s *OtoSink) reap() {
	kept := s.playing[:0]
	for _, p := range s.playing {
		if p.IsPlaying() {
			kept = append(kept, p)
			continue
		}
		p.Close()
	}
	clear(s.playing[len(kept):])
	s.playing = kept
}

// Close stops every sound still playing.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, p := range s.playing {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.playing = nil
	return firstErr
}
