// Package player turns scheduled sounds into audio, either by synthesising
// sine waves or by driving MIDI outputs.
package player

import (
	"context"
	"log"
	"time"

	"github.com/QEStudios/MusicTurtles/music"
	"github.com/QEStudios/MusicTurtles/scheduler"
)

// An AtomicSound is a single note on the wall clock. Start and Duration are in
// seconds, Start relative to when playback began.
type AtomicSound struct {
	Start      float64
	Duration   float64
	Volume     music.Volume
	Pitch      music.Pitch
	Instrument music.Instrument
}

func FromScheduled(s scheduler.ScheduledSound) AtomicSound {
	return AtomicSound{
		Start:      s.Time,
		Duration:   s.Duration,
		Volume:     s.Volume,
		Pitch:      s.Pitch,
		Instrument: s.Instrument,
	}
}

func (s AtomicSound) end() float64 {
	return s.Start + s.Duration
}

// A Player starts a sound immediately. Play must not block for the length of
// the sound.
type Player interface {
	Play(AtomicSound) error
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// PlayFromOrderedChannel plays the sounds read from queue, each at its start
// time measured from when this function was called. Sounds must arrive ordered
// by start time. Errors from p are logged and playback continues.
//
// Once queue is closed it waits until the longest sound has finished. It
// returns ctx.Err() if ctx is cancelled first.
func PlayFromOrderedChannel(ctx context.Context, p Player, queue <-chan AtomicSound, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	t0 := time.Now()
	var tail float64

	for {
		var (
			sound AtomicSound
			ok    bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sound, ok = <-queue:
		}
		if !ok {
			break
		}

		if err := sleepUntil(ctx, t0.Add(seconds(sound.Start))); err != nil {
			return err
		}
		if err := p.Play(sound); err != nil {
			logger.Printf("failed to play %s on %s at %.3fs: %v", sound.Pitch, sound.Instrument, sound.Start, err)
		}
		tail = max(tail, sound.end())
	}

	return sleepUntil(ctx, t0.Add(seconds(tail)))
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
