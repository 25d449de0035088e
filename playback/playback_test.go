package playback

import (
	"bytes"
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QEStudios/MusicTurtles/composer"
	"github.com/QEStudios/MusicTurtles/music"
	"github.com/QEStudios/MusicTurtles/parser/cfg"
	"github.com/QEStudios/MusicTurtles/player"
	"github.com/QEStudios/MusicTurtles/scheduler"
)

type countingPlayer struct {
	mu     sync.Mutex
	sounds []player.AtomicSound
}

func (p *countingPlayer) Play(s player.AtomicSound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sounds = append(p.sounds, s)
	return nil
}

func (p *countingPlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sounds)
}

func shared(t *testing.T, s string, looped bool) *scheduler.Shared {
	t.Helper()
	ms, err := cfg.ParseMusicString(s)
	require.NoError(t, err)
	c, err := composer.Compose(ms, music.CommonTime)
	require.NoError(t, err)

	sched, err := scheduler.New(scheduler.Options{
		BPM:           600,
		TimeSignature: music.CommonTime,
		Lookahead:     music.Measures(1),
		Looped:        looped,
		LoopTime:      music.Measures(1),
	})
	require.NoError(t, err)
	require.NoError(t, sched.SetComposition(c))
	return scheduler.NewShared(sched)
}

func TestRunPlaysEverything(t *testing.T) {
	p := &countingPlayer{}
	sh := shared(t, ":4c :4d {:4e | :4g} :4f", false)

	err := Run(context.Background(), sh, 10*time.Millisecond, p, log.New(&bytes.Buffer{}, "", 0))
	require.NoError(t, err)
	assert.Equal(t, 5, p.count())
	for i := 1; i < len(p.sounds); i++ {
		assert.LessOrEqual(t, p.sounds[i-1].Start, p.sounds[i].Start)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p := &countingPlayer{}
	sh := shared(t, ":4c :4d :4e :4f", true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(300*time.Millisecond, cancel)
	err := Run(ctx, sh, 10*time.Millisecond, p, log.New(&bytes.Buffer{}, "", 0))
	assert.NoError(t, err)
	// A measure at 600 bpm lasts 0.4s so the loop has at least started.
	assert.Positive(t, p.count())
}

func TestRunWarnsAboutSlowTick(t *testing.T) {
	var logs bytes.Buffer
	sh := shared(t, ":4c<1/16>", false)
	require.NoError(t, Run(context.Background(), sh, 300*time.Millisecond, &countingPlayer{}, log.New(&logs, "", 0)))
	assert.Contains(t, logs.String(), "more than half the lookahead")
}
