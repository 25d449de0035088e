package scheduler

import (
	"sync"

	"github.com/QEStudios/MusicTurtles/music"
)

// Shared guards a Scheduler with a mutex so that a controller can swap the
// composition while the playback loop keeps calling Next.
type Shared struct {
	mu    sync.Mutex
	sched *Scheduler
}

func NewShared(s *Scheduler) *Shared {
	return &Shared{sched: s}
}

func (sh *Shared) Next(elapsed float64) []ScheduledSound {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.sched.Next(elapsed)
}

func (sh *Shared) Ended() bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.sched.Ended()
}

func (sh *Shared) SetComposition(c *music.Composition) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.sched.SetComposition(c)
}

func (sh *Shared) LookaheadSeconds() float64 {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.sched.LookaheadSeconds()
}
