// Package playback connects a scheduler to a player in real time.
package playback

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/QEStudios/MusicTurtles/player"
	"github.com/QEStudios/MusicTurtles/scheduler"
)

// DefaultTick is how often the scheduler is asked for sounds by default.
const DefaultTick = 50 * time.Millisecond

// Run plays the scheduler's composition on p until it ends or ctx is
// cancelled. One goroutine ticks the scheduler and queues what it returns,
// another plays the queue. A cancelled ctx is not reported as an error.
func Run(ctx context.Context, sched *scheduler.Shared, tick time.Duration, p player.Player, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	if lookahead := sched.LookaheadSeconds(); tick.Seconds() > lookahead/2 {
		logger.Printf("scheduler tick %v is more than half the lookahead of %.3fs, sounds may start late", tick, lookahead)
	}

	g, ctx := errgroup.WithContext(ctx)
	queue := make(chan player.AtomicSound, 64)
	start := time.Now()

	g.Go(func() error {
		defer close(queue)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			for _, s := range sched.Next(time.Since(start).Seconds()) {
				select {
				case queue <- player.FromScheduled(s):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if sched.Ended() {
				logger.Printf("all sounds scheduled after %.1fs", time.Since(start).Seconds())
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	g.Go(func() error {
		return player.PlayFromOrderedChannel(ctx, p, queue, logger)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
