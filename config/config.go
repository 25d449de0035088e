// Package config loads the playback settings shared by the turtles commands.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/QEStudios/MusicTurtles/music"
	"github.com/QEStudios/MusicTurtles/player"
	"github.com/QEStudios/MusicTurtles/scheduler"
)

const (
	PlayerSine = "sine"
	PlayerMidi = "midi"
)

// LoopTime is a position written as whole measures plus a fraction of a
// measure in whole notes, e.g. {m: 2, beat: "1/4"}.
type LoopTime struct {
	Measures int    `yaml:"m"`
	Beat     string `yaml:"beat,omitempty"`
}

func (l LoopTime) MusicTime() (music.MusicTime, error) {
	t := music.Measures(l.Measures)
	if l.Beat == "" {
		return t, nil
	}
	b, err := music.ParseBeat(l.Beat)
	if err != nil {
		return music.MusicTime{}, fmt.Errorf("loop_time.beat: %w", err)
	}
	t.Beat = b
	return t, nil
}

type Midi struct {
	// Mapping is keyed by instrument name, matched like ::i= in a music string.
	Mapping map[string]player.Output `yaml:"mapping,omitempty"`
}

type Config struct {
	BPM             float64 `yaml:"bpm"`
	TimeSignature   [2]int  `yaml:"time_signature"`
	SchedulerTickMs int     `yaml:"scheduler_tick_ms"`
	// LookaheadMeasures is a fraction such as "1" or "1/2".
	LookaheadMeasures string    `yaml:"lookahead_measures"`
	Looped            bool      `yaml:"looped"`
	LoopTime          *LoopTime `yaml:"loop_time,omitempty"`
	Player            string    `yaml:"player"`
	SampleRate        int       `yaml:"sample_rate"`
	Midi              Midi      `yaml:"midi"`
	SentryDSN         string    `yaml:"sentry_dsn,omitempty"`
}

func Default() Config {
	return Config{
		BPM:               120,
		TimeSignature:     [2]int{4, 4},
		SchedulerTickMs:   50,
		LookaheadMeasures: "1",
		Player:            PlayerSine,
		SampleRate:        player.DefaultSampleRate,
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.UnmarshalWithOptions(data, &c, yaml.Strict()); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, c.Validate()
}

func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c Config) Signature() music.TimeSignature {
	return music.TimeSignature{Numerator: c.TimeSignature[0], Denominator: c.TimeSignature[1]}
}

func (c Config) Tick() time.Duration {
	return time.Duration(c.SchedulerTickMs) * time.Millisecond
}

func (c Config) Validate() error {
	if c.BPM <= 0 {
		return fmt.Errorf("bpm must be positive, got %v", c.BPM)
	}
	if err := c.Signature().Validate(); err != nil {
		return fmt.Errorf("time_signature: %w", err)
	}
	if c.SchedulerTickMs <= 0 {
		return fmt.Errorf("scheduler_tick_ms must be positive, got %d", c.SchedulerTickMs)
	}
	lookahead, err := music.ParseBeat(c.LookaheadMeasures)
	if err != nil {
		return fmt.Errorf("lookahead_measures: %w", err)
	}
	if lookahead.Sign() <= 0 {
		return fmt.Errorf("lookahead_measures must be positive, got %s", lookahead)
	}
	if c.LoopTime != nil {
		if _, err := c.LoopTime.MusicTime(); err != nil {
			return err
		}
	}
	switch c.Player {
	case PlayerSine:
		if c.SampleRate <= 0 {
			return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
		}
	case PlayerMidi:
		if len(c.Midi.Mapping) == 0 {
			return fmt.Errorf("the midi player needs at least one entry in midi.mapping")
		}
		if _, err := c.MidiMapping(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown player %q (expected %s|%s)", c.Player, PlayerSine, PlayerMidi)
	}
	return nil
}

// MidiMapping resolves the instrument names of midi.mapping.
func (c Config) MidiMapping() (map[music.Instrument]player.Output, error) {
	mapping := make(map[music.Instrument]player.Output, len(c.Midi.Mapping))
	for name, out := range c.Midi.Mapping {
		instrument, err := music.ParseInstrument(name)
		if err != nil {
			return nil, fmt.Errorf("midi.mapping: %w", err)
		}
		if _, ok := mapping[instrument]; ok {
			return nil, fmt.Errorf("midi.mapping: %s is mapped more than once", instrument)
		}
		mapping[instrument] = out
	}
	return mapping, nil
}

// SchedulerOptions builds the scheduler options. Without a loop_time, a looped
// scheduler wraps at compositionLength.
func (c Config) SchedulerOptions(compositionLength music.MusicTime) (scheduler.Options, error) {
	ts := c.Signature()
	lookahead, err := music.ParseBeat(c.LookaheadMeasures)
	if err != nil {
		return scheduler.Options{}, fmt.Errorf("lookahead_measures: %w", err)
	}
	opts := scheduler.Options{
		BPM:           music.BPM(c.BPM),
		TimeSignature: ts,
		Lookahead:     music.FromWhole(ts, lookahead.Mul(ts.MeasureLength())),
		Looped:        c.Looped,
		LoopTime:      compositionLength,
	}
	if c.LoopTime != nil {
		if opts.LoopTime, err = c.LoopTime.MusicTime(); err != nil {
			return scheduler.Options{}, err
		}
	}
	return opts, opts.Validate()
}
