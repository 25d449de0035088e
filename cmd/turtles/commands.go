package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/QEStudios/MusicTurtles/config"
	"github.com/QEStudios/MusicTurtles/music"
	"github.com/QEStudios/MusicTurtles/playback"
	"github.com/QEStudios/MusicTurtles/player"
	"github.com/QEStudios/MusicTurtles/scheduler"
)

var parseFlags struct {
	dump bool
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse and expand a source, printing the flat music string",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(args)
		if err != nil {
			return err
		}
		if src.composition != nil {
			return fmt.Errorf("%s is already composed", src.name)
		}
		ctx, finish := stats.StartTransaction(cmd.Context(), "turtles parse")
		defer finish()

		ms, grammar, err := parse(ctx, src)
		if err != nil {
			return err
		}
		if parseFlags.dump {
			if grammar != nil {
				spew.Dump(grammar)
			}
			spew.Dump(ms)
			return nil
		}
		fmt.Println(ms)
		return nil
	},
}

var composeFlags struct {
	output string
	format string
	smf    string
}

var composeCmd = &cobra.Command{
	Use:   "compose [file]",
	Short: "Compose a source and write the composition",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlags(cmd.Flags(), &settings); err != nil {
			return err
		}
		src, err := readSource(args)
		if err != nil {
			return err
		}
		ctx, finish := stats.StartTransaction(cmd.Context(), "turtles compose")
		defer finish()

		c, err := compose(ctx, src)
		if err != nil {
			return err
		}

		format, err := outputFormat(composeFlags.output, composeFlags.format)
		if err != nil {
			return err
		}
		if err := writeFile(composeFlags.output, func(w *bufio.Writer) error {
			return c.Encode(w, format)
		}); err != nil {
			return err
		}
		if composeFlags.smf != "" {
			if err := writeFile(composeFlags.smf, func(w *bufio.Writer) error {
				return player.WriteSMF(w, c, music.BPM(settings.BPM))
			}); err != nil {
				return err
			}
			logger.Printf("Wrote MIDI file %s", composeFlags.smf)
		}
		return nil
	},
}

// outputFormat picks --format, or the format matching the output extension,
// or JSON.
func outputFormat(output, flag string) (music.Format, error) {
	if flag != "" {
		return music.ParseFormat(flag)
	}
	if format, ok := compositionFormats[strings.ToLower(filepath.Ext(output))]; ok {
		return format, nil
	}
	return music.FormatJSON, nil
}

// writeFile writes to path, or to standard output when path is empty or "-".
func writeFile(path string, write func(*bufio.Writer) error) error {
	out := os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	if err := write(w); err != nil {
		return err
	}
	return w.Flush()
}

var playCmd = &cobra.Command{
	Use:   "play [file]",
	Short: "Play a source in real time",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlags(cmd.Flags(), &settings); err != nil {
			return err
		}
		src, err := readSource(args)
		if err != nil {
			return err
		}
		ctx, finish := stats.StartTransaction(cmd.Context(), "turtles play")
		defer finish()

		c, err := compose(ctx, src)
		if err != nil {
			return err
		}
		return play(ctx, c)
	},
}

func init() {
	parseCmd.Flags().BoolVar(&parseFlags.dump, "dump", false, "dump the parsed structures instead of printing them")

	composeCmd.Flags().StringVarP(&composeFlags.output, "output", "o", "", "output file (default standard output)")
	composeCmd.Flags().StringVarP(&composeFlags.format, "format", "f", "", "json or msgpack (default from the output extension)")
	composeCmd.Flags().StringVar(&composeFlags.smf, "smf", "", "also write a standard MIDI file")
	addTempoFlags(composeCmd.Flags())

	addTempoFlags(playCmd.Flags())
	playCmd.Flags().Bool("loop", false, "loop playback")
	playCmd.Flags().String("player", "", "sine or midi")
	playCmd.Flags().Int("tick", 0, "scheduler tick in milliseconds")
}

func addTempoFlags(fs *pflag.FlagSet) {
	fs.Float64("bpm", 0, "beats per minute")
	fs.String("time-signature", "", "time signature such as 3/4")
}

// applyFlags copies the flags the user set over the config file values.
// Flags a command does not define are never visited.
func applyFlags(fs *pflag.FlagSet, c *config.Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "bpm":
			c.BPM, err = fs.GetFloat64("bpm")
		case "time-signature":
			c.TimeSignature, err = parseTimeSignature(f.Value.String())
		case "loop":
			c.Looped, err = fs.GetBool("loop")
		case "player":
			c.Player = f.Value.String()
		case "tick":
			c.SchedulerTickMs, err = fs.GetInt("tick")
		}
	})
	if err != nil {
		return err
	}
	return c.Validate()
}

func parseTimeSignature(s string) ([2]int, error) {
	var ts [2]int
	if _, err := fmt.Sscanf(s, "%d/%d", &ts[0], &ts[1]); err != nil {
		return ts, fmt.Errorf("invalid time signature %q: %w", s, err)
	}
	return ts, nil
}

func play(ctx context.Context, c *music.Composition) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	settings.TimeSignature = [2]int{c.TimeSignature.Numerator, c.TimeSignature.Denominator}
	opts, err := settings.SchedulerOptions(c.Duration)
	if err != nil {
		return err
	}
	sched, err := scheduler.New(opts)
	if err != nil {
		return err
	}
	if err := sched.SetComposition(c); err != nil {
		return err
	}

	p, closePlayer, err := openPlayer()
	if err != nil {
		return err
	}
	defer func() {
		if err := closePlayer(); err != nil {
			logger.Printf("error closing %s player: %v", settings.Player, err)
		}
	}()

	logger.Printf("Playing at %v bpm in %s with the %s player", opts.BPM, opts.TimeSignature, settings.Player)
	start := time.Now()
	err = playback.Run(ctx, scheduler.NewShared(sched), settings.Tick(), p, logger)
	stats.RecordPlayback(ctx, time.Since(start), settings.Player, opts.Looped, err)
	return err
}

// openPlayer returns the configured player and a function releasing its
// device.
func openPlayer() (player.Player, func() error, error) {
	switch settings.Player {
	case config.PlayerSine:
		sink, err := player.NewOtoSink(settings.SampleRate)
		if err != nil {
			return nil, nil, fmt.Errorf("opening audio output: %w", err)
		}
		return player.NewSinePlayer(sink, settings.SampleRate), sink.Close, nil

	case config.PlayerMidi:
		mapping, err := settings.MidiMapping()
		if err != nil {
			return nil, nil, err
		}
		outputs, err := player.OpenMidiOutputs(mapping)
		if err != nil {
			return nil, nil, err
		}
		p, err := player.NewMidiPlayer(outputs.Ports, mapping, logger)
		if err != nil {
			outputs.Close()
			return nil, nil, err
		}
		if err := p.SendProgramChanges(); err != nil {
			logger.Printf("failed to select programs: %v", err)
		}
		return p, func() error {
			return errors.Join(p.Close(), outputs.Close())
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown player %q", settings.Player)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI outputs for use in midi.mapping",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := player.ListMidiOutputs()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			logger.Printf("No MIDI outputs found")
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}
