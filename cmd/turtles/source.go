package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sqweek/dialog"
	"golang.org/x/term"

	"github.com/QEStudios/MusicTurtles/composer"
	"github.com/QEStudios/MusicTurtles/music"
	"github.com/QEStudios/MusicTurtles/parser/cfg"
)

// Extensions accepted for music strings and grammars.
var textExtensions = []string{".mt", ".cfg", ".txt"}

// Extensions of compositions written by the compose command.
var compositionFormats = map[string]music.Format{
	".json":    music.FormatJSON,
	".msgpack": music.FormatMsgpack,
}

// source is the text to parse, or an already composed composition.
type source struct {
	name        string
	text        string
	composition *music.Composition
}

// readSource resolves the input of a command: --expr, then the first
// argument, then standard input when it is not a terminal, then a file
// dialog.
func readSource(args []string) (source, error) {
	if expr != "" {
		return source{name: "expression", text: expr}, nil
	}

	if len(args) == 0 && !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return source{}, fmt.Errorf("reading standard input: %w", err)
		}
		return source{name: "stdin", text: string(data)}, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return source{}, fmt.Errorf("failed to get current working directory: %w", err)
	}
	path, err := choosePath(cwd, args)
	if err != nil {
		return source{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return source{}, fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	if format, ok := compositionFormats[strings.ToLower(filepath.Ext(path))]; ok {
		c, err := music.Decode(file, format)
		if err != nil {
			return source{}, fmt.Errorf("%s: %w", path, err)
		}
		return source{name: path, composition: c}, nil
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return source{}, fmt.Errorf("error reading file: %w", err)
	}
	return source{name: path, text: string(data)}, nil
}

// parse turns source text into a flat music string, expanding it first if
// it is a grammar.
func parse(ctx context.Context, src source) (cfg.MusicString, *cfg.Grammar, error) {
	start := time.Now()
	var (
		ms      cfg.MusicString
		grammar *cfg.Grammar
		err     error
	)
	if cfg.IsGrammar(src.text) {
		p := cfg.NewParser(strings.NewReader(src.text), logger)
		grammar, err = p.Parse()
		if err == nil {
			ms, err = grammar.Expand()
		}
	} else {
		ms, err = cfg.ParseMusicString(strings.TrimSpace(src.text))
	}

	productions := 0
	if grammar != nil {
		productions = len(grammar.Productions)
	}
	stats.RecordParse(ctx, time.Since(start), len(src.text), productions, err)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", src.name, err)
	}
	return ms, grammar, nil
}

// compose returns the composition of src in the configured time signature.
func compose(ctx context.Context, src source) (*music.Composition, error) {
	if src.composition != nil {
		return src.composition, nil
	}
	ms, _, err := parse(ctx, src)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	c, err := composer.Compose(ms, settings.Signature())
	if err != nil {
		stats.RecordCompose(ctx, time.Since(start), 0, 0, err)
		return nil, fmt.Errorf("%s: %w", src.name, err)
	}
	stats.RecordCompose(ctx, time.Since(start), len(c.Tracks), c.EventCount(), nil)
	logger.Printf("Composed %d events on %d tracks, %s long", c.EventCount(), len(c.Tracks), c.Duration)
	return c, nil
}

// choosePath returns the file path either from the command-line args
// or from an interactive file dialog.
func choosePath(cwd string, args []string) (string, error) {
	if len(args) > 0 {
		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return "", fmt.Errorf("cannot get absolute path: %w", err)
		}
		if err := validatePath(absPath); err != nil {
			return "", fmt.Errorf("passed argument is not a valid path: %w", err)
		}
		return absPath, nil
	}

	path, err := dialog.
		File().
		Title("Open music string").
		Filter("Music strings and grammars (*.mt, *.cfg, *.txt)", "mt", "cfg", "txt").
		Filter("Compositions (*.json, *.msgpack)", "json", "msgpack").
		SetStartDir(cwd).
		Load()
	if err != nil {
		// Caller checks for dialog.ErrCancelled.
		return "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot get absolute path: %w", err)
	}
	if absPath == "" {
		return "", dialog.ErrCancelled
	}
	if err := validatePath(absPath); err != nil {
		return "", fmt.Errorf("dialog selection invalid: %w", err)
	}
	return absPath, nil
}

// validatePath checks the extension and that the file exists.
func validatePath(p string) error {
	ext := strings.ToLower(filepath.Ext(p))
	if _, ok := compositionFormats[ext]; !ok && !slices.Contains(textExtensions, ext) {
		return fmt.Errorf("file must have one of the extensions %s, .json or .msgpack", strings.Join(textExtensions, ", "))
	}
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	return nil
}
