package cfg

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/QEStudios/MusicTurtles/music"
	"github.com/QEStudios/MusicTurtles/parser/scan"
)

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNonTerminalByte(c byte) bool {
	switch c {
	case '-', '/', '#', '?':
		return true
	}
	return isAlnum(c)
}

func isInstrumentByte(c byte) bool {
	return isAlnum(c) || c == '_'
}

var unsigned = scan.Map(scan.Span("a number", isDigit), func(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, scan.Errorf("number %s out of range", s)
	}
	return n, nil
})

var signed = scan.Disjoint(
	scan.Prefixed("-", scan.Map(unsigned, func(n int64) (int64, error) { return -n, nil })),
	scan.Prefixed("+", unsigned),
	scan.Prefixed("", unsigned),
)

// denominator reads an optional "/d". Zero stands for "absent".
var denominator = scan.Disjoint(
	scan.Prefixed("/", scan.Map(unsigned, func(d int64) (int64, error) {
		if d == 0 {
			return 0, scan.Errorf("zero denominator")
		}
		return d, nil
	})),
	scan.Prefixed("", scan.Func[int64](func(input string) (int64, string, error) {
		return 0, input, nil
	})),
)

var nonTerminal = scan.Map(scan.Span("a non-terminal", isNonTerminalByte), func(s string) (NonTerminal, error) {
	return NonTerminal(s), nil
})

var pitch = scan.Func[Note](func(input string) (Note, string, error) {
	octave := 4
	rest := input
	if rest != "" && isDigit(rest[0]) {
		octave = int(rest[0] - '0')
		rest = rest[1:]
	}
	if rest == "" {
		return Note{}, input, scan.Errorf("expected a note name at %q", input)
	}
	offset, ok := music.NoteOffsets[byte(unicode.ToLower(rune(rest[0])))]
	if !ok {
		return Note{}, input, scan.Errorf("invalid note name %q", rest[0])
	}
	rest = rest[1:]
	if rest != "" {
		switch rest[0] {
		case '#':
			offset++
			rest = rest[1:]
		case 'b':
			offset += 11
			rest = rest[1:]
		}
	}
	return Note{Pitch: music.Pitch{Octave: octave, Semitone: offset % 12}}, rest, nil
})

var note = scan.Disjoint(
	scan.Prefixed("_", scan.Func[Note](func(input string) (Note, string, error) {
		return Note{Rest: true}, input, nil
	})),
	scan.Prefixed("", pitch),
)

var durationValue = scan.Map(scan.Concat(unsigned, denominator), func(p scan.Pair[int64, int64]) (Duration, error) {
	if p.Second == 0 {
		return Duration{Value: music.Whole(p.First), Unit: UnitBeats}, nil
	}
	return Duration{Value: music.NewBeat(p.First, p.Second), Unit: UnitWhole}, nil
})

// duration reads an optional "<n>" or "<n/d>".
var duration = scan.Func[Duration](func(input string) (Duration, string, error) {
	inner, ok := strings.CutPrefix(input, "<")
	if !ok {
		return DefaultDuration, input, nil
	}
	end := strings.IndexByte(inner, '>')
	if end < 0 {
		return Duration{}, input, &scan.Error{Kind: scan.UnbalancedBracket, Bracket: '<'}
	}
	d, _, err := scan.Consume(scan.Trim(durationValue)).Scan(inner[:end])
	if err != nil {
		return Duration{}, input, err
	}
	return d, inner[end+1:], nil
})

var musicTerminal = scan.Map(scan.Concat(note, duration), func(p scan.Pair[Note, Duration]) (Symbol, error) {
	return Music{Duration: p.Second, Note: p.First}, nil
})

var changeInstrument = scan.Map(scan.Span("an instrument name", isInstrumentByte), func(name string) (Symbol, error) {
	inst, err := music.ParseInstrument(name)
	if err != nil {
		return nil, scan.Errorf("%v", err)
	}
	return ChangeInstrument{Instrument: inst}, nil
})

var changeVolume = scan.Map(unsigned, func(v int64) (Symbol, error) {
	if v > int64(music.MaxVolume) {
		return nil, scan.Errorf("volume %d is above %d", v, music.MaxVolume)
	}
	return ChangeVolume{Volume: music.Volume(v)}, nil
})

var metaControl = scan.Disjoint(
	scan.Prefixed("i=", changeInstrument),
	scan.Prefixed("v=", changeVolume),
)

var terminal = scan.Disjoint(
	scan.Prefixed(":", metaControl),
	scan.Prefixed("", musicTerminal),
)

var symbol = scan.Disjoint(
	scan.Prefixed(":", terminal),
	scan.Prefixed("", scan.Map(nonTerminal, func(nt NonTerminal) (Symbol, error) { return nt, nil })),
)

var repeat = scan.Map(unsigned, func(n int64) (MusicTransform, error) {
	if n < 1 {
		return nil, scan.Errorf("repeat count must be at least 1, got %d", n)
	}
	return Repeat{N: int(n)}, nil
})

var transpose = scan.Map(signed, func(k int64) (MusicTransform, error) {
	return Transpose{Semitones: int(k)}, nil
})

var compression = scan.Map(scan.Concat(signed, denominator), func(p scan.Pair[int64, int64]) (MusicTransform, error) {
	num, den := p.First, p.Second
	if den == 0 {
		den = 1
	}
	if num <= 0 {
		return nil, scan.Errorf("compression must be positive, got %d/%d", num, den)
	}
	return Compression{Factor: music.NewBeat(den, num)}, nil
})

var transform = scan.Disjoint(
	scan.Prefixed("x", repeat),
	scan.Prefixed("T", transpose),
	scan.Prefixed(">>", compression),
)

// primitive is assigned in init because it is recursive through musicString.
var primitive scan.Scanner[Primitive]

func init() {
	primitive = scan.Disjoint(
		scan.Prefixed("{", scan.Func[Primitive](scanSplit)),
		scan.Prefixed("[", scan.Func[Primitive](scanTransform)),
		scan.Prefixed("", scan.Map(symbol, func(s Symbol) (Primitive, error) { return Simple{Symbol: s}, nil })),
	)
}

var musicString = scan.MapInput(scan.Func[MusicString](scanMusicString), stripComment)

// stripComment drops "//" comments up to the end of their line. The slashes
// must start the line or follow whitespace since '/' is also valid inside a
// non-terminal.
func stripComment(input string) string {
	if !strings.Contains(input, "//") {
		return input
	}
	lines := strings.Split(input, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return strings.Join(lines, "\n")
}

func stripLineComment(line string) string {
	if strings.HasPrefix(line, "//") {
		return ""
	}
	for i := 1; i+1 < len(line); i++ {
		if line[i] == '/' && line[i+1] == '/' && unicode.IsSpace(rune(line[i-1])) {
			return line[:i]
		}
	}
	return line
}

func scanMusicString(input string) (MusicString, string, error) {
	prims, rest, _ := scan.Kleene(scan.Trim(primitive)).Scan(input)
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	if rest == "" {
		return MusicString(prims), "", nil
	}
	// Kleene stopped early; scan again to report why.
	if _, _, err := primitive.Scan(rest); err != nil {
		return nil, rest, err
	}
	return nil, rest, &scan.Error{Kind: scan.TrailingInput, Remaining: rest}
}

// scanSplit reads "a | b | c}" once the opening brace has been consumed.
func scanSplit(input string) (Primitive, string, error) {
	end, err := scan.FindMatching(input, '{', '}')
	if err != nil {
		return nil, input, err
	}
	parts := scan.SplitTopLevel(input[:end], '|')
	split := Split{Branches: make([]MusicString, 0, len(parts))}
	for _, part := range parts {
		branch, _, err := scan.Consume(musicString).Scan(part)
		if err != nil {
			return nil, input, err
		}
		split.Branches = append(split.Branches, branch)
	}
	return split, input[end+1:], nil
}

// scanTransform reads "x3][content]" once the first '[' has been consumed.
func scanTransform(input string) (Primitive, string, error) {
	end := strings.IndexByte(input, ']')
	if end < 0 {
		return nil, input, &scan.Error{Kind: scan.UnbalancedBracket, Bracket: '['}
	}
	t, _, err := scan.Consume(scan.Trim(transform)).Scan(input[:end])
	if err != nil {
		return nil, input, err
	}

	body, ok := strings.CutPrefix(input[end+1:], "[")
	if !ok {
		return nil, input, scan.Errorf("expected \"[\" after transform %q", input[:end])
	}
	closing, err := scan.FindMatching(body, '[', ']')
	if err != nil {
		return nil, input, err
	}
	content, _, err := scan.Consume(musicString).Scan(body[:closing])
	if err != nil {
		return nil, input, err
	}
	return Transform{Transform: t, Content: content}, body[closing+1:], nil
}

// ParseMusicString parses a bare music string. The whole input must be used.
func ParseMusicString(s string) (MusicString, error) {
	ms, _, err := scan.Consume(musicString).Scan(s)
	if err != nil {
		return nil, err
	}
	return ms, nil
}
