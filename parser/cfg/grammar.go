package cfg

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/QEStudios/MusicTurtles/parser/scan"
)

// Small struct for non-fatal warnings
type ParseWarning struct {
	Line    int
	Message string
}

func (pw ParseWarning) String() string {
	return fmt.Sprintf("line %d: %s", pw.Line, pw.Message)
}

// Parser reads a grammar file line by line. The first meaningful line must be
// "start <NonTerminal>"; every later one is a production "<NonTerminal> = <music string>".
type Parser struct {
	scanner    *bufio.Scanner
	logger     *log.Logger
	lineNumber int
	grammar    Grammar

	// Index of each production already seen, for detecting duplicates.
	seen map[NonTerminal]int

	// Collect any warnings whilst parsing.
	warnings []ParseWarning

	// Parsing can only be done once per Parser.
	used bool
}

// NewParser creates a new parser to parse a grammar file.
func NewParser(r io.Reader, logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{
		scanner: bufio.NewScanner(r),
		logger:  logger,
		seen:    make(map[NonTerminal]int),
	}
}

// addWarning adds to the list of warnings encountered when parsing.
func (p *Parser) addWarning(format string, args ...any) {
	p.warnings = append(p.warnings, ParseWarning{
		Line:    p.lineNumber,
		Message: fmt.Sprintf(format, args...),
	})
}

// fatalf wraps err with the current line number. A *scan.Error stays reachable through errors.As.
func (p *Parser) fatalf(err error) error {
	return fmt.Errorf("line %d: %w", p.lineNumber, err)
}

// Warnings returns the warnings collected by Parse.
func (p *Parser) Warnings() []ParseWarning {
	return p.warnings
}

var startLine = scan.Consume(scan.Map(
	scan.Concat(scan.Literal("start"), scan.Concat(scan.Span("a space", isBlank), nonTerminal)),
	func(p scan.Pair[string, scan.Pair[string, NonTerminal]]) (NonTerminal, error) {
		return p.Second.Second, nil
	},
))

var production = scan.Map(
	scan.Concat(scan.Trim(nonTerminal), scan.Concat(scan.Literal("="), musicString)),
	func(p scan.Pair[NonTerminal, scan.Pair[string, MusicString]]) (Production, error) {
		return Production{Name: p.First, Body: p.Second.Second}, nil
	},
)

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

// Parse reads the whole grammar. Duplicate productions keep the last definition
// and produce a warning.
func (p *Parser) Parse() (*Grammar, error) {
	if p.used {
		return nil, fmt.Errorf("parser already used")
	}
	p.used = true

	started := false
	for p.scanner.Scan() {
		p.lineNumber++
		trimmedLine := strings.TrimSpace(p.scanner.Text())

		// Blank lines and comments are ignored anywhere in the file.
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "//") {
			continue
		}

		if !started {
			start, _, err := startLine.Scan(trimmedLine)
			if err != nil {
				return nil, p.fatalf(&scan.Error{Kind: scan.MissingStart, Message: fmt.Sprintf("found %q", trimmedLine)})
			}
			p.grammar.Start = start
			started = true
			continue
		}

		prod, _, err := scan.Consume(production).Scan(trimmedLine)
		if err != nil {
			return nil, p.fatalf(err)
		}
		if i, ok := p.seen[prod.Name]; ok {
			p.addWarning("production %s redefined, replacing the definition from before", prod.Name)
			p.grammar.Productions[i] = prod
			continue
		}
		p.seen[prod.Name] = len(p.grammar.Productions)
		p.grammar.Productions = append(p.grammar.Productions, prod)
	}
	if err := p.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading grammar: %w", err)
	}
	if !started {
		return nil, &scan.Error{Kind: scan.MissingStart, Message: "empty grammar"}
	}

	if len(p.warnings) > 0 {
		p.logger.Println("Warnings produced while parsing grammar:")
		for _, warning := range p.warnings {
			p.logger.Println(warning)
		}
	}

	return &p.grammar, nil
}

// ParseGrammar parses grammar text. Warnings are discarded.
func ParseGrammar(s string) (*Grammar, error) {
	return NewParser(strings.NewReader(s), log.New(io.Discard, "", 0)).Parse()
}

// Production returns the body for name, if the grammar defines one.
func (g *Grammar) Production(name NonTerminal) (MusicString, bool) {
	for i := len(g.Productions) - 1; i >= 0; i-- {
		if g.Productions[i].Name == name {
			return g.Productions[i].Body, true
		}
	}
	return nil, false
}

// productionHead matches the "<NonTerminal> =" that starts a production.
var productionHead = scan.Concat(scan.Trim(nonTerminal), scan.Literal("="))

// IsGrammar reports whether text looks like a grammar rather than a bare
// music string, judging by its first meaningful line. A grammar that starts
// with a production instead of a start line counts, so that parsing it
// reports the missing start.
func IsGrammar(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if _, _, err := startLine.Scan(line); err == nil {
			return true
		}
		_, _, err := productionHead.Scan(line)
		return err == nil
	}
	return false
}
