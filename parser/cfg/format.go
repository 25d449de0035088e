package cfg

import (
	"fmt"
	"strings"

	"github.com/QEStudios/MusicTurtles/music"
)

// String formats the music string in canonical form. Parsing the result gives
// back an equal MusicString whenever every octave is a single digit.
func (ms MusicString) String() string {
	var b strings.Builder
	writeMusicString(&b, ms)
	return b.String()
}

func (g *Grammar) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "start %s\n", g.Start)
	for _, prod := range g.Productions {
		fmt.Fprintf(&b, "%s = %s\n", prod.Name, prod.Body)
	}
	return b.String()
}

func writeMusicString(b *strings.Builder, ms MusicString) {
	for i, prim := range ms {
		if i > 0 {
			b.WriteByte(' ')
		}
		writePrimitive(b, prim)
	}
}

func writePrimitive(b *strings.Builder, prim Primitive) {
	switch prim := prim.(type) {
	case Simple:
		writeSymbol(b, prim.Symbol)
	case Split:
		b.WriteByte('{')
		for i, branch := range prim.Branches {
			if i > 0 {
				b.WriteString(" | ")
			}
			writeMusicString(b, branch)
		}
		b.WriteByte('}')
	case Transform:
		b.WriteByte('[')
		writeTransform(b, prim.Transform)
		b.WriteString("][")
		writeMusicString(b, prim.Content)
		b.WriteByte(']')
	default:
		panic(fmt.Sprintf("cfg: unknown primitive %T", prim))
	}
}

func writeSymbol(b *strings.Builder, sym Symbol) {
	switch sym := sym.(type) {
	case NonTerminal:
		b.WriteString(string(sym))
	case Music:
		b.WriteByte(':')
		if sym.Note.Rest {
			b.WriteByte('_')
		} else {
			fmt.Fprintf(b, "%d%s", sym.Note.Pitch.Octave, sym.Note.Pitch.Name())
		}
		writeDuration(b, sym.Duration)
	case ChangeInstrument:
		fmt.Fprintf(b, "::i=%s", sym.Instrument)
	case ChangeVolume:
		fmt.Fprintf(b, "::v=%d", sym.Volume)
	default:
		panic(fmt.Sprintf("cfg: unknown symbol %T", sym))
	}
}

func writeDuration(b *strings.Builder, d Duration) {
	if d.Unit == UnitBeats {
		fmt.Fprintf(b, "<%d>", d.Value.Num())
		return
	}
	fmt.Fprintf(b, "<%s>", d.Value)
}

func writeTransform(b *strings.Builder, t MusicTransform) {
	switch t := t.(type) {
	case Repeat:
		fmt.Fprintf(b, "x%d", t.N)
	case Transpose:
		fmt.Fprintf(b, "T%d", t.Semitones)
	case Compression:
		b.WriteString(">>")
		b.WriteString(fraction(t.Factor.Recip()))
	default:
		panic(fmt.Sprintf("cfg: unknown transform %T", t))
	}
}

// fraction prints whole numbers without a denominator.
func fraction(b music.Beat) string {
	if b.Den() == 1 {
		return fmt.Sprint(b.Num())
	}
	return b.String()
}
