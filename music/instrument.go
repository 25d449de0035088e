package music

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Instrument is one of a closed set of instruments. Tracks are keyed by instrument.
type Instrument int

const (
	SineWave Instrument = iota
	Piano
	ElectricPiano
	Organ
	AcousticGuitar
	ElectricGuitar
	Bass
	Violin
	Cello
	Strings
	Trumpet
	Saxophone
	Flute
	Clarinet
	Choir
	Drums
)

type instrumentInfo struct {
	name    string
	program uint8 // General MIDI program, zero based.
	aliases []string
}

var instruments = map[Instrument]instrumentInfo{
	SineWave:       {"SineWave", 80, []string{"sine", "sin", "wave"}},
	Piano:          {"Piano", 0, []string{"grandpiano", "acousticpiano"}},
	ElectricPiano:  {"ElectricPiano", 4, []string{"epiano", "rhodes"}},
	Organ:          {"Organ", 19, []string{"churchorgan"}},
	AcousticGuitar: {"AcousticGuitar", 24, []string{"guitar", "nylonguitar"}},
	ElectricGuitar: {"ElectricGuitar", 27, []string{"eguitar"}},
	Bass:           {"Bass", 33, []string{"electricbass", "bassguitar"}},
	Violin:         {"Violin", 40, []string{"fiddle"}},
	Cello:          {"Cello", 42, nil},
	Strings:        {"Strings", 48, []string{"stringensemble"}},
	Trumpet:        {"Trumpet", 56, []string{"horn"}},
	Saxophone:      {"Saxophone", 65, []string{"sax", "altosax"}},
	Flute:          {"Flute", 73, nil},
	Clarinet:       {"Clarinet", 71, nil},
	Choir:          {"Choir", 52, []string{"voices", "aahs"}},
	Drums:          {"Drums", 0, []string{"drumkit", "percussion", "kit"}},
}

// fuzzyTable maps normalized names and aliases to instruments.
var fuzzyTable = func() map[string]Instrument {
	table := make(map[string]Instrument)
	for inst, info := range instruments {
		table[normalizeInstrumentName(info.name)] = inst
		for _, alias := range info.aliases {
			table[alias] = inst
		}
	}
	return table
}()

func normalizeInstrumentName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(name))
}

// Instruments returns every known instrument in declaration order.
func Instruments() []Instrument {
	all := make([]Instrument, 0, len(instruments))
	for inst := range instruments {
		all = append(all, inst)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// ParseInstrument matches name case-insensitively against the instrument table:
// first the exact name or an alias, then a unique prefix of one.
func ParseInstrument(name string) (Instrument, error) {
	key := normalizeInstrumentName(name)
	if key == "" {
		return SineWave, fmt.Errorf("empty instrument name")
	}
	if inst, ok := fuzzyTable[key]; ok {
		return inst, nil
	}

	found := make(map[Instrument]bool)
	for candidate, inst := range fuzzyTable {
		if strings.HasPrefix(candidate, key) {
			found[inst] = true
		}
	}
	if len(found) == 1 {
		for inst := range found {
			return inst, nil
		}
	}
	if len(found) > 1 {
		return SineWave, fmt.Errorf("ambiguous instrument %q", name)
	}
	return SineWave, fmt.Errorf("unknown instrument %q", name)
}

func (i Instrument) isValid() bool {
	_, ok := instruments[i]
	return ok
}

func (i Instrument) String() string {
	if info, ok := instruments[i]; ok {
		return info.name
	}
	return fmt.Sprintf("Instrument(%d)", int(i))
}

// Program returns the General MIDI program number (zero based) for the instrument.
func (i Instrument) Program() uint8 {
	return instruments[i].program
}

func (i Instrument) MarshalText() ([]byte, error) {
	if !i.isValid() {
		return nil, fmt.Errorf("invalid instrument %d", int(i))
	}
	return []byte(i.String()), nil
}

func (i *Instrument) UnmarshalText(text []byte) error {
	inst, err := ParseInstrument(string(text))
	if err != nil {
		return err
	}
	*i = inst
	return nil
}

func (i Instrument) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(i.String())
}

func (i *Instrument) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}
	return i.UnmarshalText([]byte(s))
}
