package player

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/QEStudios/MusicTurtles/music"
)

// UnknownInstrumentError is returned when a sound uses an instrument that has
// no MIDI output mapped to it.
type UnknownInstrumentError struct {
	Instrument music.Instrument
}

func (e *UnknownInstrumentError) Error() string {
	return fmt.Sprintf("no MIDI output mapped for instrument %s", e.Instrument)
}

// A Port is an open MIDI output.
type Port interface {
	Send(msg []byte) error
}

// Output names the port and channel an instrument is played on.
type Output struct {
	Port    string `yaml:"port"`
	Channel uint8  `yaml:"channel"`
}

type lockedPort struct {
	mu   sync.Mutex
	port Port
}

func (p *lockedPort) send(msg midi.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port.Send(msg)
}

// MidiPlayer sends a note on for each sound as it is played and the matching
// note off once the sound's duration has passed.
type MidiPlayer struct {
	mapping map[music.Instrument]Output
	ports   map[string]*lockedPort
	logger  *log.Logger
	pending sync.WaitGroup
}

// NewMidiPlayer checks that every output in mapping names one of ports and a
// valid channel.
func NewMidiPlayer(ports map[string]Port, mapping map[music.Instrument]Output, logger *log.Logger) (*MidiPlayer, error) {
	if logger == nil {
		logger = log.Default()
	}
	p := &MidiPlayer{
		mapping: mapping,
		ports:   make(map[string]*lockedPort, len(ports)),
		logger:  logger,
	}
	for name, port := range ports {
		p.ports[name] = &lockedPort{port: port}
	}
	for instrument, out := range mapping {
		if _, ok := p.ports[out.Port]; !ok {
			return nil, fmt.Errorf("instrument %s is mapped to unknown port %q", instrument, out.Port)
		}
		if out.Channel > 15 {
			return nil, fmt.Errorf("instrument %s is mapped to channel %d, must be 0-15", instrument, out.Channel)
		}
	}
	return p, nil
}

func (p *MidiPlayer) output(instrument music.Instrument) (*lockedPort, uint8, error) {
	out, ok := p.mapping[instrument]
	if !ok {
		return nil, 0, &UnknownInstrumentError{Instrument: instrument}
	}
	return p.ports[out.Port], out.Channel, nil
}

func (p *MidiPlayer) Play(s AtomicSound) error {
	port, channel, err := p.output(s.Instrument)
	if err != nil {
		return err
	}
	if n := s.Pitch.MIDI(); n < 0 || n > 127 {
		return fmt.Errorf("pitch %s is outside the MIDI range", s.Pitch)
	}
	key := uint8(s.Pitch.MIDI())
	if err := port.send(midi.NoteOn(channel, key, s.Volume.Velocity())); err != nil {
		return fmt.Errorf("note on: %w", err)
	}

	p.pending.Add(1)
	time.AfterFunc(seconds(s.Duration), func() {
		defer p.pending.Done()
		if err := port.send(midi.NoteOff(channel, key)); err != nil {
			p.logger.Printf("failed to send note off for %s on %s: %v", s.Pitch, s.Instrument, err)
		}
	})
	return nil
}

// SendProgramChanges selects the General MIDI program of every mapped
// instrument on its channel.
func (p *MidiPlayer) SendProgramChanges() error {
	var errs []error
	for instrument, out := range p.mapping {
		msg := midi.ProgramChange(out.Channel, instrument.Program())
		if err := p.ports[out.Port].send(msg); err != nil {
			errs = append(errs, fmt.Errorf("program change for %s: %w", instrument, err))
		}
	}
	return errors.Join(errs...)
}

// Close waits for every pending note off to be sent. It does not close the
// ports.
func (p *MidiPlayer) Close() error {
	p.pending.Wait()
	return nil
}

// Outputs holds the MIDI output ports opened by OpenMidiOutputs.
type Outputs struct {
	driver *rtmididrv.Driver
	outs   []drivers.Out
	// Ports maps a port name as written in a mapping to the open port.
	Ports map[string]Port
}

// ListMidiOutputs returns the names of the MIDI outputs on this machine.
func ListMidiOutputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("opening MIDI driver: %w", err)
	}
	defer drv.Close()

	outs, err := drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI outputs: %w", err)
	}
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	sort.Strings(names)
	return names, nil
}

// OpenMidiOutputs opens the outputs named by mapping. A name matches an output
// with exactly that name, or failing that the only output whose name contains
// it.
func OpenMidiOutputs(mapping map[music.Instrument]Output) (*Outputs, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("opening MIDI driver: %w", err)
	}
	available, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("listing MIDI outputs: %w", err)
	}

	o := &Outputs{driver: drv, Ports: make(map[string]Port)}
	for _, out := range mapping {
		if _, ok := o.Ports[out.Port]; ok {
			continue
		}
		found, err := findOutput(available, out.Port)
		if err != nil {
			o.Close()
			return nil, err
		}
		if err := found.Open(); err != nil {
			o.Close()
			return nil, fmt.Errorf("opening MIDI output %q: %w", found, err)
		}
		o.outs = append(o.outs, found)
		o.Ports[out.Port] = found
	}
	return o, nil
}

func findOutput(outs []drivers.Out, name string) (drivers.Out, error) {
	var partial []drivers.Out
	for _, out := range outs {
		if out.String() == name {
			return out, nil
		}
		if strings.Contains(strings.ToLower(out.String()), strings.ToLower(name)) {
			partial = append(partial, out)
		}
	}
	switch len(partial) {
	case 0:
		return nil, fmt.Errorf("MIDI output %q not found", name)
	case 1:
		return partial[0], nil
	}
	return nil, fmt.Errorf("MIDI output %q is ambiguous, matches %d outputs", name, len(partial))
}

// Close closes every opened port and the driver.
func (o *Outputs) Close() error {
	var errs []error
	for _, out := range o.outs {
		errs = append(errs, out.Close())
	}
	o.outs = nil
	errs = append(errs, o.driver.Close())
	return errors.Join(errs...)
}
