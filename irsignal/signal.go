package irsignal

import (
	"fmt"
	"math"
	"strconv"
)

// Kind tags the shape of a Signal.
type Kind int

const (
	// Flat is a single already-reduced sequence.
	Flat Kind = iota
	// Structured is an intro/repeat/ending triple with optional modulation.
	Structured
)

func (k Kind) String() string {
	switch k {
	case Flat:
		return "flat"
	case Structured:
		return "structured"
	default:
		return "unknown"
	}
}

// Modulation describes the carrier. Zero values mean undefined.
type Modulation struct {
	Frequency float64
	DutyCycle float64
}

func (m Modulation) validate() error {
	if m.Frequency != 0 && (math.IsNaN(m.Frequency) || math.IsInf(m.Frequency, 0) || m.Frequency < 0) {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, m.Frequency)
	}
	if m.DutyCycle != 0 && (math.IsNaN(m.DutyCycle) || m.DutyCycle < 0 || m.DutyCycle > 1) {
		return fmt.Errorf("%w: %v", ErrInvalidDutyCycle, m.DutyCycle)
	}
	return nil
}

// Signal is either a Flat sequence or a Structured intro/repeat/ending
// triple. Values are immutable; the With* methods return replacements.
type Signal struct {
	kind       Kind
	flat       Sequence
	intro      Sequence
	repeat     Sequence
	ending     Sequence
	modulation Modulation
}

func NewFlatSignal(seq Sequence) Signal {
	return Signal{kind: Flat, flat: seq}
}

func NewStructuredSignal(intro, repeat, ending Sequence, mod Modulation) (Signal, error) {
	if err := mod.validate(); err != nil {
		return Signal{}, err
	}
	return Signal{kind: Structured, intro: intro, repeat: repeat, ending: ending, modulation: mod}, nil
}

func (s Signal) Kind() Kind { return s.kind }

func (s Signal) Flat() Sequence   { return s.flat }
func (s Signal) Intro() Sequence  { return s.intro }
func (s Signal) Repeat() Sequence { return s.repeat }
func (s Signal) Ending() Sequence { return s.ending }

// Frequency returns the carrier frequency in Hz, if defined.
func (s Signal) Frequency() (float64, bool) {
	return s.modulation.Frequency, s.modulation.Frequency > 0
}

// DutyCycle returns the carrier duty cycle, if defined.
func (s Signal) DutyCycle() (float64, bool) {
	return s.modulation.DutyCycle, s.modulation.DutyCycle > 0
}

// Sequence flattens the signal: the flat sequence itself, or intro, repeat
// and ending back to back.
func (s Signal) Sequence() Sequence {
	if s.kind == Flat {
		return s.flat
	}
	return s.intro.Concat(s.repeat, s.ending)
}

func (s Signal) WithFlat(seq Sequence) (Signal, error) {
	if s.kind != Flat {
		return Signal{}, ErrKindMismatch
	}
	s.flat = seq
	return s, nil
}

func (s Signal) WithIntro(seq Sequence) (Signal, error) {
	if s.kind != Structured {
		return Signal{}, ErrKindMismatch
	}
	s.intro = seq
	return s, nil
}

func (s Signal) WithRepeat(seq Sequence) (Signal, error) {
	if s.kind != Structured {
		return Signal{}, ErrKindMismatch
	}
	s.repeat = seq
	return s, nil
}

func (s Signal) WithEnding(seq Sequence) (Signal, error) {
	if s.kind != Structured {
		return Signal{}, ErrKindMismatch
	}
	s.ending = seq
	return s, nil
}

func (s Signal) WithFrequency(frequency float64) (Signal, error) {
	if s.kind != Structured {
		return Signal{}, ErrKindMismatch
	}
	mod := s.modulation
	mod.Frequency = frequency
	if err := mod.validate(); err != nil {
		return Signal{}, err
	}
	s.modulation = mod
	return s, nil
}

func (s Signal) Equal(o Signal) bool {
	return s.kind == o.kind &&
		s.flat.Equal(o.flat) &&
		s.intro.Equal(o.intro) &&
		s.repeat.Equal(o.repeat) &&
		s.ending.Equal(o.ending) &&
		s.modulation == o.modulation
}

func (s Signal) String() string {
	if s.kind == Flat {
		return s.flat.String()
	}
	freq := "?"
	if f, ok := s.Frequency(); ok {
		freq = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("Freq=%sHz[%s][%s][%s]", freq, s.intro, s.repeat, s.ending)
}
