// Package capture holds the wire format shared by the serial collector and
// the server: frames of mark/space tick counts tagged with the collector
// that recorded them.
package capture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/derktes/ir-signal-workbench/irsignal"
)

var (
	ErrNoHeader      = errors.New("frame has no header")
	ErrMalformedPair = errors.New("frame pair must hold a mark and a space")
	ErrResolution    = errors.New("frame resolution must be positive")
)

// TaggedFrame is what a collector publishes.
type TaggedFrame struct {
	CollectorID string `json:"collectorId"`
	Frame       Frame  `json:"frame"`
}

// Frame lists [mark, space] pairs in ticks of Resolution microseconds.
type Frame struct {
	Resolution int     `json:"resolution"`
	Data       [][]int `json:"data"`
}

// MarkSpacePair represents each bit for the frame
type MarkSpacePair struct {
	Mark  float64 `json:"mark"`
	Space float64 `json:"space"`
}

func (m MarkSpacePair) String() string {
	return fmt.Sprintf("(%v, %v)", m.Mark, m.Space)
}

// ParseTaggedFrame decodes one JSON line as sent over the serial port.
func ParseTaggedFrame(data []byte) (TaggedFrame, error) {
	var f TaggedFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return TaggedFrame{}, err
	}
	return f, f.Frame.validate()
}

func (f Frame) validate() error {
	if f.Resolution <= 0 {
		return fmt.Errorf("%w: %d", ErrResolution, f.Resolution)
	}
	for i, p := range f.Data {
		if len(p) != 2 {
			return fmt.Errorf("%w: pair %d has %d values", ErrMalformedPair, i, len(p))
		}
		if p[0] < 0 || p[1] < 0 {
			return fmt.Errorf("%w: pair %d is negative", ErrMalformedPair, i)
		}
	}
	return nil
}

func (f Frame) Header() (MarkSpacePair, error) {
	if len(f.Data) < 1 {
		return MarkSpacePair{}, ErrNoHeader
	}
	return f.pair(0), nil
}

// Pulses scales every pair to microseconds, header included.
func (f Frame) Pulses() []MarkSpacePair {
	pairs := make([]MarkSpacePair, len(f.Data))
	for i := range f.Data {
		pairs[i] = f.pair(i)
	}
	return pairs
}

func (f Frame) pair(i int) MarkSpacePair {
	return MarkSpacePair{
		Mark:  float64(f.Data[i][0] * f.Resolution),
		Space: float64(f.Data[i][1] * f.Resolution),
	}
}

// Sequence converts the frame to a duration sequence in microseconds.
func (f Frame) Sequence() (irsignal.Sequence, error) {
	if err := f.validate(); err != nil {
		return irsignal.Sequence{}, err
	}
	durations := make([]float64, 0, 2*len(f.Data))
	for _, p := range f.Pulses() {
		durations = append(durations, p.Mark, p.Space)
	}
	return irsignal.NewSequence(durations)
}

// DecodedFrame describes a published frame after the server decoded it.
type DecodedFrame struct {
	CollectorID  string          `json:"collectorId"`
	Name         string          `json:"name"`
	ProtocolName string          `json:"protocol-name"`
	FrameSize    int             `json:"frame-size"`
	Value        string          `json:"value"`
	Header       MarkSpacePair   `json:"header"`
	RawPulses    []MarkSpacePair `json:"raw-pulses"`
}
