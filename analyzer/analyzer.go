// Package analyzer is the decoding side of the workbench: it takes named
// duration sequences plus a carrier frequency and reports timings, repeat
// structure and, where a protocol matches, the decoded parameters.
package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/derktes/ir-signal-workbench/config"
	"github.com/derktes/ir-signal-workbench/irsignal"
)

// Decoder analyzes a batch of sequences with one representative frequency.
// A sequence no protocol matches is reported with a nil Match, never as an
// error.
type Decoder interface {
	Analyze(ctx context.Context, seqs []irsignal.NamedSequence, frequency float64, opts config.Analyzer) (*Report, error)
}

type Report struct {
	Frequency float64
	TimeBase  float64
	Clusters  []Cluster
	Analyses  []Analysis
	// BitUsage maps a parameter name to per-bit counts over all matches,
	// least significant bit first.
	BitUsage map[string][]BitCount
}

type Analysis struct {
	Name         string
	Cleaned      irsignal.Sequence
	Timings      string
	RepeatFinder *RepeatFinderData
	Match        *Decode
}

func (a Analysis) NoMatch() bool { return a.Match == nil }

type Parameter struct {
	Name  string
	Value uint64
	Width int
}

type Decode struct {
	Protocol   string
	Parameters []Parameter
	// Value is the raw payload, first received bit most significant.
	Value             string
	Text              string
	TextWithConstants string
}

// Parameter returns the named parameter.
func (d *Decode) Parameter(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

type BitCount struct {
	Zeros int
	Ones  int
}

// BitUsageString renders counts most significant bit first: 0 or 1 for a
// bit that never changed, * for one that did.
func BitUsageString(counts []BitCount) string {
	var b strings.Builder
	for i := len(counts) - 1; i >= 0; i-- {
		switch c := counts[i]; {
		case c.Ones == 0:
			b.WriteByte('0')
		case c.Zeros == 0:
			b.WriteByte('1')
		default:
			b.WriteByte('*')
		}
	}
	return b.String()
}

func addBitUsage(usage map[string][]BitCount, d *Decode) {
	for _, p := range d.Parameters {
		counts := usage[p.Name]
		for len(counts) < p.Width {
			counts = append(counts, BitCount{})
		}
		for bit := 0; bit < p.Width; bit++ {
			if p.Value&(1<<uint(bit)) != 0 {
				counts[bit].Ones++
			} else {
				counts[bit].Zeros++
			}
		}
		usage[p.Name] = counts
	}
}

// formatNumber renders v in the configured radix, zero padded to width bits.
func formatNumber(v uint64, radix, width int) string {
	switch radix {
	case 2:
		return fmt.Sprintf("0b%0*b", width, v)
	case 8:
		return "0" + strconv.FormatUint(v, 8)
	case 10:
		return strconv.FormatUint(v, 10)
	default:
		return fmt.Sprintf("0x%0*X", (width+3)/4, v)
	}
}
