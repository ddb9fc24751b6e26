package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/derktes/ir-signal-workbench/config"
	"github.com/derktes/ir-signal-workbench/irsignal"
	"github.com/derktes/ir-signal-workbench/logging"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

const (
	necHeaderMarkMicros  = 9000.0
	necHeaderSpaceMicros = 4500.0
	necBitShortMicros    = 562.5
	necBitLongMicros     = 1687.5
	necPayloadBits       = 32
)

var errNotNEC = errors.New("not an NEC frame")

// NEC decodes the NEC1 family: a 9000/4500 µs header, 32 pulse-distance
// bits and a stop mark. Anything else is reported as no match.
type NEC struct {
	logger *zap.Logger
}

func NewNEC(logger *zap.Logger) *NEC {
	return &NEC{logger: logging.OrNop(logger)}
}

func (n *NEC) Analyze(ctx context.Context, seqs []irsignal.NamedSequence, frequency float64, opts config.Analyzer) (*Report, error) {
	if frequency <= 0 {
		frequency = opts.Frequency
	}
	tol := tolerance{absolute: opts.AbsoluteTolerance, relative: opts.RelativeTolerance}
	clusters := clusterDurations(seqs, tol)
	base, err := timeBase(opts.TimeBase, clusters)
	if err != nil {
		return nil, err
	}
	for i := range clusters {
		clusters[i].Units = renderUnits(clusters[i].Mean, base, opts.Burst)
	}

	report := &Report{
		Frequency: frequency,
		TimeBase:  base,
		Clusters:  clusters,
		Analyses:  make([]Analysis, 0, len(seqs)),
		BitUsage:  map[string][]BitCount{},
	}
	for _, s := range seqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cleaned, timings, err := clean(s.Sequence, clusters)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		a := Analysis{Name: s.Name, Cleaned: cleaned, Timings: timings}
		if opts.RepeatFinder {
			rf := findRepeat(cleaned)
			a.RepeatFinder = &rf
		}
		match, err := n.decode(s.Sequence, frequency, opts, tol)
		switch {
		case err == nil:
			a.Match = match
			addBitUsage(report.BitUsage, match)
			n.logger.Debug("Decoded signal", zap.String("name", s.Name), zap.String("protocol", match.Protocol), zap.String("value", match.Value))
		case errors.Is(err, errNotNEC):
			n.logger.Debug("No decoder match", zap.String("name", s.Name), zap.Error(err))
		default:
			return nil, err
		}
		report.Analyses = append(report.Analyses, a)
	}
	return report, nil
}

// DecodeSequence decodes a single sequence; ok is false when it is not NEC.
func (n *NEC) DecodeSequence(seq irsignal.Sequence, frequency float64, opts config.Analyzer) (*Decode, bool) {
	d, err := n.decode(seq, frequency, opts, tolerance{absolute: opts.AbsoluteTolerance, relative: opts.RelativeTolerance})
	return d, err == nil
}

func (n *NEC) decode(seq irsignal.Sequence, frequency float64, opts config.Analyzer, tol tolerance) (*Decode, error) {
	d := seq.Durations()
	// header, payload, stop mark and its gap
	if len(d) < 2*(necPayloadBits+2) {
		return nil, fmt.Errorf("%w: %d durations", errNotNEC, len(d))
	}
	if !tol.within(d[0], necHeaderMarkMicros) || !tol.within(d[1], necHeaderSpaceMicros) {
		return nil, fmt.Errorf("%w: header %v/%v", errNotNEC, d[0], d[1])
	}
	var payload uint64
	for i := 0; i < necPayloadBits; i++ {
		mark, space := d[2+2*i], d[3+2*i]
		if !tol.within(mark, necBitShortMicros) {
			return nil, fmt.Errorf("%w: bit %d mark %v", errNotNEC, i, mark)
		}
		var bit uint64
		switch {
		case tol.within(space, necBitShortMicros):
		case tol.within(space, necBitLongMicros):
			bit = 1
		default:
			return nil, fmt.Errorf("%w: bit %d space %v", errNotNEC, i, space)
		}
		if opts.Invert {
			bit ^= 1
		}
		payload |= bit << uint(necPayloadBits-1-i)
	}
	stop := 2 + 2*necPayloadBits
	if !tol.within(d[stop], necBitShortMicros) {
		return nil, fmt.Errorf("%w: stop mark %v", errNotNEC, d[stop])
	}

	params, protocol := necParameters(payload, opts)
	unit := necBitShortMicros
	var ending string
	if opts.Extent {
		ending = fmt.Sprintf("^%gm", float64(int(floats.Sum(d[:stop+2])/1000+0.5)))
	} else {
		ending = fmt.Sprintf("-%d", int(d[stop+1]/unit+0.5))
	}
	return &Decode{
		Protocol:          protocol,
		Parameters:        params,
		Value:             fmt.Sprintf("%08X", payload),
		Text:              necIRP(frequency, opts, protocol, params, ending, false),
		TextWithConstants: necIRP(frequency, opts, protocol, params, ending, true),
	}, nil
}

// necParameters splits the payload, first received bit first. Without
// configured widths the NEC1 layout D:8,S:8,F:8,~F:8 applies when the last
// byte complements F; otherwise the remaining 16 bits form F.
func necParameters(payload uint64, opts config.Analyzer) ([]Parameter, string) {
	bits := make([]uint64, necPayloadBits)
	for i := range bits {
		bits[i] = payload >> uint(necPayloadBits-1-i) & 1
	}
	field := func(from, width int) uint64 {
		var v uint64
		for i := 0; i < width; i++ {
			b := bits[from+i]
			if opts.BitDirection == config.BitDirectionMSB {
				v = v<<1 | b
			} else {
				v |= b << uint(i)
			}
		}
		return v
	}

	protocol := "NEC"
	widths := opts.ParameterWidths
	if len(widths) == 0 {
		if field(24, 8) == ^field(16, 8)&0xFF {
			widths = []int{8, 8, 8}
		} else {
			protocol = "NEC-f16"
			widths = []int{8, 8, 16}
		}
	} else {
		protocol = "NEC-generic"
	}
	maxWidth := opts.MaxParameterWidth
	if maxWidth <= 0 {
		maxWidth = necPayloadBits
	}

	var params []Parameter
	pos := 0
	add := func(width int) {
		for width > 0 && pos < necPayloadBits {
			w := min(width, maxWidth, necPayloadBits-pos)
			params = append(params, Parameter{Name: parameterName(len(params)), Value: field(pos, w), Width: w})
			pos += w
			width -= w
		}
	}
	for _, w := range widths {
		add(w)
	}
	if !impliedComplement(protocol, params) {
		add(necPayloadBits - pos)
	}
	return params, protocol
}

// impliedComplement reports whether the last byte is left out as ~F, which
// needs F as one whole byte.
func impliedComplement(protocol string, params []Parameter) bool {
	return protocol == "NEC" && len(params) == 3 && params[2].Name == "F" && params[2].Width == 8
}

func parameterName(i int) string {
	names := []string{"D", "S", "F", "G", "H", "I", "J", "K"}
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("P%d", i)
}

func necIRP(frequency float64, opts config.Analyzer, protocol string, params []Parameter, ending string, constants bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "{%.1fk,%g,%s}<1,-1|1,-3>(16,-8,", frequency/1000, necBitShortMicros, opts.BitDirection)
	for _, p := range params {
		if constants {
			fmt.Fprintf(&b, "%s:%d,", formatNumber(p.Value, opts.Radix, p.Width), p.Width)
		} else {
			fmt.Fprintf(&b, "%s:%d,", p.Name, p.Width)
		}
	}
	if impliedComplement(protocol, params) {
		if constants {
			fmt.Fprintf(&b, "%s:8,", formatNumber(^params[2].Value&0xFF, opts.Radix, 8))
		} else {
			b.WriteString("~F:8,")
		}
	}
	fmt.Fprintf(&b, "1,%s)", ending)
	if !constants {
		defs := make([]string, len(params))
		for i, p := range params {
			defs[i] = p.Name + "=" + formatNumber(p.Value, opts.Radix, p.Width)
		}
		fmt.Fprintf(&b, "{%s}", strings.Join(defs, ","))
	}
	return b.String()
}
