package analyzer

import (
	"context"
	"testing"

	"github.com/derktes/ir-signal-workbench/config"
	"github.com/derktes/ir-signal-workbench/irsignal"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// necFrame builds an NEC frame sending each byte least significant bit first.
func necFrame(t *testing.T, payload [4]byte, repeats int) irsignal.Sequence {
	t.Helper()
	d := []float64{9000, 4500}
	for _, b := range payload {
		for i := 0; i < 8; i++ {
			if b&(1<<uint(i)) != 0 {
				d = append(d, 560, 1690)
			} else {
				d = append(d, 560, 560)
			}
		}
	}
	d = append(d, 560, 40000)
	for r := 0; r < repeats; r++ {
		d = append(d, 9000, 2250, 560, 96000)
	}
	seq, err := irsignal.NewSequence(d)
	require.NoError(t, err)
	return seq
}

func analyze(t *testing.T, opts config.Analyzer, seqs ...irsignal.NamedSequence) *Report {
	t.Helper()
	report, err := NewNEC(nil).Analyze(context.Background(), seqs, 38000, opts)
	require.NoError(t, err)
	require.Len(t, report.Analyses, len(seqs))
	return report
}

func params(d *Decode) map[string]uint64 {
	out := map[string]uint64{}
	for _, p := range d.Parameters {
		out[p.Name] = p.Value
	}
	return out
}

func TestNECDecode(t *testing.T) {
	opts := config.Default().Analyzer
	seq := necFrame(t, [4]byte{0x04, 0xFB, 0x08, 0xF7}, 0)
	report := analyze(t, opts, irsignal.NamedSequence{Name: "Power", Sequence: seq})

	a := report.Analyses[0]
	require.False(t, a.NoMatch())
	assert.Equal(t, "NEC", a.Match.Protocol)
	assert.Equal(t, "20DF10EF", a.Match.Value)
	if diff := cmp.Diff(map[string]uint64{"D": 0x04, "S": 0xFB, "F": 0x08}, params(a.Match)); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "{38.0k,562.5,lsb}<1,-1|1,-3>(16,-8,D:8,S:8,F:8,~F:8,1,-71){D=0x04,S=0xFB,F=0x08}", a.Match.Text)
	assert.Equal(t, "{38.0k,562.5,lsb}<1,-1|1,-3>(16,-8,0x04:8,0xFB:8,0x08:8,0xF7:8,1,-71)", a.Match.TextWithConstants)
}

func TestNECOptions(t *testing.T) {
	seq := irsignal.NamedSequence{Name: "Power", Sequence: necFrame(t, [4]byte{0x04, 0xFB, 0x08, 0xF7}, 0)}
	tests := []struct {
		name     string
		adjust   func(*config.Analyzer)
		protocol string
		want     map[string]uint64
	}{
		{
			name:     "msb first",
			adjust:   func(o *config.Analyzer) { o.BitDirection = config.BitDirectionMSB },
			protocol: "NEC",
			want:     map[string]uint64{"D": 0x20, "S": 0xDF, "F": 0x10},
		},
		{
			name:     "inverted",
			adjust:   func(o *config.Analyzer) { o.Invert = true },
			protocol: "NEC",
			want:     map[string]uint64{"D": 0xFB, "S": 0x04, "F": 0xF7},
		},
		{
			name: "configured widths",
			adjust: func(o *config.Analyzer) {
				o.ParameterWidths = []int{16, 16}
				o.MaxParameterWidth = 16
			},
			protocol: "NEC-generic",
			want:     map[string]uint64{"D": 0xFB04, "S": 0xF708},
		},
		{
			name:     "widths capped",
			adjust:   func(o *config.Analyzer) { o.ParameterWidths = []int{16} },
			protocol: "NEC-generic",
			want:     map[string]uint64{"D": 0x04, "S": 0xFB, "F": 0x08, "G": 0xF7},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := config.Default().Analyzer
			tt.adjust(&opts)
			report := analyze(t, opts, seq)
			match := report.Analyses[0].Match
			require.NotNil(t, match)
			assert.Equal(t, tt.protocol, match.Protocol)
			assert.Equal(t, tt.want, params(match))
		})
	}
}

func TestNECNarrowParametersCoverPayload(t *testing.T) {
	opts := config.Default().Analyzer
	opts.MaxParameterWidth = 4
	report := analyze(t, opts, irsignal.NamedSequence{Name: "Power", Sequence: necFrame(t, [4]byte{0x04, 0xFB, 0x08, 0xF7}, 0)})
	match := report.Analyses[0].Match
	require.NotNil(t, match)
	assert.Equal(t, "NEC", match.Protocol)

	width := 0
	for _, p := range match.Parameters {
		assert.Equal(t, 4, p.Width, p.Name)
		width += p.Width
	}
	assert.Equal(t, 32, width)
	assert.Equal(t, map[string]uint64{"D": 4, "S": 0, "F": 0xB, "G": 0xF, "H": 8, "I": 0, "J": 7, "K": 0xF}, params(match))
	assert.NotContains(t, match.Text, "~F")
	assert.Contains(t, match.Text, "J:4,K:4,1,-71)")
	assert.Contains(t, match.TextWithConstants, "0x7:4,0xF:4,1,-71)")
}

func TestNECGenericNeverImpliesComplement(t *testing.T) {
	opts := config.Default().Analyzer
	opts.MaxParameterWidth = 16
	opts.ParameterWidths = []int{16, 8}
	report := analyze(t, opts, irsignal.NamedSequence{Name: "Power", Sequence: necFrame(t, [4]byte{0x04, 0xFB, 0x08, 0xF7}, 0)})
	match := report.Analyses[0].Match
	require.NotNil(t, match)
	assert.Equal(t, "NEC-generic", match.Protocol)
	assert.Equal(t, map[string]uint64{"D": 0xFB04, "S": 0x08, "F": 0xF7}, params(match))
	assert.NotContains(t, match.Text, "~F")
}

func TestNECExtendedFunction(t *testing.T) {
	opts := config.Default().Analyzer
	report := analyze(t, opts, irsignal.NamedSequence{Name: "X", Sequence: necFrame(t, [4]byte{0x01, 0x02, 0x03, 0x04}, 0)})
	match := report.Analyses[0].Match
	require.NotNil(t, match)
	assert.Equal(t, "NEC-f16", match.Protocol)
	assert.Equal(t, map[string]uint64{"D": 1, "S": 2, "F": 3, "G": 4}, params(match))
}

func TestNECRadixAndExtent(t *testing.T) {
	opts := config.Default().Analyzer
	opts.Radix = 10
	opts.Extent = true
	report := analyze(t, opts, irsignal.NamedSequence{Name: "Power", Sequence: necFrame(t, [4]byte{0x04, 0xFB, 0x08, 0xF7}, 0)})
	match := report.Analyses[0].Match
	require.NotNil(t, match)
	assert.Contains(t, match.Text, "{D=4,S=251,F=8}")
	assert.Contains(t, match.TextWithConstants, "1,^108m)")
}

func TestNoMatchIsNotAnError(t *testing.T) {
	opts := config.Default().Analyzer
	report := analyze(t, opts,
		irsignal.NamedSequence{Name: "short", Sequence: irsignal.MustSequence(100, 100, 300, 100)},
		irsignal.NamedSequence{Name: "Power", Sequence: necFrame(t, [4]byte{0x04, 0xFB, 0x08, 0xF7}, 0)},
	)
	assert.True(t, report.Analyses[0].NoMatch())
	assert.False(t, report.Analyses[1].NoMatch())
	assert.Equal(t, []string{"short", "Power"}, []string{report.Analyses[0].Name, report.Analyses[1].Name})
}

func TestBitUsage(t *testing.T) {
	opts := config.Default().Analyzer
	report := analyze(t, opts,
		irsignal.NamedSequence{Name: "A", Sequence: necFrame(t, [4]byte{0x04, 0xFB, 0x08, 0xF7}, 0)},
		irsignal.NamedSequence{Name: "B", Sequence: necFrame(t, [4]byte{0x04, 0xFB, 0x09, 0xF6}, 0)},
	)
	assert.Equal(t, "0000100*", BitUsageString(report.BitUsage["F"]))
	assert.Equal(t, "00000100", BitUsageString(report.BitUsage["D"]))
}

func TestTimingsAndRepeatFinder(t *testing.T) {
	opts := config.Default().Analyzer
	report := analyze(t, opts, irsignal.NamedSequence{Name: "Power", Sequence: necFrame(t, [4]byte{0x04, 0xFB, 0x08, 0xF7}, 3)})

	letters := make([]string, len(report.Clusters))
	units := make([]string, len(report.Clusters))
	for i, c := range report.Clusters {
		letters[i] = c.Letter
		units[i] = c.Units
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G"}, letters)
	assert.Equal(t, []string{"1", "3", "4", "8", "16", "40m", "96m"}, units)
	assert.InDelta(t, 560, report.TimeBase, 1e-9)

	a := report.Analyses[0]
	assert.Equal(t, "E D A A", a.Timings[:7])
	require.NotNil(t, a.RepeatFinder)
	assert.Equal(t, RepeatFinderData{IntroPairs: 34, RepeatPairs: 2, Repetitions: 3}, *a.RepeatFinder)
	assert.Equal(t, "intro=34 repeat=2 x3", a.RepeatFinder.String())
	assert.Equal(t, "20DF10EF", a.Match.Value, "repeat frames after the first are ignored")
}

func TestRepeatFinderDisabled(t *testing.T) {
	opts := config.Default().Analyzer
	opts.RepeatFinder = false
	report := analyze(t, opts, irsignal.NamedSequence{Name: "x", Sequence: irsignal.MustSequence(100, 100, 100, 100)})
	assert.Nil(t, report.Analyses[0].RepeatFinder)
	assert.Equal(t, "A A A A", report.Analyses[0].Timings)
	assert.Equal(t, "+100 -100 +100 -100", report.Analyses[0].Cleaned.String())
}

func TestInvalidTimeBase(t *testing.T) {
	opts := config.Default().Analyzer
	opts.TimeBase = "fast"
	_, err := NewNEC(nil).Analyze(context.Background(), nil, 0, opts)
	assert.ErrorContains(t, err, "time base")
}

func TestAnalyzeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewNEC(nil).Analyze(ctx, []irsignal.NamedSequence{{Name: "x", Sequence: irsignal.MustSequence(1, 1)}}, 0, config.Default().Analyzer)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultFrequency(t *testing.T) {
	report, err := NewNEC(nil).Analyze(context.Background(), nil, 0, config.Default().Analyzer)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultFrequency, report.Frequency)
	assert.Empty(t, report.Analyses)
}
