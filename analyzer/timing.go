package analyzer

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/derktes/ir-signal-workbench/config"
	"github.com/derktes/ir-signal-workbench/irsignal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Cluster is a group of durations within tolerance of its shortest member.
type Cluster struct {
	Letter string
	Mean   float64
	Count  int
	// Units renders Mean as a multiple of the time base when it rounds
	// cleanly, else in microseconds (u) or milliseconds (m).
	Units string
}

type tolerance struct {
	absolute float64
	relative float64
}

func (t tolerance) within(actual, expected float64) bool {
	diff := math.Abs(actual - expected)
	return diff <= t.absolute || diff <= t.relative*expected
}

func clusterLetter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return "Z" + strconv.Itoa(i-25)
}

// clusterDurations groups every duration of every sequence, shortest first.
func clusterDurations(seqs []irsignal.NamedSequence, tol tolerance) []Cluster {
	var all []float64
	for _, s := range seqs {
		all = append(all, s.Sequence.Durations()...)
	}
	if len(all) == 0 {
		return nil
	}
	slices.Sort(all)

	var clusters []Cluster
	start := 0
	flush := func(end int) {
		members := all[start:end]
		clusters = append(clusters, Cluster{
			Letter: clusterLetter(len(clusters)),
			Mean:   stat.Mean(members, nil),
			Count:  len(members),
		})
	}
	for i := 1; i < len(all); i++ {
		if !tol.within(all[i], all[start]) {
			flush(i)
			start = i
		}
	}
	flush(len(all))
	return clusters
}

func findCluster(clusters []Cluster, d float64) int {
	best, bestDiff := 0, math.Inf(1)
	for i, c := range clusters {
		if diff := math.Abs(c.Mean - d); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best
}

// timeBase parses the configured hint, or takes the shortest cluster.
func timeBase(hint string, clusters []Cluster) (float64, error) {
	if hint = strings.TrimSpace(hint); hint != "" {
		tb, err := strconv.ParseFloat(hint, 64)
		if err != nil || tb <= 0 || math.IsInf(tb, 0) {
			return 0, fmt.Errorf("invalid time base %q", hint)
		}
		return tb, nil
	}
	if len(clusters) == 0 {
		return 0, nil
	}
	means := make([]float64, len(clusters))
	for i, c := range clusters {
		means[i] = c.Mean
	}
	return floats.Min(means), nil
}

func renderUnits(mean, base float64, burst config.Burst) string {
	if base > 0 {
		units := mean / base
		rounded := math.Round(units)
		if rounded >= 1 && units <= burst.MaxUnits && math.Abs(units-rounded) <= burst.MaxRoundingError {
			return strconv.FormatFloat(rounded, 'f', -1, 64)
		}
	}
	if mean <= burst.MaxMicroSeconds {
		return strconv.FormatFloat(math.Round(mean), 'f', -1, 64) + "u"
	}
	return strconv.FormatFloat(math.Round(mean/100)/10, 'f', -1, 64) + "m"
}

// clean replaces each duration by its rounded cluster mean and returns the
// cluster letters alongside.
func clean(seq irsignal.Sequence, clusters []Cluster) (irsignal.Sequence, string, error) {
	durations := seq.Durations()
	letters := make([]string, len(durations))
	for i, d := range durations {
		c := findCluster(clusters, d)
		durations[i] = math.Round(clusters[c].Mean)
		letters[i] = clusters[c].Letter
	}
	cleaned, err := irsignal.NewSequence(durations)
	return cleaned, strings.Join(letters, " "), err
}

// RepeatFinderData describes a sequence as an intro followed by a block of
// pairs repeated back to back up to the end.
type RepeatFinderData struct {
	IntroPairs  int
	RepeatPairs int
	Repetitions int
}

func (r RepeatFinderData) String() string {
	if r.Repetitions < 2 {
		return fmt.Sprintf("intro=%d no repeat", r.IntroPairs)
	}
	return fmt.Sprintf("intro=%d repeat=%d x%d", r.IntroPairs, r.RepeatPairs, r.Repetitions)
}

// findRepeat picks the trailing repeated block covering the most pairs,
// preferring the shorter block on ties. Comparison is exact, so it expects
// cleaned durations.
func findRepeat(seq irsignal.Sequence) RepeatFinderData {
	d := seq.Durations()
	pairs := len(d) / 2
	best := RepeatFinderData{IntroPairs: pairs}
	for k := 1; 2*k <= pairs; k++ {
		block := d[len(d)-2*k:]
		reps := 1
		for end := len(d) - 2*k; end-2*k >= 0; end -= 2 * k {
			if !slices.Equal(d[end-2*k:end], block) {
				break
			}
			reps++
		}
		if reps >= 2 && reps*k > best.RepeatPairs*best.Repetitions {
			best = RepeatFinderData{IntroPairs: pairs - reps*k, RepeatPairs: k, Repetitions: reps}
		}
	}
	return best
}
