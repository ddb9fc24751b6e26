package importer

import (
	"github.com/derktes/ir-signal-workbench/irsignal"
	"gonum.org/v1/gonum/stat"
)

// MeanFrequency averages the carrier frequencies of a collection. The result
// is undefined when the collection is empty or any entry lacks a frequency;
// a partial average would attribute the wrong carrier to a mixed batch.
func MeanFrequency(c *irsignal.Collection) (float64, bool) {
	if c == nil || c.Len() == 0 {
		return 0, false
	}
	freqs := make([]float64, 0, c.Len())
	for _, e := range c.Entries {
		f, ok := e.Signal.Frequency()
		if !ok {
			return 0, false
		}
		freqs = append(freqs, f)
	}
	return stat.Mean(freqs, nil), true
}
