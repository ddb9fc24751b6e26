// Package importer turns capture files into named signal collections. Each
// supported encoding has its own Parser; Pipeline tries them in priority
// order and falls back only when a parser reports a format mismatch.
package importer

import (
	"github.com/derktes/ir-signal-workbench/irsignal"
)

// Parser converts the decoded text of one source into a collection.
type Parser interface {
	Format() string
	Parse(text, path string) (*Result, error)
}

// Result is a successful import. Collection is never empty.
type Result struct {
	Format     string
	Path       string
	Collection *irsignal.Collection
	// Skipped holds the lines a line-oriented parser could not use.
	Skipped []*ContentError
	// Frequency is the mean carrier frequency, valid when HasFrequency.
	Frequency    float64
	HasFrequency bool
}
