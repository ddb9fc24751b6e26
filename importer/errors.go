package importer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSequencesFound is returned when a parser recognized its input but
	// produced no entries.
	ErrNoSequencesFound = errors.New("no parseable sequences found")
	ErrMissingDurations = errors.New("no durations after name")
	ErrSampleCount      = errors.New("sample count mismatch")
	ErrAlternation      = errors.New("samples do not alternate mark/space")
	ErrBadPronto        = errors.New("malformed Pronto hex")
	ErrBadBroadlink     = errors.New("malformed Broadlink packet")
	ErrSkippedLines     = errors.New("lines skipped")
)

// FormatMismatchError means the input is not in the parser's grammar. The
// pipeline falls back to the next parser on this error only.
type FormatMismatchError struct {
	Format string
	Path   string
	Reason string
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("%s: not a %s file: %s", e.Path, e.Format, e.Reason)
}

// ContentError is a defect inside an input whose format was recognized.
type ContentError struct {
	Format string
	Path   string
	Line   int
	Name   string
	Err    error
}

func (e *ContentError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " (%s)", e.Name)
	}
	fmt.Fprintf(&b, ": %s: %v", e.Format, e.Err)
	return b.String()
}

func (e *ContentError) Unwrap() error { return e.Err }

// ImportError combines the failures of every parser the pipeline tried.
type ImportError struct {
	Path     string
	Attempts []error
}

func (e *ImportError) Error() string {
	msgs := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("import of %s failed: %s", e.Path, strings.Join(msgs, "; "))
}

func (e *ImportError) Unwrap() []error { return e.Attempts }
