package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/derktes/ir-signal-workbench/irsignal"
)

const lineFormat = "line"

// LineParser reads one named signal per line: a name, then tokens for the
// interpreter. Everything after the comment prefix is ignored. A bad line
// is recorded and skipped; it never stops the lines after it.
type LineParser struct {
	interpret     Interpreter
	commentPrefix string
}

func NewLineParser(interpret Interpreter, commentPrefix string) *LineParser {
	if commentPrefix == "" {
		commentPrefix = "#"
	}
	return &LineParser{interpret: interpret, commentPrefix: commentPrefix}
}

func (p *LineParser) Format() string { return lineFormat }

func (p *LineParser) Parse(text, path string) (*Result, error) {
	collection := irsignal.NewCollection(irsignal.Flat)
	var skipped []*ContentError
	for i, line := range splitLines(text) {
		if idx := strings.Index(line, p.commentPrefix); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name, tokens := fields[0], fields[1:]
		seq, err := p.parseTokens(tokens)
		if err != nil {
			skipped = append(skipped, &ContentError{Format: lineFormat, Path: path, Line: i + 1, Name: name, Err: err})
			continue
		}
		collection.Add(name, irsignal.NewFlatSignal(seq))
	}
	if collection.Len() == 0 {
		errs := []error{fmt.Errorf("%s: %w", path, ErrNoSequencesFound)}
		for _, e := range skipped {
			errs = append(errs, e)
		}
		return nil, errors.Join(errs...)
	}
	return &Result{Format: lineFormat, Path: path, Collection: collection, Skipped: skipped}, nil
}

func (p *LineParser) parseTokens(tokens []string) (irsignal.Sequence, error) {
	if len(tokens) == 0 {
		return irsignal.Sequence{}, ErrMissingDurations
	}
	return p.interpret(tokens)
}
