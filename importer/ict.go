package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/derktes/ir-signal-workbench/irsignal"
)

const ictFormat = "ict"

// ICTParser reads IRScope .ict captures:
//
//	irscope 0
//	carrier_frequency 38400
//	sample_count 4
//	+9024,347
//	-4512
//	+564,22
//	-564
//	note=Power
//
// A file may hold several captures; each sample_count starts a new one.
type ICTParser struct {
	trailingGap float64
}

// NewICTParser returns a parser that appends trailingGap to captures ending
// on a mark. A zero gap leaves them to fail as odd length.
func NewICTParser(trailingGap float64) *ICTParser {
	return &ICTParser{trailingGap: trailingGap}
}

func (p *ICTParser) Format() string { return ictFormat }

type ictCapture struct {
	name      string
	line      int
	expected  int
	frequency float64
	samples   []float64
}

func (p *ICTParser) Parse(text, path string) (*Result, error) {
	lines := splitLines(text)
	first := 0
	for first < len(lines) && isBlankOrComment(lines[first]) {
		first++
	}
	if first == len(lines) {
		return nil, &FormatMismatchError{Format: ictFormat, Path: path, Reason: "empty input"}
	}
	if keyword, _ := splitKeyword(lines[first]); keyword != "irscope" {
		return nil, &FormatMismatchError{Format: ictFormat, Path: path, Reason: "missing irscope header"}
	}

	collection := irsignal.NewCollection(irsignal.Structured)
	var (
		current   *ictCapture
		frequency float64
	)
	contentErr := func(lineNo int, name string, err error) error {
		return &ContentError{Format: ictFormat, Path: path, Line: lineNo, Name: name, Err: err}
	}
	flush := func() error {
		if current == nil || (len(current.samples) == 0 && current.expected <= 0) {
			current = nil
			return nil
		}
		if current.expected >= 0 && current.expected != len(current.samples) {
			return contentErr(current.line, current.name, fmt.Errorf("%w: header says %d, found %d", ErrSampleCount, current.expected, len(current.samples)))
		}
		name := current.name
		if name == "" {
			name = fmt.Sprintf("capture_%d", collection.Len()+1)
		}
		samples := current.samples
		if len(samples)%2 != 0 && p.trailingGap > 0 {
			samples = append(samples, p.trailingGap)
		}
		seq, err := irsignal.NewSequence(samples)
		if err != nil {
			return contentErr(current.line, name, err)
		}
		sig, err := irsignal.NewStructuredSignal(seq, irsignal.Sequence{}, irsignal.Sequence{}, irsignal.Modulation{Frequency: current.frequency})
		if err != nil {
			return contentErr(current.line, name, err)
		}
		collection.Add(name, sig)
		current = nil
		return nil
	}
	ensure := func(lineNo int) *ictCapture {
		if current == nil {
			current = &ictCapture{line: lineNo, frequency: frequency, expected: -1}
		}
		return current
	}

	for i := first + 1; i < len(lines); i++ {
		lineNo := i + 1
		line := strings.TrimSpace(lines[i])
		if isBlankOrComment(line) {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-"):
			c := ensure(lineNo)
			isMark := line[0] == '+'
			if isMark != (len(c.samples)%2 == 0) {
				return nil, contentErr(lineNo, c.name, ErrAlternation)
			}
			value := line[1:]
			if comma := strings.IndexByte(value, ','); comma >= 0 && isMark {
				value = value[:comma] // pulse count is informational
			}
			d, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil || d < 0 {
				return nil, contentErr(lineNo, c.name, &irsignal.DurationError{Index: len(c.samples), Token: line, Err: strconv.ErrSyntax})
			}
			c.samples = append(c.samples, d)
		case strings.HasPrefix(line, "note="):
			// A note names the capture it follows, unless that capture is
			// already named; then it opens the next one.
			if current != nil && current.name != "" && len(current.samples) > 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			ensure(lineNo).name = strings.TrimSpace(strings.TrimPrefix(line, "note="))
		default:
			keyword, value := splitKeyword(line)
			switch keyword {
			case "carrier_frequency":
				f, err := strconv.ParseFloat(value, 64)
				if err != nil || f <= 0 {
					return nil, contentErr(lineNo, "", fmt.Errorf("%w: %q", irsignal.ErrInvalidFrequency, value))
				}
				frequency = f
				if current != nil && len(current.samples) == 0 {
					current.frequency = f
				}
			case "sample_count":
				n, err := strconv.Atoi(value)
				if err != nil || n < 0 {
					return nil, contentErr(lineNo, "", fmt.Errorf("%w: bad count %q", ErrSampleCount, value))
				}
				// sample_count opens a record; a note seen just before it
				// belongs to the new record.
				var pendingName string
				if current != nil && len(current.samples) == 0 && current.expected < 0 {
					pendingName = current.name
					current = nil
				}
				if err := flush(); err != nil {
					return nil, err
				}
				c := ensure(lineNo)
				c.expected = n
				c.name = pendingName
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if collection.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSequencesFound)
	}
	return &Result{Format: ictFormat, Path: path, Collection: collection}, nil
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func isBlankOrComment(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || strings.HasPrefix(line, "#")
}

func splitKeyword(line string) (string, string) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
