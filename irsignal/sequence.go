package irsignal

import (
	"math"
	"strconv"
	"strings"
)

// Sequence is an immutable list of alternating mark and space durations in
// microseconds. It always starts with a mark and always has an even length.
type Sequence struct {
	durations []float64
}

// NewSequence validates durations and returns them as a Sequence. The slice
// is copied.
func NewSequence(durations []float64) (Sequence, error) {
	if len(durations)%2 != 0 {
		return Sequence{}, &OddLengthError{Length: len(durations)}
	}
	for i, d := range durations {
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return Sequence{}, &DurationError{Index: i, Token: strconv.FormatFloat(d, 'g', -1, 64), Err: ErrNegativeDuration}
		}
	}
	if len(durations) == 0 {
		return Sequence{}, nil
	}
	c := make([]float64, len(durations))
	for i, d := range durations {
		if d == 0 {
			d = 0 // drop negative zero
		}
		c[i] = d
	}
	return Sequence{durations: c}, nil
}

// MustSequence is NewSequence for literals known to be valid.
func MustSequence(durations ...float64) Sequence {
	s, err := NewSequence(durations)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSequence reads a textual duration list such as "+9000 -4500 +560 -560"
// or "[9000,4500,560,560]". Signs are optional but must match the position:
// '+' on marks, '-' on spaces.
func ParseSequence(text string) (Sequence, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "[")
	text = strings.TrimSuffix(text, "]")
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ';'
	})
	if len(tokens)%2 != 0 {
		return Sequence{}, &OddLengthError{Length: len(tokens)}
	}
	durations := make([]float64, len(tokens))
	for i, token := range tokens {
		d, err := parseDuration(token, i)
		if err != nil {
			return Sequence{}, err
		}
		durations[i] = d
	}
	return NewSequence(durations)
}

func parseDuration(token string, index int) (float64, error) {
	digits := token
	switch token[0] {
	case '+':
		if index%2 != 0 {
			return 0, &DurationError{Index: index, Token: token, Err: ErrMisplacedSign}
		}
		digits = token[1:]
	case '-':
		if index%2 == 0 {
			return 0, &DurationError{Index: index, Token: token, Err: ErrMisplacedSign}
		}
		digits = token[1:]
	}
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return 0, &DurationError{Index: index, Token: token, Err: strconv.ErrSyntax}
	}
	d, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, &DurationError{Index: index, Token: token, Err: err}
	}
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, &DurationError{Index: index, Token: token, Err: strconv.ErrRange}
	}
	return d, nil
}

// Len is the number of durations.
func (s Sequence) Len() int { return len(s.durations) }

// Pairs is the number of mark/space pairs.
func (s Sequence) Pairs() int { return len(s.durations) / 2 }

func (s Sequence) IsEmpty() bool { return len(s.durations) == 0 }

// At returns the i-th duration.
func (s Sequence) At(i int) float64 { return s.durations[i] }

// IsMark reports whether position i is a mark.
func (s Sequence) IsMark(i int) bool { return i%2 == 0 }

// Durations returns a copy of the durations.
func (s Sequence) Durations() []float64 {
	c := make([]float64, len(s.durations))
	copy(c, s.durations)
	return c
}

// Duration is the total length of the sequence in microseconds.
func (s Sequence) Duration() float64 {
	var total float64
	for _, d := range s.durations {
		total += d
	}
	return total
}

func (s Sequence) Equal(o Sequence) bool {
	if len(s.durations) != len(o.durations) {
		return false
	}
	for i := range s.durations {
		if s.durations[i] != o.durations[i] {
			return false
		}
	}
	return true
}

// Concat returns s followed by others. Parity is preserved since every
// operand is even.
func (s Sequence) Concat(others ...Sequence) Sequence {
	n := len(s.durations)
	for _, o := range others {
		n += len(o.durations)
	}
	if n == 0 {
		return Sequence{}
	}
	out := make([]float64, 0, n)
	out = append(out, s.durations...)
	for _, o := range others {
		out = append(out, o.durations...)
	}
	return Sequence{durations: out}
}

// String renders the canonical signed form, e.g. "+9000 -4500 +560 -560".
func (s Sequence) String() string {
	var b strings.Builder
	for i, d := range s.durations {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i%2 == 0 {
			b.WriteByte('+')
		} else {
			b.WriteByte('-')
		}
		b.WriteString(strconv.FormatFloat(d, 'f', -1, 64))
	}
	return b.String()
}

// MarshalText encodes the canonical rendering, so JSON carries "+9000 -4500".
func (s Sequence) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Sequence) UnmarshalText(text []byte) error {
	parsed, err := ParseSequence(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
