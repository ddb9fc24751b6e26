package irsignal

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSequence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []float64
	}{
		{name: "signed", text: "+9000 -4500 +560 -560", want: []float64{9000, 4500, 560, 560}},
		{name: "unsigned", text: "9000 4500 560 560", want: []float64{9000, 4500, 560, 560}},
		{name: "bracketed with commas", text: "[9000,4500,560,560]", want: []float64{9000, 4500, 560, 560}},
		{name: "fractional", text: "+562.5 -1687.5", want: []float64{562.5, 1687.5}},
		{name: "tabs and newlines", text: "\t+100\n-200 ", want: []float64{100, 200}},
		{name: "empty", text: "   ", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := ParseSequence(tt.text)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, seq.Durations(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("durations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSequenceRejectsOddLength(t *testing.T) {
	for _, text := range []string{"+9000", "+9000 -4500 +560", "1 2 3 4 5"} {
		seq, err := ParseSequence(text)
		var odd *OddLengthError
		require.ErrorAs(t, err, &odd, text)
		assert.True(t, errors.Is(err, ErrOddLength))
		assert.True(t, seq.IsEmpty(), "no truncated sequence may be returned")
	}
}

func TestParseSequenceRejectsBadTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{name: "not a number", text: "+9000 -abc", want: nil},
		{name: "minus on mark", text: "-9000 +4500", want: ErrMisplacedSign},
		{name: "plus on space", text: "+9000 +4500", want: ErrMisplacedSign},
		{name: "bare sign", text: "+ -4500", want: nil},
		{name: "infinity", text: "+inf -1", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSequence(tt.text)
			var de *DurationError
			require.ErrorAs(t, err, &de)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestNewSequenceValidation(t *testing.T) {
	_, err := NewSequence([]float64{1, -2})
	assert.ErrorIs(t, err, ErrNegativeDuration)

	_, err = NewSequence([]float64{1, math.NaN()})
	assert.ErrorIs(t, err, ErrNegativeDuration)

	_, err = NewSequence([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrOddLength)

	in := []float64{10, 20}
	seq, err := NewSequence(in)
	require.NoError(t, err)
	in[0] = 99
	assert.Equal(t, 10.0, seq.At(0), "input slice must be copied")
}

func TestSequenceRoundTrip(t *testing.T) {
	seqs := []Sequence{
		{},
		MustSequence(9000, 4500, 560, 560),
		MustSequence(562.5, 1687.5, 0.1, 1e6),
		MustSequence(1.0/3, 2.0/3),
		MustSequence(math.Copysign(0, -1), 0),
	}
	for _, seq := range seqs {
		parsed, err := ParseSequence(seq.String())
		require.NoError(t, err, seq.String())
		assert.True(t, seq.Equal(parsed), "round trip of %q gave %q", seq, parsed)
	}
}

func TestSequenceString(t *testing.T) {
	assert.Equal(t, "+9000 -4500 +560 -560", MustSequence(9000, 4500, 560, 560).String())
	assert.Equal(t, "+100 -100", MustSequence(100, 100).String())
	assert.Equal(t, "", Sequence{}.String())
}

func TestSequenceHelpers(t *testing.T) {
	a := MustSequence(1, 2)
	b := MustSequence(3, 4, 5, 6)
	c := a.Concat(b, Sequence{})
	assert.Equal(t, 6, c.Len())
	assert.Equal(t, 3, c.Pairs())
	assert.Equal(t, 21.0, c.Duration())
	assert.True(t, c.IsMark(4))
	assert.False(t, c.IsMark(5))
	assert.True(t, Sequence{}.Concat().IsEmpty())
	assert.False(t, a.Equal(b))
}

func TestSequenceJSON(t *testing.T) {
	in := struct {
		Durations Sequence `json:"durations"`
	}{MustSequence(9000, 4500)}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"durations":"+9000 -4500"}`, string(data))

	var out struct {
		Durations Sequence `json:"durations"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"durations":"[1, 2, 3, 4]"}`), &out))
	assert.Equal(t, "+1 -2 +3 -4", out.Durations.String())
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"durations":"1 2 3"}`), &out), ErrOddLength)
}
