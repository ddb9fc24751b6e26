package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arduinoFrame = `{"collectorId":"arduinoble","frame":{"resolution":20,"data":[[452,226],[28,28],[28,84]]}}`

func TestParseTaggedFrame(t *testing.T) {
	f, err := ParseTaggedFrame([]byte(arduinoFrame))
	require.NoError(t, err)
	assert.Equal(t, "arduinoble", f.CollectorID)

	h, err := f.Frame.Header()
	require.NoError(t, err)
	assert.Equal(t, MarkSpacePair{Mark: 9040, Space: 4520}, h)
	assert.Equal(t, "(9040, 4520)", h.String())

	seq, err := f.Frame.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "+9040 -4520 +560 -560 +560 -1680", seq.String())
	assert.Len(t, f.Frame.Pulses(), 3)
}

func TestFrameErrors(t *testing.T) {
	_, err := Frame{Resolution: 20}.Header()
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = ParseTaggedFrame([]byte(`{"frame":{"resolution":20,"data":[[1,2,3]]}}`))
	assert.ErrorIs(t, err, ErrMalformedPair)

	_, err = ParseTaggedFrame([]byte(`{"frame":{"resolution":0,"data":[]}}`))
	assert.ErrorIs(t, err, ErrResolution)

	_, err = ParseTaggedFrame([]byte(`not json`))
	assert.Error(t, err)

	_, err = Frame{Resolution: 10, Data: [][]int{{-1, 5}}}.Sequence()
	assert.ErrorIs(t, err, ErrMalformedPair)
}

func TestEmptyFrameIsEmptySequence(t *testing.T) {
	seq, err := Frame{Resolution: 20}.Sequence()
	require.NoError(t, err)
	assert.True(t, seq.IsEmpty())
}
