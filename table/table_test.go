package table

import (
	"bytes"
	"testing"

	"github.com/derktes/ir-signal-workbench/irsignal"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatTable(t *testing.T, names ...string) *Table {
	t.Helper()
	c := irsignal.NewCollection(irsignal.Flat)
	for i, n := range names {
		d := float64(100 * (i + 1))
		c.Add(n, irsignal.NewFlatSignal(irsignal.MustSequence(d, d)))
	}
	return New(c)
}

func structuredTable(t *testing.T) *Table {
	t.Helper()
	sig, err := irsignal.NewStructuredSignal(
		irsignal.MustSequence(9000, 4500, 560, 560),
		irsignal.MustSequence(9000, 2250, 560, 40000),
		irsignal.Sequence{},
		irsignal.Modulation{Frequency: 38000},
	)
	require.NoError(t, err)
	c := irsignal.NewCollection(irsignal.Structured)
	c.Add("Power", sig)
	return New(c)
}

func names(tb *Table) []string {
	var out []string
	for _, r := range tb.Rows() {
		out = append(out, r.Name)
	}
	return out
}

func TestColumnSets(t *testing.T) {
	labels := func(cs ColumnSet) []string {
		var out []string
		for _, c := range cs {
			out = append(out, c.Label)
		}
		return out
	}
	assert.Equal(t, []string{"Name", "Durations", "Verified", "Signal"}, labels(FlatColumns))
	assert.Equal(t, []string{"Name", "Intro", "Repetition", "Ending", "Verified", "Signal"}, labels(StructuredColumns))
	for _, cs := range []ColumnSet{FlatColumns, StructuredColumns} {
		last := cs[len(cs)-1]
		assert.Equal(t, SignalColumn, last.Type)
		assert.False(t, last.Editable)
	}
	assert.Equal(t, []int{1, 2, 3}, StructuredColumns.DurationColumns())
}

func TestNewColumnSetRejectsMalformed(t *testing.T) {
	_, err := NewColumnSet([]string{"Name", "Signal"}, []int{50}, []ColumnType{TextColumn, SignalColumn}, []Role{RoleName, RoleSignal})
	assert.Error(t, err)

	_, err = NewColumnSet([]string{"Name", "Verified"}, []int{50, 10}, []ColumnType{TextColumn, BoolColumn}, []Role{RoleName, RoleVerified})
	assert.ErrorContains(t, err, "not the signal column")
}

func TestEditThenRender(t *testing.T) {
	tb := flatTable(t, "A", "B")
	require.NoError(t, tb.ApplyEdit(1, 1, "+100 -100"))
	text, err := tb.CellText(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "+100 -100", text)

	line, err := tb.ToText(1)
	require.NoError(t, err)
	assert.Equal(t, "B\t+100 -100", line)
}

func TestEditNormalizesInput(t *testing.T) {
	tb := flatTable(t, "A")
	require.NoError(t, tb.ApplyEdit(0, 1, "[9000, 4500, 560, 560]"))
	text, _ := tb.CellText(0, 1)
	assert.Equal(t, "+9000 -4500 +560 -560", text)

	norm, err := tb.Normalize(1, "1,2 3;4")
	require.NoError(t, err)
	assert.Equal(t, "+1 -2 +3 -4", norm)
	_, err = tb.Normalize(0, "1 2")
	assert.Error(t, err)
}

func TestEditIsAtomic(t *testing.T) {
	tests := []struct {
		name string
		col  int
		raw  string
		want error
	}{
		{name: "odd length", col: 1, raw: "+100 -100 +100", want: irsignal.ErrOddLength},
		{name: "misplaced sign", col: 1, raw: "-100 +100", want: irsignal.ErrMisplacedSign},
		{name: "bad boolean", col: 2, raw: "yes", want: ErrNotBoolean},
		{name: "signal column", col: 3, raw: "+1 -1", want: ErrNotEditable},
		{name: "column out of range", col: 9, raw: "x", want: ErrColumnOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := flatTable(t, "A")
			before := tb.Rows()
			err := tb.ApplyEdit(0, tt.col, tt.raw)
			var ce *CellEditError
			require.ErrorAs(t, err, &ce)
			assert.ErrorIs(t, err, ErrCellEditRejected)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.raw, ce.Value)
			assert.Equal(t, before, tb.Rows())
		})
	}
}

func TestEditVerified(t *testing.T) {
	tb := flatTable(t, "A")
	for _, tc := range []struct {
		raw   string
		want  Flag
		value any
		text  string
	}{
		{"TRUE", Flag{Bool: true, Valid: true}, true, "true"},
		{"", Flag{}, nil, ""},
		{"True", Flag{Bool: true, Valid: true}, true, "true"},
		{"false", Flag{Valid: true}, false, "false"},
		{"  ", Flag{}, nil, ""},
	} {
		require.NoError(t, tb.ApplyEdit(0, 2, tc.raw))
		row, err := tb.Row(0)
		require.NoError(t, err)
		assert.Equal(t, tc.want, row.Verified, "%q", tc.raw)
		v, err := tb.Value(0, 2)
		require.NoError(t, err)
		assert.Equal(t, tc.value, v, "%q", tc.raw)
		text, err := tb.CellText(0, 2)
		require.NoError(t, err)
		assert.Equal(t, tc.text, text, "%q", tc.raw)
	}

	verified, err := tb.Verified(0)
	require.NoError(t, err)
	assert.False(t, verified, "an absent flag reads as false")
	line, err := tb.ExportLine(0, "\t")
	require.NoError(t, err)
	assert.Equal(t, "A\t+100 -100\t", line, "absent flag exports as an empty field")
}

func TestEditStructuredColumns(t *testing.T) {
	tb := structuredTable(t)
	require.NoError(t, tb.ApplyEdit(0, 3, "+560 -30000"))
	require.NoError(t, tb.ApplyEdit(0, 0, "  Power On "))

	sig, err := tb.Signal(0)
	require.NoError(t, err)
	assert.Equal(t, "+560 -30000", sig.Ending().String())
	f, ok := sig.Frequency()
	assert.True(t, ok)
	assert.Equal(t, 38000.0, f, "modulation survives the edit")
	name, _ := tb.Name(0)
	assert.Equal(t, "  Power On ", name, "names are stored verbatim")

	text, err := tb.ToText(0)
	require.NoError(t, err)
	assert.Equal(t, "  Power On \t+9000 -4500 +560 -560\t+9000 -2250 +560 -40000\t+560 -30000", text)
}

func TestValueTypes(t *testing.T) {
	tb := structuredTable(t)
	v, err := tb.Value(0, 4)
	require.NoError(t, err)
	assert.Equal(t, false, v)
	v, err = tb.Value(0, 5)
	require.NoError(t, err)
	assert.IsType(t, irsignal.Signal{}, v)
	_, err = tb.Value(1, 0)
	assert.ErrorIs(t, err, ErrRowOutOfRange)
}

func TestDeleteRows(t *testing.T) {
	tb := flatTable(t, "1", "2", "3", "4", "5")
	require.NoError(t, tb.DeleteRows([]int{1, 3}))
	assert.Equal(t, []string{"1", "3", "5"}, names(tb))

	tb = flatTable(t, "1", "2", "3", "4", "5")
	require.NoError(t, tb.DeleteRows([]int{3, 1, 3}))
	assert.Equal(t, []string{"1", "3", "5"}, names(tb))
}

func TestDeleteRowsValidatesFirst(t *testing.T) {
	tb := flatTable(t, "1", "2", "3")
	assert.ErrorIs(t, tb.DeleteRows([]int{0, 7}), ErrRowOutOfRange)
	assert.Equal(t, 3, tb.RowCount())

	assert.ErrorIs(t, tb.DeleteRows(nil), ErrSelection)
}

func TestMoveRows(t *testing.T) {
	tb := flatTable(t, "a", "b", "c", "d")
	require.NoError(t, tb.MoveRow(0, 3))
	assert.Equal(t, []string{"b", "c", "d", "a"}, names(tb))
	require.NoError(t, tb.MoveRow(3, 1))
	assert.Equal(t, []string{"b", "a", "c", "d"}, names(tb))

	at, err := tb.MoveUp(1)
	require.NoError(t, err)
	assert.Equal(t, 0, at)
	at, err = tb.MoveUp(0)
	require.NoError(t, err)
	assert.Equal(t, 0, at)
	at, err = tb.MoveDown(3)
	require.NoError(t, err)
	assert.Equal(t, 3, at)
	at, err = tb.MoveDown(0)
	require.NoError(t, err)
	assert.Equal(t, 1, at)
	assert.Equal(t, []string{"b", "a", "c", "d"}, names(tb))

	assert.ErrorIs(t, tb.MoveRow(0, 4), ErrRowOutOfRange)
}

func TestDuplicateNamesAreIndependentRows(t *testing.T) {
	tb := flatTable(t, "dup", "dup")
	require.NoError(t, tb.ApplyEdit(1, 1, "+1 -1"))
	first, _ := tb.CellText(0, 1)
	second, _ := tb.CellText(1, 1)
	assert.Equal(t, "+100 -100", first)
	assert.Equal(t, "+1 -1", second)
}

func TestAddRows(t *testing.T) {
	tb := flatTable(t, "a")
	i := tb.AddEmpty("new")
	assert.Equal(t, 1, i)
	text, _ := tb.ToText(i)
	assert.Equal(t, "new\t", text)

	_, err := tb.AddRow("x", irsignal.NewFlatSignal(irsignal.MustSequence(1, 1)))
	require.NoError(t, err)
	st := structuredTable(t)
	_, err = st.AddRow("x", irsignal.NewFlatSignal(irsignal.MustSequence(1, 1)))
	assert.ErrorIs(t, err, irsignal.ErrKindMismatch)
	st.AddEmpty("blank")
	sig, _ := st.Signal(1)
	assert.Equal(t, irsignal.Structured, sig.Kind())
}

func TestSortedViewLeavesModelAlone(t *testing.T) {
	tb := flatTable(t, "c", "a", "b")
	v, err := tb.SortedView(0, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 0}, v.Rows())

	down, err := tb.SortedView(0, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, down.Rows())

	model, err := v.ModelIndices([]int{0, 1})
	require.NoError(t, err)
	require.NoError(t, tb.DeleteRows(model))
	assert.Equal(t, []string{"c"}, names(tb))

	_, err = tb.SortedView(3, false)
	assert.ErrorIs(t, err, ErrNotSortable)
}

func TestRequireSelection(t *testing.T) {
	row, err := RequireOne([]int{4})
	require.NoError(t, err)
	assert.Equal(t, 4, row)

	_, err = RequireOne([]int{1, 2})
	var se *SelectionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Count)
	assert.ErrorIs(t, err, ErrSelection)

	_, err = RequireOne(nil)
	assert.ErrorIs(t, err, ErrSelection)
}

func TestExport(t *testing.T) {
	tb := flatTable(t, "A", "B")
	require.NoError(t, tb.ApplyEdit(1, 2, "true"))

	var buf bytes.Buffer
	require.NoError(t, tb.Export(&buf, ","))
	want := "A,+100 -100,false\nB,+200 -200,true\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Export() mismatch (-want +got):\n%s", diff)
	}

	line, err := tb.ExportLine(0, "\t")
	require.NoError(t, err)
	assert.Equal(t, "A\t+100 -100\tfalse", line)
}

func TestRenderRoundTrip(t *testing.T) {
	tb := structuredTable(t)
	for _, col := range tb.Columns().DurationColumns() {
		text, err := tb.CellText(0, col)
		require.NoError(t, err)
		seq, err := irsignal.ParseSequence(text)
		require.NoError(t, err)
		require.NoError(t, tb.ApplyEdit(0, col, text))
		again, _ := tb.CellText(0, col)
		assert.Equal(t, text, again)
		assert.Equal(t, text, seq.String())
	}
}

func TestSequencesFlattenRows(t *testing.T) {
	tb := structuredTable(t)
	seqs := tb.Sequences()
	require.Len(t, seqs, 1)
	assert.Equal(t, 8, seqs[0].Sequence.Len())
	assert.Equal(t, tb.Collection().Names(), []string{"Power"})
}
