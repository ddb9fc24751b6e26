package table

import (
	"cmp"
	"fmt"
	"slices"
)

// View maps display positions to model rows.
type View struct {
	order []int
}

func (v View) Len() int { return len(v.order) }

func (v View) ModelIndex(display int) (int, error) {
	if display < 0 || display >= len(v.order) {
		return -1, fmt.Errorf("%w: display row %d of %d", ErrRowOutOfRange, display, len(v.order))
	}
	return v.order[display], nil
}

// ModelIndices translates a display selection, e.g. before DeleteRows.
func (v View) ModelIndices(display []int) ([]int, error) {
	out := make([]int, len(display))
	for i, d := range display {
		m, err := v.ModelIndex(d)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

func (v View) Rows() []int { return slices.Clone(v.order) }

// View is the unsorted identity view.
func (t *Table) View() View {
	order := make([]int, len(t.rows))
	for i := range order {
		order[i] = i
	}
	return View{order: order}
}

// SortedView orders rows by the text of col, or by the flag for the
// verified column. Ties keep model order. The model is not reordered.
func (t *Table) SortedView(col int, descending bool) (View, error) {
	if col < 0 || col >= len(t.columns) {
		return View{}, fmt.Errorf("%w: %d", ErrColumnOutOfRange, col)
	}
	column := t.columns[col]
	if column.Type == SignalColumn {
		return View{}, fmt.Errorf("%w: %q", ErrNotSortable, column.Label)
	}
	keys := make([]string, len(t.rows))
	for i := range t.rows {
		keys[i], _ = t.CellText(i, col)
	}
	v := t.View()
	slices.SortStableFunc(v.order, func(a, b int) int {
		c := cmp.Compare(keys[a], keys[b])
		if descending {
			return -c
		}
		return c
	})
	return v, nil
}

// RequireOne returns the single selected row.
func RequireOne(rows []int) (int, error) {
	if len(rows) != 1 {
		return -1, &SelectionError{Want: "exactly one", Count: len(rows)}
	}
	return rows[0], nil
}

func RequireAny(rows []int) error {
	if len(rows) == 0 {
		return &SelectionError{Want: "at least one", Count: 0}
	}
	return nil
}
