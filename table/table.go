// Package table projects a signal collection onto typed, editable rows and
// columns. Row indices always refer to the canonical (model) order; sorted
// views only map display positions onto it.
//
// A Table is not safe for concurrent use. Hosts that share one serialize
// every call.
package table

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/derktes/ir-signal-workbench/irsignal"
)

type Row struct {
	Name     string
	Signal   irsignal.Signal
	Verified Flag
}

// Flag is a boolean cell that may be absent. Rows start out with a valid
// false flag; an empty edit makes it absent.
type Flag struct {
	Bool  bool
	Valid bool
}

func (f Flag) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatBool(f.Bool)
}

type Table struct {
	kind    irsignal.Kind
	columns ColumnSet
	rows    []Row
}

// New copies the entries of c into rows, in order, all unverified.
func New(c *irsignal.Collection) *Table {
	t := Empty(c.Kind)
	for _, e := range c.Entries {
		t.rows = append(t.rows, Row{Name: e.Name, Signal: e.Signal, Verified: Flag{Valid: true}})
	}
	return t
}

func Empty(kind irsignal.Kind) *Table {
	cols := FlatColumns
	if kind == irsignal.Structured {
		cols = StructuredColumns
	}
	return &Table{kind: kind, columns: cols}
}

func (t *Table) Kind() irsignal.Kind { return t.kind }

func (t *Table) Columns() ColumnSet { return slices.Clone(t.columns) }

func (t *Table) RowCount() int { return len(t.rows) }

func (t *Table) Row(row int) (Row, error) {
	if err := t.checkRow(row); err != nil {
		return Row{}, err
	}
	return t.rows[row], nil
}

func (t *Table) Rows() []Row { return slices.Clone(t.rows) }

func (t *Table) Name(row int) (string, error) {
	r, err := t.Row(row)
	return r.Name, err
}

func (t *Table) Signal(row int) (irsignal.Signal, error) {
	r, err := t.Row(row)
	return r.Signal, err
}

// Verified reports the flag of row; an absent flag reads as false.
func (t *Table) Verified(row int) (bool, error) {
	r, err := t.Row(row)
	return r.Verified.Bool, err
}

// Value returns the typed cell value: string for text columns, bool for the
// verified column (nil when absent) and irsignal.Signal for the handle
// column.
func (t *Table) Value(row, col int) (any, error) {
	if err := t.checkCell(row, col); err != nil {
		return nil, err
	}
	r := t.rows[row]
	switch role := t.columns[col].Role; role {
	case RoleName:
		return r.Name, nil
	case RoleVerified:
		if !r.Verified.Valid {
			return nil, nil
		}
		return r.Verified.Bool, nil
	case RoleSignal:
		return r.Signal, nil
	default:
		return sequenceOf(r.Signal, role).String(), nil
	}
}

func (t *Table) CellText(row, col int) (string, error) {
	v, err := t.Value(row, col)
	if err != nil {
		return "", err
	}
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case irsignal.Signal:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// ApplyEdit parses raw for the column type and stores it. On failure the
// row is unchanged and the error is a *CellEditError.
func (t *Table) ApplyEdit(row, col int, raw string) error {
	reject := func(err error) error {
		e := &CellEditError{Row: row, Column: col, Value: raw, Err: err}
		if col >= 0 && col < len(t.columns) {
			e.Label = t.columns[col].Label
		}
		return e
	}
	if err := t.checkCell(row, col); err != nil {
		return reject(err)
	}
	column := t.columns[col]
	if !column.Editable {
		return reject(ErrNotEditable)
	}
	r := t.rows[row]
	switch column.Role {
	case RoleName:
		r.Name = raw
	case RoleVerified:
		v, err := parseFlag(raw)
		if err != nil {
			return reject(err)
		}
		r.Verified = v
	default:
		seq, err := irsignal.ParseSequence(raw)
		if err != nil {
			return reject(err)
		}
		sig, err := withSequence(r.Signal, column.Role, seq)
		if err != nil {
			return reject(err)
		}
		r.Signal = sig
	}
	t.rows[row] = r
	return nil
}

// Normalize returns the canonical rendering of a duration text typed into
// col, without touching the table.
func (t *Table) Normalize(col int, text string) (string, error) {
	if col < 0 || col >= len(t.columns) {
		return "", fmt.Errorf("%w: %d", ErrColumnOutOfRange, col)
	}
	if !t.columns[col].Role.Durations() {
		return "", fmt.Errorf("column %q does not hold durations", t.columns[col].Label)
	}
	seq, err := irsignal.ParseSequence(text)
	if err != nil {
		return "", err
	}
	return seq.String(), nil
}

func (t *Table) AddRow(name string, sig irsignal.Signal) (int, error) {
	if sig.Kind() != t.kind {
		return -1, fmt.Errorf("%w: %s row in %s table", irsignal.ErrKindMismatch, sig.Kind(), t.kind)
	}
	t.rows = append(t.rows, Row{Name: name, Signal: sig, Verified: Flag{Valid: true}})
	return len(t.rows) - 1, nil
}

// AddEmpty appends a row with empty durations and returns its index.
func (t *Table) AddEmpty(name string) int {
	sig := irsignal.NewFlatSignal(irsignal.Sequence{})
	if t.kind == irsignal.Structured {
		// cannot fail: empty sequences and undefined modulation
		sig, _ = irsignal.NewStructuredSignal(irsignal.Sequence{}, irsignal.Sequence{}, irsignal.Sequence{}, irsignal.Modulation{})
	}
	t.rows = append(t.rows, Row{Name: name, Signal: sig, Verified: Flag{Valid: true}})
	return len(t.rows) - 1
}

func (t *Table) MoveRow(from, to int) error {
	if err := t.checkRow(from); err != nil {
		return err
	}
	if err := t.checkRow(to); err != nil {
		return err
	}
	r := t.rows[from]
	t.rows = slices.Delete(t.rows, from, from+1)
	t.rows = slices.Insert(t.rows, to, r)
	return nil
}

// MoveUp swaps row with its predecessor and returns its new index. The first
// row stays put.
func (t *Table) MoveUp(row int) (int, error) {
	if err := t.checkRow(row); err != nil {
		return row, err
	}
	if row == 0 {
		return 0, nil
	}
	return row - 1, t.MoveRow(row, row-1)
}

// MoveDown is MoveUp towards the end of the table.
func (t *Table) MoveDown(row int) (int, error) {
	if err := t.checkRow(row); err != nil {
		return row, err
	}
	if row == len(t.rows)-1 {
		return row, nil
	}
	return row + 1, t.MoveRow(row, row+1)
}

// DeleteRows removes the given model rows. Every index is validated before
// anything is removed; duplicates are ignored.
func (t *Table) DeleteRows(rows []int) error {
	if err := RequireAny(rows); err != nil {
		return err
	}
	for _, r := range rows {
		if err := t.checkRow(r); err != nil {
			return err
		}
	}
	sorted := slices.Clone(rows)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	for i := len(sorted) - 1; i >= 0; i-- {
		t.rows = slices.Delete(t.rows, sorted[i], sorted[i]+1)
	}
	return nil
}

// ToText renders the name and every duration column, tab separated.
func (t *Table) ToText(row int) (string, error) {
	if err := t.checkRow(row); err != nil {
		return "", err
	}
	fields := []string{t.rows[row].Name}
	for _, col := range t.columns.DurationColumns() {
		fields = append(fields, sequenceOf(t.rows[row].Signal, t.columns[col].Role).String())
	}
	return strings.Join(fields, "\t"), nil
}

// ExportLine renders name, durations and the verified flag joined by sep.
func (t *Table) ExportLine(row int, sep string) (string, error) {
	if err := t.checkRow(row); err != nil {
		return "", err
	}
	r := t.rows[row]
	fields := []string{r.Name}
	for _, col := range t.columns.DurationColumns() {
		fields = append(fields, sequenceOf(r.Signal, t.columns[col].Role).String())
	}
	fields = append(fields, r.Verified.String())
	return strings.Join(fields, sep), nil
}

func (t *Table) Export(w io.Writer, sep string) error {
	for i := range t.rows {
		line, err := t.ExportLine(i, sep)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Sequences lists every row's flattened sequence in model order.
func (t *Table) Sequences() []irsignal.NamedSequence {
	out := make([]irsignal.NamedSequence, len(t.rows))
	for i, r := range t.rows {
		out[i] = irsignal.NamedSequence{Name: r.Name, Sequence: r.Signal.Sequence()}
	}
	return out
}

// Collection rebuilds a collection from the current rows.
func (t *Table) Collection() *irsignal.Collection {
	c := irsignal.NewCollection(t.kind)
	for _, r := range t.rows {
		c.Add(r.Name, r.Signal)
	}
	return c
}

func (t *Table) checkRow(row int) error {
	if row < 0 || row >= len(t.rows) {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, row, len(t.rows))
	}
	return nil
}

func (t *Table) checkCell(row, col int) error {
	if err := t.checkRow(row); err != nil {
		return err
	}
	if col < 0 || col >= len(t.columns) {
		return fmt.Errorf("%w: %d of %d", ErrColumnOutOfRange, col, len(t.columns))
	}
	return nil
}

func sequenceOf(sig irsignal.Signal, role Role) irsignal.Sequence {
	switch role {
	case RoleIntro:
		return sig.Intro()
	case RoleRepeat:
		return sig.Repeat()
	case RoleEnding:
		return sig.Ending()
	default:
		return sig.Flat()
	}
}

func withSequence(sig irsignal.Signal, role Role, seq irsignal.Sequence) (irsignal.Signal, error) {
	switch role {
	case RoleDurations:
		return sig.WithFlat(seq)
	case RoleIntro:
		return sig.WithIntro(seq)
	case RoleRepeat:
		return sig.WithRepeat(seq)
	case RoleEnding:
		return sig.WithEnding(seq)
	default:
		return sig, fmt.Errorf("%w: role %d", ErrNotEditable, role)
	}
}

// parseFlag accepts true or false in any case. Empty text makes the flag
// absent.
func parseFlag(raw string) (Flag, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Flag{}, nil
	case strings.EqualFold(s, "true"):
		return Flag{Bool: true, Valid: true}, nil
	case strings.EqualFold(s, "false"):
		return Flag{Valid: true}, nil
	default:
		return Flag{}, fmt.Errorf("%w: %q", ErrNotBoolean, raw)
	}
}
