package table

import (
	"errors"
	"fmt"
)

type ColumnType int

const (
	TextColumn ColumnType = iota
	BoolColumn
	SignalColumn
)

func (t ColumnType) String() string {
	switch t {
	case TextColumn:
		return "text"
	case BoolColumn:
		return "bool"
	case SignalColumn:
		return "signal"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Role says which part of a row a column projects.
type Role int

const (
	RoleName Role = iota
	RoleDurations
	RoleIntro
	RoleRepeat
	RoleEnding
	RoleVerified
	RoleSignal
)

// Durations reports whether the role holds a rendered duration sequence.
func (r Role) Durations() bool {
	switch r {
	case RoleDurations, RoleIntro, RoleRepeat, RoleEnding:
		return true
	}
	return false
}

type Column struct {
	Label    string
	Width    int
	Type     ColumnType
	Editable bool
	Role     Role
}

type ColumnSet []Column

var errColumnSet = errors.New("invalid column set")

// NewColumnSet zips the per-column slices. The last column must be the
// signal handle, which is never editable.
func NewColumnSet(labels []string, widths []int, types []ColumnType, roles []Role) (ColumnSet, error) {
	n := len(labels)
	if n == 0 || len(widths) != n || len(types) != n || len(roles) != n {
		return nil, fmt.Errorf("%w: %d labels, %d widths, %d types, %d roles",
			errColumnSet, len(labels), len(widths), len(types), len(roles))
	}
	if types[n-1] != SignalColumn || roles[n-1] != RoleSignal {
		return nil, fmt.Errorf("%w: last column %q is not the signal column", errColumnSet, labels[n-1])
	}
	cols := make(ColumnSet, n)
	for i := range cols {
		cols[i] = Column{
			Label:    labels[i],
			Width:    widths[i],
			Type:     types[i],
			Editable: roles[i] != RoleSignal,
			Role:     roles[i],
		}
	}
	return cols, nil
}

func mustColumnSet(labels []string, widths []int, types []ColumnType, roles []Role) ColumnSet {
	cols, err := NewColumnSet(labels, widths, types, roles)
	if err != nil {
		panic(err)
	}
	return cols
}

var (
	FlatColumns = mustColumnSet(
		[]string{"Name", "Durations", "Verified", "Signal"},
		[]int{50, 75, 10, 10},
		[]ColumnType{TextColumn, TextColumn, BoolColumn, SignalColumn},
		[]Role{RoleName, RoleDurations, RoleVerified, RoleSignal},
	)
	StructuredColumns = mustColumnSet(
		[]string{"Name", "Intro", "Repetition", "Ending", "Verified", "Signal"},
		[]int{50, 75, 75, 10, 10, 10},
		[]ColumnType{TextColumn, TextColumn, TextColumn, TextColumn, BoolColumn, SignalColumn},
		[]Role{RoleName, RoleIntro, RoleRepeat, RoleEnding, RoleVerified, RoleSignal},
	)
)

// Index returns the position of the first column with the given role, or -1.
func (cs ColumnSet) Index(r Role) int {
	for i, c := range cs {
		if c.Role == r {
			return i
		}
	}
	return -1
}

// DurationColumns lists the positions of duration-bearing columns in order.
func (cs ColumnSet) DurationColumns() []int {
	var idx []int
	for i, c := range cs {
		if c.Role.Durations() {
			idx = append(idx, i)
		}
	}
	return idx
}
