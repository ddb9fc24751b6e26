package irsignal

// Entry is one named signal of a Collection.
type Entry struct {
	Name   string
	Signal Signal
}

// NamedSequence pairs a name with a flattened sequence, the shape handed to
// a decoder.
type NamedSequence struct {
	Name     string
	Sequence Sequence
}

// Collection is an ordered list of named signals of one kind. Names need not
// be unique; position is the identity of an entry.
type Collection struct {
	Kind    Kind
	Entries []Entry
}

func NewCollection(kind Kind) *Collection {
	return &Collection{Kind: kind}
}

func (c *Collection) Add(name string, signal Signal) {
	c.Entries = append(c.Entries, Entry{Name: name, Signal: signal})
}

func (c *Collection) Len() int { return len(c.Entries) }

func (c *Collection) Names() []string {
	names := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		names[i] = e.Name
	}
	return names
}

// Sequences flattens every entry, preserving order and duplicate names.
func (c *Collection) Sequences() []NamedSequence {
	out := make([]NamedSequence, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = NamedSequence{Name: e.Name, Sequence: e.Signal.Sequence()}
	}
	return out
}
