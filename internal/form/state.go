package form

// FieldState is the explicit per-field lifecycle. The host tracks this
// implicitly through nullable slots; modeling it directly keeps the
// re-ask semantics testable without a running host.
type FieldState int

const (
	// Unfilled means no value has been collected yet.
	Unfilled FieldState = iota
	// Filled means a value was collected and passed validation.
	Filled
	// Rejected means the last collected value failed validation; the
	// field needs re-asking.
	Rejected
)

// State tracks the fields of one form through a single turn.
type State struct {
	order  []string
	fields map[string]FieldState
}

// NewState creates a State with every field unfilled, asked in the given
// priority order.
func NewState(order []string) *State {
	s := &State{order: order, fields: make(map[string]FieldState, len(order))}
	for _, f := range order {
		s.fields[f] = Unfilled
	}
	return s
}

// Fill marks a field as holding a validated value.
func (s *State) Fill(name string) { s.fields[name] = Filled }

// Reject marks a field's value as failed validation. A rejected field is
// asked for again on the next turn.
func (s *State) Reject(name string) { s.fields[name] = Rejected }

// Get returns the field's current state.
func (s *State) Get(name string) FieldState { return s.fields[name] }

// NextUnfilled returns the first field in priority order that does not
// hold a validated value, or "" when the form is complete.
func (s *State) NextUnfilled() string {
	for _, f := range s.order {
		if s.fields[f] != Filled {
			return f
		}
	}
	return ""
}

// Complete reports whether every field holds a validated value.
func (s *State) Complete() bool { return s.NextUnfilled() == "" }
