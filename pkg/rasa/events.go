package rasa

// Event type discriminators as they appear on the wire.
const (
	EventSessionStarted = "session_started"
	EventSlot           = "slot"
	EventAction         = "action"
	EventRestarted      = "restart"
	EventAllSlotsReset  = "reset_slots"
	EventActiveLoop     = "active_loop"
	EventUser           = "user"
	EventBot            = "bot"
)

// ActionListen is the built-in action that hands the turn back to the user.
const ActionListen = "action_listen"

// RequestedSlot is the framework slot naming the field a form asks for next.
const RequestedSlot = "requested_slot"

// Event is a single tracker event. One struct covers every kind the action
// server reads or emits; the Type field discriminates and unused fields stay
// at their zero value and are omitted on the wire.
type Event struct {
	Type      string         `json:"event"`
	Timestamp float64        `json:"timestamp,omitempty"`
	Name      string         `json:"name,omitempty"`
	Value     any            `json:"value,omitempty"`
	Text      string         `json:"text,omitempty"`
	ParseData *ParseData     `json:"parse_data,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SessionStarted marks the beginning of a new conversation session.
func SessionStarted() Event {
	return Event{Type: EventSessionStarted}
}

// SlotSet assigns value to the named slot. A nil value clears the slot,
// which makes the host re-ask for it when a form is active.
func SlotSet(name string, value any) Event {
	return Event{Type: EventSlot, Name: name, Value: value}
}

// SlotSetWithMetadata is SlotSet preserving event metadata, used when
// carrying slots over from a previous session.
func SlotSetWithMetadata(name string, value any, metadata map[string]any) Event {
	return Event{Type: EventSlot, Name: name, Value: value, Metadata: metadata}
}

// ActionExecuted records that the named action ran.
func ActionExecuted(name string) Event {
	return Event{Type: EventAction, Name: name}
}

// Restarted resets the conversation to its initial state.
func Restarted() Event {
	return Event{Type: EventRestarted}
}

// AllSlotsReset clears every slot in the tracker.
func AllSlotsReset() Event {
	return Event{Type: EventAllSlotsReset}
}

// ActiveLoop activates the named form. An empty name deactivates it.
func ActiveLoop(name string) Event {
	return Event{Type: EventActiveLoop, Name: name}
}
