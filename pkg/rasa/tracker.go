package rasa

// Intent is a classified user intent with its confidence score.
type Intent struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Entity is a recognized entity in a user message.
type Entity struct {
	Entity string `json:"entity"`
	Value  any    `json:"value"`
	Start  int    `json:"start,omitempty"`
	End    int    `json:"end,omitempty"`
}

// ParseData is the NLU result attached to a user message.
type ParseData struct {
	Text          string   `json:"text,omitempty"`
	Intent        Intent   `json:"intent"`
	IntentRanking []Intent `json:"intent_ranking,omitempty"`
	Entities      []Entity `json:"entities,omitempty"`
}

// Message is the latest user message as carried in a tracker snapshot.
type Message struct {
	Text          string   `json:"text"`
	Intent        Intent   `json:"intent"`
	IntentRanking []Intent `json:"intent_ranking,omitempty"`
	Entities      []Entity `json:"entities,omitempty"`
}

// ActiveLoopInfo identifies the currently active form, if any.
type ActiveLoopInfo struct {
	Name string `json:"name,omitempty"`
}

// Tracker is the host's per-conversation state snapshot. The action server
// only reads from it; all mutation happens through returned events.
type Tracker struct {
	SenderID         string          `json:"sender_id"`
	Slots            map[string]any  `json:"slots"`
	LatestMessage    Message         `json:"latest_message"`
	Events           []Event         `json:"events"`
	Paused           bool            `json:"paused"`
	FollowupAction   string          `json:"followup_action,omitempty"`
	ActiveLoop       *ActiveLoopInfo `json:"active_loop,omitempty"`
	LatestActionName string          `json:"latest_action_name,omitempty"`
}

// Slot returns the current value of the named slot, or nil.
func (t *Tracker) Slot(name string) any {
	if t.Slots == nil {
		return nil
	}
	return t.Slots[name]
}

// StringSlot returns the named slot as a string, or "" when unset or not
// a string.
func (t *Tracker) StringSlot(name string) string {
	s, _ := t.Slot(name).(string)
	return s
}

// EntityValue returns the value of the first recognized entity with the
// given name in the latest message, or nil.
func (t *Tracker) EntityValue(entity string) any {
	for _, e := range t.LatestMessage.Entities {
		if e.Entity == entity {
			return e.Value
		}
	}
	return nil
}

// ActiveLoopName returns the active form's name, or "".
func (t *Tracker) ActiveLoopName() string {
	if t.ActiveLoop == nil {
		return ""
	}
	return t.ActiveLoop.Name
}

// LastUserEvent walks the event log backward and returns the most recent
// user event accepted by keep, after discarding skip accepted matches.
// Returns nil when no qualifying event exists.
func (t *Tracker) LastUserEvent(keep func(*Event) bool, skip int) *Event {
	for i := len(t.Events) - 1; i >= 0; i-- {
		e := &t.Events[i]
		if e.Type != EventUser || !keep(e) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		return e
	}
	return nil
}
