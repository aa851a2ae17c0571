package action

import (
	"context"
	"log/slog"

	"github.com/snowdesk-io/snowdesk/internal/config"
	"github.com/snowdesk-io/snowdesk/internal/profile"
	"github.com/snowdesk-io/snowdesk/pkg/rasa"
)

// SessionStart runs once per new conversation. It emits the session marker,
// re-applies carried-over slots when the host domain asks for it, injects a
// fresh mock profile and hands the turn back to the user. The ordering is
// load-bearing: session_started must be first and action_listen last or the
// host resumes input collection in the wrong state.
type SessionStart struct {
	Config *config.Config
	Logger *slog.Logger
}

func (a *SessionStart) Name() string { return "action_session_start" }

func (a *SessionStart) Run(_ context.Context, _ *rasa.CollectingDispatcher, req *rasa.ActionRequest) ([]rasa.Event, error) {
	a.Logger.Debug("session start", "sender_id", req.Tracker.SenderID)

	events := []rasa.Event{rasa.SessionStarted()}

	if sc := req.SessionConfig(); sc != nil {
		if _, ok := sc["carry_over_slots"]; ok {
			events = append(events, carryOverSlots(&req.Tracker)...)
		}
	}

	p := profile.Generate(a.Config.UseProfileEmail)
	a.Logger.Debug("generated profile", "name", p.Name, "site", p.Site)
	events = append(events, profileSlotEvents(p)...)

	events = append(events, rasa.ActionExecuted(rasa.ActionListen))
	return events, nil
}

// carryOverSlots re-emits every slot event from the previous session,
// preserving name, value and metadata.
func carryOverSlots(t *rasa.Tracker) []rasa.Event {
	var events []rasa.Event
	for _, e := range t.Events {
		if e.Type == rasa.EventSlot {
			events = append(events, rasa.SlotSetWithMetadata(e.Name, e.Value, e.Metadata))
		}
	}
	return events
}

// profileSlotEvents converts a mock profile into slot events, skipping
// absent fields.
func profileSlotEvents(p profile.Profile) []rasa.Event {
	events := []rasa.Event{rasa.SlotSet(profile.SlotName, p.Name)}
	if p.Email != "" {
		events = append(events, rasa.SlotSet(profile.SlotEmail, p.Email))
	}
	events = append(events, rasa.SlotSet(profile.SlotSite, p.Site))
	return events
}
