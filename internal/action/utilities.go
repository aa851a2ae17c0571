package action

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/snowdesk-io/snowdesk/internal/config"
	"github.com/snowdesk-io/snowdesk/internal/profile"
	"github.com/snowdesk-io/snowdesk/pkg/rasa"
)

// Restart resets the conversation to its initial state.
type Restart struct{}

func (a *Restart) Name() string { return "action_restart" }

func (a *Restart) Run(_ context.Context, _ *rasa.CollectingDispatcher, _ *rasa.ActionRequest) ([]rasa.Event, error) {
	return []rasa.Event{rasa.Restarted()}, nil
}

// ResetSlots clears every slot and injects a fresh mock profile, without
// the session markers SessionStart emits.
type ResetSlots struct {
	Config *config.Config
	Logger *slog.Logger
}

func (a *ResetSlots) Name() string { return "action_reset_slots" }

func (a *ResetSlots) Run(_ context.Context, _ *rasa.CollectingDispatcher, req *rasa.ActionRequest) ([]rasa.Event, error) {
	p := profile.Generate(a.Config.UseProfileEmail)
	a.Logger.Debug("reset slots", "sender_id", req.Tracker.SenderID, "profile", p.Name)

	events := []rasa.Event{rasa.AllSlotsReset()}
	events = append(events, profileSlotEvents(p)...)
	return events, nil
}

// ShowSlots renders the tracker's current slots as `key | value` lines in
// a single message. Read-only.
type ShowSlots struct{}

func (a *ShowSlots) Name() string { return "action_show_slots" }

func (a *ShowSlots) Run(_ context.Context, disp *rasa.CollectingDispatcher, req *rasa.ActionRequest) ([]rasa.Event, error) {
	keys := make([]string, 0, len(req.Tracker.Slots))
	for k := range req.Tracker.Slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Slots:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s | %v\n", k, req.Tracker.Slots[k])
	}
	disp.Utter(b.String())
	return []rasa.Event{}, nil
}
