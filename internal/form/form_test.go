package form

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/snowdesk-io/snowdesk/internal/config"
	"github.com/snowdesk-io/snowdesk/internal/incident"
	"github.com/snowdesk-io/snowdesk/internal/snow"
	"github.com/snowdesk-io/snowdesk/pkg/rasa"
)

// fakeSnow implements TicketSystem for tests. Nil funcs fail the test if
// called, which is how the no-outbound-calls-in-local-mode invariant is
// checked.
type fakeSnow struct {
	t      *testing.T
	lookup func(email string) (snow.LookupResult, error)
	create func(inc snow.IncidentRequest) (snow.IncidentResult, error)
}

func (f *fakeSnow) LookupUser(_ context.Context, email string) (snow.LookupResult, error) {
	if f.lookup == nil {
		f.t.Fatal("unexpected LookupUser call")
	}
	return f.lookup(email)
}

func (f *fakeSnow) CreateIncident(_ context.Context, inc snow.IncidentRequest) (snow.IncidentResult, error) {
	if f.create == nil {
		f.t.Fatal("unexpected CreateIncident call")
	}
	return f.create(inc)
}

// memLedger is an in-memory incident.Store.
type memLedger struct {
	records []incident.Record
}

func (m *memLedger) Append(rec incident.Record) (*incident.Record, error) {
	rec.Number = "INC0000001"
	m.records = append(m.records, rec)
	return &rec, nil
}

func (m *memLedger) List(int) ([]*incident.Record, error) { return nil, nil }
func (m *memLedger) Count() (int, error)                  { return len(m.records), nil }

func testForm(t *testing.T, cfg *config.Config, ts TicketSystem) *OpenIncident {
	t.Helper()
	return &OpenIncident{
		Config: cfg,
		Snow:   ts,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func activeTracker(slots map[string]any, msg rasa.Message) rasa.Tracker {
	return rasa.Tracker{
		Slots:         slots,
		LatestMessage: msg,
		ActiveLoop:    &rasa.ActiveLoopInfo{Name: FormName},
	}
}

func findSlotEvent(events []rasa.Event, name string) (rasa.Event, bool) {
	for _, e := range events {
		if e.Type == rasa.EventSlot && e.Name == name {
			return e, true
		}
	}
	return rasa.Event{}, false
}

func hasEvent(events []rasa.Event, typ string) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func TestActivation_AsksForEmailFirst(t *testing.T) {
	f := testForm(t, config.Default(), &fakeSnow{t: t})
	disp := &rasa.CollectingDispatcher{}
	req := &rasa.ActionRequest{Tracker: rasa.Tracker{
		LatestMessage: rasa.Message{Text: "I forgot my password", Intent: rasa.Intent{Name: "password_reset"}},
	}}

	events, err := f.Run(context.Background(), disp, req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if events[0].Type != rasa.EventActiveLoop || events[0].Name != FormName {
		t.Errorf("first event = %+v, want form activation", events[0])
	}
	// The trigger intent prefills the title at activation.
	if e, ok := findSlotEvent(events, SlotIncidentTitle); !ok || e.Value != "Problem resetting password" {
		t.Errorf("incident_title event = %+v, %v", e, ok)
	}
	if e, ok := findSlotEvent(events, rasa.RequestedSlot); !ok || e.Value != SlotEmail {
		t.Errorf("requested_slot = %+v, %v", e, ok)
	}
	if len(disp.Messages) != 1 || disp.Messages[0].Response != "utter_ask_email" {
		t.Errorf("messages = %+v", disp.Messages)
	}
}

func TestNextQuestionOrder(t *testing.T) {
	tests := []struct {
		name  string
		slots map[string]any
		want  string
	}{
		{"all empty", nil, SlotEmail},
		{"email filled", map[string]any{SlotEmail: "a@b.com"}, SlotPriority},
		{"email and priority", map[string]any{SlotEmail: "a@b.com", SlotPriority: "high"}, SlotProblemDescription},
		{"only title missing", map[string]any{
			SlotEmail: "a@b.com", SlotPriority: "high", SlotProblemDescription: "x",
		}, SlotIncidentTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testForm(t, config.Default(), &fakeSnow{t: t})
			disp := &rasa.CollectingDispatcher{}
			req := &rasa.ActionRequest{Tracker: activeTracker(tt.slots, rasa.Message{Intent: rasa.Intent{Name: "greet"}})}

			events, err := f.Run(context.Background(), disp, req)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			e, ok := findSlotEvent(events, rasa.RequestedSlot)
			if !ok || e.Value != tt.want {
				t.Errorf("requested_slot = %v, want %q", e.Value, tt.want)
			}
			if len(disp.Messages) != 1 || disp.Messages[0].Response != "utter_ask_"+tt.want {
				t.Errorf("messages = %+v", disp.Messages)
			}
		})
	}
}

func TestValidatePriority(t *testing.T) {
	for _, accepted := range []string{"low", "Low", "LOW", "medium", "high"} {
		t.Run(accepted, func(t *testing.T) {
			f := testForm(t, config.Default(), &fakeSnow{t: t})
			disp := &rasa.CollectingDispatcher{}
			req := &rasa.ActionRequest{Tracker: activeTracker(
				map[string]any{SlotEmail: "a@b.com", rasa.RequestedSlot: SlotPriority},
				rasa.Message{
					Text:     accepted,
					Intent:   rasa.Intent{Name: "inform"},
					Entities: []rasa.Entity{{Entity: "priority", Value: accepted}},
				},
			)}

			events, err := f.Run(context.Background(), disp, req)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			e, ok := findSlotEvent(events, SlotPriority)
			if !ok || e.Value != accepted {
				t.Errorf("priority event = %+v; input must be preserved as given", e)
			}
		})
	}
}

func TestValidatePriority_Invalid(t *testing.T) {
	f := testForm(t, config.Default(), &fakeSnow{t: t})
	disp := &rasa.CollectingDispatcher{}
	req := &rasa.ActionRequest{Tracker: activeTracker(
		map[string]any{SlotEmail: "a@b.com", rasa.RequestedSlot: SlotPriority},
		rasa.Message{
			Text:     "urgent",
			Intent:   rasa.Intent{Name: "inform"},
			Entities: []rasa.Entity{{Entity: "priority", Value: "urgent"}},
		},
	)}

	events, err := f.Run(context.Background(), disp, req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	e, ok := findSlotEvent(events, SlotPriority)
	if !ok || e.Value != nil {
		t.Errorf("priority event = %+v, want cleared slot", e)
	}
	if disp.Messages[0].Response != "utter_no_priority" {
		t.Errorf("messages = %+v", disp.Messages)
	}
	// The cleared field is asked for again.
	if e, _ := findSlotEvent(events, rasa.RequestedSlot); e.Value != SlotPriority {
		t.Errorf("requested_slot = %v, want re-ask of priority", e.Value)
	}
}

func TestValidateEmail_LocalModeSkipsLookup(t *testing.T) {
	// fakeSnow with nil funcs fails the test on any outbound call.
	f := testForm(t, config.Default(), &fakeSnow{t: t})
	disp := &rasa.CollectingDispatcher{}
	req := &rasa.ActionRequest{Tracker: activeTracker(
		map[string]any{rasa.RequestedSlot: SlotEmail},
		rasa.Message{
			Text:     "a@b.com",
			Intent:   rasa.Intent{Name: "inform"},
			Entities: []rasa.Entity{{Entity: "email", Value: "a@b.com"}},
		},
	)}

	events, err := f.Run(context.Background(), disp, req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e, ok := findSlotEvent(events, SlotEmail); !ok || e.Value != "a@b.com" {
		t.Errorf("email event = %+v, %v", e, ok)
	}
}

func liveConfig() *config.Config {
	cfg := config.Default()
	cfg.LocalMode = false
	return cfg
}

func emailTurn(email string) *rasa.ActionRequest {
	return &rasa.ActionRequest{Tracker: activeTracker(
		map[string]any{rasa.RequestedSlot: SlotEmail},
		rasa.Message{
			Text:     email,
			Intent:   rasa.Intent{Name: "inform"},
			Entities: []rasa.Entity{{Entity: "email", Value: email}},
		},
	)}
}

func TestValidateEmail_SingleMatchKeepsInput(t *testing.T) {
	ts := &fakeSnow{t: t, lookup: func(email string) (snow.LookupResult, error) {
		return snow.LookupResult{Status: 200, Records: []snow.UserRecord{{SysID: "u1", Email: "canonical@b.com"}}}, nil
	}}
	f := testForm(t, liveConfig(), ts)
	disp := &rasa.CollectingDispatcher{}

	events, err := f.Run(context.Background(), disp, emailTurn("a@b.com"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	e, ok := findSlotEvent(events, SlotEmail)
	if !ok || e.Value != "a@b.com" {
		t.Errorf("email event = %+v; the user's input must be kept, not the matched record", e)
	}
}

func TestValidateEmail_NoMatch(t *testing.T) {
	for _, n := range []int{0, 2} {
		records := make([]snow.UserRecord, n)
		ts := &fakeSnow{t: t, lookup: func(string) (snow.LookupResult, error) {
			return snow.LookupResult{Status: 200, Records: records}, nil
		}}
		f := testForm(t, liveConfig(), ts)
		disp := &rasa.CollectingDispatcher{}

		events, err := f.Run(context.Background(), disp, emailTurn("nobody@b.com"))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if e, ok := findSlotEvent(events, SlotEmail); !ok || e.Value != nil {
			t.Errorf("%d matches: email event = %+v, want cleared", n, e)
		}
		if disp.Messages[0].Response != "utter_no_email" {
			t.Errorf("%d matches: messages = %+v", n, disp.Messages)
		}
	}
}

func TestValidateEmail_ServerError(t *testing.T) {
	ts := &fakeSnow{t: t, lookup: func(string) (snow.LookupResult, error) {
		return snow.LookupResult{Status: 401, Message: "ServiceNow error: User Not Authenticated"}, nil
	}}
	f := testForm(t, liveConfig(), ts)
	disp := &rasa.CollectingDispatcher{}

	events, err := f.Run(context.Background(), disp, emailTurn("a@b.com"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e, _ := findSlotEvent(events, SlotEmail); e.Value != nil {
		t.Errorf("email event = %+v, want cleared", e)
	}
	if disp.Messages[0].Text != "ServiceNow error: User Not Authenticated" {
		t.Errorf("messages = %+v", disp.Messages)
	}
}

func completeTracker() rasa.Tracker {
	return activeTracker(
		map[string]any{
			SlotEmail:              "a@b.com",
			SlotPriority:           "high",
			SlotProblemDescription: "x",
			rasa.RequestedSlot:     SlotIncidentTitle,
		},
		rasa.Message{Text: "y", Intent: rasa.Intent{Name: "inform"}},
	)
}

func TestSubmit_LocalMode(t *testing.T) {
	ledger := &memLedger{}
	f := testForm(t, config.Default(), &fakeSnow{t: t})
	f.Ledger = ledger
	disp := &rasa.CollectingDispatcher{}

	events, err := f.Run(context.Background(), disp, &rasa.ActionRequest{Tracker: completeTracker()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(disp.Messages) != 1 {
		t.Fatalf("messages = %+v", disp.Messages)
	}
	msg := disp.Messages[0].Text
	for _, want := range []string{"a@b.com", "high", "x", "y"} {
		if !strings.Contains(msg, want) {
			t.Errorf("preview %q missing %q", msg, want)
		}
	}

	if !hasEvent(events, rasa.EventAllSlotsReset) {
		t.Error("submission must clear all slots")
	}
	// Deactivation follows the reset.
	last := events[len(events)-1]
	if last.Type != rasa.EventSlot || last.Name != rasa.RequestedSlot || last.Value != nil {
		t.Errorf("last event = %+v, want requested_slot cleared", last)
	}

	if len(ledger.records) != 1 {
		t.Fatalf("ledger records = %d", len(ledger.records))
	}
	rec := ledger.records[0]
	if rec.CallerEmail != "a@b.com" || rec.ShortDescription != "y" || rec.Urgency != "1" {
		t.Errorf("ledger record = %+v", rec)
	}
}

func TestSubmit_Live(t *testing.T) {
	var created snow.IncidentRequest
	ts := &fakeSnow{
		t: t,
		lookup: func(string) (snow.LookupResult, error) {
			return snow.LookupResult{Status: 200, Records: []snow.UserRecord{{SysID: "u1"}}}, nil
		},
		create: func(inc snow.IncidentRequest) (snow.IncidentResult, error) {
			created = inc
			return snow.IncidentResult{Number: "INC0001234"}, nil
		},
	}
	f := testForm(t, liveConfig(), ts)
	disp := &rasa.CollectingDispatcher{}

	events, err := f.Run(context.Background(), disp, &rasa.ActionRequest{Tracker: completeTracker()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(disp.Messages[0].Text, "INC0001234") {
		t.Errorf("confirmation = %q", disp.Messages[0].Text)
	}
	if created.CallerID != "u1" || created.Urgency != "1" || created.ShortDescription != "y" || created.Description != "x" {
		t.Errorf("create request = %+v", created)
	}
	if !hasEvent(events, rasa.EventAllSlotsReset) {
		t.Error("submission must clear all slots")
	}
}

func TestSubmit_CreateFailurePropagates(t *testing.T) {
	ts := &fakeSnow{
		t: t,
		lookup: func(string) (snow.LookupResult, error) {
			return snow.LookupResult{Status: 200, Records: []snow.UserRecord{{SysID: "u1"}}}, nil
		},
		create: func(snow.IncidentRequest) (snow.IncidentResult, error) {
			return snow.IncidentResult{}, errors.New("snow: create (status 403): Insufficient rights")
		},
	}
	f := testForm(t, liveConfig(), ts)

	events, err := f.Run(context.Background(), &rasa.CollectingDispatcher{}, &rasa.ActionRequest{Tracker: completeTracker()})
	if err == nil {
		t.Fatal("create failure must propagate")
	}
	if events != nil {
		t.Errorf("no events on failure, got %+v; collected state must survive", events)
	}
}

func TestSeverityMapping(t *testing.T) {
	tests := []struct{ priority, want string }{
		{"low", "3"}, {"Low", "3"}, {"LOW", "3"},
		{"medium", "2"}, {"Medium", "2"},
		{"high", "1"}, {"anything-else", "1"}, {"", "1"},
	}
	for _, tt := range tests {
		if got := severity(tt.priority); got != tt.want {
			t.Errorf("severity(%q) = %q, want %q", tt.priority, got, tt.want)
		}
	}
}
