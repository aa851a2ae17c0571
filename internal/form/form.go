// Package form implements the guided incident-intake workflow: four
// required fields collected across turns, validated per field, submitted
// as a ServiceNow incident (or simulated locally).
package form

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/snowdesk-io/snowdesk/internal/config"
	"github.com/snowdesk-io/snowdesk/internal/incident"
	"github.com/snowdesk-io/snowdesk/internal/snow"
	"github.com/snowdesk-io/snowdesk/pkg/rasa"
)

// Form field slot names, in the order they are asked for.
const (
	SlotEmail              = "email"
	SlotPriority           = "priority"
	SlotProblemDescription = "problem_description"
	SlotIncidentTitle      = "incident_title"
)

// FormName is the action name the host invokes for the intake form.
const FormName = "open_incident_form"

// requiredSlots is the priority order for the next question when several
// fields are unfilled.
var requiredSlots = []string{SlotEmail, SlotPriority, SlotProblemDescription, SlotIncidentTitle}

// slotMappings maps each field to its extraction strategies, evaluated in
// order with first-match-wins.
var slotMappings = map[string][]Mapping{
	SlotEmail:    {FromEntity("email")},
	SlotPriority: {FromEntity("priority")},
	SlotProblemDescription: {
		FromText("password_reset", "problem_email", "inform"),
	},
	SlotIncidentTitle: {
		FromTriggerIntent("password_reset", "Problem resetting password"),
		FromTriggerIntent("problem_email", "Problem with email"),
		FromText("password_reset", "problem_email", "inform"),
	},
}

// validPriorities are the accepted priority values, compared
// case-insensitively.
var validPriorities = map[string]bool{"low": true, "medium": true, "high": true}

// TicketSystem is the slice of the ServiceNow client the form needs.
type TicketSystem interface {
	LookupUser(ctx context.Context, email string) (snow.LookupResult, error)
	CreateIncident(ctx context.Context, inc snow.IncidentRequest) (snow.IncidentResult, error)
}

// OpenIncident is the incident-intake form action.
type OpenIncident struct {
	Config *config.Config
	Snow   TicketSystem
	// Ledger records simulated incidents in local mode. Optional.
	Ledger incident.Store
	Logger *slog.Logger
}

func (f *OpenIncident) Name() string { return FormName }

// Run executes one turn of the form: activate if needed, extract and
// validate any values the user supplied, then either ask for the next
// unfilled field or submit.
func (f *OpenIncident) Run(ctx context.Context, disp *rasa.CollectingDispatcher, req *rasa.ActionRequest) ([]rasa.Event, error) {
	tracker := &req.Tracker
	activating := tracker.ActiveLoopName() != FormName

	var events []rasa.Event
	if activating {
		events = append(events, rasa.ActiveLoop(FormName))
	}

	// values holds what the form knows after this turn's extraction and
	// validation, seeded from the tracker.
	state := NewState(requiredSlots)
	values := make(map[string]string, len(requiredSlots))
	for _, slot := range requiredSlots {
		if v := tracker.StringSlot(slot); v != "" {
			values[slot] = v
			state.Fill(slot)
		}
	}

	requested := tracker.StringSlot(rasa.RequestedSlot)
	for _, slot := range requiredSlots {
		if state.Get(slot) == Filled {
			continue
		}
		raw, ok := extractSlot(tracker, slot, activating, requested)
		if !ok {
			continue
		}
		value, accepted, err := f.validate(ctx, disp, slot, raw)
		if err != nil {
			return nil, err
		}
		if accepted {
			state.Fill(slot)
			values[slot] = value
			events = append(events, rasa.SlotSet(slot, value))
		} else {
			state.Reject(slot)
			events = append(events, rasa.SlotSet(slot, nil))
		}
	}

	if next := state.NextUnfilled(); next != "" {
		disp.UtterResponse("utter_ask_" + next)
		events = append(events, rasa.SlotSet(rasa.RequestedSlot, next))
		return events, nil
	}

	if err := f.submit(ctx, disp, values); err != nil {
		// No rollback: collected slots stay put and the host's generic
		// error path takes over.
		return nil, err
	}
	events = append(events,
		rasa.AllSlotsReset(),
		rasa.ActiveLoop(""),
		rasa.SlotSet(rasa.RequestedSlot, nil),
	)
	return events, nil
}

// extractSlot evaluates the field's mappings in order. Text mappings only
// apply to the field currently being asked for; trigger-intent mappings
// only on the activation turn.
func extractSlot(t *rasa.Tracker, slot string, activating bool, requested string) (string, bool) {
	for _, m := range slotMappings[slot] {
		if v, ok := m.extract(t, activating, slot == requested); ok {
			if s, isStr := v.(string); isStr {
				return s, true
			}
			return fmt.Sprintf("%v", v), true
		}
	}
	return "", false
}

// validate applies the field's validation rule. It returns the value to
// store and whether it was accepted; a rejected field is cleared so the
// host re-asks for it. Lookup protocol failures become chat messages, not
// errors.
func (f *OpenIncident) validate(ctx context.Context, disp *rasa.CollectingDispatcher, slot, value string) (string, bool, error) {
	switch slot {
	case SlotEmail:
		if f.Config.LocalMode {
			return value, true, nil
		}
		res, err := f.Snow.LookupUser(ctx, value)
		if err != nil {
			return "", false, err
		}
		if res.Status != 200 {
			disp.Utter(res.Message)
			return "", false, nil
		}
		if len(res.Records) != 1 {
			disp.UtterResponse("utter_no_email")
			return "", false, nil
		}
		// Keep the user's input, not the matched record.
		return value, true, nil

	case SlotPriority:
		if validPriorities[strings.ToLower(value)] {
			return value, true, nil
		}
		disp.UtterResponse("utter_no_priority")
		return "", false, nil

	default:
		return value, true, nil
	}
}

// severity maps a validated priority to ServiceNow's urgency scale.
func severity(priority string) string {
	switch strings.ToLower(priority) {
	case "low":
		return "3"
	case "medium":
		return "2"
	default:
		return "1"
	}
}

// submit fires once all four fields hold validated values. In local mode
// it composes a preview and records the would-be incident in the ledger;
// otherwise it re-resolves the caller and opens the incident. Either way
// the form's collected state is cleared by the caller afterwards.
func (f *OpenIncident) submit(ctx context.Context, disp *rasa.CollectingDispatcher, values map[string]string) error {
	email := values[SlotEmail]
	priority := values[SlotPriority]
	description := values[SlotProblemDescription]
	title := values[SlotIncidentTitle]
	urgency := severity(priority)

	if f.Config.LocalMode {
		message := fmt.Sprintf(
			"An incident with the following details would be opened if ServiceNow was connected:\n"+
				"email: %s\nproblem description: %s\ntitle: %s\npriority: %s",
			email, description, title, priority)

		if f.Ledger != nil {
			rec, err := f.Ledger.Append(incident.Record{
				CallerEmail:      email,
				ShortDescription: title,
				Description:      description,
				Urgency:          urgency,
			})
			if err != nil {
				f.Logger.Warn("could not record simulated incident", "error", err)
			} else {
				f.Logger.Info("recorded simulated incident", "number", rec.Number)
			}
		}
		disp.Utter(message)
		return nil
	}

	res, err := f.Snow.LookupUser(ctx, email)
	if err != nil {
		return fmt.Errorf("form: resolve caller: %w", err)
	}
	if res.Status != 200 || len(res.Records) != 1 {
		return fmt.Errorf("form: caller %q no longer resolvable (status %d, %d matches)",
			email, res.Status, len(res.Records))
	}

	created, err := f.Snow.CreateIncident(ctx, snow.IncidentRequest{
		CallerID:         res.Records[0].SysID,
		ShortDescription: title,
		Description:      description,
		Urgency:          urgency,
	})
	if err != nil {
		return fmt.Errorf("form: create incident: %w", err)
	}

	f.Logger.Info("opened incident", "number", created.Number)
	disp.Utter(fmt.Sprintf("Successfully opened up incident %s for you.  Someone will reach out soon.", created.Number))
	return nil
}
