package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/snowdesk-io/snowdesk/pkg/rasa"
)

// Administrative intents that never count as the "last real query".
var excludedIntents = map[string]bool{
	"domicile":     true,
	"customertype": true,
}

// IntentReport answers action_f1_score: it finds the most recent
// qualifying user message in the event history and reports the top
// classified intent plus ranked alternatives with confidences.
type IntentReport struct {
	// Skip discards this many qualifying matches first. The default of 1
	// steps over the message that triggered the report itself.
	Skip int
	// Past is the total number of ranked intents to report.
	Past   int
	Logger *slog.Logger
}

// NewIntentReport creates the reporter with the standard skip/depth.
func NewIntentReport(logger *slog.Logger) *IntentReport {
	return &IntentReport{Skip: 1, Past: 4, Logger: logger}
}

func (a *IntentReport) Name() string { return "action_f1_score" }

func (a *IntentReport) Run(_ context.Context, disp *rasa.CollectingDispatcher, req *rasa.ActionRequest) ([]rasa.Event, error) {
	keep := func(e *rasa.Event) bool {
		return e.ParseData != nil && !excludedIntents[e.ParseData.Intent.Name]
	}

	ev := req.Tracker.LastUserEvent(keep, a.Skip)
	if ev == nil {
		disp.Utter("No classified user message found in this conversation.")
		return []rasa.Event{}, nil
	}

	pd := ev.ParseData
	a.Logger.Info("intent report",
		"text", ev.Text,
		"intent", pd.Intent.Name,
		"confidence", pd.Intent.Confidence,
	)

	var b strings.Builder
	b.WriteString("Ranked F1 scores:\n")
	fmt.Fprintf(&b, "* %s (%.4f)\n", pd.Intent.Name, pd.Intent.Confidence)

	// The ranking's first entry repeats the winning intent; report the
	// alternatives after it, bounded by what the classifier produced.
	for i := 1; i < a.Past && i < len(pd.IntentRanking); i++ {
		fmt.Fprintf(&b, "* %s (%.4f)\n", pd.IntentRanking[i].Name, pd.IntentRanking[i].Confidence)
	}

	disp.Utter(b.String())
	return []rasa.Event{}, nil
}
