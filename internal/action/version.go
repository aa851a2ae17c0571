package action

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/snowdesk-io/snowdesk/pkg/rasa"
)

// Version is this action server's own build tag, reported by
// action_version next to the host's versions.
const Version = "0.3.0"

// VersionReport answers action_version: it queries the diagnostics
// endpoint for the host's version strings. Connection failures are
// replaced by a fixed message instead of an error; the host losing its
// own diagnostics endpoint is not this action's problem.
type VersionReport struct {
	RasaXURL string
	Client   *http.Client
	Logger   *slog.Logger
}

func (a *VersionReport) Name() string { return "action_version" }

type versionInfo struct {
	RasaX string `json:"rasa-x"`
	Rasa  struct {
		Production string `json:"production"`
	} `json:"rasa"`
}

func (a *VersionReport) Run(ctx context.Context, disp *rasa.CollectingDispatcher, _ *rasa.ActionRequest) ([]rasa.Event, error) {
	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.RasaXURL+"/api/version", nil)
	if err != nil {
		return nil, fmt.Errorf("version: request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		a.Logger.Debug("diagnostics endpoint unreachable", "url", a.RasaXURL, "error", err)
		disp.Utter("Can't connect to Rasa X")
		return []rasa.Event{}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("version: read: %w", err)
	}
	var info versionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("version: decode: %w", err)
	}

	disp.Utter(fmt.Sprintf("Rasa X: %s\nRasa: %s\nActions: %s", info.RasaX, info.Rasa.Production, Version))
	return []rasa.Event{}, nil
}
