package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/snowdesk-io/snowdesk/internal/config"
	"github.com/snowdesk-io/snowdesk/pkg/rasa"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "health":
		cmdHealth()
	case "actions":
		cmdActions()
	case "incidents":
		cmdIncidents(os.Args[2:])
	case "logs":
		cmdLogs(os.Args[2:])
	case "invoke":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: snowdeskctl invoke <action> [--sender id] [--slot k=v]")
			os.Exit(1)
		}
		cmdInvoke(os.Args[2], os.Args[3:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: snowdeskctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func cmdHealth() {
	body, err := apiGet("/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdActions() {
	body, err := apiGet("/actions")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var names []string
	json.Unmarshal(body, &names)
	for _, n := range names {
		fmt.Println(n)
	}
}

func cmdIncidents(args []string) {
	fs := flag.NewFlagSet("incidents", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(args)

	body, err := apiGet(fmt.Sprintf("/incidents?limit=%d", *limit))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var records []map[string]any
	json.Unmarshal(body, &records)
	for _, r := range records {
		fmt.Printf("%-12s %-8s %-28s %s\n", r["number"], r["urgency"], r["caller_email"], r["short_description"])
	}
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (info|warn|error)")
	limit := fs.Int("limit", 200, "Max entries")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + *level
	}

	body, err := apiGet("/logs" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var entries []map[string]any
	json.Unmarshal(body, &entries)
	for _, e := range entries {
		fmt.Printf("%-7s %s\n", e["level"], e["message"])
	}
}

// cmdInvoke posts a minimal webhook request, for poking at actions without
// a dialogue host in front.
func cmdInvoke(name string, args []string) {
	fs := flag.NewFlagSet("invoke", flag.ExitOnError)
	sender := fs.String("sender", "snowdeskctl", "Sender id")
	var slots slotFlags
	fs.Var(&slots, "slot", "Tracker slot as key=value (repeatable)")
	fs.Parse(args)

	req := rasa.ActionRequest{
		NextAction: name,
		SenderID:   *sender,
	}
	req.Tracker.SenderID = *sender
	req.Tracker.Slots = slots.m

	payload, _ := json.Marshal(req)
	body, err := apiPost("/webhook", payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdConfigValidate(path string) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	mode := "live"
	if cfg.LocalMode {
		mode = "local"
	}
	fmt.Printf("config is valid (mode: %s)\n", mode)
}

// --- Helpers ---

type slotFlags struct {
	m map[string]any
}

func (f *slotFlags) String() string { return fmt.Sprint(f.m) }

func (f *slotFlags) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	if f.m == nil {
		f.m = make(map[string]any)
	}
	f.m[key] = value
	return nil
}

func apiGet(path string) ([]byte, error) {
	return apiDo(http.MethodGet, path, nil)
}

func apiPost(path string, payload []byte) ([]byte, error) {
	return apiDo(http.MethodPost, path, payload)
}

func apiDo(method, path string, payload []byte) ([]byte, error) {
	base := envOr("SNOWDESK_URL", "http://localhost:5055")

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, base+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("snowdeskctl — action server management CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health               Check daemon health")
	fmt.Println("  actions              List registered actions")
	fmt.Println("  incidents            List locally recorded incidents (--limit)")
	fmt.Println("  logs                 Show recent daemon logs (--level, --limit)")
	fmt.Println("  invoke <action>      Invoke an action directly (--sender, --slot k=v)")
	fmt.Println("  config validate <p>  Validate a credential file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  SNOWDESK_URL  Daemon URL (default: http://localhost:5055)")
}
