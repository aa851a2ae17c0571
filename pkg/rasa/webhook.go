package rasa

// ActionRequest is the webhook body the dialogue host posts for each
// custom-action invocation.
type ActionRequest struct {
	NextAction string         `json:"next_action"`
	SenderID   string         `json:"sender_id"`
	Tracker    Tracker        `json:"tracker"`
	Domain     map[string]any `json:"domain"`
	Version    string         `json:"version,omitempty"`
}

// ActionResponse is the webhook reply: the ordered event list to apply to
// the tracker plus any messages to send to the user.
type ActionResponse struct {
	Events    []Event           `json:"events"`
	Responses []ResponseMessage `json:"responses"`
}

// ErrorResponse is the body returned when an action is unknown or fails.
type ErrorResponse struct {
	ActionName string `json:"action_name"`
	Error      string `json:"error"`
}

// SessionConfig returns the domain's session_config section, or nil.
func (r *ActionRequest) SessionConfig() map[string]any {
	sc, _ := r.Domain["session_config"].(map[string]any)
	return sc
}
