package rasa

// ResponseMessage is one outbound message to the user. Either Text carries
// a literal message or Response names a template defined in the host domain.
type ResponseMessage struct {
	Text     string `json:"text,omitempty"`
	Response string `json:"response,omitempty"`
}

// CollectingDispatcher accumulates the messages an action wants sent back
// to the user during one invocation.
type CollectingDispatcher struct {
	Messages []ResponseMessage
}

// Utter queues a literal text message.
func (d *CollectingDispatcher) Utter(text string) {
	d.Messages = append(d.Messages, ResponseMessage{Text: text})
}

// UtterResponse queues a reference to a response template defined in the
// host domain, e.g. "utter_no_email".
func (d *CollectingDispatcher) UtterResponse(name string) {
	d.Messages = append(d.Messages, ResponseMessage{Response: name})
}
