package form

import "github.com/snowdesk-io/snowdesk/pkg/rasa"

type mappingKind int

const (
	mapFromEntity mappingKind = iota
	mapFromText
	mapFromTriggerIntent
)

// Mapping is one extraction strategy for a form field. Each field carries
// an ordered list of mappings; the first one that matches the latest user
// message wins.
type Mapping struct {
	kind    mappingKind
	entity  string
	intents map[string]bool
	value   string
}

// FromEntity extracts the value of a recognized entity. Entity mappings
// may fill any unfilled field on any turn.
func FromEntity(entity string) Mapping {
	return Mapping{kind: mapFromEntity, entity: entity}
}

// FromText extracts the verbatim message text, but only when the message's
// classified intent is one of the allowed intents and the field is the one
// currently being asked for.
func FromText(intents ...string) Mapping {
	allowed := make(map[string]bool, len(intents))
	for _, i := range intents {
		allowed[i] = true
	}
	return Mapping{kind: mapFromText, intents: allowed}
}

// FromTriggerIntent yields a fixed value when the form is activated by the
// given intent. It never matches after activation.
func FromTriggerIntent(intent, value string) Mapping {
	return Mapping{kind: mapFromTriggerIntent, intents: map[string]bool{intent: true}, value: value}
}

// extract evaluates the mapping against the tracker's latest message.
// activating reports whether this turn activated the form; requested
// reports whether the field under extraction is the requested one.
func (m Mapping) extract(t *rasa.Tracker, activating, requested bool) (any, bool) {
	switch m.kind {
	case mapFromEntity:
		if v := t.EntityValue(m.entity); v != nil {
			return v, true
		}
	case mapFromText:
		if requested && m.intents[t.LatestMessage.Intent.Name] && t.LatestMessage.Text != "" {
			return t.LatestMessage.Text, true
		}
	case mapFromTriggerIntent:
		if activating && m.intents[t.LatestMessage.Intent.Name] {
			return m.value, true
		}
	}
	return nil, false
}
