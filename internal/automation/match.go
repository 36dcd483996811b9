package automation

import "strings"

// Matches reports whether the trigger's predicate holds for the event.
// Unknown trigger or event types match nothing.
func Matches(t Trigger, ev Event) bool {
	switch t.Type {
	case TriggerContactCreated:
		if ev.Type != EventContactCreated {
			return false
		}
		if t.Stage != nil && *t.Stage != ev.Stage {
			return false
		}
		return true
	case TriggerStageChanged:
		if ev.Type != EventStageChanged {
			return false
		}
		if t.FromStage != nil && *t.FromStage != ev.FromStage {
			return false
		}
		if t.ToStage != nil && *t.ToStage != ev.ToStage {
			return false
		}
		return true
	case TriggerTaskCompleted:
		if ev.Type != EventTaskCompleted {
			return false
		}
		if t.TitleContains != "" &&
			!strings.Contains(strings.ToLower(ev.TaskTitle), strings.ToLower(t.TitleContains)) {
			return false
		}
		return true
	default:
		return false
	}
}
