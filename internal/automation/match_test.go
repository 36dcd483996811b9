package automation

import (
	"testing"

	"bell-crm/internal/funnel"
)

func TestMatchesContactCreated(t *testing.T) {
	trig := Trigger{Type: TriggerContactCreated, Stage: stagePtr(funnel.StageAwareness)}

	if !Matches(trig, Event{Type: EventContactCreated, Stage: funnel.StageAwareness}) {
		t.Fatal("expected match on AWARENESS")
	}
	if Matches(trig, Event{Type: EventContactCreated, Stage: funnel.StageDesire}) {
		t.Fatal("stage filter should reject DESIRE")
	}
	if Matches(trig, Event{Type: EventStageChanged, ToStage: funnel.StageAwareness}) {
		t.Fatal("event type mismatch should never match")
	}

	anyStage := Trigger{Type: TriggerContactCreated}
	if !Matches(anyStage, Event{Type: EventContactCreated, Stage: funnel.StageAction}) {
		t.Fatal("unset stage filter should match any stage")
	}
}

func TestMatchesStageChanged(t *testing.T) {
	to := Trigger{Type: TriggerStageChanged, ToStage: stagePtr(funnel.StageDesire)}
	if !Matches(to, Event{Type: EventStageChanged, FromStage: funnel.StageAwareness, ToStage: funnel.StageDesire}) {
		t.Fatal("expected match on toStage")
	}
	if Matches(to, Event{Type: EventStageChanged, FromStage: funnel.StageDesire, ToStage: funnel.StageAction}) {
		t.Fatal("toStage filter should reject ACTION")
	}

	both := Trigger{
		Type:      TriggerStageChanged,
		FromStage: stagePtr(funnel.StageInterest),
		ToStage:   stagePtr(funnel.StageDesire),
	}
	if !Matches(both, Event{Type: EventStageChanged, FromStage: funnel.StageInterest, ToStage: funnel.StageDesire}) {
		t.Fatal("expected match with both filters set")
	}
	if Matches(both, Event{Type: EventStageChanged, FromStage: funnel.StageAwareness, ToStage: funnel.StageDesire}) {
		t.Fatal("fromStage filter should reject AWARENESS")
	}
}

func TestMatchesTaskCompleted(t *testing.T) {
	any := Trigger{Type: TriggerTaskCompleted}
	if !Matches(any, Event{Type: EventTaskCompleted, TaskTitle: "whatever"}) {
		t.Fatal("unfiltered task trigger should match any completion")
	}

	filtered := Trigger{Type: TriggerTaskCompleted, TitleContains: "demo"}
	if !Matches(filtered, Event{Type: EventTaskCompleted, TaskTitle: "Schedule DEMO call"}) {
		t.Fatal("title filter should match case-insensitively")
	}
	if Matches(filtered, Event{Type: EventTaskCompleted, TaskTitle: "Send invoice"}) {
		t.Fatal("title filter should reject non-matching titles")
	}
}

func TestMatchesUnknownTriggerType(t *testing.T) {
	if Matches(Trigger{Type: "deal_closed"}, Event{Type: EventTaskCompleted}) {
		t.Fatal("unknown trigger types must match nothing")
	}
}

func TestCatalogIsWellFormed(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range Recipes {
		if r.ID == "" || r.Name == "" {
			t.Fatalf("recipe missing identity: %+v", r)
		}
		if seen[r.ID] {
			t.Fatalf("duplicate recipe ID %q", r.ID)
		}
		seen[r.ID] = true
		if len(r.Actions) == 0 {
			t.Fatalf("recipe %q has no actions", r.ID)
		}
		for i, a := range r.Actions {
			switch a.Type {
			case ActionCreateTask:
				if a.Title == "" {
					t.Fatalf("recipe %q action %d: create_task without title", r.ID, i)
				}
			case ActionSendEmail:
				if a.TemplateID == "" || a.Subject == "" {
					t.Fatalf("recipe %q action %d: send_email missing template or subject", r.ID, i)
				}
			case ActionUpdateStage:
				if !a.Stage.IsValid() {
					t.Fatalf("recipe %q action %d: invalid stage %q", r.ID, i, a.Stage)
				}
			default:
				t.Fatalf("recipe %q action %d: unknown type %q", r.ID, i, a.Type)
			}
		}
	}
	if len(Recipes) != 5 {
		t.Fatalf("catalog has %d recipes", len(Recipes))
	}
}
