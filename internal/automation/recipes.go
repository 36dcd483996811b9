package automation

import "bell-crm/internal/funnel"

func stagePtr(s funnel.Stage) *funnel.Stage { return &s }
func intPtr(n int) *int                     { return &n }

// Recipes is the built-in automation catalog, in dispatch order.
// IDs are stable; enablement rows reference them.
var Recipes = []Recipe{
	{
		ID:          "nurture-awareness-7d",
		Name:        "7-day nurture for new leads",
		Description: "When a lead lands in Awareness, send a short email sequence and schedule follow-up tasks over the first week.",
		Trigger: Trigger{
			Type:  TriggerContactCreated,
			Stage: stagePtr(funnel.StageAwareness),
		},
		Actions: []Action{
			{Type: ActionSendEmail, TemplateID: "nurture-1", Subject: "Welcome – here's how we can help", UseEventContact: true},
			{Type: ActionCreateTask, Title: "Follow-up: nurture day 3", DueInDays: intPtr(3), UseEventContact: true},
			{Type: ActionSendEmail, TemplateID: "nurture-2", Subject: "Quick tip for you", UseEventContact: true},
			{Type: ActionCreateTask, Title: "Follow-up: nurture day 7 – check engagement", DueInDays: intPtr(7), UseEventContact: true},
			{Type: ActionSendEmail, TemplateID: "nurture-3", Subject: "One more thing...", UseEventContact: true},
		},
	},
	{
		ID:          "desire-demo-and-task",
		Name:        "Demo booking on Desire",
		Description: "When a contact reaches Desire, create a demo task and send them a calendar link.",
		Trigger: Trigger{
			Type:    TriggerStageChanged,
			ToStage: stagePtr(funnel.StageDesire),
		},
		Actions: []Action{
			{Type: ActionCreateTask, Title: "Schedule demo", DueInDays: intPtr(2), UseEventContact: true},
			{Type: ActionSendEmail, TemplateID: "demo-calendar-link", Subject: "Book a time for your demo", UseEventContact: true},
		},
	},
	{
		ID:          "action-welcome",
		Name:        "New customer check-in",
		Description: "When a contact converts to Action, schedule a one-week check-in task.",
		Trigger: Trigger{
			Type:    TriggerStageChanged,
			ToStage: stagePtr(funnel.StageAction),
		},
		Actions: []Action{
			{Type: ActionCreateTask, Title: "Check-in with new customer", DueInDays: intPtr(7), UseEventContact: true},
		},
	},
	{
		ID:          "interest-resource",
		Name:        "Resource drop on Interest",
		Description: "When a contact reaches Interest, send useful resources and schedule a follow-up.",
		Trigger: Trigger{
			Type:    TriggerStageChanged,
			ToStage: stagePtr(funnel.StageInterest),
		},
		Actions: []Action{
			{Type: ActionSendEmail, TemplateID: "interest-resource", Subject: "Resources you might find useful", UseEventContact: true},
			{Type: ActionCreateTask, Title: "Follow up on resource", DueInDays: intPtr(5), UseEventContact: true},
		},
	},
	{
		ID:          "task-done-next-step",
		Name:        "Next step after completed task",
		Description: "Whenever a task is completed, queue the next step for the same contact.",
		Trigger: Trigger{
			Type: TriggerTaskCompleted,
		},
		Actions: []Action{
			{Type: ActionCreateTask, Title: "Next step after completed task", DueInDays: intPtr(1), UseEventContact: true},
		},
	},
}

// RecipeByID returns the catalog entry for id.
func RecipeByID(id string) (Recipe, bool) {
	for _, r := range Recipes {
		if r.ID == id {
			return r, true
		}
	}
	return Recipe{}, false
}
