package automation

import (
	"bell-crm/internal/funnel"
)

// Trigger, Action and Event are tagged unions: a stable type tag plus the
// payload fields for that variant. Filter fields use pointers so "unset"
// (match anything) is distinguishable from a concrete value.

type TriggerType string

const (
	TriggerContactCreated TriggerType = "contact_created"
	TriggerStageChanged   TriggerType = "stage_changed"
	TriggerTaskCompleted  TriggerType = "task_completed"
)

// Trigger is the predicate half of a recipe.
type Trigger struct {
	Type TriggerType `json:"type"`

	// contact_created: only when the new contact is in this stage.
	Stage *funnel.Stage `json:"stage,omitempty"`

	// stage_changed: filter on either endpoint of the transition.
	FromStage *funnel.Stage `json:"from_stage,omitempty"`
	ToStage   *funnel.Stage `json:"to_stage,omitempty"`

	// task_completed: case-insensitive substring filter on the task title.
	TitleContains string `json:"title_contains,omitempty"`
}

type ActionType string

const (
	ActionCreateTask  ActionType = "create_task"
	ActionSendEmail   ActionType = "send_email"
	ActionUpdateStage ActionType = "update_stage"
)

// Action is a single effect executed when a recipe fires.
type Action struct {
	Type ActionType `json:"type"`

	// create_task
	Title     string `json:"title,omitempty"`
	DueInDays *int   `json:"due_in_days,omitempty"`

	// create_task / send_email: attach to the contact carried by the event.
	UseEventContact bool `json:"use_event_contact,omitempty"`

	// send_email
	TemplateID string `json:"template_id,omitempty"`
	Subject    string `json:"subject,omitempty"`

	// update_stage
	Stage funnel.Stage `json:"stage,omitempty"`
}

type EventType string

const (
	EventContactCreated EventType = "contact_created"
	EventStageChanged   EventType = "stage_changed"
	EventTaskCompleted  EventType = "task_completed"
)

// Event describes a CRM state change that can activate automations.
// It is an ephemeral in-process value constructed by the mutating service
// after its primary write commits; it is never persisted.
//
// Invariant: any action that needs a contact derives it from ContactID here,
// never from elsewhere. An empty ContactID means "no contact" and turns
// contact-dependent actions into no-ops.
type Event struct {
	Type   EventType `json:"type"`
	UserID string    `json:"user_id"`

	ContactID string `json:"contact_id,omitempty"`

	// contact_created
	Stage funnel.Stage `json:"stage,omitempty"`

	// stage_changed
	FromStage funnel.Stage `json:"from_stage,omitempty"`
	ToStage   funnel.Stage `json:"to_stage,omitempty"`

	// task_completed
	TaskID    string `json:"task_id,omitempty"`
	DealID    string `json:"deal_id,omitempty"`
	TaskTitle string `json:"task_title,omitempty"`
}

// Recipe is a named (trigger, action-list) automation rule.
// The catalog is fixed at build time; recipes are immutable at runtime.
type Recipe struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Trigger     Trigger  `json:"trigger"`
	Actions     []Action `json:"actions"`
}

// Setting is the per-user on/off switch for one recipe.
// Absent row means disabled.
type Setting struct {
	UserID   string `json:"user_id" db:"user_id"`
	RecipeID string `json:"recipe_id" db:"recipe_id"`
	Enabled  bool   `json:"enabled" db:"enabled"`
}
