package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bell-crm/internal/audit"
	"bell-crm/internal/funnel"
	"bell-crm/internal/metrics"
)

// The runner depends on narrow views of its collaborators so the packages
// that emit events (contacts, tasks, forms) can in turn depend on the runner
// without a cycle. Adapters are wired in cmd/api.

// Contact is the slice of a CRM contact the runner needs.
type Contact struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Name      string
}

// ContactDirectory resolves the contact referenced by an event.
type ContactDirectory interface {
	// Get returns (contact, false, nil) when the contact does not exist.
	Get(ctx context.Context, workspaceID, contactID string) (Contact, bool, error)
}

// TaskRequest describes a follow-up task an automation wants created.
type TaskRequest struct {
	WorkspaceID string
	UserID      string
	ContactID   string
	Title       string
	DueAt       *time.Time
}

// TaskCreator creates follow-up tasks on behalf of a recipe.
type TaskCreator interface {
	CreateAutomationTask(ctx context.Context, req TaskRequest) error
}

// StageMover applies a funnel stage change atomically (stage update plus
// history entry in one transaction). It must not re-dispatch events, or a
// stage-changed recipe containing an update_stage action would recurse.
type StageMover interface {
	MoveStage(ctx context.Context, workspaceID, contactID string, to funnel.Stage) error
}

// EmailMessage is an outbound templated email.
type EmailMessage struct {
	WorkspaceID string
	UserID      string
	To          string
	ToName      string
	Subject     string
	TemplateID  string
}

// EmailSender delivers recipe emails through the user's connected account,
// or records them as stubs when none is connected.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// WorkspaceResolver maps the event's user to their workspace.
type WorkspaceResolver interface {
	WorkspaceForUser(ctx context.Context, userID string) (string, error)
}

// Runner matches events against the catalog and executes enabled recipes
// synchronously, in catalog order.
type Runner struct {
	catalog    []Recipe
	settings   *Settings
	workspaces WorkspaceResolver
	contacts   ContactDirectory
	tasks      TaskCreator
	stages     StageMover
	email      EmailSender
	audits     *audit.Service
	log        *slog.Logger
	clock      func() time.Time
}

func NewRunner(
	settings *Settings,
	workspaces WorkspaceResolver,
	contacts ContactDirectory,
	tasks TaskCreator,
	stages StageMover,
	email EmailSender,
	audits *audit.Service,
	log *slog.Logger,
) *Runner {
	return &Runner{
		catalog:    Recipes,
		settings:   settings,
		workspaces: workspaces,
		contacts:   contacts,
		tasks:      tasks,
		stages:     stages,
		email:      email,
		audits:     audits,
		log:        log,
		clock:      time.Now,
	}
}

// Run dispatches one event.
//
// It returns an error only when the enablement lookup itself fails; in that
// case nothing has run. Recipe execution failures are contained per recipe:
// logged, audited, counted, and the remaining recipes still run. Within a
// recipe, a failing action aborts that recipe's remaining actions. Side
// effects already applied are never rolled back.
func (r *Runner) Run(ctx context.Context, ev Event) error {
	if ev.UserID == "" {
		return fmt.Errorf("%w: event without user", ErrInvalidArgument)
	}
	start := r.clock()
	metrics.AutomationEventsDispatched.WithLabelValues(string(ev.Type)).Inc()
	defer func() {
		metrics.AutomationDispatchDuration.Observe(float64(r.clock().Sub(start).Milliseconds()))
	}()

	enabled, err := r.settings.EnabledSet(ctx, ev.UserID)
	if err != nil {
		return err
	}

	for _, recipe := range r.catalog {
		if _, on := enabled[recipe.ID]; !on {
			continue
		}
		if !Matches(recipe.Trigger, ev) {
			continue
		}
		metrics.AutomationRecipesMatched.WithLabelValues(recipe.ID).Inc()
		if err := r.runRecipe(ctx, recipe, ev); err != nil {
			metrics.AutomationRecipeFailures.WithLabelValues(recipe.ID).Inc()
			r.log.Error("automation recipe failed",
				"recipe_id", recipe.ID,
				"event_type", ev.Type,
				"user_id", ev.UserID,
				"error", err,
			)
		}
	}
	return nil
}

func (r *Runner) runRecipe(ctx context.Context, recipe Recipe, ev Event) error {
	workspaceID, err := r.workspaces.WorkspaceForUser(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}

	var contact Contact
	var haveContact bool
	if ev.ContactID != "" {
		contact, haveContact, err = r.contacts.Get(ctx, workspaceID, ev.ContactID)
		if err != nil {
			r.auditFailure(ctx, workspaceID, recipe, ev, -1, err)
			return fmt.Errorf("resolve contact %s: %w", ev.ContactID, err)
		}
		// A contact deleted between the event and dispatch is not an error;
		// contact-dependent actions become no-ops.
	}

	for i, action := range recipe.Actions {
		if err := r.runAction(ctx, workspaceID, action, ev, contact, haveContact); err != nil {
			metrics.AutomationActionsExecuted.WithLabelValues(string(action.Type), "error").Inc()
			r.auditFailure(ctx, workspaceID, recipe, ev, i, err)
			return fmt.Errorf("action %d (%s): %w", i, action.Type, err)
		}
	}
	return nil
}

func (r *Runner) runAction(ctx context.Context, workspaceID string, action Action, ev Event, contact Contact, haveContact bool) error {
	switch action.Type {
	case ActionCreateTask:
		if !action.UseEventContact || !haveContact {
			metrics.AutomationActionsExecuted.WithLabelValues(string(action.Type), "skipped").Inc()
			return nil
		}
		req := TaskRequest{
			WorkspaceID: workspaceID,
			UserID:      ev.UserID,
			ContactID:   contact.ID,
			Title:       action.Title,
		}
		if action.DueInDays != nil {
			due := r.clock().UTC().AddDate(0, 0, *action.DueInDays)
			req.DueAt = &due
		}
		if err := r.tasks.CreateAutomationTask(ctx, req); err != nil {
			return err
		}

	case ActionSendEmail:
		if !haveContact || contact.Email == "" {
			metrics.AutomationActionsExecuted.WithLabelValues(string(action.Type), "skipped").Inc()
			return nil
		}
		msg := EmailMessage{
			WorkspaceID: workspaceID,
			UserID:      ev.UserID,
			To:          contact.Email,
			ToName:      displayName(contact),
			Subject:     action.Subject,
			TemplateID:  action.TemplateID,
		}
		if err := r.email.Send(ctx, msg); err != nil {
			return err
		}

	case ActionUpdateStage:
		if !haveContact {
			metrics.AutomationActionsExecuted.WithLabelValues(string(action.Type), "skipped").Inc()
			return nil
		}
		if !action.Stage.IsValid() {
			return fmt.Errorf("%w: invalid target stage %q", ErrInvalidArgument, action.Stage)
		}
		if err := r.stages.MoveStage(ctx, workspaceID, contact.ID, action.Stage); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidArgument, action.Type)
	}

	metrics.AutomationActionsExecuted.WithLabelValues(string(action.Type), "success").Inc()
	return nil
}

// auditFailure records the abort point so operators can see which side
// effects landed before the failure. Best-effort: audit errors are logged,
// not propagated.
func (r *Runner) auditFailure(ctx context.Context, workspaceID string, recipe Recipe, ev Event, actionIndex int, cause error) {
	if r.audits == nil {
		return
	}
	meta := fmt.Sprintf(`{"action_index":%d,"actions_total":%d,"event_type":%q}`,
		actionIndex, len(recipe.Actions), string(ev.Type))
	if err := r.audits.LogAutomationFailure(ctx, workspaceID, ev.UserID, recipe.ID, ev.ContactID, cause.Error(), meta); err != nil {
		r.log.Warn("automation failure audit write failed", "recipe_id", recipe.ID, "error", err)
	}
}

func displayName(c Contact) string {
	if c.Name != "" {
		return c.Name
	}
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
