package automation

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"bell-crm/internal/audit"
	"bell-crm/internal/funnel"
)

type fakeWorkspaces struct {
	workspaceID string
	err         error
}

func (f *fakeWorkspaces) WorkspaceForUser(context.Context, string) (string, error) {
	return f.workspaceID, f.err
}

type fakeContacts struct {
	contacts map[string]Contact
	err      error
}

func (f *fakeContacts) Get(_ context.Context, _ string, contactID string) (Contact, bool, error) {
	if f.err != nil {
		return Contact{}, false, f.err
	}
	c, ok := f.contacts[contactID]
	return c, ok, nil
}

type fakeTasks struct {
	created []TaskRequest
	failOn  string // title that triggers an error
}

func (f *fakeTasks) CreateAutomationTask(_ context.Context, req TaskRequest) error {
	if f.failOn != "" && req.Title == f.failOn {
		return errors.New("task store unavailable")
	}
	f.created = append(f.created, req)
	return nil
}

type fakeEmail struct {
	sent   []EmailMessage
	failOn string // template ID that triggers an error
}

func (f *fakeEmail) Send(_ context.Context, msg EmailMessage) error {
	if f.failOn != "" && msg.TemplateID == f.failOn {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeStages struct {
	moves []string
}

func (f *fakeStages) MoveStage(_ context.Context, _, contactID string, to funnel.Stage) error {
	f.moves = append(f.moves, contactID+":"+string(to))
	return nil
}

type failingSettingsRepo struct{}

func (failingSettingsRepo) Upsert(context.Context, string, string, bool, time.Time) error {
	return errors.New("db down")
}

func (failingSettingsRepo) ListEnabledRecipeIDs(context.Context, string) ([]string, error) {
	return nil, errors.New("db down")
}

type runnerFixture struct {
	runner   *Runner
	settings *Settings
	tasks    *fakeTasks
	email    *fakeEmail
	stages   *fakeStages
	contacts *fakeContacts
	audits   *audit.MemoryRepo
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	settings := NewSettings(NewMemorySettingsRepo(), nil, log)
	tasks := &fakeTasks{}
	email := &fakeEmail{}
	stages := &fakeStages{}
	contacts := &fakeContacts{contacts: map[string]Contact{
		"c1": {ID: "c1", Email: "lead@example.com", FirstName: "Ada", LastName: "Lovelace"},
		"c2": {ID: "c2"}, // no email
	}}
	auditRepo := audit.NewMemoryRepo()
	runner := NewRunner(settings, &fakeWorkspaces{workspaceID: "ws1"}, contacts, tasks, stages, email, audit.NewService(auditRepo), log)
	return &runnerFixture{
		runner:   runner,
		settings: settings,
		tasks:    tasks,
		email:    email,
		stages:   stages,
		contacts: contacts,
		audits:   auditRepo,
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func enable(t *testing.T, s *Settings, userID string, recipeIDs ...string) {
	t.Helper()
	for _, id := range recipeIDs {
		if err := s.SetEnabled(context.Background(), userID, id, true); err != nil {
			t.Fatalf("SetEnabled(%s): %v", id, err)
		}
	}
}

func TestRunnerDisabledRecipeNeverFires(t *testing.T) {
	f := newRunnerFixture(t)

	err := f.runner.Run(context.Background(), Event{
		Type:      EventContactCreated,
		UserID:    "u1",
		ContactID: "c1",
		Stage:     funnel.StageAwareness,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.tasks.created) != 0 || len(f.email.sent) != 0 {
		t.Fatalf("expected no side effects with all recipes disabled, got %d tasks, %d emails",
			len(f.tasks.created), len(f.email.sent))
	}
}

func TestRunnerNurtureSequence(t *testing.T) {
	f := newRunnerFixture(t)
	enable(t, f.settings, "u1", "nurture-awareness-7d")

	err := f.runner.Run(context.Background(), Event{
		Type:      EventContactCreated,
		UserID:    "u1",
		ContactID: "c1",
		Stage:     funnel.StageAwareness,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.email.sent) != 3 {
		t.Fatalf("expected 3 emails, got %d", len(f.email.sent))
	}
	if f.email.sent[0].TemplateID != "nurture-1" || f.email.sent[2].TemplateID != "nurture-3" {
		t.Fatalf("emails out of order: %+v", f.email.sent)
	}
	if f.email.sent[0].To != "lead@example.com" {
		t.Fatalf("email addressed to %q", f.email.sent[0].To)
	}
	if len(f.tasks.created) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(f.tasks.created))
	}
	if f.tasks.created[0].Title != "Follow-up: nurture day 3" {
		t.Fatalf("unexpected first task %q", f.tasks.created[0].Title)
	}
	if f.tasks.created[0].DueAt == nil {
		t.Fatal("task due date not set")
	}
	wantDue := time.Now().UTC().AddDate(0, 0, 3)
	if d := f.tasks.created[0].DueAt.Sub(wantDue); d < -time.Minute || d > time.Minute {
		t.Fatalf("day-3 task due at %v", f.tasks.created[0].DueAt)
	}
}

func TestRunnerNurtureIgnoresNonAwarenessContact(t *testing.T) {
	f := newRunnerFixture(t)
	enable(t, f.settings, "u1", "nurture-awareness-7d")

	err := f.runner.Run(context.Background(), Event{
		Type:      EventContactCreated,
		UserID:    "u1",
		ContactID: "c1",
		Stage:     funnel.StageInterest,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.email.sent) != 0 || len(f.tasks.created) != 0 {
		t.Fatal("stage filter should have rejected the event")
	}
}

func TestRunnerStageChangedToDesire(t *testing.T) {
	f := newRunnerFixture(t)
	enable(t, f.settings, "u1", "desire-demo-and-task")

	err := f.runner.Run(context.Background(), Event{
		Type:      EventStageChanged,
		UserID:    "u1",
		ContactID: "c1",
		FromStage: funnel.StageInterest,
		ToStage:   funnel.StageDesire,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.tasks.created) != 1 || f.tasks.created[0].Title != "Schedule demo" {
		t.Fatalf("tasks = %+v", f.tasks.created)
	}
	if len(f.email.sent) != 1 || f.email.sent[0].TemplateID != "demo-calendar-link" {
		t.Fatalf("emails = %+v", f.email.sent)
	}
}

func TestRunnerMultipleRecipesRunInCatalogOrder(t *testing.T) {
	f := newRunnerFixture(t)
	enable(t, f.settings, "u1", "interest-resource", "desire-demo-and-task", "action-welcome")

	// Only the Interest recipe matches this event.
	err := f.runner.Run(context.Background(), Event{
		Type:      EventStageChanged,
		UserID:    "u1",
		ContactID: "c1",
		FromStage: funnel.StageAwareness,
		ToStage:   funnel.StageInterest,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.email.sent) != 1 || f.email.sent[0].TemplateID != "interest-resource" {
		t.Fatalf("emails = %+v", f.email.sent)
	}
	if len(f.tasks.created) != 1 || f.tasks.created[0].Title != "Follow up on resource" {
		t.Fatalf("tasks = %+v", f.tasks.created)
	}
}

func TestRunnerTaskCompletedQueuesNextStep(t *testing.T) {
	f := newRunnerFixture(t)
	enable(t, f.settings, "u1", "task-done-next-step")

	err := f.runner.Run(context.Background(), Event{
		Type:      EventTaskCompleted,
		UserID:    "u1",
		ContactID: "c1",
		TaskID:    "t9",
		TaskTitle: "Call about pricing",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.tasks.created) != 1 || f.tasks.created[0].Title != "Next step after completed task" {
		t.Fatalf("tasks = %+v", f.tasks.created)
	}
	if f.tasks.created[0].ContactID != "c1" {
		t.Fatalf("task bound to contact %q", f.tasks.created[0].ContactID)
	}
}

func TestRunnerMissingContactSkipsContactActions(t *testing.T) {
	f := newRunnerFixture(t)
	enable(t, f.settings, "u1", "task-done-next-step")

	// Contact was deleted after the task event was built.
	err := f.runner.Run(context.Background(), Event{
		Type:      EventTaskCompleted,
		UserID:    "u1",
		ContactID: "gone",
		TaskID:    "t1",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.tasks.created) != 0 {
		t.Fatalf("expected no task for a missing contact, got %+v", f.tasks.created)
	}
	if len(f.audits.Events()) != 0 {
		t.Fatalf("missing contact is a skip, not a failure: %+v", f.audits.Events())
	}
}

func TestRunnerContactWithoutEmailSkipsSend(t *testing.T) {
	f := newRunnerFixture(t)
	enable(t, f.settings, "u1", "interest-resource")

	err := f.runner.Run(context.Background(), Event{
		Type:      EventStageChanged,
		UserID:    "u1",
		ContactID: "c2",
		FromStage: funnel.StageAwareness,
		ToStage:   funnel.StageInterest,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.email.sent) != 0 {
		t.Fatalf("no email should go out without an address, got %+v", f.email.sent)
	}
	// The follow-up task still lands.
	if len(f.tasks.created) != 1 {
		t.Fatalf("tasks = %+v", f.tasks.created)
	}
}

func TestRunnerActionFailureAbortsRecipeKeepsEarlierEffects(t *testing.T) {
	f := newRunnerFixture(t)
	enable(t, f.settings, "u1", "nurture-awareness-7d")
	f.email.failOn = "nurture-2"

	err := f.runner.Run(context.Background(), Event{
		Type:      EventContactCreated,
		UserID:    "u1",
		ContactID: "c1",
		Stage:     funnel.StageAwareness,
	})
	if err != nil {
		t.Fatalf("Run should contain recipe failures: %v", err)
	}
	// nurture-1 and the day-3 task applied; everything after nurture-2 aborted.
	if len(f.email.sent) != 1 || f.email.sent[0].TemplateID != "nurture-1" {
		t.Fatalf("emails = %+v", f.email.sent)
	}
	if len(f.tasks.created) != 1 || f.tasks.created[0].Title != "Follow-up: nurture day 3" {
		t.Fatalf("tasks = %+v", f.tasks.created)
	}

	events := f.audits.Events()
	if len(events) != 1 {
		t.Fatalf("expected one audit record, got %d", len(events))
	}
	if events[0].RecipeID != "nurture-awareness-7d" || events[0].ContactID != "c1" {
		t.Fatalf("audit record = %+v", events[0])
	}
}

func TestRunnerFailureInOneRecipeDoesNotStopOthers(t *testing.T) {
	f := newRunnerFixture(t)
	enable(t, f.settings, "u1", "desire-demo-and-task", "action-welcome")

	// Narrow the catalog to two recipes matching the same event; the first
	// one's action fails.
	broken := Recipe{
		ID:      "desire-demo-and-task",
		Trigger: Trigger{Type: TriggerStageChanged, ToStage: stagePtr(funnel.StageDesire)},
		Actions: []Action{
			{Type: ActionCreateTask, Title: "Schedule demo", UseEventContact: true},
		},
	}
	second := Recipe{
		ID:      "action-welcome",
		Trigger: Trigger{Type: TriggerStageChanged, ToStage: stagePtr(funnel.StageDesire)},
		Actions: []Action{
			{Type: ActionCreateTask, Title: "Check-in with new customer", UseEventContact: true},
		},
	}
	f.runner.catalog = []Recipe{broken, second}
	f.tasks.failOn = "Schedule demo"

	err := f.runner.Run(context.Background(), Event{
		Type:      EventStageChanged,
		UserID:    "u1",
		ContactID: "c1",
		FromStage: funnel.StageInterest,
		ToStage:   funnel.StageDesire,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.tasks.created) != 1 || f.tasks.created[0].Title != "Check-in with new customer" {
		t.Fatalf("second recipe should still have run, tasks = %+v", f.tasks.created)
	}
	if len(f.audits.Events()) != 1 {
		t.Fatalf("expected one failure audit, got %d", len(f.audits.Events()))
	}
}

func TestRunnerEnablementLookupFailurePropagates(t *testing.T) {
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	settings := NewSettings(failingSettingsRepo{}, nil, log)
	tasks := &fakeTasks{}
	runner := NewRunner(settings, &fakeWorkspaces{workspaceID: "ws1"}, &fakeContacts{}, tasks, &fakeStages{}, &fakeEmail{}, nil, log)

	err := runner.Run(context.Background(), Event{
		Type:   EventContactCreated,
		UserID: "u1",
		Stage:  funnel.StageAwareness,
	})
	if err == nil {
		t.Fatal("expected enablement lookup error to propagate")
	}
	if len(tasks.created) != 0 {
		t.Fatal("nothing should run when enablement is unknown")
	}
}

func TestRunnerRejectsEventWithoutUser(t *testing.T) {
	f := newRunnerFixture(t)
	err := f.runner.Run(context.Background(), Event{Type: EventContactCreated})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}
