package tasks

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"bell-crm/internal/automation"
)

type recordingDispatcher struct {
	events []automation.Event
}

func (d *recordingDispatcher) Run(_ context.Context, ev automation.Event) error {
	d.events = append(d.events, ev)
	return nil
}

func newTestService() (*Service, *recordingDispatcher) {
	disp := &recordingDispatcher{}
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewService(NewMemoryRepo(), NewMemoryActivityRepo(), disp, log), disp
}

func TestCompleteDispatchesOnce(t *testing.T) {
	svc, disp := newTestService()
	ctx := context.Background()

	task, err := svc.Create(ctx, "ws1", "u1", CreateInput{
		ContactID: "c1",
		DealID:    "d1",
		Title:     "Call about renewal",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done, err := svc.Complete(ctx, "ws1", "u1", task.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("task = %+v", done)
	}
	if len(disp.events) != 1 {
		t.Fatalf("dispatched %d events", len(disp.events))
	}
	ev := disp.events[0]
	if ev.Type != automation.EventTaskCompleted || ev.TaskID != task.ID ||
		ev.ContactID != "c1" || ev.DealID != "d1" || ev.TaskTitle != "Call about renewal" {
		t.Fatalf("event = %+v", ev)
	}

	// Completing again must not re-fire.
	again, err := svc.Complete(ctx, "ws1", "u1", task.ID)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if !again.CompletedAt.Equal(*done.CompletedAt) {
		t.Fatal("second complete rewrote the completion time")
	}
	if len(disp.events) != 1 {
		t.Fatalf("idempotent complete dispatched again: %d events", len(disp.events))
	}
}

func TestSnoozeSetsNineAMDue(t *testing.T) {
	svc, _ := newTestService()
	svc.clock = func() time.Time {
		return time.Date(2026, 3, 10, 17, 42, 11, 0, time.UTC)
	}
	ctx := context.Background()

	task, _ := svc.Create(ctx, "ws1", "u1", CreateInput{Title: "Ping lead"})
	snoozed, err := svc.Snooze(ctx, "ws1", task.ID, 2)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	want := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	if snoozed.DueAt == nil || !snoozed.DueAt.Equal(want) {
		t.Fatalf("due = %v, want %v", snoozed.DueAt, want)
	}

	if _, err := svc.Snooze(ctx, "ws1", task.ID, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero-day snooze: %v", err)
	}
}

func TestListDue(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	past := now.Add(-24 * time.Hour)
	future := now.Add(72 * time.Hour)
	dueNow, _ := svc.Create(ctx, "ws1", "u1", CreateInput{Title: "Overdue", DueAt: &past})
	_, _ = svc.Create(ctx, "ws1", "u1", CreateInput{Title: "Later", DueAt: &future})
	_, _ = svc.Create(ctx, "ws1", "u1", CreateInput{Title: "No due date"})
	doneTask, _ := svc.Create(ctx, "ws1", "u1", CreateInput{Title: "Done already", DueAt: &past})
	if _, err := svc.Complete(ctx, "ws1", "u1", doneTask.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	due, err := svc.ListDue(ctx, "ws1", "u1", now)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(due) != 1 || due[0].ID != dueNow.ID {
		t.Fatalf("due = %+v", due)
	}
}

func TestCreateAutomationTaskOrigin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	due := time.Now().UTC().AddDate(0, 0, 3)

	err := svc.CreateAutomationTask(ctx, automation.TaskRequest{
		WorkspaceID: "ws1",
		UserID:      "u1",
		ContactID:   "c1",
		Title:       "Follow-up: nurture day 3",
		DueAt:       &due,
	})
	if err != nil {
		t.Fatalf("CreateAutomationTask: %v", err)
	}

	list, err := svc.List(ctx, "ws1", ListFilter{ContactID: "c1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Origin != OriginAutomation {
		t.Fatalf("tasks = %+v", list)
	}
}

func TestLogActivityValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.LogActivity(ctx, "ws1", "u1", "c1", ActivityCall, "left voicemail", time.Time{})
	if err != nil {
		t.Fatalf("LogActivity: %v", err)
	}
	if a.OccurredAt.IsZero() {
		t.Fatal("occurred_at not defaulted")
	}

	if _, err := svc.LogActivity(ctx, "ws1", "u1", "c1", "FAX", "", time.Time{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad type: %v", err)
	}
	if _, err := svc.LogActivity(ctx, "ws1", "u1", "", ActivityNote, "", time.Time{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing contact: %v", err)
	}
}
