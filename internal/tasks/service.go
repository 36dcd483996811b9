package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bell-crm/internal/automation"
)

var (
	ErrNotFound        = errors.New("tasks: not found")
	ErrInvalidArgument = errors.New("tasks: invalid argument")
)

type Repository interface {
	Create(ctx context.Context, t Task) error
	Update(ctx context.Context, t Task) error
	Get(ctx context.Context, workspaceID, id string) (Task, error)
	List(ctx context.Context, workspaceID string, f ListFilter) ([]Task, error)
}

type ActivityRepository interface {
	Append(ctx context.Context, a Activity) error
	List(ctx context.Context, workspaceID string, f ActivityFilter) ([]Activity, error)
}

// Dispatcher hands CRM events to the automation runner.
type Dispatcher interface {
	Run(ctx context.Context, ev automation.Event) error
}

type ListFilter struct {
	UserID    string
	ContactID string
	Status    *Status
	DueBefore *time.Time
}

type ActivityFilter struct {
	UserID    string
	ContactID string
	Since     *time.Time
}

type Service struct {
	repo       Repository
	activities ActivityRepository
	dispatcher Dispatcher
	log        *slog.Logger
	clock      func() time.Time
}

func NewService(repo Repository, activities ActivityRepository, dispatcher Dispatcher, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		activities: activities,
		dispatcher: dispatcher,
		log:        log,
		clock:      time.Now,
	}
}

type CreateInput struct {
	ContactID string     `json:"contact_id"`
	DealID    string     `json:"deal_id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes"`
	DueAt     *time.Time `json:"due_at"`
}

func (s *Service) Create(ctx context.Context, workspaceID, userID string, in CreateInput) (Task, error) {
	return s.create(ctx, workspaceID, userID, in, OriginManual)
}

// CreateAutomationTask satisfies the runner's TaskCreator collaborator.
func (s *Service) CreateAutomationTask(ctx context.Context, req automation.TaskRequest) error {
	_, err := s.create(ctx, req.WorkspaceID, req.UserID, CreateInput{
		ContactID: req.ContactID,
		Title:     req.Title,
		DueAt:     req.DueAt,
	}, OriginAutomation)
	return err
}

func (s *Service) create(ctx context.Context, workspaceID, userID string, in CreateInput, origin Origin) (Task, error) {
	if workspaceID == "" || userID == "" {
		return Task{}, ErrInvalidArgument
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Task{}, fmt.Errorf("%w: title required", ErrInvalidArgument)
	}

	now := s.clock().UTC()
	t := Task{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		ContactID:   in.ContactID,
		DealID:      in.DealID,
		Title:       title,
		Notes:       in.Notes,
		Status:      StatusPending,
		Origin:      origin,
		DueAt:       in.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

type UpdateInput struct {
	Title *string    `json:"title"`
	Notes *string    `json:"notes"`
	DueAt *time.Time `json:"due_at"`
}

func (s *Service) Update(ctx context.Context, workspaceID, id string, in UpdateInput) (Task, error) {
	t, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Task{}, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return Task{}, fmt.Errorf("%w: title required", ErrInvalidArgument)
		}
		t.Title = title
	}
	if in.Notes != nil {
		t.Notes = *in.Notes
	}
	if in.DueAt != nil {
		due := in.DueAt.UTC()
		t.DueAt = &due
	}
	t.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// Snooze pushes the task out n days, due at 09:00 UTC.
func (s *Service) Snooze(ctx context.Context, workspaceID, id string, days int) (Task, error) {
	if days <= 0 {
		return Task{}, fmt.Errorf("%w: snooze days must be positive", ErrInvalidArgument)
	}
	t, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Task{}, err
	}
	day := s.clock().UTC().AddDate(0, 0, days)
	due := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.UTC)
	t.DueAt = &due
	t.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return Task{}, fmt.Errorf("snooze task: %w", err)
	}
	return t, nil
}

// Complete marks the task done and dispatches the task_completed event.
// Completing an already-done task is idempotent: no write, no event, so
// recipes cannot fire twice for the same completion.
func (s *Service) Complete(ctx context.Context, workspaceID, userID, id string) (Task, error) {
	t, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Task{}, err
	}
	if t.Status == StatusCompleted {
		return t, nil
	}

	now := s.clock().UTC()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	if err := s.repo.Update(ctx, t); err != nil {
		return Task{}, fmt.Errorf("complete task: %w", err)
	}

	s.dispatch(ctx, automation.Event{
		Type:      automation.EventTaskCompleted,
		UserID:    userID,
		ContactID: t.ContactID,
		TaskID:    t.ID,
		DealID:    t.DealID,
		TaskTitle: t.Title,
	})
	return t, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Task, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

func (s *Service) List(ctx context.Context, workspaceID string, f ListFilter) ([]Task, error) {
	return s.repo.List(ctx, workspaceID, f)
}

// ListDue returns open tasks due on or before the given time.
func (s *Service) ListDue(ctx context.Context, workspaceID, userID string, before time.Time) ([]Task, error) {
	pending := StatusPending
	return s.repo.List(ctx, workspaceID, ListFilter{
		UserID:    userID,
		Status:    &pending,
		DueBefore: &before,
	})
}

// LogActivity records a touchpoint with a contact.
func (s *Service) LogActivity(ctx context.Context, workspaceID, userID, contactID string, typ ActivityType, note string, occurredAt time.Time) (Activity, error) {
	if workspaceID == "" || userID == "" || contactID == "" {
		return Activity{}, ErrInvalidArgument
	}
	switch typ {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote:
	default:
		return Activity{}, fmt.Errorf("%w: activity type %q", ErrInvalidArgument, typ)
	}
	if occurredAt.IsZero() {
		occurredAt = s.clock().UTC()
	}
	a := Activity{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		ContactID:   contactID,
		Type:        typ,
		Note:        note,
		OccurredAt:  occurredAt.UTC(),
	}
	if err := s.activities.Append(ctx, a); err != nil {
		return Activity{}, fmt.Errorf("log activity: %w", err)
	}
	return a, nil
}

func (s *Service) ListActivities(ctx context.Context, workspaceID string, f ActivityFilter) ([]Activity, error) {
	return s.activities.List(ctx, workspaceID, f)
}

func (s *Service) dispatch(ctx context.Context, ev automation.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Run(ctx, ev); err != nil {
		s.log.Error("automation dispatch failed", "event_type", ev.Type, "error", err)
	}
}
