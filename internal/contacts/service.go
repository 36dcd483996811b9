package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bell-crm/internal/audit"
	"bell-crm/internal/automation"
	"bell-crm/internal/funnel"
)

var (
	ErrNotFound        = errors.New("contacts: not found")
	ErrInvalidArgument = errors.New("contacts: invalid argument")
)

// Repository is the persistence contract for contacts.
type Repository interface {
	Create(ctx context.Context, c Contact) error
	Update(ctx context.Context, c Contact) error
	Get(ctx context.Context, workspaceID, id string) (Contact, error)
	GetByEmail(ctx context.Context, workspaceID, email string) (Contact, error)
	List(ctx context.Context, workspaceID string, f ListFilter) ([]Contact, error)
	DeleteMany(ctx context.Context, workspaceID string, ids []string) (int, error)
	// MoveStage updates the stage, appends the history entry and, when the
	// target is ACTION, promotes the contact to CUSTOMER, all in one
	// transaction. It returns the previous stage.
	MoveStage(ctx context.Context, workspaceID, id string, to funnel.Stage, now time.Time) (funnel.Stage, error)
	StageHistory(ctx context.Context, workspaceID, id string) ([]StageChange, error)
}

// Dispatcher hands CRM events to the automation runner.
type Dispatcher interface {
	Run(ctx context.Context, ev automation.Event) error
}

type ListFilter struct {
	Stage      *funnel.Stage
	PersonType *PersonType
	CompanyID  string
	Search     string // matches name or email, case-insensitive
}

type Service struct {
	repo       Repository
	dispatcher Dispatcher
	audits     *audit.Service
	log        *slog.Logger
	clock      func() time.Time
}

func NewService(repo Repository, dispatcher Dispatcher, audits *audit.Service, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		audits:     audits,
		log:        log,
		clock:      time.Now,
	}
}

type CreateInput struct {
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	CompanyID    string       `json:"company_id"`
	FunnelStage  funnel.Stage `json:"funnel_stage"`
	LeadSource   LeadSource   `json:"lead_source"`
	ReferralFrom string       `json:"referral_from"`
	FormID       string       `json:"form_id"`
}

// CreateLead stores a new contact and dispatches the contact_created event
// after the write lands. Stage defaults to AWARENESS.
func (s *Service) CreateLead(ctx context.Context, workspaceID, userID string, in CreateInput) (Contact, error) {
	if workspaceID == "" || userID == "" {
		return Contact{}, ErrInvalidArgument
	}
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" && strings.TrimSpace(in.FirstName+in.LastName) == "" {
		return Contact{}, fmt.Errorf("%w: contact needs a name or an email", ErrInvalidArgument)
	}
	stage := in.FunnelStage
	if stage == "" {
		stage = funnel.StageAwareness
	}
	if !stage.IsValid() {
		return Contact{}, fmt.Errorf("%w: invalid funnel stage %q", ErrInvalidArgument, stage)
	}
	if in.LeadSource != SourceReferral {
		in.ReferralFrom = ""
	}

	now := s.clock().UTC()
	c := Contact{
		ID:           uuid.NewString(),
		WorkspaceID:  workspaceID,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		CompanyID:    in.CompanyID,
		FunnelStage:  stage,
		PersonType:   PersonLead,
		LeadSource:   in.LeadSource,
		ReferralFrom: strings.TrimSpace(in.ReferralFrom),
		FormID:       in.FormID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Contact{}, fmt.Errorf("create contact: %w", err)
	}

	s.dispatch(ctx, automation.Event{
		Type:      automation.EventContactCreated,
		UserID:    userID,
		ContactID: c.ID,
		Stage:     c.FunnelStage,
	})
	return c, nil
}

type UpdateInput struct {
	FirstName    *string     `json:"first_name"`
	LastName     *string     `json:"last_name"`
	Email        *string     `json:"email"`
	Phone        *string     `json:"phone"`
	CompanyID    *string     `json:"company_id"`
	LeadSource   *LeadSource `json:"lead_source"`
	ReferralFrom *string     `json:"referral_from"`
}

// Update patches contact fields. Funnel stage is deliberately excluded;
// stage moves go through ChangeStage so history and automations stay
// consistent.
func (s *Service) Update(ctx context.Context, workspaceID, id string, in UpdateInput) (Contact, error) {
	c, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Contact{}, err
	}
	if in.FirstName != nil {
		c.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		c.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		c.Email = strings.TrimSpace(strings.ToLower(*in.Email))
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.CompanyID != nil {
		c.CompanyID = *in.CompanyID
	}
	if in.LeadSource != nil {
		c.LeadSource = *in.LeadSource
	}
	if in.ReferralFrom != nil {
		c.ReferralFrom = strings.TrimSpace(*in.ReferralFrom)
	}
	if c.LeadSource != SourceReferral {
		c.ReferralFrom = ""
	}
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Contact, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

// GetByEmail looks a contact up by email, case-insensitively.
func (s *Service) GetByEmail(ctx context.Context, workspaceID, email string) (Contact, error) {
	return s.repo.GetByEmail(ctx, workspaceID, email)
}

func (s *Service) List(ctx context.Context, workspaceID string, f ListFilter) ([]Contact, error) {
	return s.repo.List(ctx, workspaceID, f)
}

func (s *Service) StageHistory(ctx context.Context, workspaceID, id string) ([]StageChange, error) {
	return s.repo.StageHistory(ctx, workspaceID, id)
}

// ChangeStage moves a contact to another funnel stage and dispatches the
// stage_changed event. Moving to the current stage is a no-op: no history
// entry, no event.
func (s *Service) ChangeStage(ctx context.Context, workspaceID, userID, id string, to funnel.Stage) (Contact, error) {
	if !to.IsValid() {
		return Contact{}, fmt.Errorf("%w: invalid funnel stage %q", ErrInvalidArgument, to)
	}
	c, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Contact{}, err
	}
	if c.FunnelStage == to {
		return c, nil
	}

	from, err := s.repo.MoveStage(ctx, workspaceID, id, to, s.clock().UTC())
	if err != nil {
		return Contact{}, fmt.Errorf("move stage: %w", err)
	}

	s.dispatch(ctx, automation.Event{
		Type:      automation.EventStageChanged,
		UserID:    userID,
		ContactID: id,
		FromStage: from,
		ToStage:   to,
	})
	return s.repo.Get(ctx, workspaceID, id)
}

// DeleteMany removes contacts in bulk and audits the deletion.
func (s *Service) DeleteMany(ctx context.Context, workspaceID, actorUserID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.repo.DeleteMany(ctx, workspaceID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete contacts: %w", err)
	}
	if s.audits != nil {
		meta := fmt.Sprintf(`{"requested":%d,"deleted":%d}`, len(ids), n)
		if aerr := s.audits.Append(ctx, audit.Event{
			WorkspaceID: workspaceID,
			Type:        audit.EventTypeContactDelete,
			ActorUserID: actorUserID,
			Message:     "bulk contact delete",
			Metadata:    meta,
		}); aerr != nil {
			s.log.Warn("contact delete audit failed", "error", aerr)
		}
	}
	return n, nil
}

// dispatch feeds the automation runner and logs, rather than propagates,
// its errors: the primary write has already committed.
func (s *Service) dispatch(ctx context.Context, ev automation.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Run(ctx, ev); err != nil {
		s.log.Error("automation dispatch failed", "event_type", ev.Type, "error", err)
	}
}
