package forms

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"bell-crm/internal/contacts"
	"bell-crm/internal/funnel"
	"bell-crm/internal/metrics"
)

var (
	ErrNotFound        = errors.New("forms: not found")
	ErrInvalidArgument = errors.New("forms: invalid argument")
	ErrRateLimited     = errors.New("forms: rate limited")
	ErrInactive        = errors.New("forms: form inactive")
)

type Repository interface {
	Create(ctx context.Context, f Form) error
	Update(ctx context.Context, f Form) error
	Get(ctx context.Context, workspaceID, id string) (Form, error)
	GetByPublicKey(ctx context.Context, publicKey string) (Form, error)
	List(ctx context.Context, workspaceID string) ([]Form, error)
	AppendSubmission(ctx context.Context, s Submission) error
	ListSubmissions(ctx context.Context, workspaceID, formID string) ([]Submission, error)
}

// LeadCreator is the contacts-service seam used to turn submissions into
// leads.
type LeadCreator interface {
	CreateLead(ctx context.Context, workspaceID, userID string, in contacts.CreateInput) (contacts.Contact, error)
	GetByEmail(ctx context.Context, workspaceID, email string) (contacts.Contact, error)
}

// RateLimiter guards the public submit endpoint per form key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Service struct {
	repo    Repository
	leads   LeadCreator
	limiter RateLimiter
	log     *slog.Logger
	clock   func() time.Time
}

func NewService(repo Repository, leads LeadCreator, limiter RateLimiter, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		leads:   leads,
		limiter: limiter,
		log:     log,
		clock:   time.Now,
	}
}

// newPublicKey returns 24 bytes of randomness, URL-safe encoded.
func newPublicKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate form key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

type CreateInput struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

func defaultFields() []Field {
	return []Field{
		{Name: "name", Label: "Your name", Type: FieldText, Required: true},
		{Name: "email", Label: "Email", Type: FieldEmail, Required: true},
		{Name: "phone", Label: "Phone", Type: FieldPhone},
		{Name: "message", Label: "How can we help?", Type: FieldTextarea},
	}
}

func (s *Service) Create(ctx context.Context, workspaceID, userID string, in CreateInput) (Form, error) {
	if workspaceID == "" || userID == "" {
		return Form{}, ErrInvalidArgument
	}
	if strings.TrimSpace(in.Name) == "" {
		return Form{}, fmt.Errorf("%w: name required", ErrInvalidArgument)
	}
	fields := in.Fields
	if len(fields) == 0 {
		fields = defaultFields()
	}
	if err := validateFields(fields); err != nil {
		return Form{}, err
	}

	key, err := newPublicKey()
	if err != nil {
		return Form{}, err
	}
	now := s.clock().UTC()
	f := Form{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		PublicKey:   key,
		Fields:      fields,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return Form{}, fmt.Errorf("create form: %w", err)
	}
	return f, nil
}

func validateFields(fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for _, fl := range fields {
		if fl.Name == "" {
			return fmt.Errorf("%w: field without name", ErrInvalidArgument)
		}
		if seen[fl.Name] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidArgument, fl.Name)
		}
		seen[fl.Name] = true
		switch fl.Type {
		case FieldText, FieldEmail, FieldPhone, FieldTextarea:
		default:
			return fmt.Errorf("%w: field type %q", ErrInvalidArgument, fl.Type)
		}
	}
	return nil
}

// SetActive switches the public endpoint on or off without deleting
// anything.
func (s *Service) SetActive(ctx context.Context, workspaceID, id string, active bool) (Form, error) {
	f, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Form{}, err
	}
	f.Active = active
	f.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, f); err != nil {
		return Form{}, fmt.Errorf("update form: %w", err)
	}
	return f, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Form, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

func (s *Service) List(ctx context.Context, workspaceID string) ([]Form, error) {
	return s.repo.List(ctx, workspaceID)
}

func (s *Service) Submissions(ctx context.Context, workspaceID, formID string) ([]Submission, error) {
	return s.repo.ListSubmissions(ctx, workspaceID, formID)
}

// PublicForm returns the render payload for the public endpoint. Secrets
// and workspace identifiers are not part of Form's public JSON shape, so
// the value can be returned as-is.
func (s *Service) PublicForm(ctx context.Context, publicKey string) (Form, error) {
	f, err := s.repo.GetByPublicKey(ctx, publicKey)
	if err != nil {
		return Form{}, err
	}
	if !f.Active {
		return Form{}, ErrInactive
	}
	return f, nil
}

// Submit handles an anonymous public post: rate limit, field validation,
// lead upsert, submission record. The created lead dispatches
// contact_created through the contacts service like any other lead.
func (s *Service) Submit(ctx context.Context, publicKey string, values map[string]string) (Submission, error) {
	f, err := s.repo.GetByPublicKey(ctx, publicKey)
	if err != nil {
		return Submission{}, err
	}
	if !f.Active {
		return Submission{}, ErrInactive
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, "form:"+publicKey)
		if err != nil {
			// A broken limiter must not take lead capture down with it.
			s.log.Warn("form rate limiter unavailable", "error", err)
		} else if !ok {
			metrics.FormSubmissionsRejected.Inc()
			return Submission{}, ErrRateLimited
		}
	}

	clean := make(map[string]string, len(values))
	for _, fl := range f.Fields {
		v := strings.TrimSpace(values[fl.Name])
		if fl.Required && v == "" {
			return Submission{}, fmt.Errorf("%w: %s required", ErrInvalidArgument, fl.Name)
		}
		if fl.Type == FieldEmail && v != "" {
			if _, err := mail.ParseAddress(v); err != nil {
				return Submission{}, fmt.Errorf("%w: invalid email", ErrInvalidArgument)
			}
		}
		if v != "" {
			clean[fl.Name] = v
		}
	}

	contactID, err := s.upsertLead(ctx, f, clean)
	if err != nil {
		return Submission{}, err
	}

	sub := Submission{
		ID:          uuid.NewString(),
		FormID:      f.ID,
		WorkspaceID: f.WorkspaceID,
		ContactID:   contactID,
		Values:      clean,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.repo.AppendSubmission(ctx, sub); err != nil {
		return Submission{}, fmt.Errorf("store submission: %w", err)
	}
	return sub, nil
}

// upsertLead reuses an existing contact with the same email instead of
// creating a duplicate on every repeat submission.
func (s *Service) upsertLead(ctx context.Context, f Form, values map[string]string) (string, error) {
	email := values["email"]
	if email != "" {
		if c, err := s.leads.GetByEmail(ctx, f.WorkspaceID, email); err == nil {
			return c.ID, nil
		} else if !errors.Is(err, contacts.ErrNotFound) {
			return "", fmt.Errorf("lookup contact: %w", err)
		}
	}

	first, last := splitName(values["name"])
	c, err := s.leads.CreateLead(ctx, f.WorkspaceID, f.UserID, contacts.CreateInput{
		FirstName:   first,
		LastName:    last,
		Email:       email,
		Phone:       values["phone"],
		FunnelStage: funnel.StageAwareness,
		LeadSource:  contacts.SourceWebsiteForm,
		FormID:      f.ID,
	})
	if err != nil {
		return "", fmt.Errorf("create lead: %w", err)
	}
	return c.ID, nil
}

func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
