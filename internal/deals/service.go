package deals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("deals: not found")
	ErrInvalidArgument = errors.New("deals: invalid argument")
	ErrAlreadyClosed   = errors.New("deals: already closed")
)

type Repository interface {
	Create(ctx context.Context, d Deal) error
	Update(ctx context.Context, d Deal) error
	Get(ctx context.Context, workspaceID, id string) (Deal, error)
	List(ctx context.Context, workspaceID string, f ListFilter) ([]Deal, error)
}

type ListFilter struct {
	Stage     *Stage
	ContactID string
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type CreateInput struct {
	ContactID  string `json:"contact_id"`
	Title      string `json:"title"`
	ValueMinor int64  `json:"value_minor"`
	Currency   string `json:"currency"`
}

func (s *Service) Create(ctx context.Context, workspaceID string, in CreateInput) (Deal, error) {
	if workspaceID == "" || in.ContactID == "" {
		return Deal{}, ErrInvalidArgument
	}
	if strings.TrimSpace(in.Title) == "" {
		return Deal{}, fmt.Errorf("%w: title required", ErrInvalidArgument)
	}
	if in.ValueMinor < 0 {
		return Deal{}, fmt.Errorf("%w: negative value", ErrInvalidArgument)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return Deal{}, fmt.Errorf("%w: currency %q", ErrInvalidArgument, in.Currency)
	}

	now := s.clock().UTC()
	d := Deal{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		ContactID:   in.ContactID,
		Title:       strings.TrimSpace(in.Title),
		ValueMinor:  in.ValueMinor,
		Currency:    currency,
		Stage:       StageOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return Deal{}, fmt.Errorf("create deal: %w", err)
	}
	return d, nil
}

// Close settles a deal as won or lost. Closing twice is rejected so revenue
// numbers cannot be double counted.
func (s *Service) Close(ctx context.Context, workspaceID, id string, won bool) (Deal, error) {
	d, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Deal{}, err
	}
	if d.Closed() {
		return Deal{}, ErrAlreadyClosed
	}
	now := s.clock().UTC()
	if won {
		d.Stage = StageClosedWon
	} else {
		d.Stage = StageClosedLost
	}
	d.ClosedAt = &now
	d.UpdatedAt = now
	if err := s.repo.Update(ctx, d); err != nil {
		return Deal{}, fmt.Errorf("close deal: %w", err)
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Deal, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

func (s *Service) List(ctx context.Context, workspaceID string, f ListFilter) ([]Deal, error) {
	return s.repo.List(ctx, workspaceID, f)
}
