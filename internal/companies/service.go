package companies

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("companies: not found")
	ErrInvalidArgument = errors.New("companies: invalid argument")
)

type Repository interface {
	Get(ctx context.Context, workspaceID, companyID string) (Company, bool, error)
	List(ctx context.Context, workspaceID string) ([]Company, error)
	Create(ctx context.Context, c Company) error
	Update(ctx context.Context, c Company) error
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type CreateInput struct {
	Name          string
	Industry      string
	SizeTurnover  string
	SizePersonnel string
	City          string
	State         string
	Country       string
}

func (s *Service) Create(ctx context.Context, workspaceID, userID string, in CreateInput) (Company, error) {
	name := strings.TrimSpace(in.Name)
	if workspaceID == "" || userID == "" || name == "" {
		return Company{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	c := Company{
		ID:            uuid.NewString(),
		WorkspaceID:   workspaceID,
		UserID:        userID,
		Name:          name,
		Industry:      strings.TrimSpace(in.Industry),
		SizeTurnover:  strings.TrimSpace(in.SizeTurnover),
		SizePersonnel: strings.TrimSpace(in.SizePersonnel),
		City:          strings.TrimSpace(in.City),
		State:         strings.TrimSpace(in.State),
		Country:       strings.TrimSpace(in.Country),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Company{}, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, workspaceID, companyID string, in CreateInput) (Company, error) {
	if workspaceID == "" || companyID == "" {
		return Company{}, ErrInvalidArgument
	}
	c, ok, err := s.repo.Get(ctx, workspaceID, companyID)
	if err != nil {
		return Company{}, err
	}
	if !ok {
		return Company{}, ErrNotFound
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	c.Industry = strings.TrimSpace(in.Industry)
	c.SizeTurnover = strings.TrimSpace(in.SizeTurnover)
	c.SizePersonnel = strings.TrimSpace(in.SizePersonnel)
	c.City = strings.TrimSpace(in.City)
	c.State = strings.TrimSpace(in.State)
	c.Country = strings.TrimSpace(in.Country)
	c.UpdatedAt = s.clock().UTC()

	if err := s.repo.Update(ctx, c); err != nil {
		return Company{}, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, companyID string) (Company, error) {
	c, ok, err := s.repo.Get(ctx, workspaceID, companyID)
	if err != nil {
		return Company{}, err
	}
	if !ok {
		return Company{}, ErrNotFound
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, workspaceID string) ([]Company, error) {
	if workspaceID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.List(ctx, workspaceID)
}
