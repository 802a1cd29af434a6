package companies

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

// Service provides business logic for company master data.
type Service struct {
	repo Repository
}

// NewService constructs a company service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns companies, optionally filtered by role.
func (s *Service) List(ctx context.Context, role *shared.CompanyRole) ([]Company, error) {
	return s.repo.List(ctx, role)
}

// Get returns a single company.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Company, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new company after validation.
func (s *Service) Create(ctx context.Context, company Company) (Company, error) {
	if err := s.validate(company); err != nil {
		return Company{}, err
	}
	return s.repo.Create(ctx, company)
}

func (s *Service) validate(c Company) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("company name is required")
	}
	if strings.TrimSpace(c.TaxID) == "" {
		return errors.New("company tax id is required")
	}
	if !c.Role.IsValid() {
		return errors.New("company role must be SELLER or BUYER")
	}
	return nil
}
