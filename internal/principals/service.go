package principals

import (
	"context"

	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// RepositoryPort defines data access methods for principals.
type RepositoryPort interface {
	ListPrincipals(ctx context.Context, page, perPage int) ([]Principal, int, error)
	GetPrincipal(ctx context.Context, id string) (*Principal, error)
	DeactivatePrincipal(ctx context.Context, id string) error
}

// Service handles principal management logic. Principals are never
// deleted through this service, only deactivated.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListPrincipals returns a page of principals with pagination metadata.
func (s *Service) ListPrincipals(ctx context.Context, page, perPage int) ([]Principal, shared.Pagination, error) {
	rows, total, err := s.repo.ListPrincipals(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(page, perPage, total), nil
}

// GetPrincipal fetches a single principal.
func (s *Service) GetPrincipal(ctx context.Context, id string) (*Principal, error) {
	return s.repo.GetPrincipal(ctx, id)
}

// Deactivate flips the principal inactive. An inactive principal is denied
// by every authorization check regardless of grants.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.repo.DeactivatePrincipal(ctx, id)
}
