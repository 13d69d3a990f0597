package audit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// SecurityFilters narrows security event queries.
type SecurityFilters struct {
	From        time.Time
	To          time.Time
	PrincipalID string
	Resource    string
	Type        string
	Page        int
	PageSize    int
}

// MutationFilters narrows mutation record queries.
type MutationFilters struct {
	From     time.Time
	To       time.Time
	ActorID  string
	TargetID string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo carries pagination metadata.
type PagingInfo struct {
	Page     int
	PageSize int
	Total    int
	HasNext  bool
}

// SecurityResult bundles security events with paging metadata.
type SecurityResult struct {
	Rows   []SecurityEvent
	Paging PagingInfo
}

// MutationResult bundles mutation records with paging metadata.
type MutationResult struct {
	Rows   []MutationRecord
	Paging PagingInfo
}

// Repository provides read access to persisted audit records.
type Repository interface {
	SecurityEvents(ctx context.Context, f SecurityFilters, limit, offset int) ([]SecurityEvent, error)
	CountSecurityEvents(ctx context.Context, f SecurityFilters) (int, error)
	Mutations(ctx context.Context, f MutationFilters, limit, offset int) ([]MutationRecord, error)
	CountMutations(ctx context.Context, f MutationFilters) (int, error)
}

// Service coordinates audit trail reads.
type Service struct {
	repo Repository
}

// NewService constructs an audit query service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func clampPage(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return page, pageSize
}

// SecurityTimeline returns a page of security events together with the
// total count. Rows and count are fetched concurrently.
func (s *Service) SecurityTimeline(ctx context.Context, f SecurityFilters) (SecurityResult, error) {
	if s.repo == nil {
		return SecurityResult{}, fmt.Errorf("audit: repository not configured")
	}
	page, pageSize := clampPage(f.Page, f.PageSize)
	offset := (page - 1) * pageSize

	var (
		rows  []SecurityEvent
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.SecurityEvents(gctx, f, pageSize, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountSecurityEvents(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return SecurityResult{}, err
	}
	return SecurityResult{
		Rows: rows,
		Paging: PagingInfo{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
			HasNext:  offset+len(rows) < total,
		},
	}, nil
}

// MutationTimeline returns a page of mutation records with the total count.
func (s *Service) MutationTimeline(ctx context.Context, f MutationFilters) (MutationResult, error) {
	if s.repo == nil {
		return MutationResult{}, fmt.Errorf("audit: repository not configured")
	}
	page, pageSize := clampPage(f.Page, f.PageSize)
	offset := (page - 1) * pageSize

	var (
		rows  []MutationRecord
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.Mutations(gctx, f, pageSize, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountMutations(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return MutationResult{}, err
	}
	return MutationResult{
		Rows: rows,
		Paging: PagingInfo{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
			HasNext:  offset+len(rows) < total,
		},
	}, nil
}

// ExportSecurity returns every security event matching the filters,
// bounded to protect against unbounded result sets.
func (s *Service) ExportSecurity(ctx context.Context, f SecurityFilters) ([]SecurityEvent, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	const exportLimit = 10000
	return s.repo.SecurityEvents(ctx, f, exportLimit, 0)
}
