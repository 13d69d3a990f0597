package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository serves canned audit rows with error injection.
type mockRepository struct {
	security  []SecurityEvent
	mutations []MutationRecord

	securityError error
	countError    error

	lastLimit  int
	lastOffset int
}

func (m *mockRepository) SecurityEvents(ctx context.Context, f SecurityFilters, limit, offset int) ([]SecurityEvent, error) {
	if m.securityError != nil {
		return nil, m.securityError
	}
	m.lastLimit, m.lastOffset = limit, offset
	if offset >= len(m.security) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.security) {
		end = len(m.security)
	}
	return m.security[offset:end], nil
}

func (m *mockRepository) CountSecurityEvents(ctx context.Context, f SecurityFilters) (int, error) {
	if m.countError != nil {
		return 0, m.countError
	}
	return len(m.security), nil
}

func (m *mockRepository) Mutations(ctx context.Context, f MutationFilters, limit, offset int) ([]MutationRecord, error) {
	if offset >= len(m.mutations) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.mutations) {
		end = len(m.mutations)
	}
	return m.mutations[offset:end], nil
}

func (m *mockRepository) CountMutations(ctx context.Context, f MutationFilters) (int, error) {
	return len(m.mutations), nil
}

var _ Repository = (*mockRepository)(nil)

func securityRows(n int) []SecurityEvent {
	rows := make([]SecurityEvent, n)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = SecurityEvent{
			Type:        EventUnauthorizedAccess,
			Severity:    SeverityMedium,
			PrincipalID: "p-1",
			Resource:    "events",
			Action:      "update",
			At:          base.Add(time.Duration(i) * time.Minute),
		}
	}
	return rows
}

func TestSecurityTimelinePaging(t *testing.T) {
	repo := &mockRepository{security: securityRows(45)}
	svc := NewService(repo)

	res, err := svc.SecurityTimeline(context.Background(), SecurityFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)

	assert.Len(t, res.Rows, 20)
	assert.Equal(t, 2, res.Paging.Page)
	assert.Equal(t, 45, res.Paging.Total)
	assert.True(t, res.Paging.HasNext)
	assert.Equal(t, 20, repo.lastOffset)

	res, err = svc.SecurityTimeline(context.Background(), SecurityFilters{Page: 3, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5)
	assert.False(t, res.Paging.HasNext)
}

func TestSecurityTimelineClampsPaging(t *testing.T) {
	repo := &mockRepository{security: securityRows(3)}
	svc := NewService(repo)

	res, err := svc.SecurityTimeline(context.Background(), SecurityFilters{Page: -1, PageSize: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Paging.Page)
	assert.Equal(t, 20, res.Paging.PageSize)

	res, err = svc.SecurityTimeline(context.Background(), SecurityFilters{PageSize: 5000})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Paging.PageSize)
}

func TestSecurityTimelinePropagatesErrors(t *testing.T) {
	svc := NewService(&mockRepository{securityError: errors.New("query failed")})
	_, err := svc.SecurityTimeline(context.Background(), SecurityFilters{})
	assert.Error(t, err)

	svc = NewService(&mockRepository{countError: errors.New("count failed")})
	_, err = svc.SecurityTimeline(context.Background(), SecurityFilters{})
	assert.Error(t, err)
}

func TestMutationTimeline(t *testing.T) {
	repo := &mockRepository{mutations: []MutationRecord{
		{Action: ActionRoleAssigned, ActorID: "admin", TargetID: "c-1", Success: true},
		{Action: ActionRoleRevoked, ActorID: "admin", TargetID: "c-1", Success: true},
	}}
	svc := NewService(repo)

	res, err := svc.MutationTimeline(context.Background(), MutationFilters{})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, 2, res.Paging.Total)
	assert.False(t, res.Paging.HasNext)
}

func TestExportSecurityBounded(t *testing.T) {
	repo := &mockRepository{security: securityRows(30)}
	svc := NewService(repo)

	rows, err := svc.ExportSecurity(context.Background(), SecurityFilters{})
	require.NoError(t, err)
	assert.Len(t, rows, 30)
	assert.Equal(t, 10000, repo.lastLimit)
	assert.Zero(t, repo.lastOffset)
}

func TestServiceWithoutRepository(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.SecurityTimeline(context.Background(), SecurityFilters{})
	assert.Error(t, err)
	_, err = svc.MutationTimeline(context.Background(), MutationFilters{})
	assert.Error(t, err)
	_, err = svc.ExportSecurity(context.Background(), SecurityFilters{})
	assert.Error(t, err)
}
