package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// mockRepository stores accounts in memory with error injection.
type mockRepository struct {
	accounts map[string]*Account
	sessions map[string]string

	findError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts: make(map[string]*Account),
		sessions: make(map[string]string),
	}
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	if m.findError != nil {
		return nil, m.findError
	}
	account, ok := m.accounts[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return account, nil
}

func (m *mockRepository) CreateSession(ctx context.Context, id, principalID string, expiresAt time.Time, ip, ua string) error {
	m.sessions[id] = principalID
	return nil
}

func (m *mockRepository) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

var _ Repository = (*mockRepository)(nil)

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := newMockRepository()
	repo.accounts["kai@example.com"] = &Account{
		ID:           "p-1",
		Email:        "kai@example.com",
		PasswordHash: hashPassword(t, "s3cret"),
		IsActive:     true,
	}
	svc := NewService(repo)

	account, err := svc.Authenticate(context.Background(), "kai@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "p-1", account.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMockRepository()
	repo.accounts["kai@example.com"] = &Account{
		ID:           "p-1",
		PasswordHash: hashPassword(t, "s3cret"),
		IsActive:     true,
	}
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "kai@example.com", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Authenticate(context.Background(), "ghost@example.com", "s3cret")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	repo := newMockRepository()
	repo.accounts["kai@example.com"] = &Account{
		ID:           "p-1",
		PasswordHash: hashPassword(t, "s3cret"),
		IsActive:     false,
	}
	svc := NewService(repo)

	// Inactive accounts are indistinguishable from bad credentials.
	_, err := svc.Authenticate(context.Background(), "kai@example.com", "s3cret")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	err := svc.RegisterSession(context.Background(), "sess-1", "p-1", time.Now().Add(time.Hour), "10.0.0.1", "cli")
	require.NoError(t, err)
	assert.Equal(t, "p-1", repo.sessions["sess-1"])

	err = svc.RemoveSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, repo.sessions)
}
