package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "gatehouse_session", "test-secret", time.Hour, false), mr
}

func TestLoadWithoutIdentifierCreatesNewSession(t *testing.T) {
	sm, _ := newTestSessionManager(t)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Empty(t, sess.Principal())
}

func TestCommitAndReloadRoundTrip(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetPrincipal("p-1")
	sess.Set("theme", "dark")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil), sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "gatehouse_session", cookies[0].Name)
	assert.Equal(t, sess.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	reloaded, err := sm.Load(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, sess.ID, reloaded.ID)
	assert.Equal(t, "p-1", reloaded.Principal())
	assert.Equal(t, "dark", reloaded.Get("theme"))
}

func TestLoadAcceptsBearerToken(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetPrincipal("p-1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sess.ID)
	reloaded, err := sm.Load(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "p-1", reloaded.Principal())
}

func TestLoadUnknownIdentifierYieldsFreshSession(t *testing.T) {
	sm, _ := newTestSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nonexistent")
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "nonexistent", sess.ID)
	assert.Empty(t, sess.Principal())
}

func TestDestroyRemovesSessionAndClearsCookie(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetPrincipal("p-1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), sess))
	require.True(t, mr.Exists("session:"+sess.ID))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil), sess))

	assert.False(t, mr.Exists("session:"+sess.ID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.Empty(t, cookies[0].Value)
}

func TestSessionExpiresWithTTL(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetPrincipal("p-1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), sess))

	mr.FastForward(2 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sess.ID)
	reloaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Principal())
}

func TestPrincipalFromContext(t *testing.T) {
	assert.Empty(t, PrincipalFromContext(context.Background()))

	sess := &Session{}
	sess.SetPrincipal("p-1")
	ctx := ContextWithSession(context.Background(), sess)
	assert.Equal(t, "p-1", PrincipalFromContext(ctx))
	assert.Same(t, sess, SessionFromContext(ctx))
}
