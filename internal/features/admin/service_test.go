package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdygg/DC-store/internal/bot/command"
	"github.com/fdygg/DC-store/internal/common"
)

type attempt struct {
	userID  int64
	at      time.Time
	success bool
}

type memStore struct {
	sessions []*Session
	attempts []attempt
	now      func() time.Time
}

func (m *memStore) CreateSession(_ context.Context, s *Session) error {
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memStore) GetActiveSession(_ context.Context, userID int64, now time.Time) (*Session, error) {
	for i := len(m.sessions) - 1; i >= 0; i-- {
		s := m.sessions[i]
		if s.UserID == userID && s.IsActive && s.ExpiresAt.After(now) {
			return s, nil
		}
	}
	return nil, common.NotFound("сессия", "")
}

func (m *memStore) DeactivateSessions(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *memStore) LogAttempt(_ context.Context, userID int64, success bool) error {
	m.attempts = append(m.attempts, attempt{userID: userID, at: m.now(), success: success})
	return nil
}

func (m *memStore) CountFailures(_ context.Context, userID int64, since time.Time) (int, error) {
	n := 0
	for _, a := range m.attempts {
		if a.userID == userID && !a.success && !a.at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	kept := m.sessions[:0]
	var n int64
	for _, s := range m.sessions {
		if !s.IsActive || !s.ExpiresAt.After(now) {
			n++
			continue
		}
		kept = append(kept, s)
	}
	m.sessions = kept
	return n, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T, password string) (*Service, *memStore, *clock) {
	t.Helper()
	var hash string
	if password != "" {
		var err error
		hash, err = HashPassword(password)
		require.NoError(t, err)
	}
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := &memStore{now: c.now}
	svc := NewService(store, Options{AdminIDs: []int64{1}, PasswordHash: hash, SessionTTL: time.Hour})
	svc.now = c.now
	return svc, store, c
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$m=65536,t=3,p=2$")

	assert.True(t, VerifyPassword("s3cret", hash))
	assert.False(t, VerifyPassword("wrong", hash))
	assert.False(t, VerifyPassword("s3cret", "not-a-hash"))
	assert.False(t, VerifyPassword("s3cret", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"))
}

func TestAuthorizeWithoutPassword(t *testing.T) {
	svc, _, _ := newTestService(t, "")
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, 1))
	assert.ErrorIs(t, svc.Authorize(ctx, 2), common.ErrNotAdmin)

	_, err := svc.Login(ctx, 1, "x")
	assert.ErrorIs(t, err, ErrLoginNotRequired)
}

func TestLoginOpensSession(t *testing.T) {
	svc, _, c := newTestService(t, "s3cret")
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, 1), ErrSessionRequired)

	_, err := svc.Login(ctx, 2, "s3cret")
	assert.ErrorIs(t, err, common.ErrNotAdmin)

	session, err := svc.Login(ctx, 1, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, c.t.Add(time.Hour), session.ExpiresAt)
	assert.NoError(t, svc.Authorize(ctx, 1))

	// сессия истекает
	c.t = c.t.Add(2 * time.Hour)
	assert.ErrorIs(t, svc.Authorize(ctx, 1), ErrSessionRequired)

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestLogoutClosesSession(t *testing.T) {
	svc, _, _ := newTestService(t, "s3cret")
	ctx := context.Background()

	_, err := svc.Login(ctx, 1, "s3cret")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, 1))
	assert.ErrorIs(t, svc.Authorize(ctx, 1), ErrSessionRequired)
}

func TestLoginLockout(t *testing.T) {
	svc, _, c := newTestService(t, "s3cret")
	ctx := context.Background()

	for i := 0; i < MaxFailedAttempts; i++ {
		_, err := svc.Login(ctx, 1, "nope")
		require.ErrorIs(t, err, common.ErrWrongPassword)
	}
	// даже верный пароль не пускает, пока не прошёл час
	_, err := svc.Login(ctx, 1, "s3cret")
	assert.ErrorIs(t, err, common.ErrTooManyAttempts)

	c.t = c.t.Add(AttemptWindow + time.Minute)
	_, err = svc.Login(ctx, 1, "s3cret")
	assert.NoError(t, err)
}

func TestLoginHandler(t *testing.T) {
	svc, _, _ := newTestService(t, "s3cret")
	h := NewHandler(svc)
	ctx := context.Background()

	_, err := h.Login(ctx, &command.Request{UserID: 1})
	assert.ErrorIs(t, err, command.ErrUsage)

	reply, err := h.Login(ctx, &command.Request{UserID: 1, Args: []string{"s3cret"}})
	require.NoError(t, err)
	assert.Contains(t, reply, "Аутентификация успешна")

	specs := h.Commands()
	require.Len(t, specs, 2)
	assert.True(t, specs[0].Sensitive)
	assert.True(t, specs[0].PrivateOnly)
}
