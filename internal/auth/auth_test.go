package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSession(t *testing.T) {
	id, ok := StaticSession("user-1").CurrentUserID()
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)

	_, ok = StaticSession("").CurrentUserID()
	assert.False(t, ok)
}

func TestMemorySession_Events(t *testing.T) {
	s := NewMemorySession()
	events, unsubscribe := s.Subscribe(4)

	_, ok := s.CurrentUserID()
	assert.False(t, ok)

	s.SignIn("user-1")
	id, ok := s.CurrentUserID()
	require.True(t, ok)
	assert.Equal(t, "user-1", id)

	s.SignOut()
	s.SignOut()
	_, ok = s.CurrentUserID()
	assert.False(t, ok)

	assert.Equal(t, Event{Kind: EventSignedIn, UserID: "user-1"}, <-events)
	assert.Equal(t, Event{Kind: EventSignedOut, UserID: "user-1"}, <-events)

	unsubscribe()
	unsubscribe()
	_, open := <-events
	assert.False(t, open)

	s.SignIn("user-2")
}

func TestToken_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()

	raw, err := IssueToken(secret, "user-42", time.Hour, now)
	require.NoError(t, err)

	sub, err := ParseToken(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)
}

func TestToken_Rejected(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()

	expired, err := IssueToken(secret, "user-42", time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		key  []byte
	}{
		{"garbage", "not-a-token", secret},
		{"wrong secret", mustIssue(t, []byte("other"), now), secret},
		{"expired", expired, secret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.key, tt.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func mustIssue(t *testing.T, secret []byte, now time.Time) string {
	t.Helper()
	raw, err := IssueToken(secret, "user-42", time.Hour, now)
	require.NoError(t, err)
	return raw
}
