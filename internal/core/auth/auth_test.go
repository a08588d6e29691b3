package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/store"
)

func newService(t *testing.T) (*Service, *credits.Service) {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	tokens, err := NewTokens("test-secret", 0)
	require.NoError(t, err)
	cs := credits.NewService(s, 10)
	return NewService(s, tokens, cs, []string{" Boss@Acme.co.uk "}), cs
}

func TestRegisterAndLogin(t *testing.T) {
	svc, cs := newService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, " Jane@Acme.co.uk ", "hunter22", "Jane")
	require.NoError(t, err)
	assert.Equal(t, "jane@acme.co.uk", sess.User.Email)
	assert.False(t, sess.User.IsAdmin)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), sess.ExpiresAt, time.Minute)

	balance, err := cs.Balance(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, balance)

	_, err = svc.Register(ctx, "jane@acme.co.uk", "hunter22", "")
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := svc.Login(ctx, "JANE@acme.co.uk", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "jane@acme.co.uk", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@acme.co.uk", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "Jane", u.FullName)

	admin, err := svc.Register(ctx, "boss@acme.co.uk", "hunter22", "")
	require.NoError(t, err)
	assert.True(t, admin.User.IsAdmin)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "hunter22", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.Register(ctx, "a@acme.co.uk", "12345", "")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestPasswordReset(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess, err := svc.Register(ctx, "jane@acme.co.uk", "hunter22", "Jane")
	require.NoError(t, err)

	none, err := svc.RequestReset(ctx, "nobody@acme.co.uk")
	require.NoError(t, err)
	assert.Nil(t, none)

	first, err := svc.RequestReset(ctx, " JANE@acme.co.uk ")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, sess.User.ID, first.User.ID)
	assert.WithinDuration(t, time.Now().Add(ResetTokenTTL), first.ExpiresAt, time.Minute)

	second, err := svc.RequestReset(ctx, "jane@acme.co.uk")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	assert.ErrorIs(t, svc.ResetPassword(ctx, first.Token, "newpass1"), ErrInvalidResetToken)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "", "newpass1"), ErrInvalidResetToken)
	assert.ErrorIs(t, svc.ResetPassword(ctx, second.Token, "short"), ErrWeakPassword)

	require.NoError(t, svc.ResetPassword(ctx, second.Token, "newpass1"))
	_, err = svc.Login(ctx, "jane@acme.co.uk", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "jane@acme.co.uk", "newpass1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ResetPassword(ctx, second.Token, "another1"), ErrInvalidResetToken)
}

func TestPasswordReset_Expired(t *testing.T) {
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	tokens, err := NewTokens("test-secret", 0)
	require.NoError(t, err)
	svc := NewService(s, tokens, nil, nil)
	ctx := context.Background()

	sess, err := svc.Register(ctx, "jane@acme.co.uk", "hunter22", "")
	require.NoError(t, err)
	require.NoError(t, s.SaveResetToken(ctx, sess.User.ID, hashResetToken("stale"), time.Now().Add(-time.Minute)))

	assert.ErrorIs(t, svc.ResetPassword(ctx, "stale", "newpass1"), ErrInvalidResetToken)
	_, err = svc.Login(ctx, "jane@acme.co.uk", "hunter22")
	assert.NoError(t, err)
}

func TestAuthenticate_Rejects(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)

	other, err := NewTokens("other-secret", 0)
	require.NoError(t, err)
	tok, _, err := other.Issue("u1")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, tok)
	assert.ErrorIs(t, err, ErrInvalidSession)

	ghost, _, err := svc.Tokens().Issue("ghost")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestTokens_Expired(t *testing.T) {
	tokens, err := NewTokens("s", time.Millisecond)
	require.NoError(t, err)
	tok, _, err := tokens.Issue("u1")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = tokens.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = NewTokens("", time.Hour)
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/leads", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", TokenFromRequest(r))
}

func TestBox(t *testing.T) {
	b, err := NewBox("secret")
	require.NoError(t, err)

	sealed, err := b.Seal("sk_live_123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "sk_live_123")
	plain, err := b.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_123", plain)

	again, _ := b.Seal("sk_live_123")
	assert.NotEqual(t, sealed, again)

	other, _ := NewBox("other")
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrDecrypt)
	_, err = b.Open("%%%")
	assert.ErrorIs(t, err, ErrDecrypt)

	empty, err := b.Seal("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = NewBox("")
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "****", Mask("abc"))
	assert.Equal(t, "****6789", Mask("123456789"))
}
