package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mailbox is a SendGrid stand-in that keeps every plain-text body.
type mailbox struct {
	mu     sync.Mutex
	to     []string
	bodies []string
}

func (m *mailbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var msg struct {
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
		Content []struct {
			Value string `json:"value"`
		} `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil || len(msg.Content) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	m.to = append(m.to, msg.Personalizations[0].To[0].Email)
	m.bodies = append(m.bodies, msg.Content[0].Value)
	m.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (ts *testServer) withMailbox(t *testing.T) *mailbox {
	t.Helper()
	mb := &mailbox{}
	srv := httptest.NewServer(mb)
	t.Cleanup(srv.Close)
	ts.cfg.SendGrid.APIKey = "SG.server"
	ts.cfg.SendGrid.From = "noreply@leadblitz.test"
	ts.cfg.SendGrid.BaseURL = srv.URL
	return mb
}

var resetLink = regexp.MustCompile(`http://example\.com/reset-password\?token=([A-Za-z0-9_-]+)`)

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t)
	mb := ts.withMailbox(t)
	ts.register(t, "pat@leadblitz.test")

	w := ts.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "nobody@leadblitz.test"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	generic := decode(t, w)
	assert.Equal(t, true, generic["success"])
	assert.Empty(t, mb.to)

	w = ts.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "PAT@leadblitz.test"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, generic, decode(t, w))
	require.Equal(t, []string{"pat@leadblitz.test"}, mb.to)
	m := resetLink.FindStringSubmatch(mb.bodies[0])
	require.Len(t, m, 2, mb.bodies[0])
	token := m[1]

	w = ts.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{"token": "wrong", "new_password": "brand-new-pass"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired reset token. Please request a new one.", decode(t, w)["detail"])

	w = ts.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{"token": token, "new_password": "abc"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must be at least 6 characters", decode(t, w)["detail"])

	w = ts.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{"token": token, "new_password": "brand-new-pass"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "pat@leadblitz.test", "password": "correct-horse"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "pat@leadblitz.test", "password": "brand-new-pass"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{"token": token, "new_password": "third-pass"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForgotPassword_NoMailerStillSucceeds(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "pat@leadblitz.test")

	w := ts.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "pat@leadblitz.test"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])
}

func TestEmailSignatureAndTestEmail(t *testing.T) {
	ts := newTestServer(t)
	mb := ts.withMailbox(t)
	cookie := ts.register(t, "pat@leadblitz.test")

	w := ts.do(t, http.MethodGet, "/api/email-signature", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pat", decode(t, w)["full_name"])

	w = ts.do(t, http.MethodPost, "/api/email-signature", gin.H{"company_name": "Acme Web", "phone": "0113 000 0000"}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Email signature saved successfully", decode(t, w)["message"])

	w = ts.do(t, http.MethodGet, "/api/email-signature", nil, cookie)
	sig := decode(t, w)
	assert.Equal(t, "Pat", sig["full_name"])
	assert.Equal(t, "Acme Web", sig["company_name"])
	assert.Equal(t, "0113 000 0000", sig["phone"])

	w = ts.do(t, http.MethodPost, "/api/email/test", gin.H{"to_email": "pat@leadblitz.test"}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No email provider configured. Please set up an email provider first.", decode(t, w)["detail"])

	w = ts.do(t, http.MethodPost, "/api/email/settings/sendgrid", gin.H{"api_key": "SG.user", "from_email": "pat@leadblitz.test"}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/email/test", gin.H{"to_email": "pat@leadblitz.test", "subject": "Hi", "body": "Testing"}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, "sendgrid", res["provider"])
	assert.Equal(t, "Test email sent successfully via sendgrid", res["message"])
	assert.Equal(t, []string{"pat@leadblitz.test"}, mb.to)

	w = ts.do(t, http.MethodPost, "/api/email/test", gin.H{"to_email": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
