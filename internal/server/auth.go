package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/auth"
	"github.com/agenthands/leadblitz/internal/core/model"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type userView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

func viewOf(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, FullName: u.FullName, IsAdmin: u.IsAdmin}
}

func (s *Server) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	sess, err := s.Auth.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.signedIn(c, sess)
}

func (s *Server) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	sess, err := s.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.signedIn(c, sess)
}

func (s *Server) signedIn(c *gin.Context, sess *auth.Session) {
	s.setSession(c, sess)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": viewOf(sess.User)})
}

func (s *Server) Logout(c *gin.Context) {
	s.clearSession(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) Me(c *gin.Context) {
	u := currentUser(c)
	keys, err := s.LeadBlitz.APIKeys(c.Request.Context(), u.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": viewOf(u),
		"api_keys_status": gin.H{
			"twilio": keys.TwilioAccountSID != "" && keys.TwilioAuthToken != "",
			"hunter": keys.HunterAPIKey != "",
		},
	})
}

const resetRequestedMessage = "If an account exists with that email, a password reset link has been sent."

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ForgotPassword mails a reset link. The reply is the same whether or not
// the account exists.
func (s *Server) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	ctx := c.Request.Context()
	rt, err := s.Auth.RequestReset(ctx, req.Email)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if rt != nil {
		link := s.baseURL(c) + "/reset-password?token=" + url.QueryEscape(rt.Token)
		if err := s.LeadBlitz.SendPasswordReset(ctx, rt.User.Email, link); err != nil {
			s.Logger.Warn("password reset email not sent", zap.String("user_id", rt.User.ID), zap.Error(err))
			s.Logger.Debug("password reset link", zap.String("user_id", rt.User.ID), zap.String("link", link))
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": resetRequestedMessage})
}

func (s *Server) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if err := s.Auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password has been reset successfully. You can now log in."})
}

// baseURL is the configured public address, or the one the request came in
// on.
func (s *Server) baseURL(c *gin.Context) string {
	if u := strings.TrimRight(s.Config.Server.BaseURL, "/"); u != "" {
		return u
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
