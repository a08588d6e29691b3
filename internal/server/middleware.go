package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/agenthands/leadblitz/internal/core/auth"
	"github.com/agenthands/leadblitz/internal/core/model"
)

const userKey = "leadblitz.user"

// RequireUser resolves the session cookie or bearer token and stores the
// user on the context.
func (s *Server) RequireUser(c *gin.Context) {
	u, err := s.Auth.Authenticate(c.Request.Context(), auth.TokenFromRequest(c.Request))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Set(userKey, u)
	c.Next()
}

func (s *Server) RequireAdmin(c *gin.Context) {
	if !currentUser(c).IsAdmin {
		detail(c, http.StatusForbidden, "Admin access required")
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) *model.User {
	u, _ := c.MustGet(userKey).(*model.User)
	return u
}

func userID(c *gin.Context) string {
	return currentUser(c).ID
}

// lenientInt accepts numbers and numeric strings, falling back to def.
func lenientInt(v interface{}, def int) int {
	if v == nil {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// optionalInt is lenientInt for fields where absence means "no filter".
func optionalInt(v interface{}) *int {
	if v == nil {
		return nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return nil
	}
	return &n
}

func (s *Server) setSession(c *gin.Context, sess *auth.Session) {
	maxAge := int(s.Auth.Tokens().TTL().Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, sess.Token, maxAge, "/", "", s.Config.Auth.CookieSecure, true)
}

func (s *Server) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", s.Config.Auth.CookieSecure, true)
}
