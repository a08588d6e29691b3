package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/agenthands/leadblitz/internal/core"
)

const defaultHistoryLimit = 50

func (s *Server) ListTemplates(c *gin.Context) {
	res, err := s.LeadBlitz.ListTemplates(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) SaveTemplate(c *gin.Context) {
	var req core.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.SaveTemplate(c.Request.Context(), userID(c), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) DeleteTemplate(c *gin.Context) {
	res, err := s.LeadBlitz.DeleteTemplate(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) GetAPIKeys(c *gin.Context) {
	res, err := s.LeadBlitz.APIKeys(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) UpdateAPIKeys(c *gin.Context) {
	var req core.APIKeysUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.UpdateAPIKeys(c.Request.Context(), userID(c), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ConfigureSMTP(c *gin.Context) {
	var req core.SMTPSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.ConfigureSMTP(c.Request.Context(), userID(c), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ConfigureSendGrid(c *gin.Context) {
	var req core.SendGridSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.ConfigureSendGrid(c.Request.Context(), userID(c), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) EmailStatus(c *gin.Context) {
	res, err := s.LeadBlitz.EmailStatus(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) DisconnectEmail(c *gin.Context) {
	res, err := s.LeadBlitz.DisconnectEmail(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) Credits(c *gin.Context) {
	res, err := s.LeadBlitz.Credits(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) Transactions(c *gin.Context) {
	limit := lenientInt(c.Query("limit"), defaultHistoryLimit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	res, err := s.LeadBlitz.Transactions(c.Request.Context(), userID(c), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type grantRequest struct {
	UserID interface{} `json:"user_id"`
	Amount interface{} `json:"amount"`
	Reason string      `json:"reason"`
}

func (s *Server) AdminAddCredits(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	target := cast.ToString(req.UserID)
	if target == "" {
		badRequest(c, "user_id is required")
		return
	}
	res, err := s.LeadBlitz.AdminGrant(c.Request.Context(), userID(c), target, lenientInt(req.Amount, 0), req.Reason)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) SendTestEmail(c *gin.Context) {
	var req core.TestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.SendTestEmail(c.Request.Context(), userID(c), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) GetEmailSignature(c *gin.Context) {
	res, err := s.LeadBlitz.EmailSignature(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) SaveEmailSignature(c *gin.Context) {
	var req core.SignatureUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.SaveEmailSignature(c.Request.Context(), userID(c), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
