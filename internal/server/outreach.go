package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/leadblitz/internal/core"
)

type emailRequest struct {
	SubjectTemplate    string      `json:"subject_template"`
	BodyTemplate       string      `json:"body_template"`
	OnlyScoredAbove    interface{} `json:"only_scored_above"`
	StageFilter        string      `json:"stage_filter"`
	IncludeScoreReport bool        `json:"include_score_report"`
	LeadIDs            []string    `json:"lead_ids"`
}

type smsRequest struct {
	MessageTemplate string      `json:"message_template"`
	OnlyScoredAbove interface{} `json:"only_scored_above"`
	StageFilter     string      `json:"stage_filter"`
	LeadIDs         []string    `json:"lead_ids"`
}

type personalizeRequest struct {
	LeadID    string `json:"lead_id"`
	BasePitch string `json:"base_pitch"`
}

type enrichRequest struct {
	LeadIDs      []string    `json:"lead_ids"`
	MaxPerDomain interface{} `json:"max_per_domain"`
}

func (s *Server) PreviewEmails(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.PreviewEmails(c.Request.Context(), userID(c), req.SubjectTemplate, req.BodyTemplate)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) SendEmails(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.SendEmails(c.Request.Context(), userID(c), core.EmailRequest{
		SubjectTemplate:    req.SubjectTemplate,
		BodyTemplate:       req.BodyTemplate,
		OnlyScoredAbove:    optionalInt(req.OnlyScoredAbove),
		StageFilter:        req.StageFilter,
		IncludeScoreReport: req.IncludeScoreReport,
		LeadIDs:            req.LeadIDs,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) SendSingleEmail(c *gin.Context) {
	var req core.SingleEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.SendSingleEmail(c.Request.Context(), userID(c), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) GeneratePersonalized(c *gin.Context) {
	var req personalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.GeneratePersonalized(c.Request.Context(), userID(c), req.LeadID, req.BasePitch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) PreviewSMS(c *gin.Context) {
	var req smsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.PreviewSMS(c.Request.Context(), userID(c), req.MessageTemplate)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) SendSMS(c *gin.Context) {
	var req smsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := s.LeadBlitz.SendSMS(c.Request.Context(), userID(c), core.SMSRequest{
		MessageTemplate: req.MessageTemplate,
		OnlyScoredAbove: optionalInt(req.OnlyScoredAbove),
		StageFilter:     req.StageFilter,
		LeadIDs:         req.LeadIDs,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// bindOptional accepts an empty body as the zero request.
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "Invalid request")
		return false
	}
	return true
}

func (s *Server) EnrichFromWebsite(c *gin.Context) {
	var req enrichRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := s.LeadBlitz.EnrichFromWebsite(c.Request.Context(), userID(c), req.LeadIDs)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) EnrichFromHunter(c *gin.Context) {
	var req enrichRequest
	if !bindOptional(c, &req) {
		return
	}
	perDomain := lenientInt(req.MaxPerDomain, core.DefaultPerDomain)
	res, err := s.LeadBlitz.EnrichFromHunter(c.Request.Context(), userID(c), req.LeadIDs, perDomain)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
