package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/leadblitz/internal/core"
	"github.com/agenthands/leadblitz/internal/core/csvimport"
	"github.com/agenthands/leadblitz/internal/core/model"
)

type searchRequest struct {
	BusinessType string      `json:"business_type"`
	Location     string      `json:"location"`
	Limit        interface{} `json:"limit"`
	AutoScore    *bool       `json:"auto_score"`
}

func (s *Server) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	autoScore := true
	if req.AutoScore != nil {
		autoScore = *req.AutoScore
	}
	res, err := s.LeadBlitz.Search(c.Request.Context(), userID(c), core.SearchRequest{
		BusinessType: req.BusinessType,
		Location:     req.Location,
		Limit:        lenientInt(req.Limit, core.DefaultSearchLimit),
		AutoScore:    autoScore,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) LoadMore(c *gin.Context) {
	res, err := s.LeadBlitz.LoadMore(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ListLeads(c *gin.Context) {
	res, err := s.LeadBlitz.ListLeads(c.Request.Context(), userID(c), c.Query("view"), c.Query("campaign_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) UpdateLead(c *gin.Context) {
	var req model.LeadUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	lead, err := s.LeadBlitz.UpdateLead(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lead": lead})
}

func (s *Server) DeleteLead(c *gin.Context) {
	if err := s.LeadBlitz.DeleteLead(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Lead deleted"})
}

func (s *Server) ScoreBreakdown(c *gin.Context) {
	res, err := s.LeadBlitz.ScoreBreakdown(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) Duplicates(c *gin.Context) {
	res, err := s.LeadBlitz.Duplicates(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) CSVTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="leadblitz_import_template.csv"`)
	c.Data(http.StatusOK, "text/csv", []byte(s.LeadBlitz.CSVTemplate()))
}

func (s *Server) ImportCSV(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "A CSV file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.writeError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer f.Close()
	// One byte past the limit so the parser can report an oversized file.
	content, err := io.ReadAll(io.LimitReader(f, csvimport.MaxFileSize+1))
	if err != nil {
		s.writeError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	res, err := s.LeadBlitz.ImportCSV(c.Request.Context(), userID(c), fh.Filename, content)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ImportStatus(c *gin.Context) {
	res, err := s.LeadBlitz.ImportStatus(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ScoreLeads(c *gin.Context) {
	res, err := s.LeadBlitz.ScoreLeads(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ScoreLead(c *gin.Context) {
	res, err := s.LeadBlitz.ScoreLead(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ListCampaigns(c *gin.Context) {
	res, err := s.LeadBlitz.ListCampaigns(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) GetCampaign(c *gin.Context) {
	res, err := s.LeadBlitz.GetCampaign(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ActivateCampaign(c *gin.Context) {
	res, err := s.LeadBlitz.ActivateCampaign(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) DeleteCampaign(c *gin.Context) {
	if err := s.LeadBlitz.DeleteCampaign(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Campaign deleted"})
}

func (s *Server) ViewAll(c *gin.Context) {
	res, err := s.LeadBlitz.ViewAll(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) Stats(c *gin.Context) {
	res, err := s.LeadBlitz.Stats(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) Analytics(c *gin.Context) {
	res, err := s.LeadBlitz.Analytics(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) Export(c *gin.Context) {
	var buf bytes.Buffer
	contentType, name, err := s.LeadBlitz.Export(c.Request.Context(), userID(c), c.Query("format"), &buf)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
