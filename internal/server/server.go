package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/config"
	"github.com/agenthands/leadblitz/internal/core"
	"github.com/agenthands/leadblitz/internal/core/auth"
	"github.com/agenthands/leadblitz/internal/logging"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	LeadBlitz *core.LeadBlitz
	Auth      *auth.Service
	DB        Pinger
	Config    *config.Config
	Logger    *zap.Logger
}

func NewServer(lb *core.LeadBlitz, a *auth.Service, db Pinger, cfg *config.Config, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{LeadBlitz: lb, Auth: a, DB: db, Config: cfg, Logger: logger}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(logging.GinMiddleware(s.Logger), gin.Recovery())

	r.GET("/health", s.Health)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", s.Register)
	authGroup.POST("/login", s.Login)
	authGroup.POST("/logout", s.Logout)
	authGroup.POST("/forgot-password", s.ForgotPassword)
	authGroup.POST("/reset-password", s.ResetPassword)
	authGroup.GET("/me", s.RequireUser, s.Me)

	api := r.Group("/api", s.RequireUser)

	api.POST("/search", s.Search)
	api.POST("/load-more-leads", s.LoadMore)

	api.GET("/leads", s.ListLeads)
	api.GET("/leads/csv-template", s.CSVTemplate)
	api.GET("/leads/duplicates", s.Duplicates)
	api.POST("/leads/import-csv", s.ImportCSV)
	api.GET("/leads/import-status/:id", s.ImportStatus)
	api.GET("/leads/:id/score-breakdown", s.ScoreBreakdown)
	api.PATCH("/leads/:id", s.UpdateLead)
	api.DELETE("/leads/:id", s.DeleteLead)

	api.POST("/score-leads", s.ScoreLeads)
	api.POST("/score-lead/:id", s.ScoreLead)

	api.GET("/campaigns", s.ListCampaigns)
	api.POST("/campaigns/view-all", s.ViewAll)
	api.GET("/campaigns/:id", s.GetCampaign)
	api.POST("/campaigns/:id/activate", s.ActivateCampaign)
	api.DELETE("/campaigns/:id", s.DeleteCampaign)

	api.GET("/stats", s.Stats)
	api.GET("/analytics", s.Analytics)
	api.GET("/export", s.Export)

	api.POST("/preview-emails", s.PreviewEmails)
	api.POST("/send-emails", s.SendEmails)
	api.POST("/send-single-email", s.SendSingleEmail)
	api.POST("/generate-personalized", s.GeneratePersonalized)
	api.POST("/preview-sms", s.PreviewSMS)
	api.POST("/send-sms", s.SendSMS)

	api.POST("/enrich-from-website", s.EnrichFromWebsite)
	api.POST("/enrich-from-hunter", s.EnrichFromHunter)

	api.GET("/email-templates", s.ListTemplates)
	api.POST("/email-templates", s.SaveTemplate)
	api.DELETE("/email-templates/:id", s.DeleteTemplate)

	api.GET("/user/api-keys", s.GetAPIKeys)
	api.PUT("/user/api-keys", s.UpdateAPIKeys)
	api.POST("/email/settings/smtp", s.ConfigureSMTP)
	api.POST("/email/settings/sendgrid", s.ConfigureSendGrid)
	api.GET("/email/settings/status", s.EmailStatus)
	api.DELETE("/email/settings/disconnect", s.DisconnectEmail)
	api.POST("/email/test", s.SendTestEmail)
	api.GET("/email-signature", s.GetEmailSignature)
	api.POST("/email-signature", s.SaveEmailSignature)

	api.GET("/credits", s.Credits)
	api.GET("/credits/transactions", s.Transactions)
	api.POST("/admin/credits/add", s.RequireAdmin, s.AdminAddCredits)

	return r
}

func (s *Server) Health(c *gin.Context) {
	if s.DB != nil {
		if err := s.DB.Ping(c.Request.Context()); err != nil {
			s.Logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
