// Package core is the LeadBlitz service: every user-facing operation of the
// dashboard, scoped by user id, on top of the store and the domain packages.
package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/config"
	"github.com/agenthands/leadblitz/internal/core/auth"
	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/csvimport"
	"github.com/agenthands/leadblitz/internal/core/enrich"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/outreach"
	"github.com/agenthands/leadblitz/internal/core/places"
	"github.com/agenthands/leadblitz/internal/graph"
)

// Store is the persistence the service needs. *store.Store implements it.
type Store interface {
	csvimport.Store
	InsertLeads(ctx context.Context, leads []*model.Lead) error
	UpdateLead(ctx context.Context, l *model.Lead) error
	UpdateLeadContact(ctx context.Context, l *model.Lead) error
	SetLeadStage(ctx context.Context, userID, id string, stage model.Stage) error
	DeleteLead(ctx context.Context, userID, id string) error
	LeadWebsites(ctx context.Context, userID string) ([]string, error)

	CreateCampaign(ctx context.Context, c *model.Campaign) error
	GetCampaign(ctx context.Context, userID, id string) (*model.Campaign, error)
	FindCampaign(ctx context.Context, userID, businessType, location string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, userID string) ([]*model.Campaign, error)
	SetNextPageToken(ctx context.Context, id, token string) error
	DeleteCampaign(ctx context.Context, userID, id string) error

	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SetActiveCampaign(ctx context.Context, userID, campaignID string) error
	IncrementSent(ctx context.Context, userID string, emails, sms int) error

	CreateImport(ctx context.Context, imp *model.CsvImport) error

	ListTemplates(ctx context.Context, userID string) ([]*model.EmailTemplate, error)
	SaveTemplate(ctx context.Context, t *model.EmailTemplate) error
	DeleteTemplate(ctx context.Context, userID, id string) error

	GetSettings(ctx context.Context, userID string) (*model.UserSettings, error)
	SaveSettings(ctx context.Context, st *model.UserSettings) error
	GetSignature(ctx context.Context, userID string) (*model.EmailSignature, error)
	SaveSignature(ctx context.Context, sig *model.EmailSignature) error
}

// PlaceSearcher finds businesses. *places.Client implements it.
type PlaceSearcher interface {
	Configured() bool
	Search(ctx context.Context, businessType, location string, limit int, pageToken string) (*places.Page, error)
}

// ContactExtractor scrapes contact details from a website.
type ContactExtractor interface {
	Extract(ctx context.Context, website string) *enrich.Findings
}

// EmailFinder looks up addresses for a domain.
type EmailFinder interface {
	DomainSearch(ctx context.Context, apiKey, domain string, max int) ([]enrich.HunterEmail, error)
}

type Deps struct {
	Store        Store
	Credits      *credits.Service
	Places       PlaceSearcher
	Scorer       csvimport.Scorer
	Enricher     ContactExtractor
	Hunter       EmailFinder
	Personalizer *outreach.Personalizer
	Secrets      *auth.Box
	Mirror       *graph.Mirror
	Config       *config.Config
	Logger       *zap.Logger
}

type LeadBlitz struct {
	store        Store
	credits      *credits.Service
	places       PlaceSearcher
	scorer       csvimport.Scorer
	enricher     ContactExtractor
	hunter       EmailFinder
	personalizer *outreach.Personalizer
	secrets      *auth.Box
	mirror       *graph.Mirror
	cfg          *config.Config
	logger       *zap.Logger

	// Background jobs run on ctx and are drained by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

func New(d Deps) *LeadBlitz {
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LeadBlitz{
		store:        d.Store,
		credits:      d.Credits,
		places:       d.Places,
		scorer:       d.Scorer,
		enricher:     d.Enricher,
		hunter:       d.Hunter,
		personalizer: d.Personalizer,
		secrets:      d.Secrets,
		mirror:       d.Mirror,
		cfg:          cfg,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// background runs fn on its own goroutine with the service's root context.
func (s *LeadBlitz) background(name string, fn func(ctx context.Context)) {
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("background job panicked", zap.String("job", name), zap.Any("panic", r))
			}
		}()
		fn(s.ctx)
	}()
}

// Shutdown waits for background jobs. When ctx ends first the jobs are
// cancelled and ctx's error is returned once they have exited.
func (s *LeadBlitz) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (s *LeadBlitz) mirrorLeads(ctx context.Context, leads []*model.Lead) {
	if s.mirror == nil || len(leads) == 0 {
		return
	}
	if err := s.mirror.SaveLeads(ctx, leads); err != nil {
		s.logger.Warn("failed to mirror leads", zap.Int("leads", len(leads)), zap.Error(err))
	}
}

func (s *LeadBlitz) mirrorCampaign(ctx context.Context, c *model.Campaign) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SaveCampaign(ctx, c); err != nil {
		s.logger.Warn("failed to mirror campaign", zap.String("campaign_id", c.ID), zap.Error(err))
	}
}
