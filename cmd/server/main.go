package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/config"
	"github.com/agenthands/leadblitz/internal/core"
	"github.com/agenthands/leadblitz/internal/core/auth"
	"github.com/agenthands/leadblitz/internal/core/cache"
	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/csvimport"
	"github.com/agenthands/leadblitz/internal/core/enrich"
	"github.com/agenthands/leadblitz/internal/core/fetch"
	"github.com/agenthands/leadblitz/internal/core/outreach"
	"github.com/agenthands/leadblitz/internal/core/places"
	"github.com/agenthands/leadblitz/internal/core/scoring"
	"github.com/agenthands/leadblitz/internal/driver"
	"github.com/agenthands/leadblitz/internal/graph"
	"github.com/agenthands/leadblitz/internal/llm"
	"github.com/agenthands/leadblitz/internal/logging"
	"github.com/agenthands/leadblitz/internal/server"
	"github.com/agenthands/leadblitz/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.toml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer st.Close()

	ledger := credits.NewService(st, cfg.Auth.SignupCredits)

	var llmClient llm.LLMClient
	if cfg.HasLLM() {
		llmClient, err = llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			logger.Fatal("failed to create llm client", zap.Error(err))
		}
		logger.Info("llm enabled", zap.String("provider", cfg.LLM.Provider), zap.String("model", cfg.LLM.Model))
	}

	fetcher := fetch.New(fetch.Options{
		Timeout: time.Duration(cfg.Scoring.FetchTimeout) * time.Second,
		Retries: cfg.Scoring.FetchRetries,
	})

	var scorer csvimport.Scorer
	if strings.EqualFold(cfg.Scoring.Mode, "quick") {
		quick := scoring.NewQuickScorer(time.Duration(cfg.Scoring.FetchTimeout)*time.Second, cfg.Scoring.QuickMaxBodySize)
		scorer = scoring.QuickPipeline{Quick: quick}
	} else {
		sc := scoring.ScorerConfig{
			Fetcher:  fetcher,
			Cache:    scoreCache(ctx, cfg, st, logger),
			MaxPages: cfg.Scoring.MaxPages,
			Logger:   logger.Named("scoring"),
		}
		if llmClient != nil {
			sc.Reviewer = scoring.NewAIReviewer(llmClient, cfg.Prompts)
		}
		if cfg.Scoring.Render {
			renderer := fetch.NewRodRenderer(cfg.Scoring.BrowserBin, time.Duration(cfg.Scoring.RenderTimeout)*time.Second, logger.Named("render"))
			defer renderer.Close()
			sc.Renderer = renderer
		}
		scorer = scoring.NewScorer(sc)
	}

	deps := core.Deps{
		Store:    st,
		Credits:  ledger,
		Scorer:   scorer,
		Enricher: enrich.NewWebsiteEnricher(fetcher),
		Hunter:   enrich.NewHunter(cfg.Hunter.BaseURL),
		Config:   cfg,
		Logger:   logger,
	}
	if cfg.Places.APIKey != "" {
		deps.Places = places.NewClient(places.Options{
			APIKey:  cfg.Places.APIKey,
			BaseURL: cfg.Places.BaseURL,
			Workers: cfg.Concurrency.Places,
			Logger:  logger.Named("places"),
		})
	} else {
		logger.Warn("GOOGLE_MAPS_API_KEY not set; search is disabled")
	}
	if llmClient != nil {
		deps.Personalizer = outreach.NewPersonalizer(llmClient, cfg.Prompts)
	}
	if cfg.Auth.SecretKey != "" {
		box, err := auth.NewBox(cfg.Auth.SecretKey)
		if err != nil {
			logger.Fatal("failed to create secret box", zap.Error(err))
		}
		deps.Secrets = box
	} else {
		logger.Warn("LEADBLITZ_SECRET_KEY not set; user credentials are stored unencrypted")
	}
	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, logger.Named("memgraph"))
		if err != nil {
			logger.Fatal("failed to connect to memgraph", zap.Error(err))
		}
		defer d.Close(context.Background())
		mirror := graph.NewMirror(d, logger.Named("graph"))
		if err := mirror.BuildIndices(ctx); err != nil {
			logger.Warn("failed to build graph indices", zap.Error(err))
		}
		deps.Mirror = mirror
	}
	svc := core.New(deps)

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}
	tokens, err := auth.NewTokens(jwtSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	if err != nil {
		logger.Fatal("failed to create token signer", zap.Error(err))
	}
	authSvc := auth.NewService(st, tokens, ledger, cfg.Auth.AdminEmails)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	srv := server.NewServer(svc, authSvc, st, cfg, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr), zap.String("scoring_mode", cfg.Scoring.Mode))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("background jobs did not finish", zap.Error(err))
	}
}

// scoreCache prefers Redis and falls back to the SQL table.
func scoreCache(ctx context.Context, cfg *config.Config, st *store.Store, logger *zap.Logger) cache.Cache {
	ttl := time.Duration(cfg.Scoring.CacheTTLHours) * time.Hour
	if cfg.Redis.URL != "" {
		client, err := cache.DialRedis(ctx, cfg.Redis.URL)
		if err == nil {
			logger.Info("score cache: redis")
			return cache.NewRedisCache(client, ttl)
		}
		logger.Warn("redis unavailable, using sql score cache", zap.Error(err))
	}
	return cache.NewSQLCache(st, ttl)
}
