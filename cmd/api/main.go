package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"homesquare/internal/adapters/dataset"
	server "homesquare/internal/adapters/http_server"
	"homesquare/internal/adapters/kafka"
	"homesquare/internal/adapters/observability"
	"homesquare/internal/adapters/redfin"
	redisad "homesquare/internal/adapters/redis"
	"homesquare/internal/app"
	"homesquare/internal/domain"
	"homesquare/internal/shared"
	"homesquare/internal/storage/sqlrepo"
	"homesquare/internal/valuation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sqlrepo.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	defer db.Close()
	repo := sqlrepo.New(db, cfg.DBDriver)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure schema failed")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database connection ok")

	// prior snapshot, read-only for the life of the process
	prior, err := dataset.New(2).Resolve(ctx, cfg.PriorCSVPath, cfg.PriorCSVURL)
	if err != nil {
		log.Warn().Err(err).Msg("external prior unavailable, using local comps only")
	}
	engine := valuation.NewEngine(cfg.Policy, prior)
	log.Info().Int("zips", engine.PriorZips()).Msg("valuation engine ready")

	// optional collaborators
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, caching disabled")
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	var pub domain.ResultPublisher
	if cfg.KafkaAddr != "" {
		p := kafka.NewPublisher(cfg.KafkaAddr, cfg.KafkaTopic)
		defer p.Close()
		pub = p
	}
	pages := redfin.New(cfg.ChromeBin, cfg.ScrapeRPS, 0)
	defer pages.Close()

	// http
	srv := server.New(cfg.CORSOrigins, 90*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		A: app.NewAnalysisService(engine, cache, cfg.CacheTTL, pages, pub),
		S: app.NewSavedListingService(repo),
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
