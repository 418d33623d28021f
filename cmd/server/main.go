package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parite/internal/archive"
	declarationService "parite/internal/declaration/service"
	declarationStore "parite/internal/declaration/store"
	"parite/internal/emails"
	"parite/internal/platform/config"
	"parite/internal/platform/httpserver"
	"parite/internal/platform/logger"
	"parite/internal/platform/metrics"
	"parite/internal/platform/postgres"
	"parite/internal/schema"
	"parite/internal/search"
	"parite/internal/simulation"
	"parite/internal/tokens"
	httptransport "parite/internal/transport/http"
)

// main wires the dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	def, err := schema.Default()
	if err != nil {
		log.Error("parse declaration schema", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	var sender emails.Sender = &emails.LogSender{Logger: log}
	if cfg.SendEmails {
		sender = &emails.SMTPSender{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Login:    cfg.SMTP.Login,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			SSL:      cfg.SMTP.SSL,
		}
	}
	mailer := emails.New(sender)

	declarations := declarationStore.NewPostgres(pool)
	searchService, err := search.New(search.NewPostgres(pool), search.WithLogger(log))
	if err != nil {
		log.Error("create search service", "error", err)
		os.Exit(1)
	}
	service, err := declarationService.New(declarations, def, cfg.Years,
		declarationService.WithLogger(log),
		declarationService.WithMetrics(m),
		declarationService.WithIndexer(searchService),
		declarationService.WithArchiver(archive.NewPostgres(pool)),
		declarationService.WithNotifier(mailer),
		declarationService.WithStaff(cfg.Staff),
	)
	if err != nil {
		log.Error("create declaration service", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Metrics:      m,
		Declarations: service,
		Simulations:  simulation.NewPostgres(pool),
		Search:       searchService,
		Tokens:       tokens.New(cfg.JWTSigningKey),
		Mailer:       mailer,
		Schema:       def,
		Years:        cfg.Years,
		SiteURL:      cfg.SiteURL,
		AllowedIPs:   cfg.AllowedIPs,
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting server", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
