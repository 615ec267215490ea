// @title EventEase Lottery API
// @version 1.0
// @description Waitlist, lottery selection and invitation lifecycle for EventEase events.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventease/config"
	"eventease/internal/adapters/auth"
	"eventease/internal/adapters/email"
	"eventease/internal/adapters/notify"
	deliveryhttp "eventease/internal/delivery/http"
	"eventease/internal/delivery/http/controllers"
	"eventease/internal/domain"
	"eventease/internal/lease"
	"eventease/internal/platform/otel"
	"eventease/internal/repository/postgres"
	"eventease/internal/scheduler"
	"eventease/internal/services"
)

func main() {
	logger := config.NewLogger()
	if err := run(logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, "eventease", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", "err", err)
		}
	}()

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	logger.Info("database ready")

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	entrantRepo := postgres.NewEntrantRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)
	notificationRepo := postgres.NewNotificationRequestRepository(db)
	preferenceRepo := postgres.NewNotificationPreferenceRepository(db)
	store := postgres.NewLotteryStore(db)

	// Organizer summary e-mail
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SendTimeout: cfg.Mailer.SendTimeout,
		SES: email.SESConfig{
			Region:             cfg.Mailer.SESRegion,
			AccessKeyID:        cfg.Mailer.SESAccessKeyID,
			SecretAccessKey:    cfg.Mailer.SESSecretAccessKey,
			InsecureSkipVerify: cfg.Mailer.SESInsecureSkipVerify,
		},
	})
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("init email templates: %w", err)
	}
	emailService := services.NewEmailService(mailer, renderer)

	// Notification outbox relay
	var publisher domain.NotificationPublisher = &notify.LogPublisher{Logger: logger}
	if cfg.RabbitURL != "" {
		p, err := notify.NewPublisher(cfg.RabbitURL, cfg.NotificationExchange)
		if err != nil {
			return fmt.Errorf("init notification publisher: %w", err)
		}
		defer p.Close()
		publisher = p
		logger.Info("publishing notifications", "exchange", cfg.NotificationExchange)
	}
	relay := notify.NewRelay(notificationRepo, publisher, logger)

	// Services
	leases := lease.NewRegistry()
	lotteryService := services.NewLotteryService(store, eventRepo, leases, emailService, logger, cfg.ServiceTimeout)
	replacer := services.NewAsyncReplacer(lotteryService, logger)
	invitationService := services.NewInvitationService(store, invitationRepo, eventRepo, leases, replacer, logger, cfg.ServiceTimeout)
	waitlistService := services.NewWaitlistService(store, eventRepo, entrantRepo, logger, cfg.ServiceTimeout)
	eventService := services.NewEventService(eventRepo, cfg.ServiceTimeout)
	preferenceService := services.NewNotificationPreferenceService(preferenceRepo, cfg.ServiceTimeout)

	sched := scheduler.New(lotteryService, eventRepo, relay, cfg.SchedulerInterval, logger, scheduler.WithLeases(leases))

	router := deliveryhttp.NewRouter(deliveryhttp.Controllers{
		Events:      controllers.NewEventController(logger, eventService),
		Lottery:     controllers.NewLotteryController(logger, lotteryService),
		Waitlist:    controllers.NewWaitlistController(logger, waitlistService),
		Invitations: controllers.NewInvitationController(logger, invitationService),
		Preferences: controllers.NewPreferenceController(logger, preferenceService),
	}, auth.NewJWTVerifier(cfg.JWTSecret), logger, cfg.CORSOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Start(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		stop()
		<-schedDone
		replacer.Wait()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "err", err)
	}
	<-schedDone
	replacer.Wait()
	logger.Info("server stopped cleanly")
	return nil
}
