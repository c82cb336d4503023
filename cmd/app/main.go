package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymflow/internal/class"
	"gymflow/internal/config"
	"gymflow/internal/db"
	"gymflow/internal/gateway"
	"gymflow/internal/jobs"
	"gymflow/internal/logger"
	"gymflow/internal/membership"
	"gymflow/internal/notify"
	"gymflow/internal/payment"
	"gymflow/internal/server"
	"gymflow/internal/tenant"
	"gymflow/internal/waitlist"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	smsSender := notify.NewSMSSender(cfg.SMSEndpoint, cfg.SMSAPIKey)
	notifier := notify.New(cfg.RedisAddr, smsSender)
	defer notifier.Close()

	notifyCtx, stopNotify := context.WithCancel(context.Background())
	defer stopNotify()
	go notifier.Start(notifyCtx)

	gw := gateway.NewHTTPClient(cfg.GatewayBaseURL, cfg.GatewayAccessToken)

	tenantRepo := tenant.NewRepository(database)
	membershipRepo := membership.NewRepository(database)
	classRepo := class.NewRepository(database)
	waitlistRepo := waitlist.NewRepository(database)
	paymentRepo := payment.NewRepository(database)

	waitlistService := waitlist.NewService(waitlistRepo, notifier)
	membershipService := membership.NewService(membershipRepo, tenantRepo, gw, notifier, cfg.WebhookBaseURL)
	classService := class.NewService(classRepo, waitlistService, notifier)

	reconciler := payment.NewReconciler(gw, membershipRepo, tenantRepo, paymentRepo, notifier)
	retries := payment.NewRetryScheduler(paymentRepo, gw, notifier)

	scheduler, err := jobs.NewScheduler(retries, time.Duration(cfg.RetrySweepHours)*time.Hour)
	if err != nil {
		logger.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Errorf("Failed to stop job scheduler: %v", err)
		}
	}()

	srv := server.New(database, cfg, server.Deps{
		Memberships: membershipService,
		Classes:     classService,
		Waitlists:   waitlistService,
		Payments:    paymentRepo,
		Reconciler:  reconciler,
		Retries:     retries,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down")
		stopNotify()
		os.Exit(0)
	}()

	logger.Infof("Starting server on port %s", cfg.Port)
	if err := srv.Start(cfg.Port); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}
