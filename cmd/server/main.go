package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"leadflow/internal/api"
	"leadflow/internal/api/handlers"
	"leadflow/internal/engine/automation"
	"leadflow/internal/engine/webhooks"
	"leadflow/internal/pkg/logger"
	"leadflow/internal/platform/config"
	"leadflow/internal/platform/database"
	"leadflow/internal/platform/email"
	"leadflow/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	// Repositories
	ruleRepo := repositories.NewRuleRepository(db)
	webhookRepo := repositories.NewWebhookRepository(db)
	leadRepo := repositories.NewLeadRepository(db)
	execLogRepo := repositories.NewExecutionLogRepository(db)
	webhookLogRepo := repositories.NewWebhookLogRepository(db)

	// Engine
	mailer := email.NewSender(cfg.Email)
	registry := automation.NewRegistry(ruleRepo)
	executor := automation.NewExecutor(leadRepo, mailer, cfg.Engine.ActionTimeout)
	evaluator := automation.NewEvaluator(registry, executor, execLogRepo)
	dispatcher := webhooks.NewDispatcher(webhookRepo, webhookLogRepo, cfg.Webhooks.DeliveryTimeout)
	scheduler := automation.NewScheduler(registry, evaluator, leadRepo, dispatcher, cfg.Engine.DefaultCron)

	// Initial load: rules, subscriptions, time-based jobs
	if err := registry.Reload(); err != nil {
		log.Fatal().Err(err).Msg("failed to load automation rules")
	}
	if err := dispatcher.Reload(); err != nil {
		log.Fatal().Err(err).Msg("failed to load webhook subscriptions")
	}
	if err := scheduler.Reload(); err != nil {
		log.Fatal().Err(err).Msg("failed to install time triggers")
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().
		Int("rules", len(registry.Rules())).
		Int("webhooks", len(dispatcher.Subscriptions())).
		Int("time_jobs", len(scheduler.Jobs())).
		Msg("automation engine loaded")

	// Handlers
	deps := &api.Dependencies{
		LeadHandler:    handlers.NewLeadHandler(leadRepo, evaluator, dispatcher),
		RuleHandler:    handlers.NewRuleHandler(ruleRepo, registry, scheduler, evaluator),
		WebhookHandler: handlers.NewWebhookHandler(webhookRepo, dispatcher),
		LogHandler:     handlers.NewLogHandler(execLogRepo, webhookLogRepo),
		HealthHandler:  handlers.NewHealthHandler(db),
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	server.Close()
}
