package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"partyup/config"
	"partyup/handlers"
	_ "partyup/migrations"
	"partyup/monitoring"
	"partyup/realtime"
	"partyup/services"
	"partyup/utils"
)

func Start() error {
	app := pocketbase.New()

	cfg := config.LoadConfig()

	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	monitor := monitoring.NewMonitor(redisClient)
	notifier := services.NewNotifier(pn)
	policy := services.NewSchedulingPolicy(cfg)

	eventService := services.NewEventService(redisClient, notifier, policy, cfg)
	admissionService := services.NewAdmissionService(redisClient, notifier, eventService, monitor, cfg)
	ledger := services.NewDonationLedger(eventService, monitor)
	leaderboard := services.NewLeaderboardService(redisClient, eventService, cfg)
	friends := services.NewFriendService(notifier)
	scheduler := services.NewLifecycleScheduler(eventService, monitor, cfg)

	eventHandler := handlers.NewEventHandler(app, eventService)
	admissionHandler := handlers.NewAdmissionHandler(app, admissionService)
	donationHandler := handlers.NewDonationHandler(app, ledger, redisClient, cfg)
	leaderboardHandler := handlers.NewLeaderboardHandler(app, leaderboard)
	friendHandler := handlers.NewFriendHandler(app, friends)

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eventService.RestoreEvents(ctx); err != nil {
		slog.Warn("event state restore failed", "error", err)
	}

	scheduler.Start()
	admissionService.StartPositionUpdater()

	realtimeServer := realtime.NewServer(eventService, redisClient, cfg)
	go func() {
		if err := realtimeServer.Start(); err != nil {
			log.Printf("Realtime gate stopped: %v", err)
		}
	}()

	if cfg.EnableMetrics {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	go handleShutdown(cancel, func() {
		scheduler.Shutdown()
		admissionService.Shutdown()
		realtimeServer.Shutdown(context.Background())
	})

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Event lifecycle
		e.Router.POST("/api/events", eventHandler.Create)
		e.Router.GET("/api/events", eventHandler.List)
		e.Router.GET("/api/events/{id}", eventHandler.Get)
		e.Router.POST("/api/events/{id}/cancel", eventHandler.Cancel)
		e.Router.POST("/api/events/{id}/postpone", eventHandler.Postpone)

		// Admission
		e.Router.POST("/api/events/{id}/join", admissionHandler.Join)
		e.Router.POST("/api/events/{id}/leave", admissionHandler.Leave)
		e.Router.GET("/api/events/{id}/queue-position", admissionHandler.QueuePosition)

		// Donations
		e.Router.POST("/api/events/{id}/donations", donationHandler.Pledge)
		e.Router.GET("/api/events/{id}/donations/totals", donationHandler.Totals)
		e.Router.POST("/api/donations/webhook", donationHandler.Webhook)

		// Leaderboard
		e.Router.POST("/api/events/{id}/score", leaderboardHandler.RecordAction)
		e.Router.GET("/api/events/{id}/leaderboard", leaderboardHandler.Leaderboard)

		// Friend requests
		e.Router.POST("/api/friends/requests", friendHandler.Send)
		e.Router.POST("/api/friends/requests/{id}/respond", friendHandler.Respond)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	return app.Start()
}

// handleShutdown stops background workers on SIGINT/SIGTERM.
func handleShutdown(cancel context.CancelFunc, stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
	stop()
}
