package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/classifier"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/config"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/eventbus"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/notifier"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/publisher"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/repository"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/secrets"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/server"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/service"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/watcher"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn("Could not load .env file.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err).Fatal("Could not load configuration")
	}

	log.Info("Starting database migration...")
	m, err := migrate.New("file://db/migrations", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not create migrate instance")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.WithField("error", err).Fatal("Could not apply migration")
	}
	log.Info("Database migration finished successfully.")

	db, err := sql.Open("postgres", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not connect to the database")
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DB.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		log.WithField("error", err).Fatal("Could not ping the database")
	}
	log.Info("Successfully connected to the PostgreSQL database.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve credentials through the secret store by symbolic name
	secretManager := secrets.NewEnvManager()

	perspectiveKey, err := secretManager.GetSecret(ctx, cfg.Perspective.APIKeySecret)
	if err != nil {
		log.WithField("error", err).Fatal("Could not resolve Perspective API key")
	}

	discordToken, err := secretManager.GetSecret(ctx, cfg.Discord.BotTokenSecret)
	if err != nil {
		log.WithField("error", err).Fatal("Could not resolve Discord bot token")
	}

	// Create repositories
	creatorRepository := repository.NewPostgresCreatorRepository(db)
	editHistoryRepository := repository.NewPostgresEditHistoryRepository(db)

	// Create notification bus and delivery
	bus := eventbus.New()
	discordClient := notifier.NewDiscordClient(discordToken)
	discordNotifier := notifier.New(discordClient, map[domain.EventKind]string{
		domain.EventDiscordNotification: cfg.Discord.NotificationChannelID,
		domain.EventEmergencyAlert:      cfg.Discord.EmergencyChannelID,
		domain.EventCommandReply:        cfg.Discord.ReplyChannelID,
	}, cfg.Discord.DefaultChannelID)
	discordNotifier.Register(bus)

	// Create audit trail publisher (optional)
	var auditService *service.ModerationAuditService
	if cfg.Kafka.BootstrapServers != "" {
		auditPublisher, err := publisher.NewAuditPublisher(cfg.Kafka.BootstrapServers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.WithField("error", err).Fatal("Could not create audit publisher")
		}
		defer auditPublisher.Close()
		auditService = service.NewModerationAuditService(auditPublisher)
	} else {
		log.Warn("KAFKA_BOOTSTRAP_SERVERS not set, moderation audit trail disabled")
	}

	// Create detection pipeline
	perspectiveClient := classifier.NewPerspectiveClient(perspectiveKey, cfg.Perspective.BaseURL, cfg.Perspective.Language)
	analysisService := service.NewAnalysisService(perspectiveClient)
	revertService := service.NewRevertService(creatorRepository, editHistoryRepository)
	detectionService := service.NewDetectionService(analysisService, revertService, bus, auditService, cfg.Guardian)

	// Create change watcher
	feed := watcher.NewPostgresFeed(cfg.DB.URL, editHistoryRepository)
	editWatcher := watcher.New(feed, detectionService)

	if err := editWatcher.Initialize(ctx); err != nil {
		log.WithField("error", err).Fatal("Could not initialize edit history watcher")
	}
	if err := editWatcher.StartMonitoring(ctx); err != nil {
		log.WithField("error", err).Fatal("Could not start edit history monitoring")
	}

	// Setup Echo ops surface
	srv := server.NewServer(editHistoryRepository, db)

	e := echo.New()
	e.HideBanner = true

	e.GET("/health", srv.HealthCheck)

	api := e.Group("/api")
	edits := api.Group("/edits")
	edits.GET("", srv.ListEditHistories)
	edits.GET("/:id", srv.GetEditHistory)

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Guardian ops server is starting with Echo")
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.WithField("error", err).Fatal("Echo server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, stopping guardian...")

	editWatcher.StopMonitoring()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithField("error", err).Error("Echo server shutdown failed")
	}

	log.Info("Guardian stopped.")
}
