package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"platewatch-go/config"
	"platewatch-go/internal/api/handlers"
	"platewatch-go/internal/cleanup"
	"platewatch-go/internal/db"
	"platewatch-go/internal/db/repository"
	"platewatch-go/internal/integrations/mqtt"
	"platewatch-go/internal/logger"
	"platewatch-go/internal/notifier"
	"platewatch-go/internal/server/ws"
	"platewatch-go/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const defaultConfigPath = "/config/config.yaml"

func main() {
	configPath := os.Getenv("PLATEWATCH_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Konfiguration laden
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Logger initialisieren
	if err := logger.Init(cfg.Log); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	// Datenbankverbindung initialisieren
	log.Info("Initializing database...")
	gormDB, err := db.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	repo := repository.NewSQLiteRepository(gormDB)

	// Attachment-Store für Bildanhänge
	attachmentStore, err := storage.NewStore(cfg.Server.SnapshotDir)
	if err != nil {
		log.Fatalf("Failed to initialize attachment store: %v", err)
	}

	// Benachrichtigungs-Hub
	notifierHub := notifier.NewHub()

	// Optionaler MQTT-Spiegel
	var mqttPublisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		mqttPublisher = mqtt.NewPublisher(cfg.MQTT)
		if err := mqttPublisher.Start(); err != nil {
			log.Warnf("Failed to start MQTT publisher: %v. Continuing without MQTT.", err)
			mqttPublisher = nil
		}
	} else {
		log.Info("MQTT mirror is disabled in config.")
	}

	// Bereinigungsdienst für alte Events
	cleanupService := cleanup.NewService(repo, attachmentStore, cfg.Cleanup.RetentionDays, 24*time.Hour)
	if cleanupService != nil {
		cleanupService.StartBackgroundCleanup()
	}

	// Dashboard-Hub
	dashboardHub := ws.NewHub(repo, notifierHub, time.Duration(cfg.Dashboard.SnapshotIntervalSeconds)*time.Second)

	// --- Router aufbauen ---
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	api := router.Group("/api")
	handlers.NewIngestHandler(repo, attachmentStore, notifierHub, mqttPublisher).RegisterRoutes(api)
	handlers.NewSiteHandler(repo, notifierHub).RegisterRoutes(api)
	handlers.NewCameraHandler(repo, notifierHub).RegisterRoutes(api)
	handlers.NewEventHandler(repo).RegisterRoutes(api)
	handlers.NewSystemHandler(repo).RegisterRoutes(api)

	wsGroup := router.Group("/ws")
	dashboardHub.RegisterRoutes(wsGroup)

	// Gespeicherte Bildanhänge read-only ausliefern
	router.StaticFS(cfg.Server.SnapshotURL, http.Dir(cfg.Server.SnapshotDir))
	log.Infof("Serving snapshots from %s under %s", cfg.Server.SnapshotDir, cfg.Server.SnapshotURL)

	// --- Server starten ---
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		log.Infof("Starting server on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Auf Shutdown-Signal warten
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}

	// Dashboard-Sitzungen und Hintergrunddienste beenden
	dashboardHub.Shutdown()
	notifierHub.Close()
	if cleanupService != nil {
		cleanupService.StopBackgroundCleanup()
	}
	if mqttPublisher != nil {
		mqttPublisher.Stop()
	}

	log.Info("Server stopped.")
}
