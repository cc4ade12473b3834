package handlers

import (
	"net/http"
	"runtime"
	"time"

	"platewatch-go/internal/db/repository"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	log "github.com/sirupsen/logrus"
)

// SystemHandler liefert System- und Anwendungsstatus für Betrieb und Debugging
type SystemHandler struct {
	repo      repository.Repository
	startedAt time.Time
}

// NewSystemHandler erstellt einen neuen System-Handler
func NewSystemHandler(repo repository.Repository) *SystemHandler {
	return &SystemHandler{
		repo:      repo,
		startedAt: time.Now(),
	}
}

// RegisterRoutes registriert die System-Routen
func (h *SystemHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)
}

// GetStatus gibt den Systemstatus zurück
func (h *SystemHandler) GetStatus(c *gin.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// CPU-Auslastung über ein kurzes Messfenster
	cpuUsage := 0.0
	if percentages, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		log.Debugf("Failed to read CPU usage: %v", err)
	} else if len(percentages) > 0 {
		cpuUsage = percentages[0]
	}

	status := gin.H{
		"status":       "ok",
		"timestamp":    time.Now(),
		"uptime":       time.Since(h.startedAt).String(),
		"go_routines":  runtime.NumGoroutine(),
		"num_cpu":      runtime.NumCPU(),
		"cpu_usage":    cpuUsage,
		"memory_alloc": memStats.Alloc,
		"memory_sys":   memStats.Sys,
	}

	// Datenbankzähler ergänzen, falls erreichbar
	if stats, err := h.repo.GetEventStats(); err != nil {
		log.Warnf("Failed to read event statistics for status: %v", err)
	} else {
		status["total_events"] = stats.TotalEvents
		status["total_cameras"] = stats.TotalCameras
		status["total_sites"] = stats.TotalSites
	}

	c.JSON(http.StatusOK, status)
}
