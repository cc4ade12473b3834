package handlers

import (
	"net/http"
	"strconv"

	"platewatch-go/internal/core/apperr"
	"platewatch-go/internal/db/repository"
	"platewatch-go/internal/notifier"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SiteHandler behandelt die Verwaltungs-API für Standorte
type SiteHandler struct {
	repo repository.Repository
	hub  *notifier.Hub
}

// NewSiteHandler erstellt einen neuen Site-Handler
func NewSiteHandler(repo repository.Repository, hub *notifier.Hub) *SiteHandler {
	return &SiteHandler{repo: repo, hub: hub}
}

// RegisterRoutes registriert alle Site-Routen
func (h *SiteHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/sites", h.ListSites)
	router.POST("/sites", h.CreateSite)
	router.GET("/sites/stats", h.GetSiteStats)
	router.GET("/sites/:id", h.GetSite)
	router.PUT("/sites/:id", h.UpdateSite)
	router.DELETE("/sites/:id", h.DeleteSite)
}

// siteRequest ist der Anfragekörper für Anlegen und Aktualisieren
type siteRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ListSites gibt alle Standorte zurück
func (h *SiteHandler) ListSites(c *gin.Context) {
	sites, err := h.repo.ListSites()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sites)
}

// CreateSite legt einen Standort an oder liefert den bestehenden
// mit demselben Namen (idempotent)
func (h *SiteHandler) CreateSite(c *gin.Context) {
	var req siteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid site payload: %v", err))
		return
	}
	if req.Name == nil || *req.Name == "" {
		writeError(c, apperr.Validation("site name is required"))
		return
	}

	description := ""
	if req.Description != nil {
		description = *req.Description
	}

	siteID, err := h.repo.CreateOrGetSite(*req.Name, description)
	if err != nil {
		writeError(c, err)
		return
	}

	log.Infof("Site %q resolved to ID %d", *req.Name, siteID)
	h.hub.Publish(notifier.TopicSiteUpdate)

	c.JSON(http.StatusOK, gin.H{"site_id": siteID})
}

// GetSite gibt einen einzelnen Standort zurück
func (h *SiteHandler) GetSite(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	site, err := h.repo.GetSiteByID(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

// UpdateSite aktualisiert Name und/oder Beschreibung eines Standorts
func (h *SiteHandler) UpdateSite(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req siteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid site payload: %v", err))
		return
	}

	if err := h.repo.UpdateSite(id, req.Name, req.Description); err != nil {
		writeError(c, err)
		return
	}

	h.hub.Publish(notifier.TopicSiteUpdate)
	c.JSON(http.StatusOK, gin.H{"message": "site updated"})
}

// DeleteSite löscht einen Standort mitsamt seinen Kameras und Events
func (h *SiteHandler) DeleteSite(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	affected, err := h.repo.DeleteSite(id)
	if err != nil {
		writeError(c, err)
		return
	}

	log.Infof("Site %d deleted, %d rows removed", id, affected)
	h.hub.Publish(notifier.TopicSiteUpdate)

	c.JSON(http.StatusOK, gin.H{"rows_affected": affected})
}

// GetSiteStats gibt aggregierte Statistiken je Standort zurück
func (h *SiteHandler) GetSiteStats(c *gin.Context) {
	stats, err := h.repo.GetSiteStats()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// parseID liest den numerischen ID-Parameter aus dem Pfad
func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperr.Validation("invalid id %q", c.Param("id"))
	}
	return uint(id), nil
}
