package handlers

import (
	"net/http"

	"platewatch-go/internal/core/apperr"
	"platewatch-go/internal/core/models"
	"platewatch-go/internal/db/repository"
	"platewatch-go/internal/notifier"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CameraHandler behandelt die Verwaltungs-API für Kameras
type CameraHandler struct {
	repo repository.Repository
	hub  *notifier.Hub
}

// NewCameraHandler erstellt einen neuen Camera-Handler
func NewCameraHandler(repo repository.Repository, hub *notifier.Hub) *CameraHandler {
	return &CameraHandler{repo: repo, hub: hub}
}

// RegisterRoutes registriert alle Camera-Routen
func (h *CameraHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/cameras", h.ListCameras)
	router.POST("/cameras", h.CreateCamera)
	router.GET("/cameras/:channelID", h.GetCamera)
	router.PUT("/cameras/:id", h.UpdateCamera)
	router.DELETE("/cameras/:id", h.DeleteCamera)
}

// cameraCreateRequest ist der Anfragekörper für die explizite Registrierung
type cameraCreateRequest struct {
	ChannelID   string `json:"channel_id"`
	MacAddress  string `json:"mac_address"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SiteID      *uint  `json:"site_id"`
}

// cameraUpdateRequest ist der Anfragekörper für Aktualisierungen.
// Nil-Felder bleiben unverändert; clear_site hebt die Zuordnung auf.
type cameraUpdateRequest struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	MacAddress  *string              `json:"mac_address"`
	Status      *models.CameraStatus `json:"status"`
	SiteID      *uint                `json:"site_id"`
	ClearSite   bool                 `json:"clear_site"`
}

// ListCameras gibt alle Kameras zurück
func (h *CameraHandler) ListCameras(c *gin.Context) {
	cameras, err := h.repo.ListCameras()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cameras)
}

// CreateCamera registriert eine Kamera explizit
func (h *CameraHandler) CreateCamera(c *gin.Context) {
	var req cameraCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid camera payload: %v", err))
		return
	}
	if req.ChannelID == "" {
		writeError(c, apperr.Validation("channel_id is required"))
		return
	}

	camera := &models.Camera{
		ChannelID:   req.ChannelID,
		MacAddress:  req.MacAddress,
		Name:        req.Name,
		Description: req.Description,
		SiteID:      req.SiteID,
		Status:      models.CameraStatusActive,
	}

	if err := h.repo.CreateCamera(camera); err != nil {
		writeError(c, err)
		return
	}

	log.Infof("Camera %s registered with ID %d", camera.ChannelID, camera.ID)
	h.hub.Publish(notifier.TopicCameraUpdate)

	c.JSON(http.StatusCreated, camera)
}

// GetCamera gibt eine Kamera anhand ihrer Kanal-ID zurück
func (h *CameraHandler) GetCamera(c *gin.Context) {
	camera, err := h.repo.GetCameraByChannelID(c.Param("channelID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, camera)
}

// UpdateCamera aktualisiert die änderbaren Felder einer Kamera
func (h *CameraHandler) UpdateCamera(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req cameraUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid camera payload: %v", err))
		return
	}

	update := repository.CameraUpdate{
		Name:        req.Name,
		Description: req.Description,
		MacAddress:  req.MacAddress,
		Status:      req.Status,
		SiteID:      req.SiteID,
		ClearSite:   req.ClearSite,
	}

	if err := h.repo.UpdateCamera(id, update); err != nil {
		writeError(c, err)
		return
	}

	h.hub.Publish(notifier.TopicCameraUpdate)
	c.JSON(http.StatusOK, gin.H{"message": "camera updated"})
}

// DeleteCamera entfernt eine Kamera (ohne Kaskade)
func (h *CameraHandler) DeleteCamera(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.repo.DeleteCamera(id); err != nil {
		writeError(c, err)
		return
	}

	h.hub.Publish(notifier.TopicCameraUpdate)
	c.JSON(http.StatusOK, gin.H{"message": "camera deleted"})
}
