package handlers

import (
	"net/http"
	"strconv"

	"platewatch-go/internal/db/repository"

	"github.com/gin-gonic/gin"
)

// EventHandler behandelt die Lese-API für Erkennungsereignisse.
// Events sind unveränderlich; es gibt bewusst keine Update-Route.
type EventHandler struct {
	repo repository.Repository
}

// NewEventHandler erstellt einen neuen Event-Handler
func NewEventHandler(repo repository.Repository) *EventHandler {
	return &EventHandler{repo: repo}
}

// RegisterRoutes registriert alle Event-Routen
func (h *EventHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/events", h.ListEvents)
	router.GET("/events/stats", h.GetEventStats)
	router.GET("/events/:id", h.GetEvent)
}

// ListEvents gibt Events mit Filterung und Pagination zurück
func (h *EventHandler) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	filter := repository.EventFilter{
		ChannelID:    c.Query("channelID"),
		LicensePlate: c.Query("licensePlate"),
		Limit:        pageSize,
		Offset:       (page - 1) * pageSize,
	}
	if siteParam := c.Query("siteID"); siteParam != "" {
		if siteID, err := strconv.ParseUint(siteParam, 10, 32); err == nil {
			id := uint(siteID)
			filter.SiteID = &id
		}
	}

	events, total, err := h.repo.ListEvents(filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"pagination": gin.H{
			"page":     page,
			"pageSize": pageSize,
			"total":    total,
		},
	})
}

// GetEvent gibt ein einzelnes Event zurück
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	event, err := h.repo.GetEventByID(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// GetEventStats gibt die aggregierten Event-Statistiken zurück
func (h *EventHandler) GetEventStats(c *gin.Context) {
	stats, err := h.repo.GetEventStats()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
