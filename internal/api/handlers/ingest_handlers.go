package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"platewatch-go/internal/core/apperr"
	"platewatch-go/internal/core/models"
	"platewatch-go/internal/db/repository"
	"platewatch-go/internal/integrations/mqtt"
	"platewatch-go/internal/notifier"
	"platewatch-go/internal/storage"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// imageSlot bezeichnet eine der drei Bildreferenz-Rollen eines Events
type imageSlot int

const (
	slotPlate imageSlot = iota
	slotVehicle
	slotScene
)

// imageFieldSynonyms bildet die historischen Feldnamen-Konventionen der
// Kamera-Firmware auf die drei Bildrollen ab. Die Liste wird in dieser
// Reihenfolge ausgewertet, der erste Treffer je Rolle gewinnt; nicht
// zuordenbare Felder werden verworfen.
var imageFieldSynonyms = []struct {
	field string
	slot  imageSlot
}{
	// Aktuelle Firmware-Konvention
	{"licensePlatePicture.jpg", slotPlate},
	{"vehiclePicture.jpg", slotVehicle},
	{"detectionPicture.jpg", slotScene},
	// Ältere Konvention
	{"plateImage", slotPlate},
	{"vehicleImage", slotVehicle},
	{"fullImage", slotScene},
}

// Akzeptierte Zeitstempelformate der Kameras. Die Zeit wird beim Ingest
// kanonisiert und als echter Zeitstempel gespeichert, damit die Sortierung
// chronologisch und nicht lexikografisch erfolgt.
var acceptedTimeFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// IngestHandler verarbeitet eingehende Erkennungsereignisse der Kameras.
// Dies ist die einzige Komponente, die die automatische Registrierung
// von Kameras auslöst.
type IngestHandler struct {
	repo  repository.Repository
	store *storage.Store
	hub   *notifier.Hub
	mqtt  *mqtt.Publisher // optional, kann nil sein
}

// NewIngestHandler erstellt einen neuen Ingest-Handler
func NewIngestHandler(repo repository.Repository, store *storage.Store, hub *notifier.Hub, publisher *mqtt.Publisher) *IngestHandler {
	return &IngestHandler{
		repo:  repo,
		store: store,
		hub:   hub,
		mqtt:  publisher,
	}
}

// RegisterRoutes registriert die Ingest-Routen
func (h *IngestHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/ingest", h.ReceiveDetection)
}

// ReceiveDetection nimmt einen multipart POST einer Feldkamera entgegen.
// Die Metadaten kommen als Query-Parameter, bis zu drei Bilder als
// Dateianhänge unter einem der akzeptierten Feldnamen.
func (h *IngestHandler) ReceiveDetection(c *gin.Context) {
	channelID := h.param(c, "channelID")
	dateTime := h.param(c, "dateTime")
	eventType := h.param(c, "eventType")
	licensePlate := h.param(c, "licensePlate")

	// Pflichtfelder prüfen, bevor irgendetwas persistiert wird
	if channelID == "" {
		writeError(c, apperr.Validation("channelID is required"))
		return
	}
	if dateTime == "" {
		writeError(c, apperr.Validation("dateTime is required"))
		return
	}
	if eventType == "" {
		writeError(c, apperr.Validation("eventType is required"))
		return
	}
	if licensePlate == "" {
		writeError(c, apperr.Validation("licensePlate is required"))
		return
	}

	eventTime, err := parseEventTime(dateTime)
	if err != nil {
		writeError(c, apperr.Validation("invalid dateTime %q: use RFC 3339", dateTime))
		return
	}

	// Bildanhänge den drei Rollen zuordnen und ablegen
	images, err := h.resolveAttachments(c)
	if err != nil {
		log.Errorf("Failed to store attachments for channel %s: %v", channelID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store attachments", "kind": "InternalError"})
		return
	}

	event := &models.Event{
		ChannelID:    channelID,
		EventTime:    eventTime,
		EventType:    eventType,
		LicensePlate: licensePlate,
		Country:      optString(h.param(c, "country")),
		Lane:         optString(h.param(c, "lane")),
		Direction:    optString(h.param(c, "direction")),
		Confidence:   optString(h.param(c, "confidenceLevel")),
		MacAddress:   h.param(c, "macAddress"),
		PlateImage:   images[slotPlate],
		VehicleImage: images[slotVehicle],
		SceneImage:   images[slotScene],
		RawParams:    rawParams(c),
	}

	eventID, err := h.repo.InsertEvent(event)
	if err != nil {
		// Keine Benachrichtigung für Zustand, der nicht committet wurde;
		// bereits gespeicherte Anhänge wieder entfernen
		for _, name := range images {
			if name != nil {
				if rmErr := h.store.Remove(*name); rmErr != nil {
					log.Warnf("Failed to remove orphaned attachment %s: %v", *name, rmErr)
				}
			}
		}
		writeError(c, err)
		return
	}

	log.WithFields(log.Fields{
		"event_id":   eventID,
		"channel_id": channelID,
		"plate":      licensePlate,
	}).Info("Detection event ingested")

	// Benachrichtigung erst nach dem Commit publizieren
	h.hub.Publish(notifier.TopicEventUpdate)
	if h.mqtt != nil {
		h.mqtt.PublishEvent(event)
	}

	c.JSON(http.StatusOK, gin.H{"event_id": eventID})
}

// param liest einen Parameter aus der Query, mit Formularfeldern als Fallback
func (h *IngestHandler) param(c *gin.Context, name string) string {
	if v := c.Query(name); v != "" {
		return v
	}
	return c.PostForm(name)
}

// resolveAttachments ordnet die Dateianhänge über die Synonymtabelle den
// drei Bildrollen zu und speichert sie. Gibt je Rolle den Dateinamen
// zurück, nil für unbesetzte Rollen.
func (h *IngestHandler) resolveAttachments(c *gin.Context) (map[imageSlot]*string, error) {
	images := map[imageSlot]*string{
		slotPlate:   nil,
		slotVehicle: nil,
		slotScene:   nil,
	}

	roleNames := map[imageSlot]string{
		slotPlate:   "plate",
		slotVehicle: "vehicle",
		slotScene:   "scene",
	}

	for _, syn := range imageFieldSynonyms {
		if images[syn.slot] != nil {
			continue // Rolle bereits durch ein früheres Synonym besetzt
		}
		header, err := c.FormFile(syn.field)
		if err != nil {
			// Kein Anhang unter diesem Feldnamen; Events ohne Bilder sind gültig
			continue
		}
		name, err := h.store.Save(header, roleNames[syn.slot])
		if err != nil {
			return nil, err
		}
		images[syn.slot] = &name
	}

	return images, nil
}

// parseEventTime kanonisiert den Kamera-Zeitstempel
func parseEventTime(value string) (time.Time, error) {
	var lastErr error
	for _, format := range acceptedTimeFormats {
		t, err := time.Parse(format, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// optString normalisiert optionale Felder: leere Strings werden zu NULL
func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// rawParams konserviert die ursprünglichen Anfrageparameter als JSON
func rawParams(c *gin.Context) datatypes.JSON {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
