package repository

import (
	"errors"
	"strings"
	"time"

	"platewatch-go/internal/core/apperr"
	"platewatch-go/internal/core/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CameraUpdate beschreibt die änderbaren Felder einer Kamera.
// Nil-Felder bleiben unverändert; ClearSite hebt die Standortzuordnung auf.
type CameraUpdate struct {
	Name        *string
	Description *string
	MacAddress  *string
	Status      *models.CameraStatus
	SiteID      *uint
	ClearSite   bool
}

// EventFilter beschreibt die Filterkriterien für die Event-Liste
type EventFilter struct {
	ChannelID    string
	SiteID       *uint
	LicensePlate string
	Limit        int
	Offset       int
}

// Repository definiert die Schnittstelle für die Datenbank-Operationen
type Repository interface {
	// Event-Ingestion
	UpsertCamera(channelID, macAddress string) error
	InsertEvent(event *models.Event) (uint, error)

	// Site-Methoden
	CreateOrGetSite(name, description string) (uint, error)
	GetSiteByID(id uint) (*models.Site, error)
	ListSites() ([]models.Site, error)
	UpdateSite(id uint, name, description *string) error
	DeleteSite(id uint) (int64, error)

	// Camera-Methoden
	CreateCamera(camera *models.Camera) error
	GetCameraByChannelID(channelID string) (*models.Camera, error)
	ListCameras() ([]models.Camera, error)
	UpdateCamera(id uint, update CameraUpdate) error
	DeleteCamera(id uint) error

	// Event-Lesemethoden
	GetEventByID(id uint) (*models.Event, error)
	ListEvents(filter EventFilter) ([]models.Event, int64, error)
	DeleteEventsBefore(cutoff time.Time) ([]models.Event, error)

	// Statistik-Methoden
	GetEventStats() (models.EventStats, error)
	GetSiteStats() ([]models.SiteStats, error)
}

// SQLiteRepository implementiert die Repository-Schnittstelle für SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository erstellt eine neue SQLite-Repository-Instanz
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// translateError bildet Datenbankfehler auf die Fehlerklassifizierung ab
func translateError(msg string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		strings.Contains(strings.ToLower(err.Error()), "constraint") {
		return apperr.Constraint(msg, err)
	}
	return apperr.Storage(msg, err)
}

// Event-Ingestion

// UpsertCamera legt eine minimale Kamerazeile an, falls die Kanal-ID neu ist.
// Bestehende Zeilen werden nie überschrieben (Name, Beschreibung und
// Standortzuordnung bleiben erhalten).
func (r *SQLiteRepository) UpsertCamera(channelID, macAddress string) error {
	if channelID == "" {
		return apperr.Validation("channel ID is required")
	}
	return r.upsertCameraTx(r.db, channelID, macAddress, time.Now())
}

// upsertCameraTx führt den Kamera-Upsert innerhalb der übergebenen Transaktion aus
func (r *SQLiteRepository) upsertCameraTx(tx *gorm.DB, channelID, macAddress string, lastSeen time.Time) error {
	camera := models.Camera{
		ChannelID:  channelID,
		MacAddress: macAddress,
		Status:     models.CameraStatusActive,
		LastSeen:   lastSeen,
	}
	// Atomarer bedingter Insert: bei bestehender Kanal-ID ein No-Op,
	// kein Check-then-Insert
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}},
		DoNothing: true,
	}).Create(&camera).Error; err != nil {
		return translateError("failed to upsert camera", err)
	}
	// LastSeen auch für bereits registrierte Kameras fortschreiben
	if err := tx.Model(&models.Camera{}).
		Where("channel_id = ?", channelID).
		Update("last_seen", lastSeen).Error; err != nil {
		return translateError("failed to update camera last_seen", err)
	}
	return nil
}

// InsertEvent persistiert ein Erkennungsereignis. Kamera-Upsert und
// Event-Insert laufen in einer Transaktion: entweder beides wird sichtbar
// oder die gesamte Ingestion schlägt fehl.
func (r *SQLiteRepository) InsertEvent(event *models.Event) (uint, error) {
	if event.ChannelID == "" {
		return 0, apperr.Validation("channel ID is required")
	}
	if event.LicensePlate == "" {
		return 0, apperr.Validation("license plate is required")
	}
	if event.EventTime.IsZero() {
		return 0, apperr.Validation("event timestamp is required")
	}
	if event.EventType == "" {
		return 0, apperr.Validation("event type is required")
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.upsertCameraTx(tx, event.ChannelID, event.MacAddress, event.EventTime); err != nil {
			return err
		}

		// Standortzuordnung der Kamera auf das Event übernehmen
		if event.SiteID == nil {
			var camera models.Camera
			if err := tx.Where("channel_id = ?", event.ChannelID).First(&camera).Error; err != nil {
				return translateError("failed to load camera for event", err)
			}
			event.SiteID = camera.SiteID
		}

		if err := tx.Create(event).Error; err != nil {
			return translateError("failed to insert event", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return event.ID, nil
}

// Site-Methoden

// CreateOrGetSite legt einen Standort an oder liefert den bestehenden.
// Idempotent auf dem Namen: konkurrierende Aufrufe mit demselben Namen
// lösen auf dieselbe ID auf (Conflict-then-Lookup).
func (r *SQLiteRepository) CreateOrGetSite(name, description string) (uint, error) {
	if name == "" {
		return 0, apperr.Validation("site name is required")
	}

	site := models.Site{Name: name, Description: description}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&site).Error; err != nil {
		return 0, translateError("failed to create site", err)
	}
	if site.ID != 0 {
		return site.ID, nil
	}

	// Konflikt: Zeile existierte bereits, ID nachschlagen
	var existing models.Site
	if err := r.db.Where("name = ?", name).First(&existing).Error; err != nil {
		return 0, translateError("failed to look up existing site", err)
	}
	return existing.ID, nil
}

// GetSiteByID holt einen Standort anhand seiner ID
func (r *SQLiteRepository) GetSiteByID(id uint) (*models.Site, error) {
	var site models.Site
	if err := r.db.First(&site, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("site %d not found", id)
		}
		return nil, translateError("failed to load site", err)
	}
	return &site, nil
}

// ListSites holt alle Standorte
func (r *SQLiteRepository) ListSites() ([]models.Site, error) {
	var sites []models.Site
	if err := r.db.Order("name ASC").Find(&sites).Error; err != nil {
		return nil, translateError("failed to list sites", err)
	}
	return sites, nil
}

// UpdateSite aktualisiert Name und/oder Beschreibung eines Standorts
func (r *SQLiteRepository) UpdateSite(id uint, name, description *string) error {
	var site models.Site
	if err := r.db.First(&site, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("site %d not found", id)
		}
		return translateError("failed to load site", err)
	}

	if name != nil && *name != "" {
		site.Name = *name
	}
	if description != nil {
		site.Description = *description
	}

	if err := r.db.Save(&site).Error; err != nil {
		return translateError("failed to update site", err)
	}
	return nil
}

// DeleteSite löscht einen Standort zusammen mit allen Kameras und Events,
// die ihn referenzieren, in einer einzigen Transaktion. Bei einem Fehler
// in irgendeinem Schritt wird alles zurückgerollt; ein teilweiser
// Kaskaden-Delete ist nie beobachtbar.
func (r *SQLiteRepository) DeleteSite(id uint) (int64, error) {
	var affected int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var site models.Site
		if err := tx.First(&site, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("site %d not found", id)
			}
			return translateError("failed to load site", err)
		}

		// Reihenfolge: Events, dann Kameras, dann der Standort selbst
		res := tx.Unscoped().Where("site_id = ?", id).Delete(&models.Event{})
		if res.Error != nil {
			return translateError("failed to delete site events", res.Error)
		}
		affected += res.RowsAffected

		res = tx.Unscoped().Where("site_id = ?", id).Delete(&models.Camera{})
		if res.Error != nil {
			return translateError("failed to delete site cameras", res.Error)
		}
		affected += res.RowsAffected

		res = tx.Unscoped().Delete(&models.Site{}, id)
		if res.Error != nil {
			return translateError("failed to delete site", res.Error)
		}
		affected += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// Camera-Methoden

// CreateCamera registriert eine Kamera explizit
func (r *SQLiteRepository) CreateCamera(camera *models.Camera) error {
	if camera.ChannelID == "" {
		return apperr.Validation("channel ID is required")
	}
	if camera.Status == "" {
		camera.Status = models.CameraStatusActive
	}
	if err := r.db.Create(camera).Error; err != nil {
		return translateError("failed to create camera", err)
	}
	return nil
}

// GetCameraByChannelID holt eine Kamera anhand ihrer Kanal-ID
func (r *SQLiteRepository) GetCameraByChannelID(channelID string) (*models.Camera, error) {
	var camera models.Camera
	if err := r.db.Where("channel_id = ?", channelID).First(&camera).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("camera %s not found", channelID)
		}
		return nil, translateError("failed to load camera", err)
	}
	return &camera, nil
}

// ListCameras holt alle Kameras
func (r *SQLiteRepository) ListCameras() ([]models.Camera, error) {
	var cameras []models.Camera
	if err := r.db.Order("channel_id ASC").Find(&cameras).Error; err != nil {
		return nil, translateError("failed to list cameras", err)
	}
	return cameras, nil
}

// UpdateCamera aktualisiert die änderbaren Felder einer Kamera
func (r *SQLiteRepository) UpdateCamera(id uint, update CameraUpdate) error {
	var camera models.Camera
	if err := r.db.First(&camera, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("camera %d not found", id)
		}
		return translateError("failed to load camera", err)
	}

	if update.Name != nil {
		camera.Name = *update.Name
	}
	if update.Description != nil {
		camera.Description = *update.Description
	}
	if update.MacAddress != nil {
		camera.MacAddress = *update.MacAddress
	}
	if update.Status != nil {
		if *update.Status != models.CameraStatusActive && *update.Status != models.CameraStatusInactive {
			return apperr.Validation("invalid camera status: %s", *update.Status)
		}
		camera.Status = *update.Status
	}
	if update.ClearSite {
		camera.SiteID = nil
	} else if update.SiteID != nil {
		// Zuordnung nur zu existierenden Standorten zulassen
		var site models.Site
		if err := r.db.First(&site, *update.SiteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("site %d not found", *update.SiteID)
			}
			return translateError("failed to load site", err)
		}
		camera.SiteID = update.SiteID
	}

	if err := r.db.Save(&camera).Error; err != nil {
		return translateError("failed to update camera", err)
	}
	return nil
}

// DeleteCamera entfernt eine Kamera. Events der Kamera bleiben erhalten,
// nur der Kaskaden-Delete eines Standorts entfernt Events.
func (r *SQLiteRepository) DeleteCamera(id uint) error {
	res := r.db.Unscoped().Delete(&models.Camera{}, id)
	if res.Error != nil {
		return translateError("failed to delete camera", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("camera %d not found", id)
	}
	return nil
}

// Event-Lesemethoden

// GetEventByID holt ein Event anhand seiner ID
func (r *SQLiteRepository) GetEventByID(id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("event %d not found", id)
		}
		return nil, translateError("failed to load event", err)
	}
	return &event, nil
}

// ListEvents holt Events mit Filterung und Pagination
func (r *SQLiteRepository) ListEvents(filter EventFilter) ([]models.Event, int64, error) {
	query := r.db.Model(&models.Event{})
	if filter.ChannelID != "" {
		query = query.Where("channel_id = ?", filter.ChannelID)
	}
	if filter.SiteID != nil {
		query = query.Where("site_id = ?", *filter.SiteID)
	}
	if filter.LicensePlate != "" {
		query = query.Where("license_plate = ?", filter.LicensePlate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError("failed to count events", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var events []models.Event
	if err := query.Order("event_time DESC").Limit(limit).Offset(filter.Offset).Find(&events).Error; err != nil {
		return nil, 0, translateError("failed to list events", err)
	}
	return events, total, nil
}

// DeleteEventsBefore entfernt alle Events, deren Zeitstempel vor dem
// Stichtag liegt, und gibt die entfernten Events zurück (für die
// Bereinigung der zugehörigen Bilddateien).
func (r *SQLiteRepository) DeleteEventsBefore(cutoff time.Time) ([]models.Event, error) {
	var deleted []models.Event
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_time < ?", cutoff).Find(&deleted).Error; err != nil {
			return translateError("failed to find old events", err)
		}
		if len(deleted) == 0 {
			return nil
		}
		if err := tx.Unscoped().Where("event_time < ?", cutoff).Delete(&models.Event{}).Error; err != nil {
			return translateError("failed to delete old events", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Statistik-Methoden

// GetEventStats gibt aggregierte Statistiken über alle Events zurück.
// Die Abfragen laufen in einer Transaktion, damit die Aggregate einen
// konsistenten Schnappschuss widerspiegeln.
func (r *SQLiteRepository) GetEventStats() (models.EventStats, error) {
	var stats models.EventStats

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Event{}).Count(&stats.TotalEvents).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Camera{}).Count(&stats.TotalCameras).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Site{}).Count(&stats.TotalSites).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Event{}).
			Distinct("license_plate").
			Count(&stats.UniqueVehicles).Error; err != nil {
			return err
		}

		// Neuestes Event ermitteln
		var latest models.Event
		if err := tx.Order("event_time DESC").First(&latest).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		} else {
			stats.LatestEvent = latest.EventTime
		}
		return nil
	})
	if err != nil {
		return stats, translateError("failed to compute event statistics", err)
	}
	return stats, nil
}

// GetSiteStats gibt aggregierte Statistiken je Standort zurück
func (r *SQLiteRepository) GetSiteStats() ([]models.SiteStats, error) {
	var result []models.SiteStats

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var sites []models.Site
		if err := tx.Order("name ASC").Find(&sites).Error; err != nil {
			return err
		}

		for _, site := range sites {
			stats := models.SiteStats{SiteID: site.ID, Name: site.Name}

			if err := tx.Model(&models.Camera{}).
				Where("site_id = ?", site.ID).
				Count(&stats.CameraCount).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Event{}).
				Where("site_id = ?", site.ID).
				Count(&stats.EventCount).Error; err != nil {
				return err
			}

			var latest models.Event
			if err := tx.Where("site_id = ?", site.ID).
				Order("event_time DESC").First(&latest).Error; err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
			} else {
				stats.LatestEvent = latest.EventTime
			}

			result = append(result, stats)
		}
		return nil
	})
	if err != nil {
		return nil, translateError("failed to compute site statistics", err)
	}
	return result, nil
}
