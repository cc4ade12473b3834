package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CameraStatus beschreibt den Betriebszustand einer Kamera
type CameraStatus string

const (
	CameraStatusActive   CameraStatus = "active"
	CameraStatusInactive CameraStatus = "inactive"
)

// Site repräsentiert einen Standort, dem Kameras und Events zugeordnet werden
type Site struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;not null" json:"name"` // Eindeutiger Anzeigename, Schlüssel für Lookup-or-Create
	Description string `json:"description"`
}

// Camera repräsentiert eine registrierte Feldkamera
type Camera struct {
	gorm.Model
	ChannelID   string       `gorm:"uniqueIndex;not null" json:"channel_id"` // Stabiler Hardware-/Kanalschlüssel der Kamera
	MacAddress  string       `gorm:"index" json:"mac_address"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	SiteID      *uint        `gorm:"index" json:"site_id"` // Optionale Standortzuordnung, NULL = nicht zugewiesen
	Status      CameraStatus `gorm:"default:active" json:"status"`
	LastSeen    time.Time    `gorm:"index" json:"last_seen"` // Zeitpunkt des letzten empfangenen Events
}

// Event repräsentiert ein einzelnes Erkennungsereignis einer Kamera.
// Events sind nach dem Anlegen unveränderlich und werden nur durch
// den Kaskaden-Delete eines Standorts entfernt.
type Event struct {
	gorm.Model
	ChannelID    string    `gorm:"index;not null" json:"channel_id"`
	EventTime    time.Time `gorm:"index;not null" json:"event_time"` // Von der Kamera gelieferter Zeitstempel
	EventType    string    `gorm:"not null" json:"event_type"`
	Country      *string   `json:"country"`
	LicensePlate string    `gorm:"index;not null" json:"license_plate"`
	Lane         *string   `json:"lane"`
	Direction    *string   `json:"direction"`
	Confidence   *string   `json:"confidence"`
	MacAddress   string    `json:"mac_address"` // Snapshot der Kamera-MAC zum Eventzeitpunkt
	// Bis zu drei Bildreferenzen, gespeichert als stabile Dateinamen
	PlateImage   *string        `json:"plate_image"`
	VehicleImage *string        `json:"vehicle_image"`
	SceneImage   *string        `json:"scene_image"`
	SiteID       *uint          `gorm:"index" json:"site_id"`
	RawParams    datatypes.JSON `gorm:"type:json;null" json:"-"` // Rohdaten der Anfrageparameter
}

// EventStats enthält aggregierte Statistiken über alle Events
type EventStats struct {
	TotalEvents    int64     `json:"total_events"`
	TotalCameras   int64     `json:"total_cameras"`
	TotalSites     int64     `json:"total_sites"`
	UniqueVehicles int64     `json:"unique_vehicles"` // Anzahl unterschiedlicher Kennzeichen
	LatestEvent    time.Time `json:"latest_event"`
}

// SiteStats enthält aggregierte Statistiken für einen einzelnen Standort
type SiteStats struct {
	SiteID      uint      `json:"site_id"`
	Name        string    `json:"name"`
	CameraCount int64     `json:"camera_count"`
	EventCount  int64     `json:"event_count"`
	LatestEvent time.Time `json:"latest_event"`
}
