package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"platewatch-go/internal/core/models"
	"platewatch-go/internal/notifier"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// SnapshotSource liefert die Aggregatdaten für Dashboard-Snapshots
type SnapshotSource interface {
	GetEventStats() (models.EventStats, error)
	GetSiteStats() ([]models.SiteStats, error)
}

// DashboardUpdate ist der vollständige Snapshot, der an Dashboard-Clients
// gesendet wird. Clients erhalten immer den vollen Zustand, nie nur den
// internen Änderungshinweis.
type DashboardUpdate struct {
	Type      string             `json:"type"` // immer "dashboard_update"
	Stats     models.EventStats  `json:"stats"`
	Sites     []models.SiteStats `json:"sites"`
	Timestamp time.Time          `json:"timestamp"`
}

// Hub verwaltet die Menge der verbundenen Dashboard-Sitzungen
type Hub struct {
	source   SnapshotSource
	notifier *notifier.Hub
	interval time.Duration
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*Session]bool
	closed   bool
}

// NewHub erstellt einen neuen Dashboard-Hub. Das Intervall bestimmt den
// Takt der periodischen Snapshot-Pushes.
func NewHub(source SnapshotSource, notifierHub *notifier.Hub, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Hub{
		source:   source,
		notifier: notifierHub,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Dashboard-Clients kommen von beliebigen Origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[*Session]bool),
	}
}

// RegisterRoutes registriert den WebSocket-Endpunkt
func (h *Hub) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard", h.HandleConnection)
}

// HandleConnection stuft die HTTP-Anfrage zu einer WebSocket-Verbindung
// hoch und startet die Sitzung
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	session := newSession(h, conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.sessions[session] = true
	total := len(h.sessions)
	h.mu.Unlock()

	log.Infof("Dashboard client connected. Total clients: %d", total)
	go session.run()
}

// remove entfernt eine Sitzung aus der Verwaltung
func (h *Hub) remove(session *Session) {
	h.mu.Lock()
	delete(h.sessions, session)
	total := len(h.sessions)
	h.mu.Unlock()
	log.Infof("Dashboard client disconnected. Total clients: %d", total)
}

// Shutdown beendet alle Sitzungen. Wiederholte Aufrufe sind ein No-Op.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	log.Info("Dashboard hub shut down")
}

// SessionCount gibt die Anzahl der verbundenen Clients zurück
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// buildSnapshot holt den aktuellen Aggregatzustand und serialisiert ihn
func (h *Hub) buildSnapshot() ([]byte, error) {
	stats, err := h.source.GetEventStats()
	if err != nil {
		return nil, err
	}
	sites, err := h.source.GetSiteStats()
	if err != nil {
		return nil, err
	}

	update := DashboardUpdate{
		Type:      "dashboard_update",
		Stats:     stats,
		Sites:     sites,
		Timestamp: time.Now(),
	}
	return json.Marshal(update)
}
