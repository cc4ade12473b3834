package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeTimeout = 10 * time.Second

// Session ist eine einzelne langlebige Dashboard-Verbindung. Jede Sitzung
// läuft in eigenen Goroutinen; eine langsame oder tote Verbindung
// beeinflusst weder die Ingestion noch andere Sitzungen.
type Session struct {
	hub  *Hub
	conn *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

// newSession erstellt eine neue Dashboard-Sitzung
func newSession(hub *Hub, conn *websocket.Conn) *Session {
	return &Session{
		hub:  hub,
		conn: conn,
		done: make(chan struct{}),
	}
}

// run betreibt die Sitzung bis zum Verbindungsende. Beim Öffnen wird
// sofort ein vollständiger Snapshot gesendet, danach in festem Takt sowie
// unmittelbar bei jeder Änderungsbenachrichtigung. Der Abonnentenpuffer
// von 1 fasst Benachrichtigungsschübe zu höchstens einem Extra-Push
// zusammen.
func (s *Session) run() {
	defer s.Close()

	// Leseschleife nur zur Erkennung des Verbindungsendes;
	// Dashboard-Clients senden keine Nutzdaten
	go s.readLoop()

	sub := s.hub.notifier.Subscribe(1)
	defer s.hub.notifier.Unsubscribe(sub)

	ticker := time.NewTicker(s.hub.interval)
	defer ticker.Stop()

	// Initialen Snapshot sofort pushen
	if !s.pushSnapshot() {
		return
	}

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if !s.pushSnapshot() {
				return
			}
		case _, ok := <-sub:
			if !ok {
				return
			}
			if !s.pushSnapshot() {
				return
			}
		}
	}
}

// readLoop liest bis zum Verbindungsende und löst dann den Teardown aus
func (s *Session) readLoop() {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.Close()
			return
		}
	}
}

// pushSnapshot sendet einen frischen Snapshot. Ein fehlgeschlagener
// Abruf wird nur geloggt und beim nächsten Takt erneut versucht; ein
// Sendefehler beendet die Sitzung.
func (s *Session) pushSnapshot() bool {
	payload, err := s.hub.buildSnapshot()
	if err != nil {
		log.Warnf("Failed to build dashboard snapshot: %v", err)
		return true
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Debugf("Failed to push dashboard snapshot: %v", err)
		return false
	}
	return true
}

// Close beendet die Sitzung und gibt ihre Ressourcen frei.
// Wiederholte Aufrufe sind ein No-Op.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
		s.hub.remove(s)
	})
}
