package notifier

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Topic bezeichnet die Kategorie einer Änderungsbenachrichtigung
type Topic string

const (
	TopicSiteUpdate   Topic = "site_update"
	TopicCameraUpdate Topic = "camera_update"
	TopicEventUpdate  Topic = "event_update"
)

// Subscriber ist ein Kanal, über den ein Abonnent Benachrichtigungen empfängt.
// Benachrichtigungen sind reine Hinweise: Empfänger laden daraufhin den
// aktuellen Aggregatzustand neu, nie ein Delta.
type Subscriber chan Topic

// Hub ist die prozessweite Publish/Subscribe-Drehscheibe für
// Änderungsbenachrichtigungen. Die Entity-Store-Mutationen publizieren
// erst nach dem Commit ihrer Transaktion.
type Hub struct {
	mu          sync.Mutex
	subscribers map[Subscriber]bool
	closed      bool
}

// NewHub erstellt eine neue Hub-Instanz
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[Subscriber]bool),
	}
}

// Subscribe registriert einen neuen Abonnenten und gibt dessen Kanal zurück.
// Die Puffergröße bestimmt, wie viele Benachrichtigungen anstehen dürfen;
// bei vollem Puffer werden weitere Benachrichtigungen verworfen (der
// Abonnent lädt ohnehin den vollständigen Zustand neu).
func (h *Hub) Subscribe(buffer int) Subscriber {
	if buffer < 1 {
		buffer = 1
	}
	sub := make(Subscriber, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		// Nach dem Teardown liefern wir einen bereits geschlossenen Kanal
		close(sub)
		return sub
	}
	h.subscribers[sub] = true
	log.Debugf("Notifier: subscriber registered, total: %d", len(h.subscribers))
	return sub
}

// Unsubscribe entfernt einen Abonnenten und schließt dessen Kanal.
// Wiederholte Aufrufe für denselben Abonnenten sind ein No-Op.
func (h *Hub) Unsubscribe(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub)
		log.Debugf("Notifier: subscriber removed, total: %d", len(h.subscribers))
	}
}

// Publish stellt eine Benachrichtigung an alle Abonnenten zu.
// Die Zustellung ist best-effort: ein langsamer Abonnent blockiert weder
// den Publisher noch andere Abonnenten.
func (h *Hub) Publish(topic Topic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for sub := range h.subscribers {
		select {
		case sub <- topic:
		default:
			// Puffer voll: Benachrichtigung verwerfen, der Abonnent
			// holt sich beim nächsten Hinweis den vollen Zustand
			log.Debugf("Notifier: subscriber buffer full, dropping %s", topic)
		}
	}
}

// Close beendet den Hub und schließt alle Abonnentenkanäle.
// Wiederholte Aufrufe sind ein No-Op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub)
	}
	log.Debug("Notifier: hub closed")
}

// SubscriberCount gibt die Anzahl der registrierten Abonnenten zurück
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
