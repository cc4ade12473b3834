package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"platewatch-go/config"
	"platewatch-go/internal/core/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Publisher spiegelt committete Erkennungsereignisse als JSON auf ein
// MQTT-Topic, damit externe Systeme (Automatisierung, Archivierung)
// mithören können. Die Spiegelung ist best-effort und blockiert die
// Ingestion nie.
type Publisher struct {
	config config.MQTTConfig
	client mqtt.Client
}

// eventMessage ist die über MQTT publizierte Darstellung eines Events
type eventMessage struct {
	EventID      uint      `json:"event_id"`
	ChannelID    string    `json:"channel_id"`
	EventTime    time.Time `json:"event_time"`
	EventType    string    `json:"event_type"`
	LicensePlate string    `json:"license_plate"`
	Country      *string   `json:"country,omitempty"`
	Lane         *string   `json:"lane,omitempty"`
	Direction    *string   `json:"direction,omitempty"`
	SiteID       *uint     `json:"site_id,omitempty"`
}

// NewPublisher erstellt einen neuen MQTT-Publisher
func NewPublisher(cfg config.MQTTConfig) *Publisher {
	return &Publisher{config: cfg}
}

// Start verbindet den Publisher mit dem Broker
func (p *Publisher) Start() error {
	if !p.config.Enabled {
		log.Info("MQTT mirror is disabled in configuration")
		return nil
	}

	opts := mqtt.NewClientOptions()

	brokerURL := fmt.Sprintf("tcp://%s:%d", p.config.Broker, p.config.Port)
	opts.AddBroker(brokerURL)
	opts.SetClientID(p.config.ClientID)

	// Optionale Authentifizierung
	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}

	// Automatische Wiederverbindung
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Errorf("MQTT connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Infof("Connected to MQTT broker at %s:%d", p.config.Broker, p.config.Port)
	})

	p.client = mqtt.NewClient(opts)

	log.Infof("Connecting to MQTT broker at %s", brokerURL)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		log.Errorf("Failed to connect to MQTT broker: %v", token.Error())
		return token.Error()
	}
	return nil
}

// Stop trennt die Verbindung zum Broker
func (p *Publisher) Stop() {
	if p.client != nil && p.client.IsConnected() {
		log.Info("Disconnecting MQTT publisher...")
		p.client.Disconnect(250) // 250ms Wartezeit
	}
}

// IsConnected prüft, ob der Publisher verbunden ist
func (p *Publisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnected()
}

// PublishEvent spiegelt ein committetes Event auf das konfigurierte Topic.
// Fehler werden nur geloggt; die Ingestion ist zu diesem Zeitpunkt bereits
// erfolgreich abgeschlossen.
func (p *Publisher) PublishEvent(event *models.Event) {
	if !p.IsConnected() {
		return
	}

	msg := eventMessage{
		EventID:      event.ID,
		ChannelID:    event.ChannelID,
		EventTime:    event.EventTime,
		EventType:    event.EventType,
		LicensePlate: event.LicensePlate,
		Country:      event.Country,
		Lane:         event.Lane,
		Direction:    event.Direction,
		SiteID:       event.SiteID,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal event %d for MQTT: %v", event.ID, err)
		return
	}

	token := p.client.Publish(p.config.Topic, 1, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Errorf("Failed to publish event %d to MQTT: %v", event.ID, token.Error())
		}
	}()
}
