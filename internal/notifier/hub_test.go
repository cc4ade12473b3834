package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe(4)
	hub.Publish(TopicEventUpdate)

	select {
	case topic := <-sub:
		assert.Equal(t, TopicEventUpdate, topic)
	case <-time.After(time.Second):
		t.Fatal("expected notification, got none")
	}
}

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe(8)
	hub.Publish(TopicCameraUpdate)
	hub.Publish(TopicEventUpdate)

	assert.Equal(t, TopicCameraUpdate, <-sub)
	assert.Equal(t, TopicEventUpdate, <-sub)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// Abonnent mit Puffer 1, der nie liest
	hub.Subscribe(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(TopicEventUpdate)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe(1)
	hub.Unsubscribe(sub)
	// Wiederholtes Abmelden darf weder panicen noch blockieren
	hub.Unsubscribe(sub)

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed after unsubscribe")
	assert.Zero(t, hub.SubscriberCount())
}

func TestPublishRacingUnsubscribe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		sub := hub.Subscribe(1)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(TopicSiteUpdate)
			}
		}()
		go func(s Subscriber) {
			defer wg.Done()
			hub.Unsubscribe(s)
		}(sub)
	}
	wg.Wait()

	require.Zero(t, hub.SubscriberCount())
}

func TestCloseTearsDownSubscribers(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe(1)
	hub.Close()
	// Wiederholtes Schließen ist ein No-Op
	hub.Close()

	_, ok := <-sub
	assert.False(t, ok)

	// Nach dem Teardown liefert Subscribe einen geschlossenen Kanal
	late := hub.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)

	// Publish nach Close ist ein No-Op
	hub.Publish(TopicEventUpdate)
}
