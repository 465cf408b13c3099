package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uronshalav2/cs2discordbot-sub000/internal/domain"
)

func TestHubEvictsSlowClientsDuringBroadcast(t *testing.T) {
	t.Parallel()

	hub := NewWebSocketHub()
	go hub.Run()

	// Unbuffered send channels are full from the start, so every broadcast
	// treats these clients as slow and evicts them.
	for i := 0; i < 50; i++ {
		hub.register <- &WebSocketClient{hub: hub, send: make(chan []byte)}
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 50 },
		time.Second, 5*time.Millisecond)

	// Hammer the count from other goroutines while the hub mutates the map
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.ClientCount()
				}
			}
		}()
	}

	hub.Broadcast(domain.PresenceEvent{Type: domain.EventServerUpdate, Timestamp: time.Now()})

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 5*time.Millisecond)

	close(stop)
	wg.Wait()
}

func TestHubDeliversToResponsiveClients(t *testing.T) {
	t.Parallel()

	hub := NewWebSocketHub()
	go hub.Run()

	client := &WebSocketClient{hub: hub, send: make(chan []byte, 4)}
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	hub.Broadcast(domain.PresenceEvent{Type: domain.EventPlayerJoin, Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		require.Contains(t, string(msg), domain.EventPlayerJoin)
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached the client")
	}
	require.Equal(t, 1, hub.ClientCount())
}
