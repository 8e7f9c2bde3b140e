package websocket

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestClient(hub *Hub, userID, peerID uint, buffer int) *Client {
	return &Client{
		id:     "test",
		hub:    hub,
		send:   make(chan []byte, buffer),
		userID: userID,
		peerID: peerID,
		room:   RoomName(userID, peerID),
	}
}

func receiveOrFail(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.send:
		return data
	case <-time.After(time.Second):
		t.Fatal("Expected a delivery, got none")
		return nil
	}
}

func assertNoDelivery(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if ok {
			t.Fatalf("Expected no delivery, got %q", data)
		}
	default:
	}
}

func TestHubPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("FanOutToRoomMembers", func(t *testing.T) {
		hub := NewHub(nil, nil)
		a := newTestClient(hub, 3, 4, 8)
		b := newTestClient(hub, 4, 3, 8)
		hub.Join(a)
		hub.Join(b)

		if err := hub.Publish(ctx, RoomName(3, 4), nil, []byte(`{"hello":1}`)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		if string(receiveOrFail(t, a)) != `{"hello":1}` {
			t.Error("Client a received wrong payload")
		}
		if string(receiveOrFail(t, b)) != `{"hello":1}` {
			t.Error("Client b received wrong payload")
		}
	})

	t.Run("ParticipantFilter", func(t *testing.T) {
		hub := NewHub(nil, nil)
		a := newTestClient(hub, 3, 4, 8)
		b := newTestClient(hub, 4, 3, 8)
		// An intruder that somehow joined the same room must not see
		// events restricted to the pair.
		intruder := newTestClient(hub, 9, 4, 8)
		intruder.room = RoomName(3, 4)
		hub.Join(a)
		hub.Join(b)
		hub.Join(intruder)

		if err := hub.Publish(ctx, RoomName(3, 4), []uint{3, 4}, []byte(`x`)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		receiveOrFail(t, a)
		receiveOrFail(t, b)
		assertNoDelivery(t, intruder)
	})

	t.Run("NoQueueingForAbsentPeers", func(t *testing.T) {
		hub := NewHub(nil, nil)
		if err := hub.Publish(ctx, RoomName(5, 6), nil, []byte(`x`)); err != nil {
			t.Fatalf("Publish to empty room should be a no-op, got %v", err)
		}
	})

	t.Run("LeaveStopsDelivery", func(t *testing.T) {
		hub := NewHub(nil, nil)
		a := newTestClient(hub, 3, 4, 8)
		b := newTestClient(hub, 4, 3, 8)
		hub.Join(a)
		hub.Join(b)
		hub.Leave(b)

		if err := hub.Publish(ctx, RoomName(3, 4), nil, []byte(`x`)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		receiveOrFail(t, a)
		if hub.RoomSize(RoomName(3, 4)) != 1 {
			t.Errorf("Expected 1 member after leave, got %d", hub.RoomSize(RoomName(3, 4)))
		}
	})

	t.Run("LeaveIsIdempotent", func(t *testing.T) {
		hub := NewHub(nil, nil)
		a := newTestClient(hub, 3, 4, 8)
		hub.Join(a)
		hub.Leave(a)
		hub.Leave(a)
		if hub.RoomSize(RoomName(3, 4)) != 0 {
			t.Errorf("Expected empty room, got %d members", hub.RoomSize(RoomName(3, 4)))
		}
	})

	t.Run("SlowClientIsDroppedNotBlocked", func(t *testing.T) {
		hub := NewHub(nil, nil)
		slow := newTestClient(hub, 3, 4, 1)
		hub.Join(slow)

		if err := hub.Publish(ctx, RoomName(3, 4), nil, []byte(`first`)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		// Queue is now full; the next publish must not block and must
		// evict the client.
		done := make(chan struct{})
		go func() {
			hub.Publish(ctx, RoomName(3, 4), nil, []byte(`second`))
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Publish blocked on a full client queue")
		}
		if hub.RoomSize(RoomName(3, 4)) != 0 {
			t.Errorf("Expected slow client to be evicted, room size %d", hub.RoomSize(RoomName(3, 4)))
		}
	})
}

// Joins, leaves and publishes race each other in production; the test only
// has to survive under -race.
func TestHubConcurrentJoinLeavePublish(t *testing.T) {
	hub := NewHub(nil, nil)
	ctx := context.Background()
	room := RoomName(1, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c := newTestClient(hub, 1, 2, 1)
				hub.Join(c)
				hub.Publish(ctx, room, nil, []byte(`x`))
				hub.Leave(c)
			}
		}()
	}
	wg.Wait()
}
