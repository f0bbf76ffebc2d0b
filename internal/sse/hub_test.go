package sse

import (
	"encoding/json"
	"testing"
)

func newClient(id, productID string, buf int) *Client {
	return &Client{ID: id, UserID: "u1", ProductID: productID, Events: make(chan Event, buf)}
}

func TestBroadcastFiltersByProduct(t *testing.T) {
	hub := NewHub(nil)
	all := newClient("all", "", 4)
	p1 := newClient("p1", "p1", 4)
	p2 := newClient("p2", "p2", 4)
	hub.Register(all)
	hub.Register(p1)
	hub.Register(p2)

	hub.PublishFootprintUpdate(FootprintUpdate{ProductID: "p1", TotalCo2eKg: 11.2, Status: "in_progress"})

	if len(all.Events) != 1 || len(p1.Events) != 1 {
		t.Fatalf("Expected subscribers of p1 to receive the event")
	}
	if len(p2.Events) != 0 {
		t.Errorf("Expected p2 subscriber to receive nothing, got %d", len(p2.Events))
	}

	ev := <-p1.Events
	if ev.EventType != EventFootprintUpdate {
		t.Errorf("Expected %s, got %s", EventFootprintUpdate, ev.EventType)
	}
	var u FootprintUpdate
	if err := json.Unmarshal([]byte(ev.Data), &u); err != nil {
		t.Fatalf("Expected JSON payload, got %v", err)
	}
	if u.TotalCo2eKg != 11.2 {
		t.Errorf("Expected 11.2, got %v", u.TotalCo2eKg)
	}
}

func TestBroadcastSkipsFullClients(t *testing.T) {
	hub := NewHub(nil)
	c := newClient("c", "", 1)
	hub.Register(c)

	hub.Broadcast(Event{EventType: "a"})
	hub.Broadcast(Event{EventType: "b"})

	if len(c.Events) != 1 {
		t.Errorf("Expected 1 buffered event, got %d", len(c.Events))
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	hub := NewHub(nil)
	c := newClient("c", "", 1)
	hub.Register(c)
	hub.Unregister("c")
	hub.Unregister("c")

	if hub.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.ClientCount())
	}
	if _, ok := <-c.Events; ok {
		t.Errorf("Expected closed channel")
	}
}
