package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/sse"
	"github.com/bitfantasy/nimo-pcf/internal/testutil"
)

func TestSSEStreamFiltersByProduct(t *testing.T) {
	hub := sse.NewHub(nil)
	h := NewSSEHandler(hub)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/sse/events", h.Stream)

	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := srv.URL + "/api/v1/sse/events?product_id=p1&token=" + testutil.DefaultTestToken()
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Expected text/event-stream, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("Stream closed early: %v", err)
			}
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}
	readData := func() string {
		t.Helper()
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("Stream closed early: %v", err)
		}
		return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
	}

	if ev := readEvent(); ev != sse.EventConnected {
		t.Fatalf("Expected connected event, got %q", ev)
	}
	readData()

	// 其它产品的事件不会推送给该客户端
	hub.PublishFootprintUpdate(sse.FootprintUpdate{ProductID: "p2", TotalCo2eKg: 1})
	hub.PublishFootprintUpdate(sse.FootprintUpdate{ProductID: "p1", TotalCo2eKg: 11.2})

	if ev := readEvent(); ev != sse.EventFootprintUpdate {
		t.Fatalf("Expected footprint_update, got %q", ev)
	}
	if data := readData(); !strings.Contains(data, `"product_id":"p1"`) {
		t.Errorf("Expected p1 update, got %s", data)
	}

	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 connected client, got %d", hub.ClientCount())
	}
}

func TestSSEStreamRequiresToken(t *testing.T) {
	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/sse/events", NewSSEHandler(sse.NewHub(nil)).Stream)

	w := testutil.DoRequest(router, "GET", "/api/v1/sse/events", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}
