package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nhonchu/fridge-truck/internal/logger"
	"github.com/nhonchu/fridge-truck/internal/sim"
	"github.com/nhonchu/fridge-truck/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Broker:   "tcp://broker.fleet.example:1883",
		TruckID:  "TRK-042",
		HTTPAddr: ":8080",
		DBPath:   "fridge-truck.db",
	}
	tr := status.NewTracker(start, cfg)
	tr.SetSettings(sim.DefaultSettings())
	srv := New(":0", tr, logger.Get(logger.ErrorLevel))
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(sim.State{FanOn: true, FanDuration: 15, Temperature: 3.4}, 2)
	tr.SetMQTTConnected(true)
	tr.SetCounters(status.Counters{BatchesSent: 3, StatePushes: 9})

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Temperature != 3.4 {
		t.Errorf("temperature: got %v, want 3.4", sj.Status.Temperature)
	}
	if !sj.Status.FanOn {
		t.Error("expected fan_on=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected mqtt.connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://broker.fleet.example:1883" {
		t.Errorf("broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counters.BatchesSent != 3 {
		t.Errorf("batches_sent: got %d, want 3", sj.Status.Counters.BatchesSent)
	}
	if sj.Status.Config.TruckID != "TRK-042" {
		t.Errorf("truck_id: got %q", sj.Status.Config.TruckID)
	}
}

func TestIndexHTML(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(sim.State{FanOn: true, Temperature: 4.2, DoorOpen: true}, 0)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	html := string(body)

	if !strings.Contains(html, "Fridge Truck TRK-042") {
		t.Error("page should contain the truck ID")
	}
	if !strings.Contains(html, "4.2 °C") {
		t.Error("page should contain the temperature")
	}
	if !strings.Contains(html, "OPEN") {
		t.Error("page should report the open door")
	}
}

func TestIndexNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nosuchpage")
	if err != nil {
		t.Fatalf("GET /nosuchpage: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestWebsocketFeed(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(sim.State{FanOn: true, Temperature: 2.6}, 1)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?interval=1s"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The first snapshot is sent immediately on connect.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(msg, &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Temperature != 2.6 {
		t.Errorf("temperature: got %v, want 2.6", sj.Status.Temperature)
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		query string
		want  time.Duration
	}{
		{"", defaultInterval},
		{"interval=2s", 2 * time.Second},
		{"interval=1h", defaultInterval}, // above max
		{"interval=-1s", defaultInterval},
		{"interval_ms=500", 500 * time.Millisecond},
		{"interval_ms=999999", defaultInterval}, // above max
		{"interval=garbage", defaultInterval},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/ws?"+tt.query, nil)
		if got := parseInterval(r); got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.query, got, tt.want)
		}
	}
}
