package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/temp-logger/internal/status"
)

// fakeControls records control calls and returns scripted errors.
type fakeControls struct {
	starts   int
	stops    int
	startErr error
	stopErr  error
	onStart  func()
}

func (f *fakeControls) Start() error {
	f.starts++
	if f.onStart != nil {
		f.onStart()
	}
	return f.startErr
}

func (f *fakeControls) Stop() error {
	f.stops++
	return f.stopErr
}

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *fakeControls) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		LogIntervalSec:  10,
		ViewIntervalSec: 3,
		Broker:          "tcp://192.168.1.200:1883",
		HTTPAddr:        ":80",
		ResultsFolder:   "/data/results",
	}
	tr := status.NewTracker(start, cfg)
	fc := &fakeControls{}
	srv := New(":0", tr, fc)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr, fc
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetState("running")
	tr.SetSensors(2)
	tr.SetReading(time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC), []status.ChannelValue{
		{ID: "28-000001", Name: "Boiler_Out", Temp: 54.125, Valid: true},
		{ID: "28-000002", Name: "Sensor_2", Valid: false},
	})
	tr.SetMQTTConnected(true)

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

	if sj.Status.State != "running" {
		t.Errorf("state: got %q, want running", sj.Status.State)
	}
	if sj.Status.Sensors != 2 {
		t.Errorf("sensors: got %d, want 2", sj.Status.Sensors)
	}
	if len(sj.Status.Reading) != 2 {
		t.Fatalf("reading entries: got %d, want 2", len(sj.Status.Reading))
	}
	if sj.Status.Reading[0].Temp == nil || *sj.Status.Reading[0].Temp != 54.125 {
		t.Errorf("first reading temp: got %v", sj.Status.Reading[0].Temp)
	}
	if sj.Status.Reading[1].Temp != nil {
		t.Errorf("absent reading carries a temp: %v", *sj.Status.Reading[1].Temp)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("Config.Broker: got %q", sj.Status.Config.Broker)
	}
}

func TestJSONSessionInfo(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetSession(&status.SessionInfo{
		Name:      "My Run",
		Counter:   7,
		Token:     "ab12cd",
		StartTime: time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC),
		Folder:    "/data/results/My Run[AT:007]",
		Rows:      42,
	})

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	json.NewDecoder(resp.Body).Decode(&sj)

	if sj.Status.Session == nil {
		t.Fatal("expected session in JSON")
	}
	if sj.Status.Session.Counter != 7 {
		t.Errorf("session counter: got %d, want 7", sj.Status.Session.Counter)
	}
	if sj.Status.Session.Rows != 42 {
		t.Errorf("session rows: got %d, want 42", sj.Status.Session.Rows)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetState("running")
	tr.SetReading(time.Now(), []status.ChannelValue{
		{ID: "28-000001", Name: "Boiler_Out", Temp: 54.125, Valid: true},
	})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStartEndpoint(t *testing.T) {
	ts, tr, fc := newTestServer(t)
	fc.onStart = func() { tr.SetState("running") }

	resp, err := http.Post(ts.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("POST /start: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if fc.starts != 1 {
		t.Errorf("Start calls: got %d, want 1", fc.starts)
	}

	var cr controlResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !cr.OK {
		t.Errorf("ok: got false, error %q", cr.Error)
	}
	if cr.State != "running" {
		t.Errorf("state: got %q, want running", cr.State)
	}
}

func TestStopEndpointConflict(t *testing.T) {
	ts, _, fc := newTestServer(t)
	fc.stopErr = errors.New("no measurement in progress")

	resp, err := http.Post(ts.URL+"/stop", "", nil)
	if err != nil {
		t.Fatalf("POST /stop: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status: got %d, want 409", resp.StatusCode)
	}

	var cr controlResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cr.OK {
		t.Error("ok: got true for a rejected stop")
	}
	if cr.Error == "" {
		t.Error("error message missing from conflict response")
	}
}

func TestControlEndpointsRejectGET(t *testing.T) {
	ts, _, fc := newTestServer(t)

	for _, path := range []string{"/start", "/stop"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: got %d, want 405", path, resp.StatusCode)
		}
	}
	if fc.starts != 0 || fc.stops != 0 {
		t.Errorf("control calls on GET: starts %d stops %d", fc.starts, fc.stops)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}
