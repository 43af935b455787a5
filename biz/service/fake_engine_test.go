package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/db"
	"github.com/yunolab/connect_bridge/pkg/kafkaconnect"
	"gorm.io/gorm"
)

// fakeEngine is an in-memory Kafka-Connect-compatible endpoint for tests.
type fakeEngine struct {
	mu           sync.Mutex
	connectors   map[string]map[string]string
	states       map[string]string
	rejectCreate map[string]int
	server       *httptest.Server
}

func newFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	f := &fakeEngine{
		connectors:   map[string]map[string]string{},
		states:       map[string]string{},
		rejectCreate: map[string]int{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeEngine) client() *kafkaconnect.Client {
	return kafkaconnect.NewClient(f.server.URL, 5*time.Second, 0)
}

func (f *fakeEngine) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.connectors[name]
	return ok
}

func (f *fakeEngine) failCreate(name string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectCreate[name] = status
}

func (f *fakeEngine) setState(name, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[name] = state
}

func (f *fakeEngine) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	writeJSON := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	notFound := func() {
		writeJSON(http.StatusNotFound, map[string]any{"error_code": 404, "message": "not found"})
	}

	switch {
	case len(parts) == 1 && parts[0] == "connectors" && r.Method == http.MethodPost:
		var req struct {
			Name   string            `json:"name"`
			Config map[string]string `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(http.StatusBadRequest, map[string]any{"error_code": 400, "message": err.Error()})
			return
		}
		if code := f.rejectCreate[req.Name]; code != 0 {
			writeJSON(code, map[string]any{"error_code": code, "message": "create rejected"})
			return
		}
		f.connectors[req.Name] = req.Config
		writeJSON(http.StatusCreated, map[string]any{"name": req.Name, "config": req.Config})

	case len(parts) == 2 && parts[0] == "connectors" && r.Method == http.MethodGet:
		name := parts[1]
		config, ok := f.connectors[name]
		if !ok {
			notFound()
			return
		}
		writeJSON(http.StatusOK, map[string]any{"name": name, "config": config})

	case len(parts) == 2 && parts[0] == "connectors" && r.Method == http.MethodDelete:
		name := parts[1]
		if _, ok := f.connectors[name]; !ok {
			notFound()
			return
		}
		delete(f.connectors, name)
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 3 && parts[0] == "connectors" && parts[2] == "config" && r.Method == http.MethodPut:
		name := parts[1]
		if code := f.rejectCreate[name]; code != 0 {
			writeJSON(code, map[string]any{"error_code": code, "message": "config rejected"})
			return
		}
		var config map[string]string
		if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
			writeJSON(http.StatusBadRequest, map[string]any{"error_code": 400, "message": err.Error()})
			return
		}
		f.connectors[name] = config
		writeJSON(http.StatusOK, map[string]any{"name": name, "config": config})

	case len(parts) == 3 && parts[0] == "connectors" && (parts[2] == "pause" || parts[2] == "resume") && r.Method == http.MethodPut:
		name := parts[1]
		if _, ok := f.connectors[name]; !ok {
			notFound()
			return
		}
		if parts[2] == "pause" {
			f.states[name] = kafkaconnect.StatePaused
		} else {
			f.states[name] = kafkaconnect.StateRunning
		}
		w.WriteHeader(http.StatusAccepted)

	case len(parts) == 3 && parts[0] == "connectors" && parts[2] == "status" && r.Method == http.MethodGet:
		name := parts[1]
		if _, ok := f.connectors[name]; !ok {
			notFound()
			return
		}
		state := f.states[name]
		if state == "" {
			state = kafkaconnect.StateRunning
		}
		writeJSON(http.StatusOK, map[string]any{
			"name":      name,
			"connector": map[string]any{"state": state, "worker_id": "worker-1"},
			"tasks":     []map[string]any{{"id": 0, "state": state, "worker_id": "worker-1"}},
		})

	default:
		notFound()
	}
}

func newTestService(t *testing.T, engine *fakeEngine) (*Service, *gorm.DB) {
	t.Helper()
	dbConn := db.SetupTestDB(t)
	t.Cleanup(func() { db.CleanupTestDB(t, dbConn) })

	opts := Options{}
	if engine != nil {
		opts.Engine = engine.client()
		opts.EngineURL = engine.server.URL
	}
	return NewService(dbConn, opts), dbConn
}
