package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/dwellpoint/internal/pointer"
	"github.com/ayusman/dwellpoint/internal/store"
)

func newEngine(t *testing.T) *pointer.Engine {
	t.Helper()
	e := pointer.New(pointer.DefaultConfig(), pointer.Deps{Preferences: pointer.NewMapPreferences()})
	t.Cleanup(e.Close)
	return e
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_UnconfiguredRoutes(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/pointer", "/api/activations", "/api/pointer/ws", "/api/stream", "/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_Pointer(t *testing.T) {
	e := newEngine(t)
	s := New(Config{Engine: e})

	t.Run("GET returns snapshot", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/pointer", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var snap pointer.Snapshot
		if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
			t.Fatalf("failed to decode snapshot: %v", err)
		}
		if snap.Enabled {
			t.Error("engine should start disabled")
		}
		if snap.PointerGesture != pointer.DefaultPointerGesture {
			t.Errorf("expected gesture %s, got %s", pointer.DefaultPointerGesture, snap.PointerGesture)
		}
	})

	t.Run("POST applies update", func(t *testing.T) {
		body := `{"enabled": true, "mirrored": true, "pointerGesture": "Victory"}`
		req := httptest.NewRequest(http.MethodPost, "/api/pointer", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}

		var snap pointer.Snapshot
		json.NewDecoder(rec.Body).Decode(&snap)

		want := struct {
			Enabled, Mirrored bool
			Gesture           string
		}{true, true, "Victory"}
		got := struct {
			Enabled, Mirrored bool
			Gesture           string
		}{snap.Enabled, snap.Mirrored, snap.PointerGesture}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("POST with partial update keeps other fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/pointer", bytes.NewBufferString(`{"enabled": false}`))
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		snap := e.State()
		if snap.Enabled || !snap.Mirrored || snap.PointerGesture != "Victory" {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("POST rejects bad input", func(t *testing.T) {
		for _, body := range []string{`{not json`, `{"pointerGesture": ""}`} {
			req := httptest.NewRequest(http.MethodPost, "/api/pointer", bytes.NewBufferString(body))
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %s: expected status %d, got %d", body, http.StatusBadRequest, rec.Code)
			}
		}
	})

	t.Run("other methods not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/pointer", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestServer_Activations(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	s := New(Config{Store: st})

	get := func(t *testing.T, url string) (*httptest.ResponseRecorder, []store.ActivationRecord) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		var body struct {
			Activations []store.ActivationRecord `json:"activations"`
		}
		if rec.Code == http.StatusOK {
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
		}
		return rec, body.Activations
	}

	t.Run("empty history is an empty list", func(t *testing.T) {
		rec, list := get(t, "/api/activations")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if list == nil || len(list) != 0 {
			t.Errorf("expected empty list, got %v", list)
		}
	})

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"play", "pause", "next"} {
		st.Activations().Activate(pointer.Activation{TargetID: id, Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	t.Run("newest first with limit", func(t *testing.T) {
		rec, list := get(t, "/api/activations?limit=2")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var ids []string
		for _, r := range list {
			ids = append(ids, r.TargetID)
		}
		if diff := cmp.Diff([]string{"next", "pause"}, ids); diff != "" {
			t.Errorf("history mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		for _, q := range []string{"0", "-1", "many"} {
			rec, _ := get(t, "/api/activations?limit="+q)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit=%s: expected status %d, got %d", q, http.StatusBadRequest, rec.Code)
			}
		}
	})
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	page := "<html><body>targets</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: dir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || rec.Body.String() != page {
			t.Errorf("expected index page, got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 404 for missing files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/missing.js", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestLayout(t *testing.T) {
	l := NewLayout()

	if _, err := l.Surface(); !errors.Is(err, pointer.ErrGeometryUnavailable) {
		t.Errorf("expected ErrGeometryUnavailable before update, got %v", err)
	}
	if _, err := l.Targets(); !errors.Is(err, pointer.ErrGeometryUnavailable) {
		t.Errorf("expected ErrGeometryUnavailable before update, got %v", err)
	}

	targets := []pointer.Target{{ID: "a", Rect: pointer.Rect{Width: 10, Height: 10}, Enabled: true}}
	l.Update(pointer.Rect{Width: 800, Height: 600}, targets)
	targets[0].ID = "mutated"

	surface, err := l.Surface()
	if err != nil || surface.Width != 800 {
		t.Errorf("unexpected surface %+v (%v)", surface, err)
	}
	got, err := l.Targets()
	if err != nil || len(got) != 1 || got[0].ID != "a" {
		t.Errorf("layout should hold its own copy of targets, got %+v (%v)", got, err)
	}

	l.Update(pointer.Rect{}, nil)
	if _, err := l.Surface(); !errors.Is(err, pointer.ErrGeometryUnavailable) {
		t.Errorf("empty surface should be unavailable, got %v", err)
	}

	l.Update(pointer.Rect{Width: 1, Height: 1}, nil)
	l.Clear()
	if _, err := l.Targets(); !errors.Is(err, pointer.ErrGeometryUnavailable) {
		t.Errorf("expected ErrGeometryUnavailable after clear, got %v", err)
	}
}
