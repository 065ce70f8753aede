package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyHTML("<p>ok</p>").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "<p>ok</p>")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerSnapshotReloaded("snap-7", 42).
		TriggerSuccessNotification("Dados recarregados").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	var got map[string]map[string]interface{}
	if err := json.Unmarshal([]byte(trigger), &got); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if got["snapshot:reloaded"]["snapshot_id"] != "snap-7" {
		t.Errorf("snapshot:reloaded = %v", got["snapshot:reloaded"])
	}
	if got["snapshot:reloaded"]["records"] != float64(42) {
		t.Errorf("records = %v", got["snapshot:reloaded"]["records"])
	}
	if got["show-notification"]["type"] != "success" {
		t.Errorf("notification = %v", got["show-notification"])
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		build  *HTMXResponseBuilder
		status int
	}{
		{"bad request", BadRequestError("Data inválida <b>"), http.StatusBadRequest},
		{"internal", InternalServerError("falha"), http.StatusInternalServerError},
		{"unavailable", ServiceUnavailableError("Arquivo não encontrado"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.build.Write(w)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), `class="error"`) {
				t.Errorf("body = %q", w.Body.String())
			}
			if strings.Contains(w.Body.String(), "<b>") {
				t.Errorf("message was not escaped: %q", w.Body.String())
			}
		})
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError(http.MethodPost).Write(w)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", w.Code)
	}
	if w.Header().Get("Allow") != "POST" {
		t.Errorf("Allow = %q", w.Header().Get("Allow"))
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, http.StatusBadRequest, "invalid query: unknown state")

	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "bad_request" || body.Message != "invalid query: unknown state" {
		t.Errorf("body = %+v", body)
	}
}
