package httputils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "k" {
			t.Errorf("missing header")
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(map[string]string{"echo": in["q"]})
	}))
	defer srv.Close()

	var out map[string]string
	err := PostJSON(context.Background(), srv.URL, map[string]string{"X-Api-Key": "k"}, map[string]string{"q": "hello"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["echo"] != "hello" {
		t.Errorf("expected echo hello, got %v", out)
	}
}

func TestPostJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), srv.URL, nil, map[string]string{}, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", se.StatusCode)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusBadRequest, "Command is required")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if rr.Body.String() != "{\"error\":\"Command is required\"}\n" {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
}
