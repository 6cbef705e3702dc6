package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusWriterDefaultsToOK(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &StatusWriter{ResponseWriter: rec}
	if _, err := sw.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if sw.Code() != http.StatusOK || sw.Bytes != 5 {
		t.Fatalf("expected 200/5, got %d/%d", sw.Code(), sw.Bytes)
	}
}

func TestStatusWriterKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &StatusWriter{ResponseWriter: rec}
	sw.WriteHeader(http.StatusTeapot)
	sw.WriteHeader(http.StatusInternalServerError)
	if sw.Code() != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", sw.Code())
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadGateway, "upstream_failed")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if got := rec.Body.String(); got != "{\"error\":\"upstream_failed\"}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}
