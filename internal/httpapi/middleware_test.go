package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestIDEchoesOrMints(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc-123" || rr.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("caller id not kept: ctx=%q header=%q", seen, rr.Header().Get("X-Request-Id"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if len(seen) != 32 {
		t.Fatalf("expected minted 32 char id, got %q", seen)
	}
}

func TestRecovererWritesJSON500(t *testing.T) {
	h := Recoverer(discardLogger(), true)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"internal_error"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestDecodeRejectsLargeBody(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPatch, "/profile", strings.NewReader(body))
	rr := httptest.NewRecorder()

	var dst profileUpdateRequest
	err := decodeJSON(rr, req, &dst)
	if err == nil {
		t.Fatalf("expected error")
	}
	writeDecodeError(rr, err)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestDecodeAllowEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/protected", http.NoBody)
	var dst any
	empty, err := decodeJSONAllowEmpty(httptest.NewRecorder(), req, &dst)
	if err != nil || !empty {
		t.Fatalf("empty=%v err=%v", empty, err)
	}
}
