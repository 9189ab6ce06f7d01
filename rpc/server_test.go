package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServeHTTPRejectsNonPost(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	s := NewServer(":0", h, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestServeHTTPRequiresAuthToken(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	s := NewServer(":0", h, "secret-token")

	body, _ := json.Marshal(reqFor("nonexistent", nil))
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestServeHTTPAcceptsValidAuthToken(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	s := NewServer(":0", h, "secret-token")

	body, _ := json.Marshal(reqFor("block_by_height", map[string]uint64{"height": 0}))
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("response error: %+v", resp.Error)
	}
}

func TestServeHTTPRejectsWrongJSONRPCVersion(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	s := NewServer(":0", h, "")

	body, _ := json.Marshal(map[string]any{"jsonrpc": "1.0", "method": "block_by_height", "id": 1})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Fatalf("Error = %+v, want CodeInvalidRequest", resp.Error)
	}
}

func TestServeHTTPSetsCORSHeader(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	s := NewServer(":0", h, "")

	body, _ := json.Marshal(reqFor("block_by_height", map[string]uint64{"height": 0}))
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Authorization" {
		t.Fatalf("Access-Control-Allow-Headers = %q, want Authorization", got)
	}
}
