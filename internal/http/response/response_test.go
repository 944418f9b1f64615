package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rr.Body.String())
	}
	return env
}

func TestJSONEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	rr := httptest.NewRecorder()
	JSON(rr, req, http.StatusCreated, map[string]string{"session_id": "s1"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d", rr.Code)
	}
	env := decode(t, rr)
	if env["success"] != true {
		t.Fatalf("expected success, got %+v", env)
	}
	data, _ := env["data"].(map[string]any)
	if data["session_id"] != "s1" {
		t.Fatalf("unexpected data %+v", env["data"])
	}
	m, _ := env["meta"].(map[string]any)
	if m["request_id"] != "abc" {
		t.Fatalf("unexpected meta %+v", m)
	}
	if _, ok := env["error"]; ok {
		t.Fatal("success envelope must omit error")
	}
}

func TestUnauthorizedIsUniform(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	Unauthorized(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rr.Code)
	}
	env := decode(t, rr)
	errObj, _ := env["error"].(map[string]any)
	if errObj["code"] != CodeUnauthorized || errObj["message"] != "unauthorized" {
		t.Fatalf("unexpected error %+v", errObj)
	}
	m, _ := env["meta"].(map[string]any)
	if m["request_id"] != "req-unknown" {
		t.Fatalf("unexpected request id %+v", m)
	}
}
