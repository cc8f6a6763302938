package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- BodySizeLimit ---

func TestBodySizeLimit(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, "too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name          string
		body          string
		contentLength int64
		want          int
	}{
		{"small body", "small", 5, http.StatusOK},
		{"declared length over limit", "", 1000, http.StatusRequestEntityTooLarge},
		{"chunked body over limit", strings.Repeat("x", 100), -1, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rr := serve(BodySizeLimit(10)(echo), req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestBodySizeLimit_JSONErrorAndBodilessMethods(t *testing.T) {
	h := RequestID()(BodySizeLimit(10)(okHandler("ok")))

	req := httptest.NewRequest(http.MethodPut, "/api/explore/airlines", strings.NewReader(strings.Repeat("x", 50)))
	rr := serve(h, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
	var body struct {
		Code      int    `json:"code"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v (%q)", err, rr.Body.String())
	}
	if body.Code != http.StatusRequestEntityTooLarge || body.RequestID == "" {
		t.Errorf("unexpected error body %+v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/hubs/top", nil)
	req.ContentLength = 1000
	if rr := serve(h, req); rr.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", rr.Code)
	}
}

// --- PanicRecovery ---

func TestPanicRecovery_PassesThrough(t *testing.T) {
	rr := serve(PanicRecovery(nil)(okHandler("OK")), httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Errorf("got %d %q, want 200 OK", rr.Code, rr.Body.String())
	}
}

func TestPanicRecovery_RecoversAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logging.DebugLevel, logging.FormatJSON)

	handler := PanicRecovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("graph exploded")
	}))
	rr := serve(handler, httptest.NewRequest(http.MethodGet, "/api/hubs/top", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "graph exploded") {
		t.Error("panic message leaked to the client")
	}
	if !strings.Contains(buf.String(), "graph exploded") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

// --- Logging ---

func TestLogging_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusGatewayTimeout, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := logging.New(&buf, logging.DebugLevel, logging.FormatJSON)
		handler := RequestID()(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})))

		req := httptest.NewRequest(http.MethodGet, "/api/routes/average-stops", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		serve(handler, req)

		var entry logging.LogEntry
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("status %d: log line is not JSON: %v (%s)", tt.status, err, buf.String())
		}
		if entry.Level != tt.level {
			t.Errorf("status %d logged at %s, want %s", tt.status, entry.Level, tt.level)
		}
		if entry.Fields["request_id"] != "req-42" {
			t.Errorf("request_id = %v, want req-42", entry.Fields["request_id"])
		}
		if entry.Fields["path"] != "/api/routes/average-stops" {
			t.Errorf("path = %v", entry.Fields["path"])
		}
		if got, ok := entry.Fields["status"].(float64); !ok || int(got) != tt.status {
			t.Errorf("status field = %v, want %d", entry.Fields["status"], tt.status)
		}
	}
}

// --- RequestID ---

func TestRequestID_GeneratesUUID(t *testing.T) {
	var captured string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r)
	}))
	rr := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(captured) != 36 {
		t.Errorf("generated id %q is not a UUID", captured)
	}
	if rr.Header().Get(RequestIDHeader) != captured {
		t.Errorf("response header %q does not match context id %q", rr.Header().Get(RequestIDHeader), captured)
	}
}

func TestRequestID_ClientSupplied(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"kept", "client-id.1_a", "client-id.1_a"},
		{"sanitized", "id<script>", "idscript"},
		{"truncated", strings.Repeat("a", 200), strings.Repeat("a", maxRequestIDLength)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = GetRequestID(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.header)
			serve(handler, req)
			if captured != tt.want {
				t.Errorf("request id = %q, want %q", captured, tt.want)
			}
		})
	}
}

func TestRequestID_OnlyInvalidCharactersRegenerates(t *testing.T) {
	var captured string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<<>>")
	serve(handler, req)
	if len(captured) != 36 {
		t.Errorf("expected a generated UUID, got %q", captured)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil)); id != "" {
		t.Errorf("GetRequestID = %q, want empty", id)
	}
}

// --- CORS ---

func TestCORS(t *testing.T) {
	cfg := &CORSConfig{
		AllowedOrigins: []string{"https://map.example"},
		AllowedMethods: []string{"GET", "POST"},
		MaxAge:         600,
	}

	tests := []struct {
		name       string
		config     *CORSConfig
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"allowed origin", cfg, http.MethodGet, "https://map.example", "https://map.example", http.StatusOK},
		{"disallowed origin", cfg, http.MethodGet, "https://evil.example", "", http.StatusOK},
		{"wildcard", &CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodGet, "https://any.example", "https://any.example", http.StatusOK},
		{"nil config", nil, http.MethodGet, "https://map.example", "", http.StatusOK},
		{"preflight allowed", cfg, http.MethodOptions, "https://map.example", "https://map.example", http.StatusOK},
		{"preflight disallowed", cfg, http.MethodOptions, "https://evil.example", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/hubs/top", nil)
			req.Header.Set("Origin", tt.origin)
			rr := serve(CORS(tt.config)(okHandler("ok")), req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	cfg := &CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "DELETE"}, MaxAge: 600}
	req := httptest.NewRequest(http.MethodOptions, "/api/explore/airport/1", nil)
	req.Header.Set("Origin", "https://map.example")
	rr := serve(CORS(cfg)(okHandler("")), req)

	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, DELETE" {
		t.Errorf("Allow-Methods = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Request-ID" {
		t.Errorf("Allow-Headers = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("Max-Age = %q", got)
	}
}

// --- SecurityHeaders ---

func TestSecurityHeaders(t *testing.T) {
	rr := serve(SecurityHeaders()(okHandler("{}")), httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, value := range want {
		if got := rr.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}

// --- Timeout ---

func TestTimeout_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

	if !ok {
		t.Fatal("request context has no deadline")
	}
	if remaining := time.Until(deadline); remaining > time.Second {
		t.Errorf("deadline %v too far out", remaining)
	}
}

func TestTimeout_SkipsEventStreams(t *testing.T) {
	var ok bool
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = r.Context().Deadline()
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Accept", "text/event-stream")
	serve(handler, req)

	if ok {
		t.Error("event stream request got a deadline")
	}
}

func TestTimeout_ExpiresContext(t *testing.T) {
	var err error
	handler := Timeout(time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		err = r.Context().Err()
	}))
	serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

	if err != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", err)
	}
}

func TestTimeout_ZeroDisables(t *testing.T) {
	handler := Timeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Error("zero timeout should not set a deadline")
		}
	}))
	serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
}

// --- Metrics ---

type mockMetricsRecorder struct {
	requests      []string
	responseSizes []float64
	inFlight      int
}

func (m *mockMetricsRecorder) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.requests = append(m.requests, method+" "+path+" "+status)
}

func (m *mockMetricsRecorder) RecordResponseSize(method, path string, size float64) {
	m.responseSizes = append(m.responseSizes, size)
}

func (m *mockMetricsRecorder) IncHTTPRequestsInFlight() { m.inFlight++ }

func (m *mockMetricsRecorder) DecHTTPRequestsInFlight() { m.inFlight-- }

func TestMetrics_LabelsByPattern(t *testing.T) {
	recorder := &mockMetricsRecorder{}
	mux := http.NewServeMux()
	mux.Handle("GET /api/explore/airport/{id}", okHandler("Hello"))

	handler := Metrics(recorder)(mux)
	serve(handler, httptest.NewRequest(http.MethodGet, "/api/explore/airport/42", nil))
	serve(handler, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	want := []string{
		"GET GET /api/explore/airport/{id} 200",
		"GET unmatched 404",
	}
	if len(recorder.requests) != len(want) {
		t.Fatalf("recorded %v, want %v", recorder.requests, want)
	}
	for i := range want {
		if recorder.requests[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, recorder.requests[i], want[i])
		}
	}
	if recorder.responseSizes[0] != 5 {
		t.Errorf("response size = %v, want 5", recorder.responseSizes[0])
	}
}

func TestMetrics_TracksInFlight(t *testing.T) {
	recorder := &mockMetricsRecorder{}
	var during int
	handler := Metrics(recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = recorder.inFlight
	}))
	serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

	if during != 1 {
		t.Errorf("in-flight during request = %d, want 1", during)
	}
	if recorder.inFlight != 0 {
		t.Errorf("in-flight after request = %d, want 0", recorder.inFlight)
	}
}

func TestMetrics_NilRecorder(t *testing.T) {
	rr := serve(Metrics(nil)(okHandler("OK")), httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestStatusRecorder_FirstHeaderWins(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusTeapot)
	rec.Write([]byte("abc"))

	if rec.statusCode != http.StatusCreated {
		t.Errorf("statusCode = %d, want 201", rec.statusCode)
	}
	if rec.bytesWritten != 3 {
		t.Errorf("bytesWritten = %d, want 3", rec.bytesWritten)
	}
}
