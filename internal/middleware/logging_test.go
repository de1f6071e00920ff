package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type logEntry struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Size      int    `json:"size"`
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	ErrorCode string `json:"error_code"`
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) logEntry {
	t.Helper()
	var e logEntry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("parse log entry: %v, log: %s", err, buf.String())
	}
	return e
}

func TestLogging_Fields(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantLevel string
		wantCode  string
		wantUser  string
		wantSize  int
	}{
		{
			name: "ok response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("hello"))
			},
			wantLevel: "INFO",
			wantSize:  5,
		},
		{
			name: "client error with code and user",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetUserID(r.Context(), "user-7")
				SetErrorCode(r.Context(), "validation_error")
				w.WriteHeader(http.StatusBadRequest)
			},
			wantLevel: "WARN",
			wantCode:  "validation_error",
			wantUser:  "user-7",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetErrorCode(r.Context(), "internal_error")
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantLevel: "ERROR",
			wantCode:  "internal_error",
		},
		{
			name: "error code ignored on success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetErrorCode(r.Context(), "stale")
			},
			wantLevel: "INFO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			h := RequestID(Logging(newTestLogger(buf))(tt.handler))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/match/rank", nil)
			req.Header.Set(RequestIDHeader, "req-123")
			h.ServeHTTP(httptest.NewRecorder(), req)

			e := decodeEntry(t, buf)
			if e.Level != tt.wantLevel {
				t.Errorf("level = %q, want %q", e.Level, tt.wantLevel)
			}
			if e.Method != http.MethodPost || e.Path != "/api/v1/match/rank" {
				t.Errorf("method/path = %s %s", e.Method, e.Path)
			}
			if e.RequestID != "req-123" {
				t.Errorf("request_id = %q", e.RequestID)
			}
			if e.ErrorCode != tt.wantCode {
				t.Errorf("error_code = %q, want %q", e.ErrorCode, tt.wantCode)
			}
			if e.UserID != tt.wantUser {
				t.Errorf("user_id = %q, want %q", e.UserID, tt.wantUser)
			}
			if e.Size != tt.wantSize {
				t.Errorf("size = %d, want %d", e.Size, tt.wantSize)
			}
		})
	}
}

func TestLogging_FirstStatusWins(t *testing.T) {
	buf := &bytes.Buffer{}
	h := Logging(newTestLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if e := decodeEntry(t, buf); e.Status != http.StatusCreated {
		t.Errorf("status = %d, want 201", e.Status)
	}
}

func TestContextHelpersWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := req.Context()
	SetErrorCode(ctx, "ignored")
	if GetErrorCode(ctx) != "" || GetRequestID(ctx) != "" || GetUserID(ctx) != "" {
		t.Error("bare context should report empty values")
	}
	ctx = SetUserID(ctx, "u1")
	if GetUserID(ctx) != "u1" {
		t.Errorf("GetUserID() = %q", GetUserID(ctx))
	}
}
