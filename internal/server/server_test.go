package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/pkg/errors"
	"go.uber.org/zap"
)

type fakeAnalyzer struct {
	last domain.AnalyzeRequest
	resp *domain.AnalyzeResponse
	err  error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func postAnalyze(t *testing.T, srv *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var payload errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return payload.Error
}

func TestAnalyzeSuccess(t *testing.T) {
	analyzer := &fakeAnalyzer{resp: &domain.AnalyzeResponse{
		Channel:      domain.ChannelInfo{ID: "UC1", Title: "Creator"},
		Timezone:     "UTC",
		LookbackDays: 90,
		Days:         map[string]int{},
	}}
	srv := New(analyzer, ":0", zap.NewNop())

	rec := postAnalyze(t, srv, `{"channel":" @creator ","timezone":" UTC ","lookbackDays":90.7}`,
		map[string]string{"X-Forwarded-For": "9.9.9.9, 10.0.0.1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if analyzer.last.Days != 90 || analyzer.last.Range != domain.RangeDays {
		t.Fatalf("unexpected request %+v", analyzer.last)
	}
	if analyzer.last.Timezone != "UTC" || analyzer.last.ClientID != "9.9.9.9" {
		t.Fatalf("unexpected request %+v", analyzer.last)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a request id header")
	}

	var resp domain.AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Channel.ID != "UC1" {
		t.Fatalf("unexpected body %s (%v)", rec.Body.String(), err)
	}
}

func TestAnalyzeRequestParsing(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantRange domain.RangeKind
		wantDays  int
	}{
		{"default window", `{"channel":"@a","timezone":"UTC"}`, domain.RangeDays, 365},
		{"clamped low", `{"channel":"@a","timezone":"UTC","lookbackDays":3}`, domain.RangeDays, 30},
		{"clamped high", `{"channel":"@a","timezone":"UTC","lookbackDays":99999}`, domain.RangeDays, 3650},
		{"string days ignored", `{"channel":"@a","timezone":"UTC","lookbackDays":"90"}`, domain.RangeDays, 365},
		{"lifetime", `{"channel":"@a","timezone":"UTC","range":"lifetime","lookbackDays":90}`, domain.RangeLifetime, 0},
		{"unknown range", `{"channel":"@a","timezone":"UTC","range":"forever"}`, domain.RangeDays, 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{resp: &domain.AnalyzeResponse{}}
			srv := New(analyzer, ":0", zap.NewNop())
			if rec := postAnalyze(t, srv, tt.body, nil); rec.Code != http.StatusOK {
				t.Fatalf("unexpected status %d", rec.Code)
			}
			if analyzer.last.Range != tt.wantRange || analyzer.last.Days != tt.wantDays {
				t.Fatalf("got range=%s days=%d", analyzer.last.Range, analyzer.last.Days)
			}
		})
	}
}

func TestAnalyzeMalformedBodyIsTreatedAsEmpty(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.NewValidationError("Channel input is required.", "channel", "")}
	srv := New(analyzer, ":0", zap.NewNop())

	rec := postAnalyze(t, srv, `{not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if analyzer.last.ChannelReference != "" || analyzer.last.ClientID != "unknown" {
		t.Fatalf("unexpected request %+v", analyzer.last)
	}
	if got := decodeError(t, rec); got.Code != "invalid_channel" {
		t.Fatalf("unexpected error %+v", got)
	}
}

func TestAnalyzeErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"invalid channel", errors.NewValidationError("Unsupported channel format.", "channel", "x"), 400, "invalid_channel", "Unsupported channel format."},
		{"invalid timezone", errors.NewValidationError("Provide a valid IANA timezone, like America/New_York.", "timezone", "x"), 400, "invalid_timezone", "Provide a valid IANA timezone, like America/New_York."},
		{"not found", errors.NewNotFoundError("Channel not found.", "channel"), 404, "channel_not_found", "Channel not found."},
		{"lifetime", errors.NewLifetimeUnavailableError("UC1"), 502, "lifetime_unavailable", lifetimeUnavailableMessage},
		{"timeout", errors.NewTimeoutError("late", "ingestion"), 504, "temporary_failure", temporaryFailureMessage},
		{"deadline", fmt.Errorf("resolve: %w", context.DeadlineExceeded), 504, "temporary_failure", temporaryFailureMessage},
		{"quota 403", errors.NewAPIError("forbidden", 403, nil), 503, "quota_exceeded", quotaExceededMessage},
		{"quota 429", errors.NewAPIError("slow down", 429, nil), 503, "quota_exceeded", quotaExceededMessage},
		{"upstream 500", errors.NewAPIError("boom", 500, nil), 503, "try_again", tryAgainMessage},
		{"missing key", errors.NewConfigError("Server misconfigured: missing YOUTUBE_API_KEY.", "YOUTUBE_API_KEY"), 500, "missing_api_key", "Server misconfigured: missing YOUTUBE_API_KEY."},
		{"unknown", fmt.Errorf("surprise"), 500, "temporary_failure", temporaryFailureMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(&fakeAnalyzer{err: tt.err}, ":0", zap.NewNop())
			rec := postAnalyze(t, srv, `{"channel":"@a","timezone":"UTC"}`, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			got := decodeError(t, rec)
			if got.Code != tt.code || got.Message != tt.message {
				t.Fatalf("unexpected error %+v", got)
			}
		})
	}
}

func TestAnalyzeRateLimitedSetsRetryAfter(t *testing.T) {
	srv := New(&fakeAnalyzer{err: errors.NewRateLimitError("Too many requests. Please wait a minute and try again.", 1500*time.Millisecond)}, ":0", zap.NewNop())

	rec := postAnalyze(t, srv, `{}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
	if got := decodeError(t, rec); got.Code != "rate_limited" {
		t.Fatalf("unexpected error %+v", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		headers map[string]string
		want    string
	}{
		{map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2", "X-Real-IP": "3.3.3.3"}, "1.1.1.1"},
		{map[string]string{"X-Forwarded-For": " , 2.2.2.2", "X-Real-IP": "3.3.3.3"}, "3.3.3.3"},
		{map[string]string{"CF-Connecting-IP": "4.4.4.4"}, "4.4.4.4"},
		{nil, "unknown"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
		for k, v := range tt.headers {
			r.Header.Set(k, v)
		}
		if got := clientIP(r); got != tt.want {
			t.Errorf("clientIP(%v) = %q, want %q", tt.headers, got, tt.want)
		}
	}
}

func TestHealthz(t *testing.T) {
	srv := New(&fakeAnalyzer{}, ":0", zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}
