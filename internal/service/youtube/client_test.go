package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/pkg/errors"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), ClientConfig{
		Endpoint:       srv.URL + "/",
		RequestTimeout: timeout,
		HTTPClient:     srv.Client(),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, body)
}

func TestClientLookupChannel(t *testing.T) {
	var query atomic.Value
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/channels") {
			http.NotFound(w, r)
			return
		}
		query.Store(r.URL.Query())
		writeJSON(w, http.StatusOK, `{"items":[{"id":"UC1234567890123456789012",
			"snippet":{"title":"Creator","customUrl":"@creator","publishedAt":"2020-01-02T03:04:05Z",
				"thumbnails":{"medium":{"url":"https://img/medium.jpg"},"default":{"url":"https://img/default.jpg"}}},
			"contentDetails":{"relatedPlaylists":{"uploads":"UU1234567890123456789012"}}}]}`)
	}, time.Second)

	record, err := client.LookupChannel(context.Background(), domain.ChannelLookup{Kind: domain.LookupByHandle, Value: "creator"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != "UC1234567890123456789012" || record.UploadsPlaylistID != "UU1234567890123456789012" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.ThumbnailURL != "https://img/medium.jpg" {
		t.Fatalf("expected medium thumbnail fallback, got %q", record.ThumbnailURL)
	}

	q := query.Load().(url.Values)
	if q.Get("forHandle") != "creator" {
		t.Fatalf("expected forHandle lookup, got %v", q)
	}
	if !slices.Contains(q["part"], "contentDetails") {
		t.Fatalf("expected contentDetails part, got %v", q["part"])
	}
}

func TestClientLookupChannelEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"items":[]}`)
	}, time.Second)

	record, err := client.LookupChannel(context.Background(), domain.ChannelLookup{Kind: domain.LookupByID, Value: "UCx"})
	if err != nil || record != nil {
		t.Fatalf("expected nil record, got %+v %v", record, err)
	}
}

func TestClientListUploadsAndVideos(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/playlistItems"):
			if r.URL.Query().Get("maxResults") != "50" {
				t.Errorf("expected maxResults=50, got %q", r.URL.Query().Get("maxResults"))
			}
			writeJSON(w, http.StatusOK, `{"nextPageToken":"next","items":[
				{"contentDetails":{"videoId":"a","videoPublishedAt":"2024-01-02T00:00:00Z"}},
				{"contentDetails":{"videoId":"b","videoPublishedAt":"2024-01-01T00:00:00Z"}}]}`)
		case strings.HasSuffix(r.URL.Path, "/videos"):
			writeJSON(w, http.StatusOK, `{"items":[
				{"id":"a","snippet":{"title":"A"},"statistics":{"viewCount":"1200","likeCount":"30","commentCount":"4"},"contentDetails":{"duration":"PT4M"}}]}`)
		default:
			http.NotFound(w, r)
		}
	}, time.Second)

	page, err := client.ListUploads(context.Background(), "UU", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.NextPageToken != "next" || len(page.Items) != 2 || page.Items[1].VideoID != "b" {
		t.Fatalf("unexpected page %+v", page)
	}

	videos, err := client.ListVideos(context.Background(), []string{"a", "missing"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 1 || videos[0].Views != 1200 || videos[0].Duration != "PT4M" || videos[0].Title != "A" {
		t.Fatalf("unexpected videos %+v", videos)
	}
}

func TestClientMapsUpstreamStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"error":{"code":403,"message":"quotaExceeded"}}`)
	}, time.Second)

	_, err := client.ListUploads(context.Background(), "UU", "")
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || !apiErr.IsQuota() {
		t.Fatalf("expected quota status, got %d", apiErr.StatusCode)
	}
}

func TestClientTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		writeJSON(w, http.StatusOK, `{"items":[]}`)
	}, 50*time.Millisecond)

	_, err := client.ListUploads(context.Background(), "UU", "")
	var timeoutErr *errors.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestClientCircuitBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusInternalServerError, `{"error":{"code":500,"message":"backend"}}`)
	}, time.Second)

	for i := 0; i < 10; i++ {
		_, _ = client.ListUploads(context.Background(), "UU", "")
	}

	if got := hits.Load(); got != 5 {
		t.Fatalf("expected breaker to stop upstream calls after 5 failures, got %d hits", got)
	}

	_, err := client.ListUploads(context.Background(), "UU", "")
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected open-circuit error, got %v", err)
	}
}

func TestClientRequestErrorsResetBreakerCount(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 5 {
			writeJSON(w, http.StatusNotFound, `{"error":{"code":404,"message":"playlistNotFound"}}`)
			return
		}
		writeJSON(w, http.StatusInternalServerError, `{"error":{"code":500,"message":"backend"}}`)
	}, time.Second)

	for i := 0; i < 9; i++ {
		_, _ = client.ListUploads(context.Background(), "UU", "")
	}

	if got := hits.Load(); got != 9 {
		t.Fatalf("a 4xx answer must reset the failure run, got %d hits", got)
	}
}

func TestQuotaTrackerExhaustsAndResets(t *testing.T) {
	qt := NewQuotaTracker(1000, zap.NewNop())
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	qt.now = func() time.Time { return now }
	qt.resetAt = qt.nextReset()

	for i := 0; i < 500; i++ {
		if err := qt.Consume(1); err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
	}
	err := qt.Consume(1)
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected quota exhaustion, got %v", err)
	}

	now = now.Add(24 * time.Hour)
	if err := qt.Consume(1); err != nil {
		t.Fatalf("expected quota to reset, got %v", err)
	}
	used, remaining, _ := qt.Status()
	if used != 1 || remaining != 999 {
		t.Fatalf("unexpected status used=%d remaining=%d", used, remaining)
	}
}
