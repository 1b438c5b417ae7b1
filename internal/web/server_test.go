package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidsum/internal/api"
	"vidsum/internal/history"
	"vidsum/internal/kv"
	"vidsum/internal/logging"
	"vidsum/internal/metrics"
	"vidsum/internal/summarizer"
)

type fakeBackend struct {
	infoErr    error
	summaryErr error
}

func (b fakeBackend) VideoInfo(ctx context.Context, videoURL string) (api.VideoInfo, error) {
	return api.VideoInfo{Title: "Never Gonna", Author: "Rick", Views: 42, VideoID: "dQw4w9WgXcQ"}, b.infoErr
}

func (b fakeBackend) Transcript(ctx context.Context, videoURL, lang string) (api.TranscriptResponse, error) {
	return api.TranscriptResponse{
		Transcript: api.Transcript{Text: "one two three four five six seven eight nine ten", Shape: api.ShapeText},
		Source:     "youtube_transcript_api",
	}, nil
}

func (b fakeBackend) Summary(ctx context.Context, req api.SummaryRequest) (api.SummaryResponse, error) {
	return api.SummaryResponse{Summary: "- **first** point"}, b.summaryErr
}

func newTestServer(t *testing.T, b summarizer.Backend) (*Server, *history.Store) {
	t.Helper()
	store := history.NewStore(kv.NewMemory())
	svc := summarizer.NewService(b, store)
	reg := prometheus.NewRegistry()
	metrics.MustNew(reg)
	s := NewServer(Config{}, svc,
		WithLogger(logging.Discard()),
		WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	return s, store
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func seed(t *testing.T, store *history.Store, entries ...history.Entry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, store.Save(context.Background(), e))
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, fakeBackend{})
	rr := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, fakeBackend{})
	rr := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestListHistory(t *testing.T) {
	s, store := newTestServer(t, fakeBackend{})

	rr := do(t, s.Handler(), http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	seed(t, store,
		history.Entry{URL: "a", Title: "A", Date: "2024-01-01T00:00:00Z"},
		history.Entry{URL: "b", Title: "B", Date: "2024-01-02T00:00:00Z"},
	)
	rr = do(t, s.Handler(), http.MethodGet, "/api/history", "")
	var list history.List
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].URL)
}

func TestDeleteHistory(t *testing.T) {
	s, store := newTestServer(t, fakeBackend{})
	seed(t, store, history.Entry{URL: "https://youtu.be/a", Title: "A", Date: "2024-01-01T00:00:00Z"})
	h := s.Handler()

	rr := do(t, h, http.MethodDelete, "/api/history?url=https%3A%2F%2Fyoutu.be%2Fa", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, history.DeletePrompt, errorOf(t, rr))
	assert.Len(t, store.Load(context.Background()), 1)

	rr = do(t, h, http.MethodDelete, "/api/history?confirm=true&url=missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/history?confirm=true", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/history?confirm=true&url=https%3A%2F%2Fyoutu.be%2Fa", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, store.Load(context.Background()))
}

func TestExportHistory(t *testing.T) {
	s, store := newTestServer(t, fakeBackend{})
	seed(t, store,
		history.Entry{URL: "a", Title: "My Video", Summary: "**bold** words", Date: "2024-01-01T00:00:00Z"},
		history.Entry{URL: "b", Title: "Bare", Date: "2024-01-01T00:00:00Z"},
	)
	h := s.Handler()

	rr := do(t, h, http.MethodGet, "/api/history/export?url=a&as=html", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="my_video_summary.html"`, rr.Header().Get("Content-Disposition"))
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "<strong>bold</strong>")

	rr = do(t, h, http.MethodGet, "/api/history/export?url=a", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF-"))

	rr = do(t, h, http.MethodGet, "/api/history/export?url=a&as=docx", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/history/export?url=b&as=md", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/history/export?url=zzz", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFetchVideo(t *testing.T) {
	s, store := newTestServer(t, fakeBackend{})
	rr := do(t, s.Handler(), http.MethodPost, "/api/video", `{"url":"https://youtu.be/dQw4w9WgXcQ"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var v videoResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Equal(t, "Never Gonna", v.Title)
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", v.Thumbnail)
	assert.Equal(t, int64(42), v.Views)
	assert.Len(t, store.Load(context.Background()), 1)
}

func TestFetchVideo_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		backend fakeBackend
		body    string
		status  int
		message string
	}{
		{name: "bad json", body: `{`, status: http.StatusBadRequest, message: "invalid request body"},
		{name: "empty url", body: `{"url":" "}`, status: http.StatusBadRequest, message: "Please enter a YouTube video link"},
		{
			name:    "backend",
			backend: fakeBackend{infoErr: &api.Error{Status: 400, Message: "Invalid YouTube URL"}},
			body:    `{"url":"x"}`,
			status:  http.StatusBadGateway,
			message: "Invalid YouTube URL",
		},
		{
			name:    "transport",
			backend: fakeBackend{infoErr: errors.New("connection refused")},
			body:    `{"url":"x"}`,
			status:  http.StatusInternalServerError,
			message: "Error fetching video details. Please try again.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.backend)
			rr := do(t, s.Handler(), http.MethodPost, "/api/video", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.message, errorOf(t, rr))
		})
	}
}

func TestSummarize(t *testing.T) {
	s, store := newTestServer(t, fakeBackend{})
	body := `{"url":"u","title":"T","transcript":"one two three four five six seven eight nine ten","format":"bullet"}`
	rr := do(t, s.Handler(), http.MethodPost, "/api/summary", body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"summary":"- **first** point","format":"bullet"}`, rr.Body.String())

	entry, ok := store.Find(context.Background(), "u")
	require.True(t, ok)
	assert.Equal(t, "bullet", entry.Format)
}

func TestSummarize_Errors(t *testing.T) {
	s, _ := newTestServer(t, fakeBackend{})
	rr := do(t, s.Handler(), http.MethodPost, "/api/summary", `{"transcript":"too short"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Transcript is too short to generate a meaningful summary", errorOf(t, rr))

	s, _ = newTestServer(t, fakeBackend{summaryErr: &api.Error{Status: 500, Message: "model down"}})
	rr = do(t, s.Handler(), http.MethodPost, "/api/summary", `{"transcript":"one two three four five six seven eight nine ten"}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "Failed to generate summary: model down", errorOf(t, rr))
}

func TestPage(t *testing.T) {
	s, store := newTestServer(t, fakeBackend{})
	h := s.Handler()

	rr := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No history yet")

	seed(t, store, history.Entry{
		URL:       "https://youtu.be/a",
		Title:     "<Video>",
		Thumbnail: "https://img/a.jpg",
		Summary:   "**Key** idea",
		Format:    "bullet",
		Date:      "2024-01-01T00:00:00Z",
	})
	rr = do(t, h, http.MethodGet, "/", "")
	out := rr.Body.String()
	assert.Contains(t, out, "&lt;Video&gt;")
	assert.Contains(t, out, "<strong>Key</strong>")
	assert.Contains(t, out, `<span class="tag">bullet</span>`)
	assert.Contains(t, out, "/api/history/export?as=pdf&amp;url=https%3A%2F%2Fyoutu.be%2Fa")
	assert.NotContains(t, out, "No history yet")
}

func TestPage_BareEntryDefaults(t *testing.T) {
	s, store := newTestServer(t, fakeBackend{})
	seed(t, store, history.Entry{URL: "https://youtu.be/a", Title: "Bare", Date: "2024-01-01T00:00:00Z"})

	rr := do(t, s.Handler(), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	out := rr.Body.String()
	assert.Contains(t, out, `<span class="tag">Standard</span>`)
	assert.Contains(t, out, "No summary available")
	assert.NotContains(t, out, "No summary available.")
}

func TestServe_GracefulShutdown(t *testing.T) {
	s, _ := newTestServer(t, fakeBackend{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
