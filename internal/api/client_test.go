package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	calls map[string]int
}

func (r *countingRecorder) APIRequest(endpoint, outcome string) {
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[endpoint+"/"+outcome]++
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithHTTPClient(srv.Client()), WithRateLimits(0, 0)}, opts...)
	c, err := NewClient(srv.URL, 5*time.Second, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("localhost:5001", time.Second)
	require.Error(t, err)
	_, err = NewClient("ftp://example.com", time.Second)
	require.Error(t, err)
}

func TestVideoInfo(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get_video_info", r.URL.Path)
		require.Equal(t, "https://youtu.be/dQw4w9WgXcQ", r.URL.Query().Get("url"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"title":"Never","author":"Rick","views":1234567,"publish_date":"2009-10-25","video_id":"dQw4w9WgXcQ"}`)
	}))

	info, err := c.VideoInfo(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never", info.Title)
	assert.Equal(t, "Rick", info.Author)
	assert.Equal(t, int64(1234567), info.Views)
	assert.Equal(t, "dQw4w9WgXcQ", info.VideoID)
}

func TestVideoInfo_ErrorBody(t *testing.T) {
	rec := &countingRecorder{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Invalid YouTube URL"}`)
	}), WithRecorder(rec))

	_, err := c.VideoInfo(context.Background(), "nope")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid YouTube URL", apiErr.Message)
	assert.Equal(t, 1, rec.calls["video_info/api_error"])
}

func TestErrorFieldWithOKStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"quota exceeded"}`)
	}))

	_, err := c.Summary(context.Background(), SummaryRequest{Transcript: "x"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "quota exceeded", apiErr.Message)
}

func TestNonSuccessStatusWithoutErrorBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"summary":"should be ignored"}`)
	}))

	_, err := c.Summary(context.Background(), SummaryRequest{Transcript: "x"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "server responded with status: 502", apiErr.Message)
}

func TestTransportErrorIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(base, time.Second, WithRateLimits(0, 0))
	require.NoError(t, err)
	_, err = c.VideoInfo(context.Background(), "x")
	require.Error(t, err)
	var apiErr *Error
	require.False(t, errors.As(err, &apiErr))
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	}))
	_, err := c.VideoInfo(context.Background(), "x")
	require.ErrorContains(t, err, "failed to parse response")
}

func TestTranscriptShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		text  string
		shape TranscriptShape
	}{
		{
			name:  "plain string",
			body:  `{"transcript":"hello world","source":"youtube_transcript_api"}`,
			text:  "hello world",
			shape: ShapeText,
		},
		{
			name:  "full text object",
			body:  `{"transcript":{"transcriptionAsText":"full text","transcription":[{"subtitle":"full"},{"subtitle":"text"}]},"source":"rapidapi"}`,
			text:  "full text",
			shape: ShapeFullText,
		},
		{
			name:  "fragments",
			body:  `{"transcript":[{"subtitle":"one"},{"subtitle":"two"},{},{"subtitle":"three"}]}`,
			text:  "one two  three",
			shape: ShapeFragments,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			resp, err := c.Transcript(context.Background(), "u", "")
			require.NoError(t, err)
			assert.Equal(t, tt.text, resp.Transcript.Text)
			assert.Equal(t, tt.shape, resp.Transcript.Shape)
		})
	}
}

func TestTranscriptUnrecognizedShape(t *testing.T) {
	for _, body := range []string{`{"transcript":42}`, `{"transcript":{"other":1}}`, `{"source":"x"}`, `{"transcript":null}`} {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		}))
		_, err := c.Transcript(context.Background(), "u", "en")
		require.ErrorContains(t, err, "transcript format not recognized", body)
	}
}

func TestTranscriptIsCached(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "de", r.URL.Query().Get("lang"))
		_, _ = io.WriteString(w, `{"transcript":"cached words"}`)
	}))

	for i := 0; i < 3; i++ {
		resp, err := c.Transcript(context.Background(), "u", "de")
		require.NoError(t, err)
		require.Equal(t, "cached words", resp.Transcript.Text)
	}
	require.Equal(t, int32(1), hits.Load())
}

func TestTranscriptErrorsAreNotCached(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Could not retrieve transcript."}`)
			return
		}
		_, _ = io.WriteString(w, `{"transcript":"second time"}`)
	}))

	_, err := c.Transcript(context.Background(), "u", "en")
	require.Error(t, err)
	resp, err := c.Transcript(context.Background(), "u", "en")
	require.NoError(t, err)
	require.Equal(t, "second time", resp.Transcript.Text)
}

func TestSummary(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req SummaryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "bullet", req.Format)
		require.True(t, req.GenerateAudio)
		_, _ = io.WriteString(w, `{"summary":"**Key** points","audio_url":"/audio/summary_1.mp3","format":"bullet","timestamp":"2024-01-01T00:00:00"}`)
	}))

	resp, err := c.Summary(context.Background(), SummaryRequest{Transcript: "t", Format: "bullet", GenerateAudio: true})
	require.NoError(t, err)
	assert.Equal(t, "**Key** points", resp.Summary)
	assert.Equal(t, "/audio/summary_1.mp3", resp.AudioURL)
}

func TestDownloadAudio(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/summary_1.mp3", r.URL.Path)
		_, _ = io.WriteString(w, "ID3-fake-mp3")
	}))

	dir := t.TempDir()
	path, err := c.DownloadAudio(context.Background(), "/audio/summary_1.mp3", dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "summary_1.mp3"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ID3-fake-mp3", string(data))
}

func TestDownloadAudio_NotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	_, err := c.DownloadAudio(context.Background(), "/audio/missing.mp3", t.TempDir())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestHealthCheck(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	require.NoError(t, c.HealthCheck(context.Background()))

	c = newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	require.Error(t, c.HealthCheck(context.Background()))
}

func TestRateLimitHonorsContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/get_transcript" {
			_, _ = io.WriteString(w, `{"transcript":"hello"}`)
			return
		}
		_, _ = io.WriteString(w, `{"title":"t"}`)
	}), WithRateLimits(1, 1))

	_, err := c.VideoInfo(context.Background(), "a")
	require.NoError(t, err)

	// info and transcript draw on separate budgets
	quick, cancelQuick := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelQuick()
	_, err = c.Transcript(quick, "a", "en")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.VideoInfo(ctx, "b")
	require.ErrorContains(t, err, "rate limit wait")
}
