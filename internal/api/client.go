package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Endpoint names used for rate limiting and metrics
const (
	EndpointInfo       = "video_info"
	EndpointTranscript = "transcript"
	EndpointSummary    = "summary"
	EndpointAudio      = "audio"
)

const (
	maxResponseSize = 10 * 1024 * 1024 // 10 MB
	maxAudioSize    = 50 * 1024 * 1024 // 50 MB

	defaultCacheSize = 100
	defaultCacheTTL  = time.Hour
)

// Error is a failure reported by the backend, either as an {error} body or
// as a non-success status
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Recorder receives one call per finished request
type Recorder interface {
	APIRequest(endpoint, outcome string)
}

// Client handles communication with the summary backend
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
	recorder   Recorder

	limiters    map[string]*rate.Limiter // keyed by endpoint
	transcripts *expirable.LRU[string, TranscriptResponse]
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimits sets per-minute request budgets. fetchPerMinute applies to
// the info and transcript endpoints separately, as the backend limits them.
// Non-positive values disable limiting.
func WithRateLimits(fetchPerMinute, summaryPerMinute int) Option {
	return func(c *Client) {
		c.limiters = endpointLimiters(fetchPerMinute, summaryPerMinute)
	}
}

// WithTranscriptCache sizes the transcript cache. size <= 0 disables it.
func WithTranscriptCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		if size <= 0 {
			c.transcripts = nil
			return
		}
		c.transcripts = expirable.NewLRU[string, TranscriptResponse](size, nil, ttl)
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a backend client for baseURL
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent:   "vidsum/dev",
		logger:      slog.Default(),
		limiters:    endpointLimiters(30, 20),
		transcripts: expirable.NewLRU[string, TranscriptResponse](defaultCacheSize, nil, defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// VideoInfo fetches metadata for a video link
func (c *Client) VideoInfo(ctx context.Context, videoURL string) (VideoInfo, error) {
	var info VideoInfo
	q := url.Values{"url": {videoURL}}
	err := c.do(ctx, EndpointInfo, http.MethodGet, "/get_video_info", q, nil, &info)
	return info, err
}

// Transcript fetches the transcript for a video link. Results are cached per
// URL and language.
func (c *Client) Transcript(ctx context.Context, videoURL, lang string) (TranscriptResponse, error) {
	if lang == "" {
		lang = "en"
	}
	key := lang + "|" + videoURL
	if c.transcripts != nil {
		if cached, ok := c.transcripts.Get(key); ok {
			c.logger.Debug("transcript cache hit", slog.String("url", videoURL))
			return cached, nil
		}
	}

	var resp TranscriptResponse
	q := url.Values{"url": {videoURL}, "lang": {lang}}
	if err := c.do(ctx, EndpointTranscript, http.MethodGet, "/get_transcript", q, nil, &resp); err != nil {
		return TranscriptResponse{}, err
	}
	if resp.Transcript.Shape == ShapeUnknown {
		return TranscriptResponse{}, errors.New("transcript format not recognized")
	}

	if c.transcripts != nil {
		c.transcripts.Add(key, resp)
	}
	return resp, nil
}

// Summary requests a generated summary for a transcript
func (c *Client) Summary(ctx context.Context, req SummaryRequest) (SummaryResponse, error) {
	var resp SummaryResponse
	err := c.do(ctx, EndpointSummary, http.MethodPost, "/generate_summary", nil, req, &resp)
	return resp, err
}

// DownloadAudio saves the audio behind audioURL (absolute or relative to the
// backend) into dir and returns the file path
func (c *Client) DownloadAudio(ctx context.Context, audioURL, dir string) (string, error) {
	ref, err := url.Parse(audioURL)
	if err != nil {
		return "", fmt.Errorf("invalid audio URL: %w", err)
	}
	target := c.baseURL.ResolveReference(ref)

	name := path.Base(target.Path)
	if name == "" || name == "." || name == "/" {
		name = fmt.Sprintf("summary_%s.mp3", uuid.NewString())
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(EndpointAudio, "transport_error")
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.record(EndpointAudio, "api_error")
		return "", &Error{Status: resp.StatusCode, Message: fmt.Sprintf("server responded with status: %d", resp.StatusCode)}
	}

	dest := filepath.Join(dir, name)
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, maxAudioSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxAudioSize {
		err = fmt.Errorf("audio exceeds %d bytes", maxAudioSize)
	}
	if err != nil {
		_ = os.Remove(dest)
		c.record(EndpointAudio, "transport_error")
		return "", fmt.Errorf("failed to save audio: %w", err)
	}

	c.record(EndpointAudio, "ok")
	return dest, nil
}

// HealthCheck verifies that the backend is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL.String()+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend is unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

// do executes one JSON round trip. Any {error} body or non-2xx status
// becomes *Error.
func (c *Client) do(ctx context.Context, endpoint, method, route string, query url.Values, in, out any) error {
	if err := c.wait(ctx, endpoint); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL.String() + route
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, method, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(endpoint, "transport_error")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.record(endpoint, "transport_error")
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("api request",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
		slog.String("request_id", req.Header.Get("X-Request-ID")),
	)

	var eb errorBody
	_ = json.Unmarshal(data, &eb)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(endpoint, "api_error")
		msg := eb.Error
		if msg == "" {
			msg = fmt.Sprintf("server responded with status: %d", resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if eb.Error != "" {
		c.record(endpoint, "api_error")
		return &Error{Status: resp.StatusCode, Message: eb.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.record(endpoint, "transport_error")
		return fmt.Errorf("failed to parse response: %w", err)
	}
	c.record(endpoint, "ok")
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) wait(ctx context.Context, endpoint string) error {
	limiter := c.limiters[endpoint]
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (c *Client) record(endpoint, outcome string) {
	if c.recorder != nil {
		c.recorder.APIRequest(endpoint, outcome)
	}
}

func endpointLimiters(fetchPerMinute, summaryPerMinute int) map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		EndpointInfo:       perMinute(fetchPerMinute),
		EndpointTranscript: perMinute(fetchPerMinute),
		EndpointSummary:    perMinute(summaryPerMinute),
	}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}
