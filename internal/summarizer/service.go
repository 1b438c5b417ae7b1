// Package summarizer runs the two user actions: fetching a video with its
// transcript, and generating a summary. Both record their result in history.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"vidsum/internal/api"
	"vidsum/internal/history"
)

// MinTranscriptWords is the shortest transcript worth summarizing
const MinTranscriptWords = 10

// Backend is the subset of the API client used by the service
type Backend interface {
	VideoInfo(ctx context.Context, videoURL string) (api.VideoInfo, error)
	Transcript(ctx context.Context, videoURL, lang string) (api.TranscriptResponse, error)
	Summary(ctx context.Context, req api.SummaryRequest) (api.SummaryResponse, error)
}

// SummaryRecorder counts generated summaries
type SummaryRecorder interface {
	SummaryGenerated(format string)
}

// Video is the result of FetchVideo
type Video struct {
	URL        string
	Info       api.VideoInfo
	Title      string
	Thumbnail  string
	Transcript string
	Source     string
}

// SummarizeInput carries what the summary action needs
type SummarizeInput struct {
	URL           string
	Title         string
	Thumbnail     string
	Transcript    string
	Format        string
	GenerateAudio bool
}

// Summary is the result of Summarize
type Summary struct {
	Text     string
	Format   string
	AudioURL string
}

// Service coordinates backend calls and history writes
type Service struct {
	backend  Backend
	history  *history.Store
	logger   *slog.Logger
	recorder SummaryRecorder
	lang     string
	now      func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSummaryRecorder sets the summary counter
func WithSummaryRecorder(r SummaryRecorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithLanguage sets the transcript language
func WithLanguage(lang string) ServiceOption {
	return func(s *Service) {
		if lang != "" {
			s.lang = lang
		}
	}
}

// WithClock overrides the time source for history dates
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service
func NewService(backend Backend, store *history.Store, opts ...ServiceOption) *Service {
	s := &Service{
		backend: backend,
		history: store,
		logger:  slog.Default(),
		lang:    "en",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns the underlying store
func (s *Service) History() *history.Store {
	return s.history
}

// FetchVideo loads metadata and transcript for link and records it in history
func (s *Service) FetchVideo(ctx context.Context, link string) (Video, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return Video{}, inputError("Please enter a YouTube video link")
	}

	var (
		info           api.VideoInfo
		transcript     api.TranscriptResponse
		infoErr, trErr error
	)
	// no shared cancellation: one failure must not mask the other's cause
	var g errgroup.Group
	g.Go(func() error {
		info, infoErr = s.backend.VideoInfo(ctx, link)
		return infoErr
	})
	g.Go(func() error {
		transcript, trErr = s.backend.Transcript(ctx, link, s.lang)
		return trErr
	})
	_ = g.Wait()

	// metadata failures win over transcript failures
	if infoErr != nil {
		s.logger.Warn("video info failed", slog.String("url", link), slog.Any("error", infoErr))
		return Video{}, infoErr
	}
	if trErr != nil {
		s.logger.Warn("transcript failed", slog.String("url", link), slog.Any("error", trErr))
		return Video{}, trErr
	}

	videoID := info.VideoID
	if videoID == "" {
		videoID = ExtractVideoID(link)
	}
	thumbnail := info.Thumbnail
	if thumbnail == "" {
		thumbnail = ThumbnailURL(videoID)
	}
	title := info.Title
	if title == "" {
		title = "Video " + videoID
	}

	v := Video{
		URL:        link,
		Info:       info,
		Title:      title,
		Thumbnail:  thumbnail,
		Transcript: transcript.Transcript.Text,
		Source:     transcript.Source,
	}

	if err := s.history.Save(ctx, history.Entry{
		URL:       link,
		Title:     title,
		Thumbnail: thumbnail,
		Date:      s.stamp(),
	}); err != nil {
		return v, fmt.Errorf("save history: %w", err)
	}

	s.logger.Info("video fetched", slog.String("url", link), slog.String("title", title), slog.String("source", v.Source))
	return v, nil
}

// Summarize generates a summary and, when the input names a video,
// records it in history
func (s *Service) Summarize(ctx context.Context, in SummarizeInput) (Summary, error) {
	transcript := strings.TrimSpace(in.Transcript)
	if transcript == "" {
		return Summary{}, inputError("No transcript available to summarize")
	}
	if len(strings.Split(transcript, " ")) < MinTranscriptWords {
		return Summary{}, inputError("Transcript is too short to generate a meaningful summary")
	}

	format := in.Format
	if format == "" {
		format = api.FormatText
	}
	if !slices.Contains(api.Formats, format) {
		return Summary{}, inputError(fmt.Sprintf("Unknown summary format %q (use %s)", format, strings.Join(api.Formats, ", ")))
	}

	resp, err := s.backend.Summary(ctx, api.SummaryRequest{
		Transcript:    in.Transcript,
		Format:        format,
		GenerateAudio: in.GenerateAudio,
	})
	if err != nil {
		s.logger.Warn("summary failed", slog.String("url", in.URL), slog.Any("error", err))
		return Summary{}, err
	}
	if s.recorder != nil {
		s.recorder.SummaryGenerated(format)
	}

	out := Summary{Text: resp.Summary, Format: format}
	if in.GenerateAudio {
		out.AudioURL = resp.AudioURL
	}

	url := strings.TrimSpace(in.URL)
	if url != "" && in.Title != "" {
		if err := s.history.Save(ctx, history.Entry{
			URL:       url,
			Title:     in.Title,
			Thumbnail: in.Thumbnail,
			Summary:   resp.Summary,
			Format:    format,
			Date:      s.stamp(),
		}); err != nil {
			return out, fmt.Errorf("save history: %w", err)
		}
	}

	s.logger.Info("summary generated", slog.String("url", url), slog.String("format", format), slog.Bool("audio", out.AudioURL != ""))
	return out, nil
}

func (s *Service) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
