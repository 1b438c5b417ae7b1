package web

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vidsum/internal/export"
	"vidsum/internal/history"
	"vidsum/internal/summarizer"
)

type videoRequest struct {
	URL string `json:"url"`
}

type videoResponse struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail"`
	Author      string `json:"author,omitempty"`
	Views       int64  `json:"views"`
	PublishDate string `json:"publish_date,omitempty"`
	Transcript  string `json:"transcript"`
	Source      string `json:"source,omitempty"`
}

type summaryRequest struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Thumbnail     string `json:"thumbnail"`
	Transcript    string `json:"transcript"`
	Format        string `json:"format"`
	GenerateAudio bool   `json:"generate_audio"`
}

type summaryResponse struct {
	Summary  string `json:"summary"`
	Format   string `json:"format"`
	AudioURL string `json:"audio_url,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListHistory(c *gin.Context) {
	list := s.svc.History().Load(c.Request.Context())
	if list == nil {
		list = history.List{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleDeleteHistory(c *gin.Context) {
	ctx := c.Request.Context()
	url := c.Query("url")
	if url == "" {
		writeError(c, http.StatusBadRequest, "url is required")
		return
	}
	if c.Query("confirm") != "true" {
		writeError(c, http.StatusConflict, history.DeletePrompt)
		return
	}
	if _, ok := s.svc.History().Find(ctx, url); !ok {
		writeError(c, http.StatusNotFound, "no history entry for "+url)
		return
	}

	deleted, err := s.svc.History().Delete(ctx, url, history.AlwaysConfirm)
	if err != nil {
		s.logger.Error("history delete failed", slog.String("url", url), slog.Any("error", err))
		writeError(c, http.StatusInternalServerError, "Failed to delete summary")
		return
	}
	if !deleted {
		// removed concurrently
		writeError(c, http.StatusNotFound, "no history entry for "+url)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportHistory(c *gin.Context) {
	url := c.Query("url")
	entry, ok := s.svc.History().Find(c.Request.Context(), url)
	if !ok {
		writeError(c, http.StatusNotFound, "no history entry for "+url)
		return
	}
	format, err := export.ParseFormat(c.Query("as"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	doc := export.Document{Title: entry.Title, Summary: entry.Summary, Date: time.Now()}
	var buf bytes.Buffer
	if err := export.Write(&buf, doc, format); err != nil {
		if errors.Is(err, export.ErrEmptySummary) {
			writeError(c, http.StatusUnprocessableEntity, "No summary content to download")
			return
		}
		s.logger.Error("export failed", slog.String("url", url), slog.Any("error", err))
		writeError(c, http.StatusInternalServerError, "Failed to download "+string(format))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName(format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) handleFetchVideo(c *gin.Context) {
	var req videoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	v, err := s.svc.FetchVideo(c.Request.Context(), req.URL)
	if err != nil {
		writeError(c, statusFor(err), summarizer.FetchMessage(err))
		return
	}
	c.JSON(http.StatusOK, videoResponse{
		URL:         v.URL,
		Title:       v.Title,
		Thumbnail:   v.Thumbnail,
		Author:      v.Info.Author,
		Views:       v.Info.Views,
		PublishDate: v.Info.PublishDate,
		Transcript:  v.Transcript,
		Source:      v.Source,
	})
}

func (s *Server) handleSummarize(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := s.svc.Summarize(c.Request.Context(), summarizer.SummarizeInput{
		URL:           req.URL,
		Title:         req.Title,
		Thumbnail:     req.Thumbnail,
		Transcript:    req.Transcript,
		Format:        req.Format,
		GenerateAudio: req.GenerateAudio,
	})
	if err != nil {
		writeError(c, statusFor(err), summarizer.SummaryMessage(err))
		return
	}
	c.JSON(http.StatusOK, summaryResponse{
		Summary:  out.Text,
		Format:   out.Format,
		AudioURL: out.AudioURL,
	})
}

func statusFor(err error) int {
	switch summarizer.Classify(err) {
	case summarizer.KindInput:
		return http.StatusBadRequest
	case summarizer.KindBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
