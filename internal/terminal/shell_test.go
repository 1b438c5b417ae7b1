package terminal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidsum/internal/api"
	"vidsum/internal/history"
	"vidsum/internal/kv"
	"vidsum/internal/summarizer"
	"vidsum/internal/ui"
)

const testLink = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type stubBackend struct {
	infoErr error
}

func (b stubBackend) VideoInfo(ctx context.Context, videoURL string) (api.VideoInfo, error) {
	return api.VideoInfo{Title: "Never Gonna", Author: "Rick", Views: 1000}, b.infoErr
}

func (b stubBackend) Transcript(ctx context.Context, videoURL, lang string) (api.TranscriptResponse, error) {
	return api.TranscriptResponse{
		Transcript: api.Transcript{Text: "one two three four five six seven eight nine ten", Shape: api.ShapeText},
	}, nil
}

func (b stubBackend) Summary(ctx context.Context, req api.SummaryRequest) (api.SummaryResponse, error) {
	resp := api.SummaryResponse{Summary: "**" + req.Format + "** summary"}
	if req.GenerateAudio {
		resp.AudioURL = "/audio/summary_1.mp3"
	}
	return resp, nil
}

type stubAudio struct{ got string }

func (a *stubAudio) DownloadAudio(ctx context.Context, audioURL, dir string) (string, error) {
	a.got = audioURL
	return filepath.Join(dir, "summary_1.mp3"), nil
}

type shellFixture struct {
	shell   *Shell
	out     *bytes.Buffer
	store   *history.Store
	copied  string
	confirm bool
	audio   *stubAudio
}

func newShellFixture(t *testing.T, b summarizer.Backend) *shellFixture {
	t.Helper()
	color.NoColor = true

	f := &shellFixture{out: &bytes.Buffer{}, audio: &stubAudio{}}
	display := ui.NewDisplayTo(f.out, 80)
	f.store = history.NewStore(kv.NewMemory(), history.WithRenderer(display))
	svc := summarizer.NewService(b, f.store)

	f.shell = NewShell(ShellConfig{
		Service:   svc,
		Display:   display,
		Confirmer: history.ConfirmFunc(func(string) bool { return f.confirm }),
		Audio:     f.audio,
		Copy: func(s string) error {
			f.copied = s
			return nil
		},
		ExportDir: t.TempDir(),
		AudioDir:  t.TempDir(),
		Stdout:    &bytes.Buffer{},
	})
	return f
}

func TestShell_FetchSummarizeExport(t *testing.T) {
	f := newShellFixture(t, stubBackend{})
	ctx := context.Background()

	require.True(t, f.shell.Execute(ctx, testLink))
	assert.Contains(t, f.out.String(), "Video information loaded successfully")
	assert.Contains(t, f.out.String(), "By Rick")

	require.True(t, f.shell.Execute(ctx, "/summarize bullet audio"))
	assert.Contains(t, f.out.String(), "Summary generated successfully!")
	assert.Contains(t, f.out.String(), "Audio summary saved to")
	assert.Equal(t, "/audio/summary_1.mp3", f.audio.got)

	entry, ok := f.store.Find(ctx, testLink)
	require.True(t, ok)
	assert.Equal(t, "**bullet** summary", entry.Summary)

	require.True(t, f.shell.Execute(ctx, "/copy"))
	assert.Equal(t, "**bullet** summary", f.copied)

	require.True(t, f.shell.Execute(ctx, "/export html"))
	assert.Contains(t, f.out.String(), "HTML downloaded successfully")
	_, err := os.Stat(filepath.Join(f.shell.cfg.ExportDir, "never_gonna_summary.html"))
	require.NoError(t, err)
}

func TestShell_FetchErrorShowsBackendMessage(t *testing.T) {
	f := newShellFixture(t, stubBackend{infoErr: &api.Error{Status: 400, Message: "Invalid YouTube URL"}})
	f.shell.Execute(context.Background(), "/fetch https://example.com")
	assert.Contains(t, f.out.String(), "✗ Invalid YouTube URL")
}

func TestShell_SummarizeWithoutVideo(t *testing.T) {
	f := newShellFixture(t, stubBackend{})
	f.shell.Execute(context.Background(), "/summarize")
	assert.Contains(t, f.out.String(), "No transcript available to summarize")
}

func TestShell_CopyAndExportNeedSummary(t *testing.T) {
	f := newShellFixture(t, stubBackend{})
	ctx := context.Background()

	f.shell.Execute(ctx, "/copy")
	assert.Contains(t, f.out.String(), "Generate a summary first")

	f.out.Reset()
	f.shell.Execute(ctx, "/export https://youtu.be/missing pdf")
	assert.Contains(t, f.out.String(), "No history entry for https://youtu.be/missing")

	f.out.Reset()
	f.shell.Execute(ctx, "/export docx")
	assert.Contains(t, f.out.String(), "unknown export format")
}

func TestShell_ExportHistoryEntryWithoutSummary(t *testing.T) {
	f := newShellFixture(t, stubBackend{})
	ctx := context.Background()
	f.shell.Execute(ctx, testLink)

	f.out.Reset()
	f.shell.Execute(ctx, "/export "+testLink)
	assert.Contains(t, f.out.String(), "No summary content to download")
}

func TestShell_Delete(t *testing.T) {
	f := newShellFixture(t, stubBackend{})
	ctx := context.Background()
	f.shell.Execute(ctx, testLink)

	f.confirm = false
	f.shell.Execute(ctx, "/delete "+testLink)
	assert.Len(t, f.store.Load(ctx), 1)

	f.confirm = true
	f.out.Reset()
	f.shell.Execute(ctx, "/delete "+testLink)
	assert.Empty(t, f.store.Load(ctx))
	assert.Contains(t, f.out.String(), "Summary deleted from history")
	assert.Contains(t, f.out.String(), "No history yet")
}

func TestShell_HistoryAndControl(t *testing.T) {
	f := newShellFixture(t, stubBackend{})
	ctx := context.Background()

	assert.True(t, f.shell.Execute(ctx, ""))
	assert.True(t, f.shell.Execute(ctx, "/history"))
	assert.Contains(t, f.out.String(), "No history yet")
	assert.True(t, f.shell.Execute(ctx, "/bogus"))
	assert.Contains(t, f.out.String(), `Unknown command "bogus"`)
	assert.False(t, f.shell.Execute(ctx, "/exit"))
}

func TestShell_CopyFailure(t *testing.T) {
	f := newShellFixture(t, stubBackend{})
	ctx := context.Background()
	f.shell.Execute(ctx, testLink)
	f.shell.Execute(ctx, "/summarize")
	f.shell.cfg.Copy = func(string) error { return errors.New("no clipboard") }

	f.shell.Execute(ctx, "/copy")
	assert.Contains(t, f.out.String(), "Failed to copy summary")
}

func TestShell_HistoryDrawnAfterSpinner(t *testing.T) {
	color.NoColor = true
	var out syncBuffer
	display := ui.NewDisplayTo(&out, 80)
	store := history.NewStore(kv.NewMemory())
	sh := NewShell(ShellConfig{
		Service: summarizer.NewService(stubBackend{}, store),
		Display: display,
		Stdout:  &out,
	})

	require.True(t, sh.Execute(context.Background(), testLink))

	got := out.String()
	cards := strings.Index(got, "1. Never Gonna")
	require.NotEqual(t, -1, cards)
	assert.Less(t, strings.LastIndex(got, "Loading..."), cards)
	assert.Less(t, strings.LastIndex(got, clearLine), cards)
	assert.Less(t, strings.Index(got, "Video information loaded successfully"), cards)
	assert.Nil(t, sh.pending)
}
