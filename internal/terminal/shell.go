package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"vidsum/internal/api"
	"vidsum/internal/export"
	"vidsum/internal/history"
	"vidsum/internal/summarizer"
	"vidsum/internal/ui"
)

// AudioDownloader saves a generated audio summary locally
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, audioURL, dir string) (string, error)
}

// ShellConfig wires the shell to its collaborators
type ShellConfig struct {
	Service     *summarizer.Service
	Display     *ui.Display
	Confirmer   history.Confirmer
	Audio       AudioDownloader // optional
	Copy        func(string) error
	ExportDir   string
	AudioDir    string
	HistoryFile string // readline input history, optional
	BackendURL  string
	Logger      *slog.Logger
	Stdout      io.Writer
}

// Shell is the interactive session. It remembers the last fetched video and
// the last generated summary, the way the page kept them on screen.
type Shell struct {
	cfg     ShellConfig
	spinner *Spinner

	video   *summarizer.Video
	summary *summarizer.Summary

	// history rendered while a request runs waits for the command to finish
	pending *history.List
}

// NewShell creates a Shell
func NewShell(cfg ShellConfig) *Shell {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Copy == nil {
		cfg.Copy = ui.CopyToClipboard
	}
	if cfg.Confirmer == nil {
		cfg.Confirmer = ui.PromptConfirmer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Shell{
		cfg:     cfg,
		spinner: NewSpinner(cfg.Stdout),
	}
	cfg.Service.History().SetRenderer(s)
	return s
}

// RenderHistory satisfies history.Renderer. Cards are held back while the
// spinner owns the line and drawn once the command has printed its result.
func (s *Shell) RenderHistory(list history.List) {
	if s.spinner.Active() {
		s.pending = &list
		return
	}
	s.cfg.Display.RenderHistory(list)
}

func (s *Shell) flushHistory() {
	if s.pending == nil {
		return
	}
	list := *s.pending
	s.pending = nil
	s.cfg.Display.RenderHistory(list)
}

// Run reads commands until /exit, Ctrl+C on an empty line, Ctrl+D, or ctx
// cancellation
func (s *Shell) Run(ctx context.Context) error {
	items := make([]readline.PrefixCompleterInterface, 0, len(Completions()))
	for _, c := range Completions() {
		items = append(items, readline.PcItem(c))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[1;32m❯\033[0m ",
		HistoryFile:       s.cfg.HistoryFile,
		AutoComplete:      readline.NewPrefixCompleter(items...),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            s.cfg.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	s.cfg.Display.PrintWelcome(s.cfg.BackendURL)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		} else if err != nil {
			break
		}
		if !s.Execute(ctx, line) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.spinner.Stop()
	s.cfg.Display.PrintGoodbye()
	return nil
}

// Execute runs one input line and reports whether the shell should keep going
func (s *Shell) Execute(ctx context.Context, line string) bool {
	cmd, ok := ParseCommand(line)
	if !ok {
		return true
	}

	d := s.cfg.Display
	defer s.flushHistory()
	switch cmd.Name {
	case CmdFetch:
		s.fetch(ctx, cmd.Args)
	case CmdSummarize:
		s.summarize(ctx, cmd.Args)
	case CmdHistory:
		s.cfg.Service.History().Render(ctx)
	case CmdCopy:
		s.copy(ctx, cmd.Args)
	case CmdExport:
		s.export(ctx, cmd.Args)
	case CmdDelete:
		s.delete(ctx, cmd.Args)
	case CmdClear:
		d.ClearScreen()
	case CmdHelp:
		s.help()
	case CmdExit:
		return false
	default:
		d.PrintWarning(fmt.Sprintf("Unknown command %q. Type /help for the list.", cmd.Name))
	}
	return true
}

func (s *Shell) help() {
	d := s.cfg.Display
	d.PrintInfo("<link> or /fetch <link>               load video details and transcript")
	d.PrintInfo("/summarize [text|bullet|detailed] [audio]  summarize the loaded video")
	d.PrintInfo("/history                                show saved summaries")
	d.PrintInfo("/copy [link]                            copy a summary to the clipboard")
	d.PrintInfo("/export [link] [pdf|html|md]            save a summary document")
	d.PrintInfo("/delete <link>                          remove a history entry")
	d.PrintInfo("/clear  /exit")
}

func (s *Shell) fetch(ctx context.Context, args []string) {
	link := strings.Join(args, " ")

	s.spinner.Start("Loading...")
	v, err := s.cfg.Service.FetchVideo(ctx, link)
	s.spinner.Stop()
	if err != nil {
		s.cfg.Logger.Debug("fetch failed", slog.Any("error", err))
		s.cfg.Display.PrintError(summarizer.FetchMessage(err))
		return
	}

	s.video = &v
	s.summary = nil
	s.cfg.Display.PrintVideo(v)
	s.cfg.Display.PrintSuccess("Video information loaded successfully")
}

func (s *Shell) summarize(ctx context.Context, args []string) {
	in := summarizer.SummarizeInput{Format: api.FormatText}
	for _, a := range args {
		switch strings.ToLower(a) {
		case "audio", "--audio":
			in.GenerateAudio = true
		default:
			in.Format = strings.ToLower(a)
		}
	}
	if s.video != nil {
		in.URL = s.video.URL
		in.Title = s.video.Title
		in.Thumbnail = s.video.Thumbnail
		in.Transcript = s.video.Transcript
	}

	s.spinner.Start("Generating...")
	out, err := s.cfg.Service.Summarize(ctx, in)
	s.spinner.Stop()
	if err != nil {
		s.cfg.Display.PrintError(summarizer.SummaryMessage(err))
		return
	}

	s.summary = &out
	s.cfg.Display.PrintSummary(in.Title, out)
	s.cfg.Display.PrintSuccess("Summary generated successfully!")

	if out.AudioURL != "" && s.cfg.Audio != nil {
		path, err := s.cfg.Audio.DownloadAudio(ctx, out.AudioURL, s.cfg.AudioDir)
		if err != nil {
			s.cfg.Display.PrintWarning(fmt.Sprintf("Audio summary is available at %s but could not be saved: %v", out.AudioURL, err))
			return
		}
		s.cfg.Display.PrintInfo("Audio summary saved to " + path)
	}
}

// target resolves an optional link argument to a title and summary, falling
// back to the summary on screen
func (s *Shell) target(ctx context.Context, link string) (title, summary string, ok bool) {
	if link != "" {
		entry, found := s.cfg.Service.History().Find(ctx, link)
		if !found {
			s.cfg.Display.PrintError("No history entry for " + link)
			return "", "", false
		}
		return entry.Title, entry.Summary, true
	}
	if s.summary == nil {
		s.cfg.Display.PrintError("No summary content to use. Generate a summary first.")
		return "", "", false
	}
	if s.video != nil {
		title = s.video.Title
	}
	return title, s.summary.Text, true
}

func (s *Shell) copy(ctx context.Context, args []string) {
	_, summary, ok := s.target(ctx, strings.Join(args, " "))
	if !ok {
		return
	}
	if err := s.cfg.Copy(summary); err != nil {
		s.cfg.Logger.Debug("copy failed", slog.Any("error", err))
		s.cfg.Display.PrintError("Failed to copy summary")
		return
	}
	s.cfg.Display.PrintSuccess("Summary copied to clipboard")
}

func (s *Shell) export(ctx context.Context, args []string) {
	var link, as string
	for _, a := range args {
		if looksLikeLink(a) {
			link = a
		} else {
			as = a
		}
	}
	format, err := export.ParseFormat(as)
	if err != nil {
		s.cfg.Display.PrintError(err.Error())
		return
	}

	title, summary, ok := s.target(ctx, link)
	if !ok {
		return
	}

	label := strings.ToUpper(string(format))
	s.cfg.Display.PrintInfo(fmt.Sprintf("Generating %s...", label))
	path, err := export.SaveFile(s.cfg.ExportDir, export.Document{Title: title, Summary: summary}, format)
	if err != nil {
		if errors.Is(err, export.ErrEmptySummary) {
			s.cfg.Display.PrintError("No summary content to download")
			return
		}
		s.cfg.Display.PrintError(fmt.Sprintf("Failed to download %s: %v", label, err))
		return
	}
	s.cfg.Display.PrintSuccess(fmt.Sprintf("%s downloaded successfully: %s", label, path))
}

func (s *Shell) delete(ctx context.Context, args []string) {
	link := strings.Join(args, " ")
	if link == "" {
		s.cfg.Display.PrintError("Usage: /delete <link>")
		return
	}
	deleted, err := s.cfg.Service.History().Delete(ctx, link, s.cfg.Confirmer)
	if err != nil {
		s.cfg.Display.PrintError(fmt.Sprintf("Failed to delete summary: %v", err))
		return
	}
	if deleted {
		s.cfg.Display.PrintSuccess("Summary deleted from history")
	}
}
