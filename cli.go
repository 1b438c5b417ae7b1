package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"vidsum/internal/api"
	"vidsum/internal/config"
	"vidsum/internal/export"
	"vidsum/internal/history"
	"vidsum/internal/kv"
	"vidsum/internal/summarizer"
	"vidsum/internal/terminal"
	"vidsum/internal/ui"
	"vidsum/internal/web"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "vidsum",
		Short:         "Summarize YouTube videos from the terminal",
		Long:          "vidsum fetches video details and transcripts from a summary backend, generates summaries, and keeps the last ten in a local history.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.stdout = cmd.OutOrStdout()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default $HOME/.vidsum/config.yaml or ./vidsum.yaml)")
	flags.String("api-url", "", "summary backend URL")
	flags.String("store", "", "history backend: "+strings.Join(kv.Backends(), ", "))
	flags.String("store-path", "", "history file for the file backend")
	flags.String("store-dsn", "", "sqlite path, redis URL or postgres DSN")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.BoolP("verbose", "v", false, "verbose logging")

	bind := map[string]string{
		"api.url":       "api-url",
		"store.backend": "store",
		"store.path":    "store-path",
		"store.dsn":     "store-dsn",
		"log.level":     "log-level",
		"verbose":       "verbose",
	}
	for key, flag := range bind {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newFetchCmd(a),
		newSummarizeCmd(a),
		newHistoryCmd(a),
		newShellCmd(a),
		newServeCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)
	return root
}

func newFetchCmd(a *app) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "fetch <url> [url...]",
		Short: "Load video details and transcript, and record them in history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			d := a.display

			if len(args) == 1 {
				spinner := a.spinner()
				spinner.Start("Loading...")
				v, err := a.svc.FetchVideo(ctx, args[0])
				spinner.Stop()
				if err != nil {
					d.PrintError(summarizer.FetchMessage(err))
					return silentError{err}
				}
				d.PrintVideo(v)
				d.PrintSuccess("Video information loaded successfully")
				return nil
			}

			var failed int
			for _, r := range a.svc.FetchMany(ctx, args, workers) {
				if r.Err != nil {
					failed++
					d.PrintError(fmt.Sprintf("%s: %s", r.Link, summarizer.FetchMessage(r.Err)))
					continue
				}
				d.PrintSuccess(fmt.Sprintf("%s (%s)", r.Video.Title, ui.FormatDuration(r.Duration)))
			}
			if failed > 0 {
				return silentError{fmt.Errorf("%d of %d videos failed", failed, len(args))}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 3, "parallel fetches when several links are given")
	return cmd
}

func newSummarizeCmd(a *app) *cobra.Command {
	var (
		format string
		audio  bool
		copyIt bool
	)
	cmd := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Fetch a video and generate its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			d := a.display
			spinner := a.spinner()

			spinner.Start("Loading...")
			v, err := a.svc.FetchVideo(ctx, args[0])
			spinner.Stop()
			if err != nil {
				d.PrintError(summarizer.FetchMessage(err))
				return silentError{err}
			}
			d.PrintVideo(v)

			spinner.Start("Generating...")
			out, err := a.svc.Summarize(ctx, summarizer.SummarizeInput{
				URL:           v.URL,
				Title:         v.Title,
				Thumbnail:     v.Thumbnail,
				Transcript:    v.Transcript,
				Format:        format,
				GenerateAudio: audio,
			})
			spinner.Stop()
			if err != nil {
				d.PrintError(summarizer.SummaryMessage(err))
				return silentError{err}
			}
			d.PrintSummary(v.Title, out)
			d.PrintSuccess("Summary generated successfully!")

			if out.AudioURL != "" {
				path, err := a.client.DownloadAudio(ctx, out.AudioURL, a.cfg.AudioDir)
				if err != nil {
					d.PrintWarning(fmt.Sprintf("Audio summary could not be saved: %v", err))
				} else {
					d.PrintInfo("Audio summary saved to " + path)
				}
			}
			if copyIt {
				copySummary(d, out.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", api.FormatText, "summary format: "+strings.Join(api.Formats, ", "))
	cmd.Flags().BoolVar(&audio, "audio", false, "also generate an audio summary")
	cmd.Flags().BoolVar(&copyIt, "copy", false, "copy the summary to the clipboard")
	return cmd
}

func copySummary(d *ui.Display, text string) bool {
	if err := ui.CopyToClipboard(text); err != nil {
		d.PrintError("Failed to copy summary")
		return false
	}
	d.PrintSuccess("Summary copied to clipboard")
	return true
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and manage saved summaries",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				list := a.store.Load(ctx)
				if list == nil {
					list = history.List{}
				}
				return enc.Encode(list)
			}
			a.store.SetRenderer(a.display)
			a.store.Render(ctx)
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print the raw list as JSON")

	var yes bool
	del := &cobra.Command{
		Use:   "delete <url>",
		Short: "Remove an entry from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			if _, ok := a.store.Find(ctx, args[0]); !ok {
				a.display.PrintWarning("No history entry for " + args[0])
				return nil
			}
			var confirmer history.Confirmer = ui.PromptConfirmer{}
			if yes {
				confirmer = history.AlwaysConfirm
			}
			a.store.SetRenderer(a.display)
			deleted, err := a.store.Delete(ctx, args[0], confirmer)
			if err != nil {
				return fmt.Errorf("failed to delete summary: %w", err)
			}
			if deleted {
				a.display.PrintSuccess("Summary deleted from history")
			}
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	cp := &cobra.Command{
		Use:   "copy <url>",
		Short: "Copy a saved summary to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			entry, ok := a.store.Find(ctx, args[0])
			if !ok {
				a.display.PrintError("No history entry for " + args[0])
				return silentError{errors.New("not found")}
			}
			if !copySummary(a.display, entry.Summary) {
				return silentError{errors.New("copy failed")}
			}
			return nil
		},
	}

	var (
		as  string
		dir string
	)
	exp := &cobra.Command{
		Use:   "export <url>",
		Short: "Save a summary as a PDF, HTML or markdown document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			format, err := export.ParseFormat(as)
			if err != nil {
				return err
			}
			entry, ok := a.store.Find(ctx, args[0])
			if !ok {
				a.display.PrintError("No history entry for " + args[0])
				return silentError{errors.New("not found")}
			}
			if dir == "" {
				dir = a.cfg.ExportDir
			}

			label := strings.ToUpper(string(format))
			a.display.PrintInfo(fmt.Sprintf("Generating %s...", label))
			path, err := export.SaveFile(dir, export.Document{Title: entry.Title, Summary: entry.Summary}, format)
			if errors.Is(err, export.ErrEmptySummary) {
				a.display.PrintError("No summary content to download")
				return silentError{err}
			}
			if err != nil {
				a.display.PrintError(fmt.Sprintf("Failed to download %s: %v", label, err))
				return silentError{err}
			}
			a.display.PrintSuccess(fmt.Sprintf("%s downloaded successfully: %s", label, path))
			return nil
		},
	}
	exp.Flags().StringVar(&as, "as", string(export.PDF), "document format: pdf, html or md")
	exp.Flags().StringVar(&dir, "dir", "", "output directory (default export.dir)")

	cmd.AddCommand(list, del, cp, exp)
	return cmd
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}

			historyFile := ""
			if a.cfg.StorePath != "" {
				historyFile = filepath.Join(filepath.Dir(a.cfg.StorePath), "shell_history")
			}
			sh := terminal.NewShell(terminal.ShellConfig{
				Service:     a.svc,
				Display:     a.display,
				Confirmer:   ui.PromptConfirmer{},
				Audio:       a.client,
				ExportDir:   a.cfg.ExportDir,
				AudioDir:    a.cfg.AudioDir,
				HistoryFile: historyFile,
				BackendURL:  a.cfg.APIURL,
				Logger:      a.logger,
				Stdout:      a.stdout,
			})
			return sh.Run(ctx)
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var origins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the history page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			srv := web.NewServer(web.Config{
				Addr:         a.cfg.ServeAddr,
				AllowOrigins: origins,
				Debug:        a.cfg.LogLevel == "debug",
			}, a.svc,
				web.WithLogger(a.logger),
				web.WithMetricsHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})),
			)
			a.display.PrintInfo(fmt.Sprintf("Serving on http://%s (Ctrl+C to stop)", a.cfg.ServeAddr))
			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "CORS origins (default all)")
	_ = a.v.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, backend and history storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.loadConfig(); err != nil {
				return err
			}
			d := a.newDisplay()

			if f := config.ConfigFile(a.v); f != "" {
				d.PrintInfo("Config file: " + f)
			} else {
				d.PrintInfo("Config file: none (defaults and environment)")
			}
			if err := a.setup(ctx); err != nil {
				d.PrintError(err.Error())
				return silentError{err}
			}
			d.PrintInfo("Backend: " + a.client.BaseURL())
			d.PrintInfo(fmt.Sprintf("History: %s store, key %q", a.cfg.StoreBackend, a.cfg.StoreKey))
			if f, ok := a.storage.(*kv.File); ok {
				d.PrintInfo("History file: " + f.Path())
			}
			d.PrintSeparator()

			ok := true
			if err := a.client.HealthCheck(ctx); err != nil {
				d.PrintError(err.Error())
				d.PrintInfo("Make sure the summary backend is running")
				ok = false
			} else {
				d.PrintSuccess("Backend is reachable")
			}

			if _, _, err := a.storage.Get(ctx, a.cfg.StoreKey); err != nil {
				d.PrintError(fmt.Sprintf("History store is not readable: %v", err))
				ok = false
			} else {
				d.PrintSuccess(fmt.Sprintf("History store is readable (%d entries)", len(a.store.Load(ctx))))
			}

			if !ok {
				return silentError{errors.New("doctor found problems")}
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vidsum %s\n", version)
		},
	}
}
