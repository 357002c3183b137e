package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docflow/internal/docflow/core"
	"docflow/internal/docflow/domain"
	"docflow/internal/docflow/notify"
	"docflow/internal/docflow/progress"
	"docflow/internal/docflow/transport"
	"docflow/internal/docflow/validation"
	"docflow/pkg/logger"
)

type submitCmdParams struct {
	pdfOnly bool
	quiet   bool
}

func newSubmitCmd() *cobra.Command {
	params := &submitCmdParams{}

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a document and run the backend driver on it",
		Long: `Upload a document and run the backend driver on it.

The file is validated (at most 10MB), uploaded to {base-url}/upload/ and then
processed through {base-url}/run-driver/. Progress is estimated, the backend
does not report it.

Examples:
  docflow submit report.pdf
  docflow submit --base-url http://backend:8001 --pdf-only report.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, args[0], params)
		},
	}

	cmd.Flags().BoolVar(&params.pdfOnly, "pdf-only", false, "Reject files whose content is not PDF")
	cmd.Flags().BoolVarP(&params.quiet, "quiet", "q", false, "Do not render progress")

	return cmd
}

func runSubmit(cmd *cobra.Command, path string, params *submitCmdParams) error {
	candidate, err := domain.CandidateFromPath(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := notify.NewConsole(cmd.OutOrStdout())
	orchestrator := core.NewOrchestrator(
		validation.New(validation.WithPDFOnly(cfg.Client.PDFOnly || params.pdfOnly)),
		transport.NewHTTPTransport(cfg.Client.BaseURL, cfg.Client.Timeout),
		notify.Multi{console, notify.NewLog(logger.WithField("command", "submit"))},
		progress.Config{
			Interval:          cfg.Progress.Interval,
			EstimatedDuration: cfg.Progress.EstimatedDuration,
			Cap:               cfg.Progress.Cap,
		},
	)
	defer orchestrator.Close()

	if _, err := orchestrator.SelectFile(candidate); err != nil {
		return err
	}

	unsubscribe := func() {}
	var rendered chan struct{}
	if !params.quiet {
		var events <-chan domain.Event
		events, unsubscribe = orchestrator.Subscribe()
		rendered = make(chan struct{})
		go func() {
			defer close(rendered)
			renderProgress(cmd.ErrOrStderr(), events)
		}()
	}

	result, err := orchestrator.Submit(ctx)
	unsubscribe()
	if rendered != nil {
		<-rendered
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Timing: %s\n", result.Timing)
	if !result.Succeeded {
		return result.Err
	}
	return nil
}

// renderProgress draws a single status line until the submission leaves the busy region.
func renderProgress(w io.Writer, events <-chan domain.Event) {
	drawn := false
	for ev := range events {
		switch {
		case ev.State.IsBusy():
			name := ""
			if ev.File != nil {
				name = ev.File.Name
			}
			fmt.Fprintf(w, "\r%-10s %5.1f%% %s", ev.State, ev.Progress, name)
			drawn = true
		case ev.State.IsTerminal():
			if ev.State == domain.StateSucceeded {
				fmt.Fprintf(w, "\r%-10s %5.1f%%", ev.State, ev.Progress)
			}
			if drawn {
				fmt.Fprintln(w)
				drawn = false
			}
		}
	}
}
