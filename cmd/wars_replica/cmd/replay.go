package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/hexwars/replica/internal/api"
	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/internal/engine"
	"github.com/hexwars/replica/internal/logging"
	"github.com/hexwars/replica/internal/monitor"
	"github.com/hexwars/replica/internal/replay"
	"github.com/hexwars/replica/internal/storage"
	"github.com/hexwars/replica/internal/transport"
	"github.com/spf13/cobra"
)

type replayFlags struct {
	url     string
	strict  bool
	journal string
	upload  bool
	narrate bool
	trace   bool
	status  string
}

func newReplayCmd(a *app) *cobra.Command {
	var f replayFlags
	c := &cobra.Command{
		Use:   "replay [SESSION|-]",
		Short: "Apply a session to a fresh engine and journal its notifications",
		Long: `Replay reads a session stream of newline-delimited envelopes from a file,
stdin ("-") or a live websocket (--url), applies it to a fresh engine and
records every notification to the configured journal backend.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReplay(cmd, args, f)
		},
	}

	c.Flags().StringVar(&f.url, "url", "", "Read from a live websocket instead of a file; overrides transport.url")
	c.Flags().BoolVar(&f.strict, "strict", false, "Check world invariants after every event; overrides replay.strict")
	c.Flags().StringVar(&f.journal, "journal", "", "Journal backend (memory, sqlite, postgres, websocket, influx, none); overrides journal.type")
	c.Flags().BoolVar(&f.upload, "upload", false, "Upload the exported journal to api.serverUrl when done")
	c.Flags().BoolVar(&f.narrate, "narrate", false, "Log a one-line description of every event")
	c.Flags().BoolVar(&f.trace, "trace", false, "Log dispatcher handler activity")
	c.Flags().StringVar(&f.status, "status", "", "Write replay progress as JSON to this file every second")
	return c
}

func (a *app) runReplay(cmd *cobra.Command, args []string, f replayFlags) error {
	logger := a.logger()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var opts []engine.Option
	if f.trace {
		opts = append(opts, engine.WithHandlerLogging(logging.NewDispatcherLogger(a.zerologger("dispatcher"))))
	}
	e, err := a.newEngine(opts...)
	if err != nil {
		return err
	}

	src, err := a.openSource(ctx, args, f.url)
	if err != nil {
		return err
	}
	defer src.Close()

	jcfg := config.GetJournalConfig()
	if f.journal != "" {
		jcfg.Type = f.journal
	}
	backend, err := storage.NewBackend(jcfg, logger, a.zerologger("journal"))
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing %s journal: %w", jcfg.Type, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close journal", "error", err)
		}
	}()

	rec := storage.NewRecorder(backend, e, logger)
	sub := rec.Attach(e.Events())
	if f.narrate {
		narrator := e.Events().Subscribe(logging.NewEventLogger(e, logger).Handle)
		defer narrator.Cancel()
	}

	if f.status != "" {
		deps := monitor.Dependencies{Game: e, Journal: rec, Logger: logger, StatusPath: f.status}
		if p, ok := backend.(storage.Buffered); ok {
			deps.Pending = p.Pending
		}
		mon := monitor.NewService(deps)
		if err := mon.Start(); err != nil {
			return err
		}
		defer mon.Stop()
	}

	strict := f.strict || config.GetBool("replay.strict")
	st, runErr := replay.New(e, replay.WithLogger(logger), replay.WithStrict(strict)).Run(ctx, src)

	sub.Cancel()
	rec.Close()
	entries, dropped, failed := rec.Stats()
	if err := a.otel.Flush(ctx); err != nil {
		logger.Warn("Telemetry flush failed", "error", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "envelopes: %d (rules %d, gamedata %d, events %d, skipped %d)\n",
		st.Envelopes, st.Rules, st.Snapshots, st.Events, st.Skipped)
	fmt.Fprintf(out, "journal: %s, %d entries, %d dropped, %d failed\n", jcfg.Type, entries, dropped, failed)
	if u, ok := backend.(storage.Uploadable); ok && u.ExportedFilePath() != "" {
		fmt.Fprintf(out, "exported: %s\n", u.ExportedFilePath())
	}
	if runErr != nil {
		return runErr
	}

	if f.upload {
		return a.upload(ctx, backend)
	}
	return nil
}

func (a *app) openSource(ctx context.Context, args []string, url string) (transport.Source, error) {
	tcfg := config.GetTransportConfig()
	if url != "" {
		tcfg.URL = url
	}
	if len(args) == 1 {
		if url != "" {
			return nil, fmt.Errorf("give either a session file or --url, not both")
		}
		return transport.OpenFile(args[0])
	}
	if tcfg.URL == "" {
		return nil, fmt.Errorf("no session: pass a file, \"-\" or --url")
	}
	return transport.DialWebsocket(ctx, tcfg, a.logger())
}

func (a *app) upload(ctx context.Context, backend storage.Backend) error {
	u, ok := backend.(storage.Uploadable)
	if !ok || u.ExportedFilePath() == "" {
		return fmt.Errorf("journal backend produced no file to upload")
	}
	acfg := config.GetAPIConfig()
	if acfg.ServerURL == "" {
		return fmt.Errorf("api.serverUrl is not set")
	}

	client := api.New(acfg.ServerURL, acfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		return fmt.Errorf("archive unavailable: %w", err)
	}
	if err := client.Upload(ctx, u.ExportedFilePath(), u.ExportMetadata()); err != nil {
		return err
	}
	a.logger().Info("Journal uploaded", "path", u.ExportedFilePath(), "server", acfg.ServerURL)
	return nil
}
