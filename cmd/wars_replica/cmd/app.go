package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/internal/engine"
	"github.com/hexwars/replica/internal/logging"
	intOtel "github.com/hexwars/replica/internal/otel"
	"github.com/hexwars/replica/pkg/core"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const binaryName = "wars_replica"

// app holds what every subcommand shares: configuration, logging and telemetry.
type app struct {
	configDir string
	logLevel  string
	logsDir   string

	started time.Time
	logs    *logging.SlogManager
	logOut  io.Writer
	files   []*os.File
	otel    *intOtel.Provider
	engine  atomic.Pointer[engine.Engine]
}

func (a *app) setup(cmd *cobra.Command) error {
	a.started = time.Now()

	var notFound viper.ConfigFileNotFoundError
	configErr := config.Load(a.configDir)
	if configErr != nil && !errors.As(configErr, &notFound) {
		return configErr
	}

	level := config.GetString("logLevel")
	if a.logLevel != "" {
		level = a.logLevel
	}
	logsDir := config.GetString("logsDir")
	if a.logsDir != "" {
		logsDir = a.logsDir
	}

	a.logOut = cmd.ErrOrStderr()
	if logsDir != "-" {
		f, err := a.create(logging.LogFilePath(logsDir, binaryName, a.started))
		if err != nil {
			return err
		}
		a.logOut = f
	}

	otelCfg := config.GetOTelConfig()
	ocfg := intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	}
	if ocfg.Enabled && logsDir != "-" {
		f, err := a.create(logging.SessionFilePath(logsDir, binaryName, a.started, "otel.jsonl"))
		if err != nil {
			return err
		}
		ocfg.LogWriter = f
	}
	provider, err := intOtel.New(ocfg)
	noExporter := errors.Is(err, intOtel.ErrNoExporter)
	if noExporter {
		provider, err = intOtel.New(intOtel.Config{})
	}
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	a.otel = provider

	a.logs = logging.NewSlogManager()
	a.logs.SetContextProvider(logging.GameContext(a.gameInfo))
	a.logs.Setup(a.logOut, level, provider.LoggerProvider())

	if configErr != nil {
		a.logger().Warn("No config file, using defaults", "dir", a.configDir)
	}
	if noExporter {
		a.logger().Warn("Telemetry enabled without a log file or endpoint, disabling it")
	}
	return nil
}

func (a *app) create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	a.files = append(a.files, f)
	return f, nil
}

// gameInfo runs on whichever goroutine logs, so it only reads the engine's header copy.
func (a *app) gameInfo() core.GameInfo {
	e := a.engine.Load()
	if e == nil {
		return core.GameInfo{}
	}
	return e.Header()
}

func (a *app) logger() *slog.Logger {
	return a.logs.Logger()
}

// zerologger writes zerolog output next to the slog records.
func (a *app) zerologger(component string) zerolog.Logger {
	return zerolog.New(a.logOut).With().Timestamp().Str("component", component).Logger()
}

// newEngine creates the engine the context handler reports on.
func (a *app) newEngine(opts ...engine.Option) (*engine.Engine, error) {
	e, err := engine.New(append([]engine.Option{engine.WithLogger(a.logger())}, opts...)...)
	if err != nil {
		return nil, err
	}
	a.engine.Store(e)
	return e, nil
}

func (a *app) close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	if a.logs != nil {
		errs = append(errs, a.logs.Flush(ctx))
	}
	if a.otel != nil {
		errs = append(errs, a.otel.Shutdown(ctx))
	}
	for _, f := range a.files {
		errs = append(errs, f.Close())
	}
	a.files = nil
	return errors.Join(errs...)
}
