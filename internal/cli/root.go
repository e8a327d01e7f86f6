package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fmueller/xxlasr/internal/config"
	"github.com/fmueller/xxlasr/internal/engine"
	"github.com/fmueller/xxlasr/internal/logging"
	"github.com/fmueller/xxlasr/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

// asrEngine is what every subcommand needs from *engine.Engine.
type asrEngine interface {
	Transcribe(ctx context.Context, req engine.Request) (engine.Result, error)
	DetectLanguage(ctx context.Context, audioPath string) engine.LanguageResult
	LastActivity() time.Time
	Idle() bool
	Close()
}

type appState struct {
	configFile string
	verbose    bool
	jsonLogs   bool
	noProgress bool
	enginePath string

	cfg    config.Config
	logger *zap.Logger

	loadConfigFn func(opts ...config.Option) (config.Config, error)
	newEngineFn  func(cfg config.EngineConfig, logger *zap.Logger) (asrEngine, error)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&appState{
		loadConfigFn: config.Load,
		newEngineFn:  openEngine,
	})
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "xxlasr",
		Short:         "Speech recognition on top of the Faster-Whisper-XXL executable",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd)
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindGlobalFlags(cmd, app)

	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newDetectLanguageCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newWorkerCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindGlobalFlags(cmd *cobra.Command, app *appState) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&app.configFile, "config", app.configFile, "Path to a config file (default: <config dir>/config.yaml)")
	flags.BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	flags.BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	flags.StringVar(&app.enginePath, "engine-path", app.enginePath, "Path to the faster-whisper-xxl executable")
	flags.BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

// prepare loads configuration and builds the logger. Flags win over
// config values.
func (a *appState) prepare(cmd *cobra.Command) error {
	loadConfig := a.loadConfigFn
	if loadConfig == nil {
		loadConfig = config.Load
	}

	var opts []config.Option
	if strings.TrimSpace(a.configFile) != "" {
		opts = append(opts, config.WithConfigFile(a.configFile))
	}

	cfg, err := loadConfig(opts...)
	if err != nil {
		return err
	}

	if strings.TrimSpace(a.enginePath) != "" {
		cfg.Engine.Path = a.enginePath
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Log.Verbose = a.verbose
	}
	if cmd.Flags().Changed("json") {
		cfg.Log.JSON = a.jsonLogs
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Options{Verbose: cfg.Log.Verbose, JSON: cfg.Log.JSON, Level: cfg.Log.Level})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	if cfg.ConfigFile != "" {
		logger.Debug("config loaded", zap.String("file", cfg.ConfigFile))
	}
	return nil
}

func openEngine(cfg config.EngineConfig, logger *zap.Logger) (asrEngine, error) {
	return engine.New(engine.Options{
		Executable:  cfg.Path,
		Standard:    cfg.Standard,
		MaxGap:      cfg.MaxGap,
		IdleTimeout: cfg.IdleTimeout,
		ExecTimeout: cfg.ExecTimeout,
		ScratchDir:  cfg.ScratchDir,
		Logger:      logger,
	})
}

func (a *appState) openEngine() (asrEngine, error) {
	newEngine := a.newEngineFn
	if newEngine == nil {
		newEngine = openEngine
	}
	return newEngine(a.cfg.Engine, a.log())
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
