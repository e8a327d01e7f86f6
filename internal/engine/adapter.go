package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/fmueller/xxlasr/internal/idle"
	"github.com/fmueller/xxlasr/internal/platform"
	"go.uber.org/zap"
)

type Options struct {
	// Executable is the Faster-Whisper-XXL binary. When empty it is looked
	// up next to the running program.
	Executable string
	// Standard adds --standard to every transcription.
	Standard bool
	MaxGap   float64
	// IdleTimeout and IdleInterval configure the idle monitor.
	IdleTimeout  time.Duration
	IdleInterval time.Duration
	OnIdle       func()
	// ExecTimeout bounds each transcription run. Zero means no limit.
	ExecTimeout time.Duration
	ScratchDir  string
	Logger      *zap.Logger
}

// Engine runs Faster-Whisper-XXL for transcription and language detection.
// It is safe for concurrent use.
type Engine struct {
	Executable string

	standard    bool
	maxGap      float64
	execTimeout time.Duration
	scratchDir  string
	logger      *zap.Logger
	now         func() time.Time

	lastActivity atomic.Int64
	monitor      *idle.Monitor
}

func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	executable := strings.TrimSpace(opts.Executable)
	if executable == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("%w: resolve program path: %w", ErrConfiguration, err)
		}
		resolved, err := ResolveEnginePath(self)
		if err != nil {
			return nil, err
		}
		executable = resolved
	}

	if err := ensureExecutable(executable); err != nil {
		return nil, fmt.Errorf("%w: faster-whisper-xxl executable not usable at %s: %w", ErrConfiguration, executable, err)
	}
	if opts.MaxGap < 0 {
		return nil, fmt.Errorf("%w: max gap must not be negative (got %v)", ErrConfiguration, opts.MaxGap)
	}

	e := &Engine{
		Executable:  executable,
		standard:    opts.Standard,
		maxGap:      opts.MaxGap,
		execTimeout: opts.ExecTimeout,
		scratchDir:  opts.ScratchDir,
		logger:      logger,
		now:         time.Now,
	}
	e.touch()

	onIdle := opts.OnIdle
	if onIdle == nil {
		onIdle = func() {
			logger.Info("engine idle; no resident model to release", zap.String("engine", executable))
		}
	}
	e.monitor = idle.NewMonitor(e, idle.Config{
		Timeout:  opts.IdleTimeout,
		Interval: opts.IdleInterval,
		OnIdle:   onIdle,
		Logger:   logger,
	})
	e.monitor.Start()

	rt := platform.CurrentRuntime()
	logger.Debug("engine ready",
		zap.String("engine", executable),
		zap.String("os", rt.OS),
		zap.String("arch", rt.Arch),
		zap.Duration("idle_timeout", opts.IdleTimeout),
	)
	return e, nil
}

// ResolveEnginePath returns the first usable engine binary next to program.
func ResolveEnginePath(program string) (string, error) {
	for _, candidate := range EnginePathCandidates(program) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: faster-whisper-xxl not found near %s; set FASTER_WHISPER_XXL_PATH or install it at ../libexec/faster-whisper-xxl/%s",
		ErrConfiguration, program, platform.EngineBinaryName(runtime.GOOS))
}

func EnginePathCandidates(program string) []string {
	binDir := filepath.Dir(program)
	name := platform.EngineBinaryName(runtime.GOOS)

	return []string{
		filepath.Join(binDir, "..", "libexec", "faster-whisper-xxl", name),
		filepath.Join(binDir, "libexec", "faster-whisper-xxl", name),
		filepath.Join(binDir, name),
	}
}

// LastActivity is when Transcribe or DetectLanguage was last entered.
func (e *Engine) LastActivity() time.Time {
	return time.Unix(0, e.lastActivity.Load())
}

// Idle reports whether the idle monitor considers the engine unused.
func (e *Engine) Idle() bool {
	return e.monitor.Idle()
}

func (e *Engine) Close() {
	e.monitor.Stop()
}

func (e *Engine) touch() {
	e.lastActivity.Store(e.now().UnixNano())
}

func (e *Engine) Transcribe(ctx context.Context, req Request) (Result, error) {
	e.touch()

	if strings.TrimSpace(req.AudioPath) == "" {
		return Result{}, errors.New("audio path is required")
	}

	outDir, err := os.MkdirTemp(e.scratchDir, "xxlasr-")
	if err != nil {
		return Result{}, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(outDir); err != nil {
			e.logger.Warn("failed to remove scratch directory", zap.String("path", outDir), zap.Error(err))
		}
	}()

	if e.execTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.execTimeout)
		defer cancel()
	}

	format := ResolveOutputFormat(req.Output)
	args := e.BuildTranscribeArgs(req, outDir)

	e.logger.Debug("running faster-whisper-xxl", zap.String("engine", e.Executable), zap.Strings("args", args))
	res, err := runCommand(ctx, e.Executable, args)
	if err != nil {
		execErr := &ExecutionError{Stderr: strings.TrimSpace(string(res.Stderr)), Err: err}
		e.logFailureHint(execErr)
		return Result{}, execErr
	}
	e.logger.Debug("faster-whisper-xxl finished", zap.Duration("elapsed", res.Duration))

	outPath, err := findOutputFile(outDir, format)
	if err != nil {
		return Result{}, err
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		return Result{}, fmt.Errorf("read engine output: %w", err)
	}

	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}

	return Result{Text: text, Format: format}, nil
}

// DetectLanguage never fails: any problem is logged and reported as the
// default language with zero confidence.
func (e *Engine) DetectLanguage(ctx context.Context, audioPath string) LanguageResult {
	e.touch()

	res, err := runCommand(ctx, e.Executable, languageDetectionArgs(audioPath))
	if err != nil {
		detail := strings.TrimSpace(string(res.Stderr))
		if detail == "" {
			detail = err.Error()
		}
		e.logger.Warn("language detection failed", zap.String("audio", audioPath), zap.String("error", detail))
		return defaultLanguage()
	}

	detected, found, err := parseDetectedLanguage(string(res.Stdout))
	if err != nil {
		e.logger.Warn("unparsable language detection output", zap.String("audio", audioPath), zap.Error(err))
		return defaultLanguage()
	}
	if !found {
		e.logger.Debug("no language reported by engine", zap.String("audio", audioPath))
		return defaultLanguage()
	}

	return detected
}

func (e *Engine) logFailureHint(err *ExecutionError) {
	switch {
	case isMissingSharedLibraryError(err.Stderr):
		e.logger.Warn("faster-whisper-xxl is missing required shared libraries; reinstall it with its bundled runtime", zap.String("engine", e.Executable))
	case isIllegalInstructionError(err.Stderr) || isIllegalInstructionError(err.Err.Error()):
		e.logger.Warn("faster-whisper-xxl crashed with an illegal CPU instruction; use a build matching this CPU",
			zap.String("engine", e.Executable),
			zap.String("arch", platform.CurrentRuntime().Arch),
		)
	}
}

// findOutputFile returns the lexicographically first regular file in dir
// with the format's extension.
func findOutputFile(dir string, format OutputFormat) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list scratch directory: %w", err)
	}

	suffix := "." + string(format)
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), suffix) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: no %s file in %s", ErrOutputNotFound, suffix, dir)
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
