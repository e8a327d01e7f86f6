package engine

import (
	"errors"
	"fmt"
)

type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// ParseTask accepts "", "transcribe" or "translate".
func ParseTask(value string) (Task, error) {
	switch Task(value) {
	case "", TaskTranscribe, TaskTranslate:
		return Task(value), nil
	default:
		return "", fmt.Errorf("unknown task %q (expected transcribe or translate)", value)
	}
}

type OutputFormat string

const (
	FormatTXT  OutputFormat = "txt"
	FormatVTT  OutputFormat = "vtt"
	FormatSRT  OutputFormat = "srt"
	FormatTSV  OutputFormat = "tsv"
	FormatJSON OutputFormat = "json"
)

// ResolveOutputFormat maps a requested format onto one the executable
// understands. Anything unrecognized becomes txt.
func ResolveOutputFormat(requested string) OutputFormat {
	switch f := OutputFormat(requested); f {
	case FormatTXT, FormatVTT, FormatSRT, FormatTSV, FormatJSON:
		return f
	default:
		return FormatTXT
	}
}

type Request struct {
	AudioPath      string
	Task           Task
	Language       string
	InitialPrompt  string
	VADFilter      bool
	WordTimestamps bool
	// Options is accepted for API compatibility and not forwarded.
	Options map[string]any
	Output  string
}

type Result struct {
	Text   string
	Format OutputFormat
}

type LanguageResult struct {
	Code       string
	Confidence float64
}

const DefaultLanguageCode = "en"

func defaultLanguage() LanguageResult {
	return LanguageResult{Code: DefaultLanguageCode, Confidence: 0}
}

var (
	ErrConfiguration   = errors.New("engine configuration error")
	ErrExecutionFailed = errors.New("engine execution failed")
	ErrOutputNotFound  = errors.New("engine output not found")
)

// ExecutionError is returned when the executable could not be run or exited
// with a non-zero status. It matches ErrExecutionFailed.
type ExecutionError struct {
	Stderr string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Stderr != "" {
		return "faster-whisper-xxl failed: " + e.Stderr
	}
	return fmt.Sprintf("faster-whisper-xxl failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailed
}
