package cli

import (
	"errors"
	"testing"

	"github.com/fmueller/xxlasr/internal/engine"
	"github.com/stretchr/testify/require"
)

func TestTranscribeCommandPassesFlagsToEngine(t *testing.T) {
	t.Parallel()

	audio := writeAudioFile(t)
	eng := &fakeEngine{result: engine.Result{Text: "WEBVTT\n\nhello\n", Format: engine.FormatVTT}}

	stdout, _, err := runApp(t, testApp(eng, nil), []string{
		"transcribe",
		"--task", "translate",
		"--language", " DE ",
		"--initial-prompt", "Glossary",
		"--vad-filter",
		"--word-timestamps",
		"--output", "vtt",
		audio,
	})
	require.NoError(t, err)
	require.Equal(t, "WEBVTT\n\nhello\n", stdout)
	require.True(t, eng.closed)

	require.Len(t, eng.requests, 1)
	require.Equal(t, engine.Request{
		AudioPath:      audio,
		Task:           engine.TaskTranslate,
		Language:       "de",
		InitialPrompt:  "Glossary",
		VADFilter:      true,
		WordTimestamps: true,
		Output:         "vtt",
	}, eng.requests[0])
}

func TestTranscribeCommandDefaultsToText(t *testing.T) {
	t.Parallel()

	audio := writeAudioFile(t)
	eng := &fakeEngine{result: engine.Result{Text: "hello", Format: engine.FormatTXT}}

	stdout, _, err := runApp(t, testApp(eng, nil), []string{"transcribe", audio})
	require.NoError(t, err)
	require.Equal(t, "hello\n", stdout)
	require.Equal(t, "txt", eng.requests[0].Output)
	require.Equal(t, engine.Task(""), eng.requests[0].Task)
	require.False(t, eng.requests[0].VADFilter)
}

func TestTranscribeCommandPrintsBlankTranscript(t *testing.T) {
	t.Parallel()

	audio := writeAudioFile(t)
	eng := &fakeEngine{result: engine.Result{Text: "[BLANK_AUDIO]", Format: engine.FormatTXT}}

	stdout, _, err := runApp(t, testApp(eng, nil), []string{"transcribe", audio})
	require.NoError(t, err)
	require.Equal(t, "[BLANK_AUDIO]\n", stdout)
}

func TestTranscribeCommandReturnsEngineError(t *testing.T) {
	t.Parallel()

	audio := writeAudioFile(t)
	eng := &fakeEngine{err: &engine.ExecutionError{Stderr: "boom", Err: errors.New("exit status 1")}}

	stdout, _, err := runApp(t, testApp(eng, nil), []string{"transcribe", audio})
	require.ErrorIs(t, err, engine.ErrExecutionFailed)
	require.ErrorContains(t, err, "boom")
	require.Empty(t, stdout)
	require.True(t, eng.closed)
}

func TestDetectLanguageCommandPrintsCodeAndConfidence(t *testing.T) {
	t.Parallel()

	audio := writeAudioFile(t)
	eng := &fakeEngine{language: engine.LanguageResult{Code: "de", Confidence: 0.97}}

	stdout, _, err := runApp(t, testApp(eng, nil), []string{"detect-language", audio})
	require.NoError(t, err)
	require.Equal(t, "de\t0.97\n", stdout)
	require.True(t, eng.closed)
}

func TestIsBlankTranscript(t *testing.T) {
	t.Parallel()

	require.True(t, isBlankTranscript(""))
	require.True(t, isBlankTranscript("  \n"))
	require.True(t, isBlankTranscript("[blank_audio]\n"))
	require.False(t, isBlankTranscript("hello"))
}
