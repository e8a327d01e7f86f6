package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmueller/xxlasr/internal/engine"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type transcribeFlags struct {
	task           string
	language       string
	initialPrompt  string
	vadFilter      bool
	wordTimestamps bool
	output         string
}

func newTranscribeCmd(app *appState) *cobra.Command {
	flags := transcribeFlags{output: string(engine.FormatTXT)}

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audioPath, err := existingAudioPath(args[0])
			if err != nil {
				return err
			}

			task, err := engine.ParseTask(strings.TrimSpace(flags.task))
			if err != nil {
				return err
			}

			eng, err := app.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			language := strings.ToLower(strings.TrimSpace(flags.language))
			app.log().Info("transcribing...", zap.String("audio", audioPath), zap.String("language", language), zap.String("output", flags.output))
			stopSpinner := startSpinner(app.progressEnabled(), "Transcribing")
			started := time.Now()

			result, err := eng.Transcribe(cmd.Context(), engine.Request{
				AudioPath:      audioPath,
				Task:           task,
				Language:       language,
				InitialPrompt:  flags.initialPrompt,
				VADFilter:      flags.vadFilter,
				WordTimestamps: flags.wordTimestamps,
				Output:         flags.output,
			})
			stopSpinner()
			if err != nil {
				app.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
				return err
			}
			app.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)), zap.String("format", string(result.Format)))

			text := result.Text
			if !strings.HasSuffix(text, "\n") {
				text += "\n"
			}
			fmt.Fprint(cmd.OutOrStdout(), text)

			if isBlankTranscript(result.Text) {
				app.log().Warn(noSpeechHint())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.task, "task", flags.task, "Task: transcribe|translate (default: executable's own default)")
	cmd.Flags().StringVar(&flags.language, "language", flags.language, "Language code (en|de|...); empty lets the engine detect it")
	cmd.Flags().StringVar(&flags.initialPrompt, "initial-prompt", flags.initialPrompt, "Initial prompt passed to the model")
	cmd.Flags().BoolVar(&flags.vadFilter, "vad-filter", flags.vadFilter, "Enable voice activity detection filtering")
	cmd.Flags().BoolVar(&flags.wordTimestamps, "word-timestamps", flags.wordTimestamps, "Enable word-level timestamps")
	cmd.Flags().StringVar(&flags.output, "output", flags.output, "Output format: txt|vtt|srt|tsv|json")
	return cmd
}

func existingAudioPath(path string) (string, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("audio file not found: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("audio path %s is a directory", path)
	}
	return path, nil
}
