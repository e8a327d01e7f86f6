package cli

import (
	"fmt"
	"strconv"

	"github.com/fmueller/xxlasr/internal/engine"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDetectLanguageCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "detect-language <audio-file>",
		Short: "Detect the spoken language of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audioPath, err := existingAudioPath(args[0])
			if err != nil {
				return err
			}

			eng, err := app.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			stopSpinner := startSpinner(app.progressEnabled(), "Detecting language")
			detected := eng.DetectLanguage(cmd.Context(), audioPath)
			stopSpinner()

			app.log().Info("language detected",
				zap.String("code", detected.Code),
				zap.String("language", engine.LanguageName(detected.Code)),
				zap.Float64("confidence", detected.Confidence),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", detected.Code, strconv.FormatFloat(detected.Confidence, 'f', -1, 64))
			return nil
		},
	}
}
