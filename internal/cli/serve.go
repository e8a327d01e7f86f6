package cli

import (
	"strings"

	"github.com/fmueller/xxlasr/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(app *appState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the /asr and /detect-language HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(addr) != "" {
				app.cfg.Server.Addr = addr
			}
			if err := app.cfg.Validate(); err != nil {
				return err
			}

			eng, err := app.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			srv := server.New(server.Options{
				Engine:         eng,
				Logger:         app.log(),
				MaxUploadBytes: app.cfg.Server.MaxUploadMB << 20,
				ScratchDir:     app.cfg.Engine.ScratchDir,
			})
			return srv.Run(cmd.Context(), app.cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :9000)")
	return cmd
}
