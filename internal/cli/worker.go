package cli

import (
	"strings"

	"github.com/fmueller/xxlasr/internal/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWorkerCmd(app *appState) *cobra.Command {
	var (
		amqpURL string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process transcription jobs from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(amqpURL) != "" {
				app.cfg.Queue.URL = amqpURL
			}
			if cmd.Flags().Changed("workers") {
				app.cfg.Queue.Workers = workers
			}
			if err := app.cfg.Validate(); err != nil {
				return err
			}

			eng, err := app.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx := cmd.Context()
			logger := app.log()
			qc := app.cfg.Queue

			conn, err := queue.Connect(ctx, qc.URL, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := conn.Close(); err != nil {
					logger.Debug("close rabbitmq connection", zap.Error(err))
				}
			}()

			consumer, err := queue.NewConsumer(conn, qc.JobsQueue, qc.Workers, logger)
			if err != nil {
				return err
			}
			defer consumer.Close()

			producer, err := queue.NewProducer(conn, qc.ResultsQueue)
			if err != nil {
				return err
			}
			defer producer.Close()

			w, err := queue.NewWorker(queue.WorkerOptions{
				Engine:    eng,
				Publisher: producer,
				Workers:   qc.Workers,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			deliveries, err := consumer.Consume(ctx)
			if err != nil {
				return err
			}
			if err := w.Run(ctx, deliveries); err != nil {
				return err
			}
			logger.Info("worker stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&amqpURL, "amqp-url", "", "RabbitMQ URL (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent jobs (default from config)")
	return cmd
}
