package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/convoca/convoca/pkg/cmd"
	"github.com/convoca/convoca/pkg/log"
	"github.com/convoca/convoca/pkg/otelhelper"
	"github.com/convoca/convoca/pkg/protocol"
	"github.com/convoca/convoca/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "convoca-worker",
		Usage:                 "Start workers to execute invitation workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "guests-url",
				Usage:    "Guest store URL (file://path)",
				Required: true,
				Sources:  cli.EnvVars("GUESTS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "sender-mode",
				Usage:   "Message sender mode (log, queue)",
				Value:   "log",
				Sources: cli.EnvVars("SENDER_MODE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("convoca-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Convoca Worker")

			tracer, err := otelhelper.NewTracer(ctx, "convoca-worker")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			guestStore, err := cmd.NewGuestStore(command.String("guests-url"))
			if err != nil {
				return err
			}

			eventBus, publisher, err := cmd.NewEventBus(command.String("event-bus"), "convoca-worker", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			registry, err := cmd.NewRegistry(logger, command.String("sender-mode"), publisher)
			if err != nil {
				return err
			}

			executor := workflow.NewExecutor(
				persistence,
				registry,
				guestStore,
				eventBus,
				protocol.SystemClock{},
				logger,
			)

			worker := NewWorker(workerID, executor, eventBus, tracer, logger)

			return worker.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
