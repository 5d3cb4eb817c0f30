package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/convoca/convoca/pkg/cmd"
	"github.com/convoca/convoca/pkg/log"
	"github.com/convoca/convoca/pkg/otelhelper"
	"github.com/convoca/convoca/pkg/scheduler"
)

func main() {
	command := &cli.Command{
		Name:                  "convoca-scheduler",
		Usage:                 "Start the Convoca trigger scheduler",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scheduler-id",
				Aliases: []string{"id"},
				Usage:   "Custom scheduler ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("SCHEDULER_ID"),
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
				Name:    "redis-url",
				Usage:   "Redis URL for the cross-instance scheduler lock (local lock if empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "How often the scheduler scans for due work",
				Value:   time.Minute,
				Sources: cli.EnvVars("POLL_INTERVAL"),
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

			schedulerID := command.String("scheduler-id")
			if schedulerID == "" {
				schedulerID = "sched-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("convoca-scheduler").With("scheduler_id", schedulerID)

			logger.InfoContext(ctx, "Initializing Convoca Scheduler")

			tracer, err := otelhelper.NewTracer(ctx, "convoca-scheduler")
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

			eventBus, _, err := cmd.NewEventBus(command.String("event-bus"), "convoca-scheduler", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			var lock scheduler.Lock

			if redisURL := command.String("redis-url"); redisURL != "" {
				lock, err = scheduler.NewRedisLock(ctx, redisURL)
				if err != nil {
					return fmt.Errorf("failed to connect scheduler lock: %w", err)
				}

				defer func() {
					if err := lock.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close scheduler lock", "error", err)
					}
				}()
			}

			sched := scheduler.NewScheduler(scheduler.Config{
				SchedulerID:  schedulerID,
				Persistence:  persistence,
				Guests:       guestStore,
				Publisher:    eventBus,
				Lock:         lock,
				PollInterval: command.Duration("poll-interval"),
				Tracer:       tracer,
				Logger:       logger,
			})

			if err := sched.Start(ctx); err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			sig := <-sigChan
			logger.InfoContext(ctx, "Received signal, shutting down", "signal", sig.String())

			return sched.Stop(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
