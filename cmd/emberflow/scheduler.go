package main

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	cli "github.com/urfave/cli/v3"

	"github.com/emberflow/emberflow/pkg/browser/sim"
	"github.com/emberflow/emberflow/pkg/eventbus"
	"github.com/emberflow/emberflow/pkg/log"
	"github.com/emberflow/emberflow/pkg/totp"
	"github.com/emberflow/emberflow/pkg/warmup"
)

// NewSchedulerCommand runs the warm-up scheduler loop until interrupted.
func NewSchedulerCommand() *cli.Command {
	return &cli.Command{
		Name:    "scheduler",
		Aliases: []string{"s"},
		Usage:   "Run the warm-up scheduler",
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.StringFlag{
				Name:     "profiles-file",
				Usage:    "Path to a JSON array of profiles",
				Required: true,
				Sources:  cli.EnvVars("PROFILES_FILE"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "How often to scan for due warm-up records",
				Value:   warmup.DefaultPollInterval,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
			logLevelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("scheduler")

			logger.InfoContext(ctx, "Initializing warm-up scheduler")

			store, err := newPersistence(logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			profiles, err := newFileProfiles(command.String("profiles-file"))
			if err != nil {
				return err
			}

			bus := eventbus.NewGoChannelBus(watermill.NewSlogLogger(logger))
			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			login := warmup.NewLoginHandler(store.Cookies(), totp.New(), logger)
			scheduler := warmup.NewScheduler(
				store,
				profiles,
				sim.NewManager(),
				warmup.NewExecutor(login, logger),
				bus,
				command.Duration("poll-interval"),
				logger,
			)

			if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}
}
