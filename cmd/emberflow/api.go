package main

import (
	"context"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"

	"github.com/emberflow/emberflow/pkg/actions"
	"github.com/emberflow/emberflow/pkg/browser/sim"
	"github.com/emberflow/emberflow/pkg/eventbus"
	"github.com/emberflow/emberflow/pkg/log"
	"github.com/emberflow/emberflow/pkg/totp"
	"github.com/emberflow/emberflow/pkg/variables"
	"github.com/emberflow/emberflow/pkg/warmup"
	"github.com/emberflow/emberflow/pkg/web"
	"github.com/emberflow/emberflow/pkg/workflow"
)

const defaultPort = 9290

// NewAPICommand serves the REST API for workflow and warm-up management.
func NewAPICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Serve the engine REST API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			databaseFlag(),
			&cli.StringFlag{
				Name:    "profiles-file",
				Usage:   "Path to a JSON array of profiles for warm-up runs",
				Sources: cli.EnvVars("PROFILES_FILE"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Maximum concurrent batch executions",
				Value:   workflow.DefaultConcurrency,
				Sources: cli.EnvVars("CONCURRENCY"),
			},
			logLevelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing emberflow API")

			store, err := newPersistence(logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			bus := eventbus.NewGoChannelBus(watermill.NewSlogLogger(logger))
			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			registry := actions.NewRegistry(logger)
			executor := workflow.NewExecutor(registry, variables.NewStore(logger), bus, logger)
			manager := sim.NewManager()
			batch := workflow.NewBatch(executor, manager, command.Int("concurrency"), logger)

			var profiles warmup.ProfileSource
			if path := command.String("profiles-file"); path != "" {
				source, err := newFileProfiles(path)
				if err != nil {
					return err
				}

				profiles = source
			} else {
				profiles = &fileProfiles{}
			}

			login := warmup.NewLoginHandler(store.Cookies(), totp.New(), logger)
			scheduler := warmup.NewScheduler(
				store,
				profiles,
				manager,
				warmup.NewExecutor(login, logger),
				bus,
				warmup.DefaultPollInterval,
				logger,
			)

			handlers := web.NewAPIHandlers(
				store,
				registry,
				batch,
				scheduler,
				validator.New(validator.WithRequiredStructEnabled()),
				logger,
			)

			app := fiber.New()
			app.Use(cors.New())
			app.Use(fiberlogger.New(fiberlogger.Config{DisableColors: true}))
			handlers.Register(app)

			return app.Listen(":" + strconv.Itoa(command.Int("port")))
		},
	}
}
