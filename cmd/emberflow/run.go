package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	cli "github.com/urfave/cli/v3"

	"github.com/emberflow/emberflow/pkg/actions"
	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/browser/sim"
	"github.com/emberflow/emberflow/pkg/eventbus"
	"github.com/emberflow/emberflow/pkg/log"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/emberflow/emberflow/pkg/schema"
	"github.com/emberflow/emberflow/pkg/variables"
	"github.com/emberflow/emberflow/pkg/workflow"
)

// NewRunCommand dry-runs a workflow file against one or more profiles
// using the simulated browser driver.
func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Dry-run a workflow file against simulated browser sessions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow-file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflow JSON file",
				Required: true,
				Sources:  cli.EnvVars("WORKFLOW_FILE"),
			},
			&cli.StringFlag{
				Name:    "profiles-file",
				Usage:   "Path to a JSON array of profiles; one synthetic profile is used when omitted",
				Sources: cli.EnvVars("PROFILES_FILE"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Usage:   "Maximum concurrent executions",
				Value:   workflow.DefaultConcurrency,
				Sources: cli.EnvVars("CONCURRENCY"),
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
			logger := log.WithModule("run")

			wf, err := loadWorkflow(command.String("workflow-file"))
			if err != nil {
				return err
			}

			profiles, err := loadProfiles(command.String("profiles-file"))
			if err != nil {
				return err
			}

			registry := actions.NewRegistry(logger)
			if err := registry.ValidateWorkflow(wf); err != nil {
				return fmt.Errorf("invalid workflow: %w", err)
			}

			bus := eventbus.NewGoChannelBus(watermill.NewSlogLogger(logger))
			defer func() {
				if err := bus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			executor := workflow.NewExecutor(registry, variables.NewStore(logger), bus, logger)
			batch := workflow.NewBatch(executor, sim.NewManager(), command.Int("concurrency"), logger)

			report := batch.Run(ctx, wf, profiles)

			encoded, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(os.Stdout, string(encoded))

			if report.Failed > 0 {
				return fmt.Errorf("%d of %d executions failed", report.Failed, len(profiles))
			}

			return nil
		},
	}
}

func loadWorkflow(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}

	if err := schema.ValidateWorkflow(data); err != nil {
		return nil, err
	}

	var wf models.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("decode workflow file: %w", err)
	}

	return &wf, nil
}

func loadProfiles(path string) ([]browser.Profile, error) {
	if path == "" {
		return []browser.Profile{{ID: "dry-run", Name: "Dry Run Profile"}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var profiles []browser.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles file: %w", err)
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("profiles file %s is empty", path)
	}

	return profiles, nil
}
