package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/emberflow/emberflow/pkg/actions"
	"github.com/emberflow/emberflow/pkg/log"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/emberflow/emberflow/pkg/schema"
)

var ErrValidationFailed = errors.New("validation failed")

// NewValidateCommand checks workflow and warm-up template files without
// running anything.
func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate workflow and warm-up template files",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "workflow-file",
				Aliases: []string{"f"},
				Usage:   "Workflow JSON files to validate",
			},
			&cli.StringSliceFlag{
				Name:    "template-file",
				Aliases: []string{"t"},
				Usage:   "Warm-up template JSON files to validate",
			},
			logLevelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("validate")

			registry := actions.NewRegistry(logger)
			failures := 0

			for _, path := range command.StringSlice("workflow-file") {
				if err := validateWorkflowFile(registry, path); err != nil {
					failures++

					_, _ = fmt.Fprintf(os.Stdout, "FAIL %s: %v\n", path, err)

					continue
				}

				_, _ = fmt.Fprintf(os.Stdout, "OK   %s\n", path)
			}

			for _, path := range command.StringSlice("template-file") {
				if err := validateTemplateFile(path); err != nil {
					failures++

					_, _ = fmt.Fprintf(os.Stdout, "FAIL %s: %v\n", path, err)

					continue
				}

				_, _ = fmt.Fprintf(os.Stdout, "OK   %s\n", path)
			}

			if failures > 0 {
				return fmt.Errorf("%w: %d file(s)", ErrValidationFailed, failures)
			}

			return nil
		},
	}
}

func validateWorkflowFile(registry *actions.Registry, path string) error {
	wf, err := loadWorkflow(path)
	if err != nil {
		return err
	}

	return registry.ValidateWorkflow(wf)
}

func validateTemplateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template file: %w", err)
	}

	if err := schema.ValidateWarmupTemplate(data); err != nil {
		return err
	}

	var template models.WarmupTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return fmt.Errorf("decode template file: %w", err)
	}

	return validatePhaseCoverage(&template)
}

// validatePhaseCoverage checks the phases cover 1..TotalDays contiguously.
func validatePhaseCoverage(template *models.WarmupTemplate) error {
	expected := 1

	for _, phase := range template.Phases {
		if phase.Days[0] != expected {
			return fmt.Errorf("%w: phase %q starts at day %d, expected %d",
				ErrValidationFailed, phase.Name, phase.Days[0], expected)
		}

		if phase.Days[1] < phase.Days[0] {
			return fmt.Errorf("%w: phase %q has inverted day range",
				ErrValidationFailed, phase.Name)
		}

		expected = phase.Days[1] + 1
	}

	if expected != template.TotalDays+1 {
		return fmt.Errorf("%w: phases cover days 1..%d but total_days is %d",
			ErrValidationFailed, expected-1, template.TotalDays)
	}

	return nil
}
