package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

// CreateTestStep creates a step with default values that can be
// overridden.
func CreateTestStep(overrides ...func(*models.Step)) *models.Step {
	step := &models.Step{
		ID:     uuid.New().String(),
		Type:   "log",
		Name:   "Test Step",
		Config: map[string]any{"message": "test", "level": "info"},
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

// WithID sets the step ID.
func WithID(id string) func(*models.Step) {
	return func(s *models.Step) { s.ID = id }
}

// WithType sets the step type.
func WithType(stepType string) func(*models.Step) {
	return func(s *models.Step) { s.Type = stepType }
}

// WithConfig sets the step configuration.
func WithConfig(config map[string]any) func(*models.Step) {
	return func(s *models.Step) { s.Config = config }
}

// WithThen sets the step's then branch.
func WithThen(steps ...*models.Step) func(*models.Step) {
	return func(s *models.Step) { s.Then = steps }
}

// WithElse sets the step's else branch.
func WithElse(steps ...*models.Step) func(*models.Step) {
	return func(s *models.Step) { s.Else = steps }
}

// CreateTestWorkflow creates a workflow around the given steps.
func CreateTestWorkflow(steps ...*models.Step) *models.Workflow {
	return &models.Workflow{
		ID:    uuid.New().String(),
		Name:  "Test Workflow",
		Steps: steps,
	}
}

// CreateTestProfile creates a profile with credentials for a platform.
func CreateTestProfile(platform string) browser.Profile {
	return browser.Profile{
		ID:       uuid.New().String(),
		Name:     "Test Profile",
		Platform: platform,
		Username: "tester",
		Password: "hunter2",
	}
}

// StubTOTP returns a fixed code regardless of secret and time.
type StubTOTP struct {
	FixedCode string
	Err       error
}

func (s StubTOTP) Code(_ string, _ time.Time) (string, error) {
	return s.FixedCode, s.Err
}

// StaticProfiles is a warmup.ProfileSource backed by a map.
type StaticProfiles struct {
	Profiles map[string]browser.Profile
}

func (s StaticProfiles) ProfileByID(_ context.Context, id string) (browser.Profile, error) {
	profile, ok := s.Profiles[id]
	if !ok {
		return browser.Profile{}, fmt.Errorf("profile %s not found", id)
	}

	return profile, nil
}
