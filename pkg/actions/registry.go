package actions

import (
	"fmt"
	"log/slog"

	"github.com/emberflow/emberflow/pkg/models"
)

// Registry is the closed dispatch table over the action catalog. All
// kinds are registered at construction; there is no way to add more, so
// an unknown step type is a validation-time error, never a silent no-op.
type Registry struct {
	logger   *slog.Logger
	handlers map[string]Handler
}

func NewRegistry(logger *slog.Logger) *Registry {
	registry := &Registry{
		logger:   logger.With("module", "actions"),
		handlers: make(map[string]Handler),
	}

	for _, handler := range []Handler{
		&navigateAction{},
		&goBackAction{},
		&goForwardAction{},
		&refreshAction{},
		&newTabAction{},
		&closeTabAction{},
		&clickAction{},
		&typeAction{},
		&fillAction{},
		&selectAction{},
		&hoverAction{},
		&scrollAction{},
		&pressKeyAction{},
		&uploadAction{},
		&waitElementAction{},
		&waitTimeAction{},
		&waitNavigationAction{},
		&waitNetworkIdleAction{},
		&waitTextAction{},
		&waitURLAction{},
		&waitFunctionAction{},
		&getTextAction{},
		&getAttributeAction{},
		&countElementsAction{},
		&setVariableAction{},
		&calculateAction{},
		&screenshotAction{},
		&getCookiesAction{},
		&setCookiesAction{},
		&clearCookiesAction{},
		&logAction{},
		&javascriptAction{},
		&httpRequestAction{},
		&assertAction{},
	} {
		registry.handlers[handler.Kind()] = handler
	}

	return registry
}

// Handler returns the handler for a non-control kind.
func (r *Registry) Handler(kind string) (Handler, error) {
	handler, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return handler, nil
}

// Known reports whether kind belongs to the catalog, control kinds
// included.
func (r *Registry) Known(kind string) bool {
	if IsControl(kind) {
		return true
	}

	_, ok := r.handlers[kind]

	return ok
}

// ValidateStep checks one step's kind and configuration.
func (r *Registry) ValidateStep(step *models.Step) error {
	if IsControl(step.Type) {
		return validateControl(step)
	}

	handler, err := r.Handler(step.Type)
	if err != nil {
		return err
	}

	return handler.Validate(step.Config)
}

// ValidateWorkflow fails fast when any step in the tree has an unknown
// kind or malformed configuration.
func (r *Registry) ValidateWorkflow(workflow *models.Workflow) error {
	if err := workflow.ValidateStepIDs(); err != nil {
		return err
	}

	return walkValidate(r, workflow.Steps)
}

func walkValidate(r *Registry, steps []*models.Step) error {
	for _, step := range steps {
		if err := r.ValidateStep(step); err != nil {
			return fmt.Errorf("step %s: %w", step.ID, err)
		}

		if err := walkValidate(r, step.Then); err != nil {
			return err
		}

		if err := walkValidate(r, step.Else); err != nil {
			return err
		}
	}

	return nil
}

// validateControl checks the structural rules of control-flow steps.
func validateControl(step *models.Step) error {
	switch step.Type {
	case KindCondition:
		if configString(step.Config, "expression") == "" && configString(step.Config, "selector") == "" {
			return fmt.Errorf("%w: condition needs %q or %q", ErrInvalidConfig, "expression", "selector")
		}
	case KindLoopCount:
		if configInt(step.Config, "count", -1) < 0 {
			return fmt.Errorf("%w: loop-count needs a non-negative %q", ErrInvalidConfig, "count")
		}
	case KindLoopArray:
		if _, ok := step.Config["items"]; !ok {
			return fmt.Errorf("%w: loop-array needs %q", ErrInvalidConfig, "items")
		}
	case KindLoopElements:
		if _, err := requireString(step.Config, "selector"); err != nil {
			return err
		}
	case KindLoopWhile:
		if configString(step.Config, "expression") == "" && configString(step.Config, "selector") == "" {
			return fmt.Errorf("%w: loop-while needs %q or %q", ErrInvalidConfig, "expression", "selector")
		}
	case KindTryCatch, KindBreak, KindContinue, KindStop:
		// No configuration required.
	}

	return nil
}
