package workflowutils

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/flowstream/pkg/workflow"
	"github.com/papercomputeco/flowstream/pkg/workflow/mock"
	"github.com/papercomputeco/flowstream/pkg/workflow/upstream"
)

type NewEngineOpts struct {
	Name      string
	MockDelay time.Duration
	BaseURL   string
	Model     string
	APIKey    string
	Logger    *slog.Logger
}

// NewEngine builds the workflow engine registered under o.Name.
func NewEngine(o *NewEngineOpts) (workflow.Engine, error) {
	switch o.Name {
	case mock.EngineName:
		return mock.New(mock.Config{
			Delay:  o.MockDelay,
			Logger: o.Logger,
		}), nil
	case upstream.EngineName:
		return upstream.New(upstream.Config{
			BaseURL: o.BaseURL,
			Model:   o.Model,
			APIKey:  o.APIKey,
			Logger:  o.Logger,
		})
	default:
		return nil, fmt.Errorf("%w: %q (available: %s, %s)", workflow.ErrUnknownEngine, o.Name, mock.EngineName, upstream.EngineName)
	}
}
