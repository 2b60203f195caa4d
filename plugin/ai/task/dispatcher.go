package task

import (
	"context"
	"fmt"
	"iter"
)

// Dispatcher maps task modes onto strategies.
type Dispatcher struct {
	content   Strategy
	companion Strategy
}

func NewDispatcher(content, companion Strategy) *Dispatcher {
	return &Dispatcher{content: content, companion: companion}
}

// GetStrategy returns the strategy of mode. There is no default strategy.
func (d *Dispatcher) GetStrategy(mode Mode) (Strategy, error) {
	switch mode {
	case ModeArticleSummary, ModeArticleExcerpt:
		return d.content, nil
	case ModePublishCongratulation, ModeLoginWelcome:
		return d.companion, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnmappedTaskMode, mode)
	}
}

// Execute runs req on its strategy. The error is only set for unmapped modes;
// generation failures are reported in the Result.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (Result, error) {
	s, err := d.GetStrategy(req.Mode)
	if err != nil {
		return Result{}, err
	}
	return s.Execute(ctx, req), nil
}

func (d *Dispatcher) ExecuteStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	s, err := d.GetStrategy(req.Mode)
	if err != nil {
		return func(yield func(string, error) bool) {
			yield("", err)
		}
	}
	return s.ExecuteStream(ctx, req)
}
