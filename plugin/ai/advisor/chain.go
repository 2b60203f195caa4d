package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Chain is an ordered advisor list for one call.
type Chain []Advisor

// NewChain merges cached INIT advisors with the turn's advisors and sorts them by priority.
// Advisors with equal priority keep their relative order.
func NewChain(init, perRequest []Advisor) Chain {
	chain := make(Chain, 0, len(init)+len(perRequest))
	chain = append(chain, init...)
	chain = append(chain, perRequest...)
	sortByPriority(chain)
	return chain
}

// Before runs every Before hook in order and stops at the first failure.
func (c Chain) Before(ctx context.Context, req *Request) error {
	for _, a := range c {
		if err := a.Before(ctx, req); err != nil {
			return fmt.Errorf("advisor %s: %w", a.Name(), err)
		}
	}
	return nil
}

// After runs every After hook in reverse order. Failures are logged, the answer is already produced.
func (c Chain) After(ctx context.Context, req *Request, resp *Response) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].After(ctx, req, resp); err != nil {
			slog.Warn("advisor after hook failed",
				"advisor", c[i].Name(),
				"session_id", req.SessionID,
				"error", err)
		}
	}
}

// Names lists the advisor names in order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, a := range c {
		names[i] = a.Name()
	}
	return names
}

func sortByPriority(advisors []Advisor) {
	slices.SortStableFunc(advisors, func(a, b Advisor) int {
		return int(a.Order()) - int(b.Order())
	})
}
