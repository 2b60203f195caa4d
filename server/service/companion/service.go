// Package companion is the application service behind the companion API: sessions,
// chat turns, background tasks, global memories and model configurations.
package companion

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/quillmate/plugin/ai/advisor"
	"github.com/hrygo/quillmate/plugin/ai/client"
	"github.com/hrygo/quillmate/plugin/ai/event"
	"github.com/hrygo/quillmate/plugin/ai/memory"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/plugin/ai/session"
	"github.com/hrygo/quillmate/plugin/ai/task"
	"github.com/hrygo/quillmate/plugin/ai/tools"
	aierrors "github.com/hrygo/quillmate/server/internal/errors"
	"github.com/hrygo/quillmate/internal/observability"
	"github.com/hrygo/quillmate/server/middleware"
	"github.com/hrygo/quillmate/store"
)

// Config wires the service. Store, Sessions, Registry, Planner, Advisors, Tasks and Bus are required.
type Config struct {
	Store    *store.Store
	Sessions *session.Store
	Registry *client.Registry
	Planner  *plan.Builder
	Advisors *advisor.Factory
	Tasks    *task.Dispatcher
	Bus      *event.Bus
	Tools    *tools.Registry
	// Window is the session-only memory backend; archived sessions are cleared from it.
	Window  *memory.Window
	Metrics *observability.Metrics
	// TaskLimiter bounds task executions per user and mode. Nil disables limiting.
	TaskLimiter *middleware.RateLimiter
	// DefaultTools are exposed when a tool-enabled session names none.
	DefaultTools []string
	// MaxConcurrentTasks bounds concurrent task generations (default 3).
	MaxConcurrentTasks int64
	Logger             *slog.Logger
}

type Service struct {
	store        *store.Store
	sessions     *session.Store
	registry     *client.Registry
	planner      *plan.Builder
	advisors     *advisor.Factory
	tasks        *task.Dispatcher
	bus          *event.Bus
	tools        *tools.Registry
	window       *memory.Window
	metrics      *observability.Metrics
	taskLimiter  *middleware.RateLimiter
	defaultTools []string
	taskSem      *semaphore.Weighted
	logger       *slog.Logger
}

func NewService(cfg Config) (*Service, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("store cannot be nil")
	case cfg.Sessions == nil:
		return nil, errors.New("session store cannot be nil")
	case cfg.Registry == nil:
		return nil, errors.New("client registry cannot be nil")
	case cfg.Planner == nil:
		return nil, errors.New("plan builder cannot be nil")
	case cfg.Advisors == nil:
		return nil, errors.New("advisor factory cannot be nil")
	case cfg.Tasks == nil:
		return nil, errors.New("task dispatcher cannot be nil")
	case cfg.Bus == nil:
		return nil, errors.New("event bus cannot be nil")
	}
	if cfg.Tools == nil {
		cfg.Tools = tools.NewRegistry()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetrics(0)
	}
	if cfg.MaxConcurrentTasks <= 0 {
		cfg.MaxConcurrentTasks = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		store:        cfg.Store,
		sessions:     cfg.Sessions,
		registry:     cfg.Registry,
		planner:      cfg.Planner,
		advisors:     cfg.Advisors,
		tasks:        cfg.Tasks,
		bus:          cfg.Bus,
		tools:        cfg.Tools,
		window:       cfg.Window,
		metrics:      cfg.Metrics,
		taskLimiter:  cfg.TaskLimiter,
		defaultTools: cfg.DefaultTools,
		taskSem:      semaphore.NewWeighted(cfg.MaxConcurrentTasks),
		logger:       cfg.Logger,
	}, nil
}

// Metrics returns the counters of the service.
func (s *Service) Metrics() *observability.Metrics {
	return s.metrics
}

// toAIError classifies err. Errors that match no known class become fallback.
func toAIError(err error, fallback aierrors.ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	var aiErr *aierrors.AIError
	if errors.As(err, &aiErr) {
		return aiErr
	}

	code := fallback
	switch {
	case errors.Is(err, context.Canceled):
		code = aierrors.ErrCodeContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = aierrors.ErrCodeTimeout
	case errors.Is(err, session.ErrStoreUnavailable):
		code = aierrors.ErrCodeStoreUnavailable
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, plan.ErrCharacterNotFound):
		code = aierrors.ErrCodeNotFound
	case errors.Is(err, session.ErrInvalidArgument),
		errors.Is(err, task.ErrUnknownTaskMode),
		errors.Is(err, tools.ErrUnknownTool),
		errors.Is(err, memory.ErrEmptyContent),
		errors.Is(err, client.ErrBlankCharacterID):
		code = aierrors.ErrCodeInvalidArgument
	}
	return aierrors.Wrap(err, code, msg)
}
