package companion

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/hrygo/quillmate/plugin/ai/task"
	"github.com/hrygo/quillmate/plugin/ai/timeout"
	aierrors "github.com/hrygo/quillmate/server/internal/errors"
	"github.com/hrygo/quillmate/internal/observability"
)

// TaskRequest is one background generation.
type TaskRequest struct {
	Mode        string
	ContextInfo string
	User        User
}

func taskKind(mode task.Mode) string {
	return "task:" + string(mode)
}

func (s *Service) admitTask(ctx context.Context, req *TaskRequest) (task.Request, error) {
	mode, err := task.ParseMode(req.Mode)
	if err != nil {
		return task.Request{}, toAIError(err, aierrors.ErrCodeInvalidArgument, "invalid task mode")
	}

	key := req.User.ID
	if key == "" {
		key = "guest"
	}
	if s.taskLimiter != nil && !s.taskLimiter.Allow(key+":"+string(mode)) {
		return task.Request{}, aierrors.RateLimitExceeded("too many task requests").WithContext("mode", string(mode))
	}

	if err := s.taskSem.Acquire(ctx, 1); err != nil {
		return task.Request{}, toAIError(err, aierrors.ErrCodeContextCanceled, "task canceled while waiting")
	}
	return task.Request{
		Mode:        mode,
		ContextInfo: req.ContextInfo,
		IsOwner:     req.User.IsOwner,
		UserName:    req.User.Name,
	}, nil
}

// ExecuteTask runs a task and returns its result. Generation failures are reported in the
// result; only rejected requests return an error.
func (s *Service) ExecuteTask(ctx context.Context, req *TaskRequest) (*task.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.TaskTimeout)
	defer cancel()

	tr, err := s.admitTask(ctx, req)
	if err != nil {
		return nil, err
	}
	defer s.taskSem.Release(1)

	kind := taskKind(tr.Mode)
	s.metrics.RecordRequest(kind)
	started := time.Now()

	res, err := s.tasks.Execute(ctx, tr)
	s.metrics.RecordDuration(kind, time.Since(started))
	if err != nil {
		s.metrics.RecordFailure(kind)
		return nil, toAIError(err, aierrors.ErrCodeInvalidArgument, "task mode has no strategy")
	}
	if !res.Success {
		s.metrics.RecordFailure(kind)
		slog.Warn("task failed",
			observability.LogFieldTaskMode, string(tr.Mode),
			"strategy", res.StrategyName,
			"error", res.ErrorMessage)
	}
	return &res, nil
}

// ExecuteTaskStream runs a task and yields its chunks. An error is the terminal element.
func (s *Service) ExecuteTaskStream(ctx context.Context, req *TaskRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, timeout.TaskTimeout)
		defer cancel()

		tr, err := s.admitTask(ctx, req)
		if err != nil {
			yield("", err)
			return
		}
		defer s.taskSem.Release(1)

		kind := taskKind(tr.Mode)
		s.metrics.RecordRequest(kind)
		started := time.Now()
		defer func() { s.metrics.RecordDuration(kind, time.Since(started)) }()

		for chunk, err := range s.tasks.ExecuteStream(ctx, tr) {
			if err != nil {
				s.metrics.RecordFailure(kind)
				yield("", toAIError(err, aierrors.ErrCodeAgentExecutionFailed, "task generation failed"))
				return
			}
			s.metrics.RecordStreamChunk()
			if !yield(chunk, nil) {
				return
			}
		}
	}
}
