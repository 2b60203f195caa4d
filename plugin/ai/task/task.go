// Package task runs background generation that bypasses sessions: article summaries and
// excerpts, publish congratulations and login welcomes. Every strategy calls the task client.
package task

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/hrygo/quillmate/plugin/ai/advisor"
	"github.com/hrygo/quillmate/plugin/ai/client"
)

var (
	// ErrUnknownTaskMode is returned when a mode string cannot be parsed.
	ErrUnknownTaskMode = errors.New("unknown task mode")
	// ErrUnmappedTaskMode is returned when no strategy handles a mode.
	ErrUnmappedTaskMode = errors.New("unmapped task mode")
	// ErrEmptyContext is returned by content tasks without article content.
	ErrEmptyContext = errors.New("task context is empty")
)

type Mode string

const (
	ModeArticleSummary        Mode = "ARTICLE_SUMMARY"
	ModeArticleExcerpt        Mode = "ARTICLE_EXCERPT"
	ModePublishCongratulation Mode = "PUBLISH_CONGRATULATION"
	ModeLoginWelcome          Mode = "LOGIN_WELCOME"
)

// Modes lists every task mode.
func Modes() []Mode {
	return []Mode{ModeArticleSummary, ModeArticleExcerpt, ModePublishCongratulation, ModeLoginWelcome}
}

// ParseMode accepts mode names case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Modes() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTaskMode, s)
}

// Request is one task execution.
type Request struct {
	Mode        Mode
	ContextInfo string
	IsOwner     bool
	UserName    string
}

// Result is the outcome of a synchronous execution. Exactly one of Response and
// ErrorMessage is set.
type Result struct {
	Success      bool   `json:"success"`
	Response     string `json:"response,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	StrategyName string `json:"strategy_name"`
}

// Strategy generates the answer of a group of task modes.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, req Request) Result
	// ExecuteStream yields answer chunks. A failure is the terminal element.
	ExecuteStream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Caller is the part of a chat client used by strategies.
type Caller interface {
	Call(ctx context.Context, turn client.Turn, perRequest []advisor.Advisor) (string, error)
	Stream(ctx context.Context, turn client.Turn, perRequest []advisor.Advisor) iter.Seq2[string, error]
}

// ClientSource returns the task client.
type ClientSource func(ctx context.Context) (Caller, error)

// RegistrySource adapts a client registry to a ClientSource.
func RegistrySource(r *client.Registry) ClientSource {
	return func(ctx context.Context) (Caller, error) {
		c, err := r.TaskClient(ctx)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func failure(name string, err error) Result {
	return Result{StrategyName: name, ErrorMessage: err.Error()}
}

func success(name, response string) Result {
	return Result{StrategyName: name, Success: true, Response: response}
}
