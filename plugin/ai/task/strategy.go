package task

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/hrygo/quillmate/plugin/ai/client"
	"github.com/hrygo/quillmate/plugin/ai/markdown"
	"github.com/hrygo/quillmate/plugin/ai/prompt"
)

const (
	ContentStrategyName   = "content"
	CompanionStrategyName = "companion"

	// maxArticleRunes bounds the article text sent with a content task.
	maxArticleRunes = 6000
)

const (
	summaryTemplate = `Summarize the following article in at most three sentences. Reply with the summary only.

{{.content}}`

	excerptTemplate = `Write a single-paragraph excerpt of at most 120 characters that makes a reader want to open the following article. Reply with the excerpt only.

{{.content}}`

	congratulationTemplate = `{{.user}} just published a new article{{if .content}} titled "{{.content}}"{{end}}. Congratulate {{.user}} in one or two warm sentences.`

	welcomeTemplate = `{{.user}} just logged in{{if .is_owner}} to their own blog{{end}}.{{if .content}} Context: {{.content}}.{{end}} Greet {{.user}} in one short sentence.`
)

// base renders a mode template and hands the prompt to the task client.
type base struct {
	name      string
	source    ClientSource
	renderer  prompt.Renderer
	templates map[Mode]string
	prepare   func(Request) (string, error)
}

func (s *base) Name() string { return s.name }

func (s *base) render(req Request) (string, error) {
	tmpl, ok := s.templates[req.Mode]
	if !ok {
		return "", fmt.Errorf("%w: %s does not handle %s", ErrUnmappedTaskMode, s.name, req.Mode)
	}
	content, err := s.prepare(req)
	if err != nil {
		return "", err
	}
	vars := prompt.Merge(prompt.UserContext(req.UserName, req.IsOwner), map[string]any{"content": content})
	return s.renderer.Render(tmpl, vars)
}

func (s *base) turn(req Request, message string) client.Turn {
	return client.Turn{UserName: req.UserName, IsOwner: req.IsOwner, Message: message}
}

func (s *base) Execute(ctx context.Context, req Request) Result {
	message, err := s.render(req)
	if err != nil {
		return failure(s.name, err)
	}
	c, err := s.source(ctx)
	if err != nil {
		return failure(s.name, err)
	}
	text, err := c.Call(ctx, s.turn(req, message), nil)
	if err != nil {
		slog.Warn("task execution failed", "strategy", s.name, "mode", req.Mode, "error", err)
		return failure(s.name, err)
	}
	return success(s.name, strings.TrimSpace(text))
}

func (s *base) ExecuteStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		message, err := s.render(req)
		if err != nil {
			yield("", err)
			return
		}
		c, err := s.source(ctx)
		if err != nil {
			yield("", err)
			return
		}
		for chunk, err := range c.Stream(ctx, s.turn(req, message), nil) {
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

// NewContentStrategy handles tasks derived from article markdown.
func NewContentStrategy(source ClientSource, renderer prompt.Renderer) Strategy {
	if renderer == nil {
		renderer = prompt.NewTemplateRenderer()
	}
	return &base{
		name:     ContentStrategyName,
		source:   source,
		renderer: renderer,
		templates: map[Mode]string{
			ModeArticleSummary: summaryTemplate,
			ModeArticleExcerpt: excerptTemplate,
		},
		prepare: func(req Request) (string, error) {
			text := strings.TrimSpace(markdown.PlainText(req.ContextInfo))
			if text == "" {
				return "", ErrEmptyContext
			}
			return markdown.Truncate(text, maxArticleRunes), nil
		},
	}
}

// NewCompanionStrategy handles greeting tasks. The context is optional.
func NewCompanionStrategy(source ClientSource, renderer prompt.Renderer) Strategy {
	if renderer == nil {
		renderer = prompt.NewTemplateRenderer()
	}
	return &base{
		name:     CompanionStrategyName,
		source:   source,
		renderer: renderer,
		templates: map[Mode]string{
			ModePublishCongratulation: congratulationTemplate,
			ModeLoginWelcome:          welcomeTemplate,
		},
		prepare: func(req Request) (string, error) {
			return markdown.Truncate(strings.TrimSpace(req.ContextInfo), 200), nil
		},
	}
}
