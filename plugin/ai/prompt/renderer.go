package prompt

import (
	"strings"
	"sync"
	"text/template"

	"github.com/pkg/errors"
)

// Renderer turns a placeholder template plus a context map into final text.
type Renderer interface {
	Render(tmpl string, data map[string]any) (string, error)
}

// TemplateRenderer renders Go templates and caches parsed templates by source.
// Missing keys render as an error so a typo in a placeholder never reaches the model.
type TemplateRenderer struct {
	mu     sync.RWMutex
	parsed map[string]*template.Template
}

func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{parsed: make(map[string]*template.Template)}
}

func (r *TemplateRenderer) Render(tmpl string, data map[string]any) (string, error) {
	t, err := r.lookup(tmpl)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", errors.Wrap(err, "failed to render template")
	}
	return strings.TrimSpace(sb.String()), nil
}

func (r *TemplateRenderer) lookup(tmpl string) (*template.Template, error) {
	r.mu.RLock()
	t, ok := r.parsed[tmpl]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse template")
	}

	r.mu.Lock()
	r.parsed[tmpl] = t
	r.mu.Unlock()
	return t, nil
}
