package advisor

import (
	"context"

	"github.com/hrygo/quillmate/plugin/ai/tools"
)

// toolAdvisor exposes tools to the model for one call.
type toolAdvisor struct {
	base
	tools []tools.Tool
}

func (a *toolAdvisor) Before(_ context.Context, req *Request) error {
	req.Tools = append(req.Tools, a.tools...)
	return nil
}
