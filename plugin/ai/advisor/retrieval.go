package advisor

import (
	"context"
	"log/slog"

	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/plugin/ai/rag"
)

// retrievalAdvisor augments the request with documents relevant to the user message.
// A failed retrieval degrades to no context.
type retrievalAdvisor struct {
	base
	retriever rag.Retriever
	spec      plan.RagSpec
}

func (a *retrievalAdvisor) Before(ctx context.Context, req *Request) error {
	docs, err := a.retriever.Retrieve(ctx, req.UserMessage, a.spec)
	if err != nil {
		slog.Warn("retrieval failed, continuing without context",
			"session_id", req.SessionID,
			"collection", a.spec.Collection,
			"error", err)
		return nil
	}
	if text := rag.FormatDocuments(docs); text != "" {
		req.Context = append(req.Context, text)
	}
	return nil
}
