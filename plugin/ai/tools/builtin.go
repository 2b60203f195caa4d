package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const (
	CurrentTimeTool        = "current_time"
	ListGlobalMemoriesTool = "list_global_memories"
)

// CurrentTime reports the current time, optionally in an IANA timezone.
func CurrentTime(now func() time.Time) Tool {
	if now == nil {
		now = time.Now
	}
	return Tool{
		Name:        CurrentTimeTool,
		Description: "Returns the current date and time. Optionally pass an IANA timezone such as Europe/Berlin.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{"type": "string", "description": "IANA timezone name"},
			},
		},
		Call: func(_ context.Context, arguments string) (string, error) {
			var args struct {
				Timezone string `json:"timezone"`
			}
			if strings.TrimSpace(arguments) != "" {
				if err := json.Unmarshal([]byte(arguments), &args); err != nil {
					return "", err
				}
			}
			t := now()
			if args.Timezone != "" {
				loc, err := time.LoadLocation(args.Timezone)
				if err != nil {
					return "", err
				}
				t = t.In(loc)
			}
			return t.Format(time.RFC1123), nil
		},
	}
}

// GlobalMemoryLister lists the most recent global memory texts.
type GlobalMemoryLister interface {
	ListRecentGlobalMemories(ctx context.Context, limit int) ([]string, error)
}

// ListGlobalMemories lets the model read the owner's global memories at call time.
func ListGlobalMemories(lister GlobalMemoryLister, limit int) Tool {
	return Tool{
		Name:        ListGlobalMemoriesTool,
		Description: "Lists the things the blog owner asked every character to remember.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Call: func(ctx context.Context, _ string) (string, error) {
			items, err := lister.ListRecentGlobalMemories(ctx, limit)
			if err != nil {
				return "", err
			}
			if len(items) == 0 {
				return "No global memories.", nil
			}
			return "- " + strings.Join(items, "\n- "), nil
		},
	}
}
