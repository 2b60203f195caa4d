package tools

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	items []string
	err   error
}

func (s staticLister) ListRecentGlobalMemories(context.Context, int) ([]string, error) {
	return s.items, s.err
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(CurrentTime(fixedNow), ListGlobalMemories(staticLister{}, 5))

	assert.Equal(t, []string{CurrentTimeTool, ListGlobalMemoriesTool}, r.Names())
	assert.NoError(t, r.Validate([]string{CurrentTimeTool}))

	err := r.Validate([]string{CurrentTimeTool, "rm_rf"})
	assert.ErrorIs(t, err, ErrUnknownTool)

	resolved, err := r.Resolve([]string{ListGlobalMemoriesTool, CurrentTimeTool})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, ListGlobalMemoriesTool, resolved[0].Name)

	assert.Error(t, r.Register(CurrentTime(nil)), "duplicate names are rejected")
	assert.Error(t, r.Register(Tool{Name: "no_call"}))
}

func TestCurrentTime(t *testing.T) {
	tool := CurrentTime(fixedNow)
	ctx := context.Background()

	out, err := tool.Call(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Sun, 01 Mar 2026 12:00:00 UTC", out)

	out, err = tool.Call(ctx, `{"timezone":"Asia/Tokyo"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "21:00:00")

	_, err = tool.Call(ctx, `{"timezone":"Mars/Olympus"}`)
	assert.Error(t, err)
}

func TestListGlobalMemories(t *testing.T) {
	ctx := context.Background()

	out, err := ListGlobalMemories(staticLister{items: []string{"a", "b"}}, 5).Call(ctx, "{}")
	require.NoError(t, err)
	assert.Equal(t, "- a\n- b", out)

	out, err = ListGlobalMemories(staticLister{}, 5).Call(ctx, "{}")
	require.NoError(t, err)
	assert.Equal(t, "No global memories.", out)

	_, err = ListGlobalMemories(staticLister{err: errors.New("down")}, 5).Call(ctx, "{}")
	assert.Error(t, err)
}
