package client

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/quillmate/plugin/ai/advisor"
	"github.com/hrygo/quillmate/plugin/ai/event"
	"github.com/hrygo/quillmate/plugin/ai/llm"
	"github.com/hrygo/quillmate/plugin/ai/memory"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/plugin/ai/prompt"
)

type fakePlanner struct {
	calls   atomic.Int32
	delay   time.Duration
	missing map[string]bool
}

func (f *fakePlanner) BuildInit(_ context.Context, characterID string) (plan.InitPlan, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	if f.missing[characterID] {
		return plan.InitPlan{}, plan.ErrCharacterNotFound
	}
	return plan.InitPlan{
		CharacterID: characterID,
		ModelConfig: plan.ModelConfig{Provider: "openai", Model: "test"},
		Prompt: plan.PromptSpec{
			Assembled:     prompt.Assembled{CharacterID: characterID, System: "you are " + characterID},
			SeparatedMode: true,
		},
	}, nil
}

func (f *fakePlanner) ResolveModelConfig(context.Context) plan.ModelConfig {
	return plan.ModelConfig{Provider: "openai", Model: "fallback"}
}

type fakeGenerator struct {
	mu       sync.Mutex
	messages []llm.Message
	reply    string
	err      error
}

func (g *fakeGenerator) Generate(_ context.Context, req *llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = req.Messages
	return g.reply, g.err
}

func (g *fakeGenerator) GenerateStream(ctx context.Context, req *llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		text, err := g.Generate(ctx, req)
		if err != nil {
			yield("", err)
			return
		}
		for _, word := range strings.SplitAfter(text, " ") {
			if !yield(word, nil) {
				return
			}
		}
	}
}

type recordingAlerts struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingAlerts) Alert(name string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func newTestRegistry(planner *fakePlanner, gen *fakeGenerator, alerts AlertSink) *Registry {
	return NewRegistry(RegistryConfig{
		Planner:  planner,
		Advisors: advisor.NewFactory(advisor.FactoryConfig{}),
		Generators: func(plan.ModelConfig) (llm.Generator, error) {
			return gen, nil
		},
		Alerts:          alerts,
		TaskCharacterID: "task",
	})
}

func TestGetOrCreateBuildsOnce(t *testing.T) {
	planner := &fakePlanner{delay: 50 * time.Millisecond}
	registry := newTestRegistry(planner, &fakeGenerator{}, nil)

	const callers = 16
	results := make([]*ChatClient, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := registry.GetOrCreate(context.Background(), "companion")
			assert.NoError(t, err)
			results[i] = c
		}()
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for _, c := range results {
		assert.Same(t, results[0], c)
	}
	assert.Equal(t, int32(1), planner.calls.Load())
	assert.Equal(t, int64(1), registry.Builds())
	assert.True(t, registry.Contains("companion"))
}

func TestGetOrCreateDifferentKeys(t *testing.T) {
	registry := newTestRegistry(&fakePlanner{}, &fakeGenerator{}, nil)
	a, err := registry.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	b, err := registry.GetOrCreate(context.Background(), "b")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, "a", a.CharacterID())
	assert.Equal(t, int64(2), registry.Builds())
}

func TestGetOrCreateErrors(t *testing.T) {
	registry := newTestRegistry(&fakePlanner{missing: map[string]bool{"ghost": true}}, &fakeGenerator{}, nil)

	_, err := registry.GetOrCreate(context.Background(), " ")
	assert.ErrorIs(t, err, ErrBlankCharacterID)

	_, err = registry.GetOrCreate(context.Background(), "ghost")
	assert.ErrorIs(t, err, plan.ErrCharacterNotFound)
	assert.False(t, registry.Contains("ghost"))
}

func TestGetOrCreateCallerCancel(t *testing.T) {
	planner := &fakePlanner{delay: 100 * time.Millisecond}
	registry := newTestRegistry(planner, &fakeGenerator{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := registry.GetOrCreate(ctx, "companion")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c, err := registry.GetOrCreate(context.Background(), "companion")
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, int32(1), planner.calls.Load())
}

func TestProviderChangeInvalidatesAndRebuildsOnce(t *testing.T) {
	planner := &fakePlanner{}
	registry := newTestRegistry(planner, &fakeGenerator{}, nil)
	ctx := context.Background()

	before := map[string]*ChatClient{}
	for _, id := range []string{"a", "b"} {
		c, err := registry.GetOrCreate(ctx, id)
		require.NoError(t, err)
		before[id] = c
	}
	_, err := registry.TaskClient(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), registry.Builds())

	bus := event.NewBus(event.Config{Workers: 1})
	defer bus.Close()
	require.NoError(t, event.Subscribe(bus, registry.OnModelConfigurationChanged))

	ev := event.NewModelConfigurationChanged(&plan.ModelConfig{Provider: "openai"}, &plan.ModelConfig{Provider: "deepseek", Enabled: true}, event.ChangeProviderChanged)
	require.NoError(t, bus.Publish(ctx, ev))

	assert.False(t, registry.Contains("a"))
	assert.False(t, registry.Contains("b"))
	assert.False(t, registry.HasTaskClient())
	assert.Equal(t, int64(3), registry.Builds(), "rebuild is lazy")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.GetOrCreate(ctx, "a")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(4), registry.Builds())

	after, err := registry.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	assert.NotSame(t, before["a"], after)
}

func TestSettingsChangeKeepsClients(t *testing.T) {
	registry := newTestRegistry(&fakePlanner{}, &fakeGenerator{}, nil)
	ctx := context.Background()
	_, err := registry.GetOrCreate(ctx, "a")
	require.NoError(t, err)

	ev := event.NewModelConfigurationChanged(&plan.ModelConfig{}, &plan.ModelConfig{}, event.ChangeSettingsChanged)
	require.NoError(t, registry.OnModelConfigurationChanged(ctx, ev))
	assert.True(t, registry.Contains("a"))
}

func TestInvalidateSingle(t *testing.T) {
	registry := newTestRegistry(&fakePlanner{}, &fakeGenerator{}, nil)
	ctx := context.Background()
	_, err := registry.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	_, err = registry.GetOrCreate(ctx, "b")
	require.NoError(t, err)

	registry.Invalidate("a")
	assert.False(t, registry.Contains("a"))
	assert.True(t, registry.Contains("b"))
}

func TestTaskClientFallback(t *testing.T) {
	alerts := &recordingAlerts{}
	registry := newTestRegistry(&fakePlanner{missing: map[string]bool{"task": true}}, &fakeGenerator{}, alerts)
	ctx := context.Background()

	require.Error(t, registry.WarmTaskClient(ctx, true))
	assert.False(t, registry.HasTaskClient())

	c, err := registry.TaskClient(ctx)
	require.NoError(t, err)
	assert.True(t, c.Plan().IsEmpty())
	assert.Equal(t, "fallback", c.Plan().ModelConfig.Model)
	assert.Empty(t, c.AdvisorNames())
	assert.Equal(t, []string{AlertTaskPlanFallback}, alerts.names)
	assert.False(t, registry.HasTaskClient())
}

func TestTaskClientReplansAfterCharacterAppears(t *testing.T) {
	alerts := &recordingAlerts{}
	planner := &fakePlanner{missing: map[string]bool{"task": true}}
	registry := newTestRegistry(planner, &fakeGenerator{}, alerts)
	ctx := context.Background()

	c, err := registry.TaskClient(ctx)
	require.NoError(t, err)
	assert.True(t, c.Plan().IsEmpty())

	c, err = registry.TaskClient(ctx)
	require.NoError(t, err)
	assert.True(t, c.Plan().IsEmpty())
	assert.Equal(t, int32(2), planner.calls.Load())
	assert.Equal(t, []string{AlertTaskPlanFallback, AlertTaskPlanFallback}, alerts.names)

	delete(planner.missing, "task")

	c, err = registry.TaskClient(ctx)
	require.NoError(t, err)
	assert.False(t, c.Plan().IsEmpty())
	assert.Equal(t, "you are task", c.Plan().Prompt.Assembled.System)
	assert.True(t, registry.HasTaskClient())

	_, err = registry.TaskClient(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), planner.calls.Load())
}

func TestWarmTaskClient(t *testing.T) {
	registry := newTestRegistry(&fakePlanner{}, &fakeGenerator{}, nil)
	require.NoError(t, registry.WarmTaskClient(context.Background(), true))
	assert.True(t, registry.HasTaskClient())
	assert.False(t, registry.Contains("task"))
}

func TestChatClientCall(t *testing.T) {
	gen := &fakeGenerator{reply: "hello there"}
	registry := newTestRegistry(&fakePlanner{}, gen, nil)
	ctx := context.Background()

	c, err := registry.GetOrCreate(ctx, "companion")
	require.NoError(t, err)

	window := memory.NewWindow(10, time.Hour)
	defer window.Close()
	factory := advisor.NewFactory(advisor.FactoryConfig{SessionMemory: window})
	perRequest := factory.BuildRequest(plan.RequestPlan{SessionID: "guest_1", Memory: plan.SessionOnlyMemory(10)})

	text, err := c.Call(ctx, Turn{SessionID: "guest_1", Message: "hi"}, perRequest)
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	require.Len(t, gen.messages, 2)
	assert.Equal(t, llm.RoleSystem, gen.messages[0].Role)
	assert.Contains(t, gen.messages[0].Content, "you are companion")

	saved, err := window.Load(ctx, "guest_1", 10)
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	_, err = c.Call(ctx, Turn{SessionID: "guest_1", Message: "again"}, perRequest)
	require.NoError(t, err)
	assert.Len(t, gen.messages, 4, "history from the first turn is attached")
}

func TestChatClientCallError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	registry := newTestRegistry(&fakePlanner{}, gen, nil)
	c, err := registry.GetOrCreate(context.Background(), "companion")
	require.NoError(t, err)

	_, err = c.Call(context.Background(), Turn{SessionID: "s", Message: "hi"}, nil)
	assert.EqualError(t, err, "provider down")
}

func TestChatClientStream(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: "one two three"}
	registry := newTestRegistry(&fakePlanner{}, gen, nil)
	c, err := registry.GetOrCreate(ctx, "companion")
	require.NoError(t, err)

	window := memory.NewWindow(10, time.Hour)
	defer window.Close()
	perRequest := advisor.NewFactory(advisor.FactoryConfig{SessionMemory: window}).
		BuildRequest(plan.RequestPlan{SessionID: "guest_1", Memory: plan.SessionOnlyMemory(10)})

	t.Run("Complete", func(t *testing.T) {
		var chunks []string
		for chunk, err := range c.Stream(ctx, Turn{SessionID: "guest_1", Message: "count"}, perRequest) {
			require.NoError(t, err)
			chunks = append(chunks, chunk)
		}
		assert.Equal(t, []string{"one ", "two ", "three"}, chunks)

		saved, err := window.Load(ctx, "guest_1", 10)
		require.NoError(t, err)
		require.Len(t, saved, 2)
		assert.Equal(t, "one two three", saved[1].Content)
	})

	t.Run("AbandonedRecordsNothing", func(t *testing.T) {
		for range c.Stream(ctx, Turn{SessionID: "guest_1", Message: "again"}, perRequest) {
			break
		}
		saved, err := window.Load(ctx, "guest_1", 10)
		require.NoError(t, err)
		assert.Len(t, saved, 2)
	})

	t.Run("ErrorIsTerminal", func(t *testing.T) {
		failing := &fakeGenerator{err: errors.New("stream broke")}
		broken := newChatClient(c.Plan(), failing, nil)
		var errs []error
		for _, err := range broken.Stream(ctx, Turn{SessionID: "s", Message: "x"}, nil) {
			errs = append(errs, err)
		}
		require.Len(t, errs, 1)
		assert.EqualError(t, errs[0], "stream broke")
	})
}
