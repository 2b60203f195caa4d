package companion

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/quillmate/plugin/ai/advisor"
	"github.com/hrygo/quillmate/plugin/ai/cache"
	"github.com/hrygo/quillmate/plugin/ai/client"
	"github.com/hrygo/quillmate/plugin/ai/event"
	"github.com/hrygo/quillmate/plugin/ai/llm"
	"github.com/hrygo/quillmate/plugin/ai/memory"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/plugin/ai/session"
	"github.com/hrygo/quillmate/plugin/ai/task"
	"github.com/hrygo/quillmate/plugin/ai/tools"
	aierrors "github.com/hrygo/quillmate/server/internal/errors"
	"github.com/hrygo/quillmate/server/middleware"
	"github.com/hrygo/quillmate/store"
	teststore "github.com/hrygo/quillmate/store/test"
)

// echoGenerator answers "echo: <last user message>" and records every request.
type echoGenerator struct {
	mu       sync.Mutex
	requests []*llm.Request
	models   []string
	err      error
}

func (g *echoGenerator) factory(cfg plan.ModelConfig) (llm.Generator, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.models = append(g.models, cfg.Model)
	return g, nil
}

func (g *echoGenerator) answer(req *llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	return "echo: " + req.Messages[len(req.Messages)-1].Content, nil
}

func (g *echoGenerator) Generate(_ context.Context, req *llm.Request) (string, error) {
	return g.answer(req)
}

func (g *echoGenerator) GenerateStream(_ context.Context, req *llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		text, err := g.answer(req)
		if err != nil {
			yield("", err)
			return
		}
		for i, word := range strings.Fields(text) {
			if i > 0 {
				word = " " + word
			}
			if !yield(word, nil) {
				return
			}
		}
	}
}

func (g *echoGenerator) last() *llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

func (g *echoGenerator) builtModels() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.models...)
}

type fixture struct {
	svc       *Service
	store     *store.Store
	registry  *client.Registry
	generator *echoGenerator
	bus       *event.Bus

	mu           sync.Mutex
	memoryEvents []event.MemoryChange
}

func (f *fixture) memoryChanges() []event.MemoryChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.MemoryChange(nil), f.memoryEvents...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T, taskPerMinute int) *fixture {
	return newFixtureWithClock(t, taskPerMinute, nil)
}

// newFixtureWithClock drives session expiry from clock; nil uses wall time.
func newFixtureWithClock(t *testing.T, taskPerMinute int, clock func() time.Time) *fixture {
	t.Helper()
	ctx := context.Background()

	st := teststore.NewTestingStore(ctx, t)
	for _, c := range []*store.Character{
		{ID: "task", Name: "Quill", Persona: "An editorial assistant."},
		{ID: "companion", Name: "Mira", Persona: "A reading companion."},
	} {
		_, err := st.UpsertCharacter(ctx, c)
		require.NoError(t, err)
	}

	ephemeral := cache.NewService(cache.ServiceConfig{Capacity: 100, Clock: clock})
	t.Cleanup(ephemeral.Close)
	window := memory.NewWindow(20, time.Hour)
	t.Cleanup(window.Close)

	repo := NewRepository(st)
	sessions := session.NewStore(ephemeral, st, session.Config{WindowSize: 10, Clock: clock})
	toolRegistry := tools.NewRegistry(tools.CurrentTime(time.Now), tools.ListGlobalMemories(repo, 10))
	advisors := advisor.NewFactory(advisor.FactoryConfig{
		SessionMemory: window,
		DurableMemory: memory.NewDurable(session.NewLog(sessions)),
		Tools:         toolRegistry,
	})
	planner := plan.NewBuilder(repo, repo, repo, nil, plan.BuilderConfig{
		FallbackModel: plan.ModelConfig{Provider: "openai", Model: "fallback"},
	})
	gen := &echoGenerator{}
	registry := client.NewRegistry(client.RegistryConfig{
		Planner:         planner,
		Advisors:        advisors,
		Generators:      gen.factory,
		TaskCharacterID: "task",
	})
	bus := event.NewBus(event.Config{Workers: 1, QueueSize: 16})
	t.Cleanup(bus.Close)

	f := &fixture{store: st, registry: registry, generator: gen, bus: bus}
	require.NoError(t, event.Subscribe(bus, registry.OnModelConfigurationChanged))
	require.NoError(t, event.Subscribe(bus, func(_ context.Context, ev *event.GlobalMemoryChangedEvent) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.memoryEvents = append(f.memoryEvents, ev.Change)
		return nil
	}))

	source := task.RegistrySource(registry)
	svc, err := NewService(Config{
		Store:        st,
		Sessions:     sessions,
		Registry:     registry,
		Planner:      planner,
		Advisors:     advisors,
		Tasks:        task.NewDispatcher(task.NewContentStrategy(source, nil), task.NewCompanionStrategy(source, nil)),
		Bus:          bus,
		Tools:        toolRegistry,
		Window:       window,
		TaskLimiter:  middleware.NewRateLimiter(taskPerMinute, 1),
		DefaultTools: []string{tools.CurrentTimeTool},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

var (
	owner = User{ID: "1", Name: "ada", IsOwner: true}
	guest = User{Name: "visitor"}
)

func contents(items []session.MemoryItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Content
	}
	return out
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	sess, err := f.svc.StartSession(ctx, "companion", "", guest)
	require.NoError(t, err)
	assert.True(t, session.IsGuestID(sess.ID))
	assert.True(t, f.registry.Contains("companion"))

	sess, err = f.svc.StartSession(ctx, "companion", "agent", owner)
	require.NoError(t, err)
	assert.True(t, session.IsOwnerID(sess.ID))
	assert.Equal(t, session.ModeAgent, sess.Mode)

	_, err = f.svc.StartSession(ctx, "nobody", "", guest)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeNotFound), err)

	_, err = f.svc.StartSession(ctx, " ", "", guest)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeInvalidArgument))

	_, err = f.svc.StartSession(ctx, "companion", "debate", guest)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeInvalidArgument))
}

func TestGuestChat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	sess, err := f.svc.StartSession(ctx, "companion", "", guest)
	require.NoError(t, err)

	resp, err := f.svc.Chat(ctx, &ChatRequest{SessionID: sess.ID, Message: "hello", User: guest})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp.Content)

	_, err = f.svc.Chat(ctx, &ChatRequest{SessionID: sess.ID, Message: "again", User: guest})
	require.NoError(t, err)

	// The session window carried the first turn into the second call.
	msgs := f.generator.last().Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Mira")
	assert.Contains(t, msgs[0].Content, "visitor, a visitor of this blog")
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, "echo: hello", msgs[2].Content)
	assert.Equal(t, "again", msgs[3].Content)
	assert.Empty(t, f.generator.last().Tools)

	page, err := f.svc.ListMemories(ctx, sess.ID, nil, 10, guest)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo: again", "again", "echo: hello", "hello"}, contents(page.Items))
	assert.False(t, page.HasMore)
}

func TestGuestSessionSlidesWithActivity(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	f := newFixtureWithClock(t, 0, clock.Now)
	sess, err := f.svc.StartSession(ctx, "companion", "", guest)
	require.NoError(t, err)

	for i := range 6 {
		clock.Advance(10 * time.Minute)
		_, err := f.svc.Chat(ctx, &ChatRequest{SessionID: sess.ID, Message: "still here", User: guest})
		require.NoError(t, err, "turn %d", i+1)
	}

	// Reading does not extend the session.
	clock.Advance(20 * time.Minute)
	_, err = f.svc.GetSession(ctx, sess.ID, guest)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)

	_, err = f.svc.Chat(ctx, &ChatRequest{SessionID: sess.ID, Message: "hello?", User: guest})
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeNotFound), err)
}

func TestSessionMemoryToggle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	sess, err := f.svc.StartSession(ctx, "companion", "", guest)
	require.NoError(t, err)

	updated, err := f.svc.SetSessionMemory(ctx, sess.ID, false, guest)
	require.NoError(t, err)
	assert.False(t, updated.MemoryEnabled)

	for _, msg := range []string{"first", "second"} {
		_, err = f.svc.Chat(ctx, &ChatRequest{SessionID: sess.ID, Message: msg, User: guest})
		require.NoError(t, err)
	}
	msgs := f.generator.last().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[1].Content)

	page, err := f.svc.ListMemories(ctx, sess.ID, nil, 10, guest)
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)

	_, err = f.svc.SetSessionMemory(ctx, "missing", false, guest)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeNotFound), err)
}

func TestOwnerChatUsesDurableMemory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	sess, err := f.svc.StartSession(ctx, "companion", "", owner)
	require.NoError(t, err)

	_, err = f.svc.Chat(ctx, &ChatRequest{SessionID: sess.ID, Message: "remember tea", User: owner})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, &ChatRequest{SessionID: sess.ID, Message: "what did I say?", User: owner})
	require.NoError(t, err)

	msgs := f.generator.last().Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "remember tea", msgs[1].Content)
	assert.Contains(t, msgs[0].Content, "ada, the owner of this blog")

	page, err := f.svc.ListMemories(ctx, sess.ID, nil, 10, owner)
	require.NoError(t, err)
	require.Len(t, page.Items, 4)
	assert.Equal(t, "echo: what did I say?", page.Items[0].Content)
	assert.ElementsMatch(t, []string{"echo: what did I say?", "what did I say?", "echo: remember tea", "remember tea"}, contents(page.Items))
}

func TestChatValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	ownerSession, err := f.svc.StartSession(ctx, "companion", "", owner)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  *ChatRequest
		code aierrors.ErrorCode
	}{
		{"BlankSession", &ChatRequest{Message: "hi"}, aierrors.ErrCodeInvalidArgument},
		{"BlankMessage", &ChatRequest{SessionID: ownerSession.ID, User: owner}, aierrors.ErrCodeInvalidArgument},
		{"UnknownSession", &ChatRequest{SessionID: "guest_missing", Message: "hi"}, aierrors.ErrCodeNotFound},
		{"GuestOnOwnerSession", &ChatRequest{SessionID: ownerSession.ID, Message: "hi", User: guest}, aierrors.ErrCodeNotFound},
		{"CharacterMismatch", &ChatRequest{SessionID: ownerSession.ID, CharacterID: "task", Message: "hi", User: owner}, aierrors.ErrCodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Chat(ctx, tt.req)
			assert.True(t, aierrors.IsCode(err, tt.code), err)
		})
	}
}

func TestChatGenerationFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	sess, err := f.svc.StartSession(ctx, "companion", "", guest)
	require.NoError(t, err)

	f.generator.err = errors.New("provider down")
	_, err = f.svc.Chat(ctx, &ChatRequest{SessionID: sess.ID, Message: "hi", User: guest})
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeAgentExecutionFailed), err)

	page, err := f.svc.ListMemories(ctx, sess.ID, nil, 10, guest)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(1), f.svc.Metrics().Snapshot().Kinds[kindChat].ErrorCount)
}

func TestChatStream(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	sess, err := f.svc.StartSession(ctx, "companion", "", guest)
	require.NoError(t, err)

	var sb strings.Builder
	for chunk, err := range f.svc.ChatStream(ctx, &ChatRequest{SessionID: sess.ID, Message: "stream me", User: guest}) {
		require.NoError(t, err)
		sb.WriteString(chunk)
	}
	assert.Equal(t, "echo: stream me", sb.String())

	for range f.svc.ChatStream(ctx, &ChatRequest{SessionID: sess.ID, Message: "abandon", User: guest}) {
		break
	}

	page, err := f.svc.ListMemories(ctx, sess.ID, nil, 10, guest)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo: stream me", "stream me"}, contents(page.Items))

	var errs []error
	for _, err := range f.svc.ChatStream(ctx, &ChatRequest{SessionID: "guest_missing", Message: "x"}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, aierrors.IsCode(errs[0], aierrors.ErrCodeNotFound))
}

func TestSessionTools(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	sess, err := f.svc.StartSession(ctx, "companion", "", owner)
	require.NoError(t, err)

	_, err = f.svc.SetSessionTools(ctx, sess.ID, true, []string{"launch_rockets"}, owner)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeInvalidArgument), err)

	updated, err := f.svc.SetSessionTools(ctx, sess.ID, true, []string{tools.ListGlobalMemoriesTool}, owner)
	require.NoError(t, err)
	assert.True(t, updated.ToolsEnabled)

	_, err = f.svc.Chat(ctx, &ChatRequest{SessionID: sess.ID, Message: "hi", User: owner})
	require.NoError(t, err)
	require.Len(t, f.generator.last().Tools, 1)
	assert.Equal(t, tools.ListGlobalMemoriesTool, f.generator.last().Tools[0].Name)

	_, err = f.svc.SetSessionTools(ctx, sess.ID, false, nil, owner)
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, &ChatRequest{SessionID: sess.ID, Message: "hi", EnableAgent: true, User: owner})
	require.NoError(t, err)
	require.Len(t, f.generator.last().Tools, 1)
	assert.Equal(t, tools.CurrentTimeTool, f.generator.last().Tools[0].Name)

	assert.Equal(t, []string{tools.CurrentTimeTool, tools.ListGlobalMemoriesTool}, f.svc.ToolNames())
}

func TestArchiveSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	ownerSession, err := f.svc.StartSession(ctx, "companion", "", owner)
	require.NoError(t, err)
	require.NoError(t, f.svc.ArchiveSession(ctx, ownerSession.ID, "", owner))
	_, err = f.svc.Chat(ctx, &ChatRequest{SessionID: ownerSession.ID, Message: "hi", User: owner})
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeInvalidArgument), err)

	guestSession, err := f.svc.StartSession(ctx, "companion", "", guest)
	require.NoError(t, err)
	require.NoError(t, f.svc.ArchiveSession(ctx, guestSession.ID, "", guest))
	_, err = f.svc.GetSession(ctx, guestSession.ID, guest)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeNotFound), err)

	active, err := f.svc.ListSessions(ctx, "", true, 0)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := f.svc.ListSessions(ctx, "companion", true, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "closed", all[0].ArchiveReason)
}

func TestExecuteTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	res, err := f.svc.ExecuteTask(ctx, &TaskRequest{Mode: "login_welcome", User: owner})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, task.CompanionStrategyName, res.StrategyName)
	assert.Contains(t, res.Response, "echo: ada just logged in")
	assert.True(t, f.registry.HasTaskClient())

	_, err = f.svc.ExecuteTask(ctx, &TaskRequest{Mode: "login_welcome", User: owner})
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeRateLimitExceeded), err)

	_, err = f.svc.ExecuteTask(ctx, &TaskRequest{Mode: "translate", User: owner})
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeInvalidArgument), err)

	res, err = f.svc.ExecuteTask(ctx, &TaskRequest{Mode: string(task.ModeArticleSummary), User: owner})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, task.ContentStrategyName, res.StrategyName)
	assert.NotEmpty(t, res.ErrorMessage)
}

func TestExecuteTaskStream(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	var sb strings.Builder
	req := &TaskRequest{Mode: string(task.ModeArticleExcerpt), ContextInfo: "# Tea\n\nGreen tea is *great*.", User: guest}
	for chunk, err := range f.svc.ExecuteTaskStream(ctx, req) {
		require.NoError(t, err)
		sb.WriteString(chunk)
	}
	assert.Contains(t, sb.String(), "Green tea is great.")

	var errs []error
	for _, err := range f.svc.ExecuteTaskStream(ctx, &TaskRequest{Mode: "nope"}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, aierrors.IsCode(errs[0], aierrors.ErrCodeInvalidArgument))
}

func TestGlobalMemories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	m, err := f.svc.CreateGlobalMemory(ctx, "  Prefer short answers.  ")
	require.NoError(t, err)
	assert.Equal(t, "Prefer short answers.", m.Content)
	assert.NotZero(t, m.ID)
	assert.Empty(t, m.PullEvents())

	_, err = f.svc.CreateGlobalMemory(ctx, " ")
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeInvalidArgument))

	updated, err := f.svc.UpdateGlobalMemory(ctx, m.ID, "Prefer long answers.")
	require.NoError(t, err)
	assert.Equal(t, "Prefer long answers.", updated.Content)

	_, err = f.svc.UpdateGlobalMemory(ctx, m.ID+100, "x")
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeNotFound))

	list, err := f.svc.ListGlobalMemories(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Prefer long answers.", list[0].Content)

	require.NoError(t, f.svc.DeleteGlobalMemory(ctx, m.ID))
	assert.True(t, aierrors.IsCode(f.svc.DeleteGlobalMemory(ctx, m.ID), aierrors.ErrCodeNotFound))

	assert.Equal(t, []event.MemoryChange{event.MemoryCreated, event.MemoryUpdated, event.MemoryDeleted}, f.memoryChanges())
}

func TestModelConfigurationChangeRebuildsClients(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	_, err := f.svc.StartSession(ctx, "companion", "", guest)
	require.NoError(t, err)
	require.True(t, f.registry.Contains("companion"))
	assert.Equal(t, []string{"fallback"}, f.generator.builtModels())

	cfg, err := f.svc.CreateModelConfiguration(ctx, ModelConfigInput{Name: "deepseek", Provider: "deepseek", Model: "deepseek-chat", APIKey: "sk-secret"})
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "******", cfg.APIKey)

	// Editing a disabled configuration leaves cached clients alone.
	_, err = f.svc.UpdateModelConfiguration(ctx, cfg.ID, ModelConfigInput{Name: "deepseek", Provider: "deepseek", Model: "deepseek-reasoner"})
	require.NoError(t, err)
	assert.True(t, f.registry.Contains("companion"))

	enabled, err := f.svc.EnableModelConfiguration(ctx, cfg.ID, true)
	require.NoError(t, err)
	assert.True(t, enabled.Enabled)

	require.Eventually(t, func() bool { return !f.registry.Contains("companion") }, time.Second, 10*time.Millisecond)

	_, err = f.svc.StartSession(ctx, "companion", "", guest)
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback", "deepseek-reasoner"}, f.generator.builtModels())

	list, err := f.svc.ListModelConfigurations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "******", list[0].APIKey)

	_, err = f.svc.UpdateModelConfiguration(ctx, 999, ModelConfigInput{Name: "x", Model: "y"})
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeNotFound))
	_, err = f.svc.CreateModelConfiguration(ctx, ModelConfigInput{Name: "x"})
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeInvalidArgument))
}

func TestRepositoryKeepsAPIKeyOnUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	cfg, err := f.svc.CreateModelConfiguration(ctx, ModelConfigInput{Name: "main", Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-1"})
	require.NoError(t, err)
	_, err = f.svc.EnableModelConfiguration(ctx, cfg.ID, true)
	require.NoError(t, err)
	_, err = f.svc.UpdateModelConfiguration(ctx, cfg.ID, ModelConfigInput{Name: "main", Provider: "openai", Model: "gpt-4o"})
	require.NoError(t, err)

	enabled, err := NewRepository(f.store).GetEnabledModelConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, enabled)
	assert.Equal(t, "sk-1", enabled.APIKey)
	assert.Equal(t, "gpt-4o", enabled.Model)
}
