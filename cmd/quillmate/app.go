package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/quillmate/internal/profile"
	"github.com/hrygo/quillmate/plugin/ai/advisor"
	aicache "github.com/hrygo/quillmate/plugin/ai/cache"
	"github.com/hrygo/quillmate/plugin/ai/client"
	"github.com/hrygo/quillmate/plugin/ai/event"
	"github.com/hrygo/quillmate/plugin/ai/llm"
	"github.com/hrygo/quillmate/plugin/ai/memory"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/plugin/ai/prompt"
	"github.com/hrygo/quillmate/plugin/ai/rag"
	"github.com/hrygo/quillmate/plugin/ai/session"
	"github.com/hrygo/quillmate/plugin/ai/task"
	"github.com/hrygo/quillmate/plugin/ai/tools"
	"github.com/hrygo/quillmate/internal/observability"
	"github.com/hrygo/quillmate/server/middleware"
	"github.com/hrygo/quillmate/server/service/companion"
	"github.com/hrygo/quillmate/store"
	storecache "github.com/hrygo/quillmate/store/cache"
	"github.com/hrygo/quillmate/store/db"
)

// app holds the wired companion stack.
type app struct {
	profile   *profile.Profile
	store     *store.Store
	sessions  *session.Store
	registry  *client.Registry
	companion *companion.Service
	metrics   *observability.Metrics

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openStore connects to the database and applies migrations.
func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return st, nil
}

// openEphemeral returns the guest session store: redis when configured, otherwise in-process.
func openEphemeral(ctx context.Context, p *profile.Profile) (aicache.EphemeralStore, func(), error) {
	if p.UsesRedis() {
		rc, err := storecache.NewRedisCache(ctx, storecache.RedisConfigFromProfile(p.Redis))
		if err != nil {
			return nil, nil, err
		}
		return rc, func() { rc.Close() }, nil
	}
	svc := aicache.NewService(aicache.ServiceConfig{DefaultTTL: p.Session.GuestTTL})
	return svc, svc.Close, nil
}

func newApp(ctx context.Context, p *profile.Profile) (_ *app, err error) {
	a := &app{profile: p, metrics: observability.NewMetrics(0)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.store, err = openStore(ctx, p); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { a.store.Close() })

	ephemeral, closeEphemeral, err := openEphemeral(ctx, p)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeEphemeral)

	window := memory.NewWindow(p.Memory.WindowSize, time.Hour)
	a.closers = append(a.closers, window.Close)

	a.sessions = session.NewStore(ephemeral, a.store, session.Config{
		GuestTTL:   p.Session.GuestTTL,
		PageMax:    p.Session.PageMax,
		WindowSize: p.Memory.WindowSize,
	})

	repo := companion.NewRepository(a.store)
	toolRegistry := tools.NewRegistry(
		tools.CurrentTime(time.Now),
		tools.ListGlobalMemories(repo, p.Memory.GlobalLimit),
	)

	generators := llm.NewFactory(p.AI.EmbeddingModel)
	factoryCfg := advisor.FactoryConfig{
		SessionMemory: window,
		DurableMemory: memory.NewDurable(session.NewLog(a.sessions)),
		Tools:         toolRegistry,
	}
	ragSpec := plan.DisabledRag()
	if p.RAG.Enabled {
		factoryCfg.Retriever = rag.NewVectorRetriever(embedder(p), a.store)
		ragSpec = plan.RagSpec{Enabled: true, TopK: p.RAG.TopK, Threshold: p.RAG.Threshold, Collection: p.RAG.Collection}
	}
	advisors := advisor.NewFactory(factoryCfg)

	planner := plan.NewBuilder(repo, repo, repo, nil, plan.BuilderConfig{
		FallbackModel:     plan.DefaultModelConfig(p.AI),
		GlobalMemoryLimit: p.Memory.GlobalLimit,
		Rag:               ragSpec,
		EnableLogging:     p.IsDev(),
	})

	a.registry = client.NewRegistry(client.RegistryConfig{
		Planner:         planner,
		Advisors:        advisors,
		Generators:      generators,
		Alerts:          a.metrics,
		TaskCharacterID: p.Task.CharacterID,
	})

	bus := event.NewBus(event.Config{
		Workers:   p.Events.Workers,
		QueueSize: p.Events.QueueSize,
		Alerts:    a.metrics,
	})
	a.closers = append(a.closers, bus.Close)
	if err = event.Subscribe(bus, a.registry.OnModelConfigurationChanged); err != nil {
		return nil, err
	}

	source := task.RegistrySource(a.registry)
	renderer := prompt.NewTemplateRenderer()
	a.companion, err = companion.NewService(companion.Config{
		Store:        a.store,
		Sessions:     a.sessions,
		Registry:     a.registry,
		Planner:      planner,
		Advisors:     advisors,
		Tasks:        task.NewDispatcher(task.NewContentStrategy(source, renderer), task.NewCompanionStrategy(source, renderer)),
		Bus:          bus,
		Tools:        toolRegistry,
		Window:       window,
		Metrics:      a.metrics,
		TaskLimiter:  middleware.NewRateLimiter(p.Rate.TaskPerMinute, 1),
		DefaultTools: p.Tools.Enabled,
		Logger:       slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// embedder returns the embedding client of the fallback model configuration.
func embedder(p *profile.Profile) llm.Embedder {
	return llm.NewOpenAI(llm.Config{
		BaseURL:        p.AI.BaseURL,
		APIKey:         p.AI.APIKey,
		Model:          p.AI.Model,
		EmbeddingModel: p.AI.EmbeddingModel,
	})
}
