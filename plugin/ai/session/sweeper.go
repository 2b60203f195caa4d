package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/quillmate/store"
)

const (
	// DefaultSweepInterval is the default interval between sweeps.
	DefaultSweepInterval = 10 * time.Minute
	// ArchiveReasonExpired marks guest rows archived by the sweeper.
	ArchiveReasonExpired = "expired"
)

// Sweeper periodically archives guest mirror rows whose session outlived the guest TTL.
// The ephemeral store has already dropped those sessions; this keeps listings accurate.
type Sweeper struct {
	store    *Store
	interval time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewSweeper(s *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: s, interval: interval}
}

// Start begins sweeping in a goroutine. Starting a running sweeper is a no-op.
func (w *Sweeper) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	w.stop = make(chan struct{})

	w.wg.Add(1)
	go w.run(ctx, w.stop)

	slog.Info("guest session sweeper started", "interval", w.interval, "guest_ttl", w.store.guestTTL)
}

// Stop stops the sweeper and waits for the running sweep to finish.
func (w *Sweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stop)
	w.running = false
	w.mu.Unlock()

	w.wg.Wait()
	slog.Info("guest session sweeper stopped")
}

// RunOnce archives expired guest rows now and returns how many were archived.
func (w *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.store.now().Add(-w.store.guestTTL).UnixMilli()
	n, err := w.store.durable.ArchiveStaleSessions(ctx, &store.ArchiveStaleSessions{
		IsOwner:  false,
		BeforeTs: cutoff,
		Reason:   ArchiveReasonExpired,
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (w *Sweeper) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Sweeper) run(ctx context.Context, stop <-chan struct{}) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	if n, err := w.RunOnce(ctx); err != nil {
		slog.Error("guest session sweep failed", "error", err)
	} else if n > 0 {
		slog.Info("guest sessions archived", "count", n)
	}
}
