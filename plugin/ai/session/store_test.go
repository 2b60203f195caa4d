package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/quillmate/plugin/ai/cache"
	"github.com/hrygo/quillmate/plugin/ai/memory"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	teststore "github.com/hrygo/quillmate/store/test"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
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

func newTestStore(t *testing.T, clock *fakeClock) *Store {
	t.Helper()
	ephemeral := cache.NewService(cache.ServiceConfig{Capacity: 100, Clock: clock.Now})
	t.Cleanup(ephemeral.Close)
	durable := teststore.NewTestingStore(context.Background(), t)
	return NewStore(ephemeral, durable, Config{WindowSize: 8, Clock: clock.Now})
}

func TestIDs(t *testing.T) {
	guest := NewID(false)
	owner := NewID(true)
	assert.True(t, IsGuestID(guest))
	assert.False(t, IsOwnerID(guest))
	assert.True(t, IsOwnerID(owner))
	assert.False(t, IsGuestID(owner))
	assert.NotEqual(t, NewID(false), guest)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("agent")
	require.NoError(t, err)
	assert.Equal(t, ModeAgent, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeConversation, m)

	_, err = ParseMode("debate")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGuestTTL(t *testing.T) {
	ctx := context.Background()

	t.Run("ExpiresAfterTTL", func(t *testing.T) {
		clock := newFakeClock()
		s := newTestStore(t, clock)

		sess, err := s.Create(ctx, "companion", ModeConversation, false)
		require.NoError(t, err)
		assert.True(t, IsGuestID(sess.ID))

		clock.Advance(29 * time.Minute)
		found, err := s.Resolve(ctx, sess.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "companion", found.CharacterID)

		clock.Advance(time.Minute)
		found, err = s.Resolve(ctx, sess.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("TouchAndAppendKeepTTL", func(t *testing.T) {
		clock := newFakeClock()
		s := newTestStore(t, clock)

		sess, err := s.Create(ctx, "companion", ModeConversation, false)
		require.NoError(t, err)

		clock.Advance(20 * time.Minute)
		require.NoError(t, s.Touch(ctx, sess.ID))
		require.NoError(t, s.Append(ctx, sess.ID, MemoryItem{Type: MemoryUser, Content: "hi"}))

		clock.Advance(11 * time.Minute)
		found, err := s.Resolve(ctx, sess.ID)
		require.NoError(t, err)
		assert.Nil(t, found)

		assert.ErrorIs(t, s.Touch(ctx, sess.ID), ErrSessionNotFound)
	})

	t.Run("SaveRestartsTTL", func(t *testing.T) {
		clock := newFakeClock()
		s := newTestStore(t, clock)

		sess, err := s.Create(ctx, "companion", ModeConversation, false)
		require.NoError(t, err)

		clock.Advance(20 * time.Minute)
		require.NoError(t, s.Save(ctx, sess))

		clock.Advance(20 * time.Minute)
		found, err := s.Resolve(ctx, sess.ID)
		require.NoError(t, err)
		assert.NotNil(t, found)
	})

	t.Run("RefreshSlidesTTL", func(t *testing.T) {
		clock := newFakeClock()
		s := newTestStore(t, clock)

		sess, err := s.Create(ctx, "companion", ModeConversation, false)
		require.NoError(t, err)

		for range 5 {
			clock.Advance(20 * time.Minute)
			require.NoError(t, s.Refresh(ctx, sess.ID))
		}

		found, err := s.Resolve(ctx, sess.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.True(t, clock.Now().Equal(found.LastActiveAt))

		clock.Advance(30 * time.Minute)
		assert.ErrorIs(t, s.Refresh(ctx, sess.ID), ErrSessionNotFound)
	})
}

func TestOwnerSessionDoesNotExpire(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, clock)

	sess, err := s.Create(ctx, "companion", ModeAgent, true)
	require.NoError(t, err)
	assert.True(t, IsOwnerID(sess.ID))

	clock.Advance(48 * time.Hour)
	found, err := s.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ModeAgent, found.Mode)
	assert.True(t, found.IsOwner)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newFakeClock())

	_, err := s.Resolve(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	for _, id := range []string{"owner_missing", "guest_missing", "other"} {
		found, err := s.Resolve(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, found)
	}

	_, err = s.Create(ctx, "", ModeConversation, true)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

type failingEphemeral struct{}

func (failingEphemeral) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingEphemeral) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingEphemeral) Update(context.Context, string, []byte) error {
	return errors.New("connection refused")
}

func (failingEphemeral) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestConnectivityFailureIsNotAMiss(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingEphemeral{}, teststore.NewTestingStore(ctx, t), Config{})

	_, err := s.Resolve(ctx, "guest_abc")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = s.Create(ctx, "companion", ModeConversation, false)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

// appendTen records m1..m10 one second apart and returns their timestamps.
func appendTen(t *testing.T, s *Store, clock *fakeClock, id string) []time.Time {
	t.Helper()
	stamps := make([]time.Time, 0, 10)
	for i := 1; i <= 10; i++ {
		clock.Advance(time.Second)
		stamps = append(stamps, clock.Now())
		require.NoError(t, s.Append(context.Background(), id, MemoryItem{Type: MemoryUser, Content: fmt.Sprintf("m%d", i)}))
	}
	return stamps
}

func contents(items []MemoryItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Content
	}
	return out
}

func TestPage(t *testing.T) {
	ctx := context.Background()

	for _, isOwner := range []bool{true, false} {
		t.Run(fmt.Sprintf("owner=%v", isOwner), func(t *testing.T) {
			clock := newFakeClock()
			s := newTestStore(t, clock)
			sess, err := s.Create(ctx, "companion", ModeConversation, isOwner)
			require.NoError(t, err)

			stamps := appendTen(t, s, clock, sess.ID)

			latest, err := s.Page(ctx, sess.ID, nil, 3)
			require.NoError(t, err)
			assert.Equal(t, []string{"m10", "m9", "m8"}, contents(latest.Items))
			assert.True(t, latest.HasMore)

			cursor := stamps[4]
			older, err := s.Page(ctx, sess.ID, &cursor, 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"m4", "m3", "m2", "m1"}, contents(older.Items))
			assert.False(t, older.HasMore)

			exact, err := s.Page(ctx, sess.ID, &cursor, 4)
			require.NoError(t, err)
			assert.Len(t, exact.Items, 4)
			assert.False(t, exact.HasMore)
		})
	}
}

func TestPageClampsLimit(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, clock)
	sess, err := s.Create(ctx, "companion", ModeConversation, false)
	require.NoError(t, err)

	for i := 0; i < 60; i++ {
		clock.Advance(time.Second)
		require.NoError(t, s.Append(ctx, sess.ID, MemoryItem{Type: MemoryUser, Content: "x"}))
	}

	page, err := s.Page(ctx, sess.ID, nil, 1000)
	require.NoError(t, err)
	assert.Len(t, page.Items, DefaultPageMax)
	assert.True(t, page.HasMore)
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newFakeClock())

	owner, err := s.Create(ctx, "companion", ModeConversation, true)
	require.NoError(t, err)
	guest, err := s.Create(ctx, "companion", ModeConversation, false)
	require.NoError(t, err)

	active, err := s.FindActiveSessions(ctx, false, 10)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, guest.ID, active[0].ID)

	require.NoError(t, s.Archive(ctx, owner.ID, "closed"))
	found, err := s.Resolve(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Archived)
	assert.Equal(t, "closed", found.ArchiveReason)

	require.NoError(t, s.Archive(ctx, guest.ID, "closed"))
	found, err = s.Resolve(ctx, guest.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	active, err = s.FindActiveSessions(ctx, true, 10)
	require.NoError(t, err)
	assert.Empty(t, active)

	byCharacter, err := s.FindByCharacterIDAndOwnerType(ctx, "companion", true, 10)
	require.NoError(t, err)
	assert.Len(t, byCharacter, 1)

	assert.ErrorIs(t, s.Archive(ctx, "owner_missing", "closed"), ErrSessionNotFound)
	assert.ErrorIs(t, s.Archive(ctx, guest.ID, "closed"), ErrSessionNotFound)
}

func TestSetTools(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newFakeClock())

	for _, isOwner := range []bool{true, false} {
		sess, err := s.Create(ctx, "companion", ModeConversation, isOwner)
		require.NoError(t, err)

		updated, err := s.SetTools(ctx, sess.ID, true, []string{"current_time"})
		require.NoError(t, err)
		assert.True(t, updated.ToolsEnabled)

		found, err := s.Resolve(ctx, sess.ID)
		require.NoError(t, err)
		assert.True(t, found.ToolsEnabled)
		assert.Equal(t, []string{"current_time"}, found.ToolNames)
	}

	_, err := s.SetTools(ctx, "guest_missing", true, nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSetMemory(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, clock)

	for _, isOwner := range []bool{false, true} {
		sess, err := s.Create(ctx, "companion", ModeConversation, isOwner)
		require.NoError(t, err)
		assert.True(t, sess.MemoryEnabled)

		updated, err := s.SetMemory(ctx, sess.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.MemoryEnabled)

		found, err := s.Resolve(ctx, sess.ID)
		require.NoError(t, err)
		assert.False(t, found.MemoryEnabled)
		assert.Equal(t, plan.MemoryDisabled, s.MemorySpecFor(found).Type)
	}

	_, err := s.SetMemory(ctx, NewID(false), false)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySpecFor(t *testing.T) {
	s := NewStore(failingEphemeral{}, nil, Config{WindowSize: 12})

	owner := &Session{ID: "owner_1", IsOwner: true, MemoryEnabled: true}
	assert.Equal(t, plan.PersistentMemory("owner_1", 12), s.MemorySpecFor(owner))

	guest := &Session{ID: "guest_1", MemoryEnabled: true}
	assert.Equal(t, plan.SessionOnlyMemory(12), s.MemorySpecFor(guest))

	disabled := &Session{ID: "owner_2", IsOwner: true}
	assert.False(t, s.MemorySpecFor(disabled).IsValid())
}

func TestLog(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, clock)
	sess, err := s.Create(ctx, "companion", ModeConversation, true)
	require.NoError(t, err)

	log := NewLog(s)
	durable := memory.NewDurable(log)
	clock.Advance(time.Second)
	require.NoError(t, durable.Save(ctx, sess.ID,
		memory.Message{Role: "user", Content: "question", Timestamp: clock.Now()},
		memory.Message{Role: "assistant", Content: "answer", Timestamp: clock.Now().Add(time.Millisecond)}))

	msgs, err := durable.Load(ctx, sess.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "question", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)

	page, err := s.Page(ctx, sess.ID, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, MemoryAssistant, page.Items[0].Type)
}

func TestSweeper(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, clock)

	guest, err := s.Create(ctx, "companion", ModeConversation, false)
	require.NoError(t, err)
	owner, err := s.Create(ctx, "companion", ModeConversation, true)
	require.NoError(t, err)

	sweeper := NewSweeper(s, time.Hour)
	n, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(31 * time.Minute)
	n, err = sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := s.FindByCharacterIDAndOwnerType(ctx, "companion", false, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, guest.ID, rows[0].ID)
	assert.True(t, rows[0].Archived)
	assert.Equal(t, ArchiveReasonExpired, rows[0].ArchiveReason)

	found, err := s.Resolve(ctx, owner.ID)
	require.NoError(t, err)
	assert.False(t, found.Archived)

	sweeper.Start(ctx)
	assert.True(t, sweeper.IsRunning())
	sweeper.Stop()
	assert.False(t, sweeper.IsRunning())
}

func TestSweeperFollowsGuestExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, clock)
	sweeper := NewSweeper(s, time.Hour)

	touched, err := s.Create(ctx, "companion", ModeConversation, false)
	require.NoError(t, err)
	refreshed, err := s.Create(ctx, "companion", ModeConversation, false)
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	require.NoError(t, s.Touch(ctx, touched.ID))
	require.NoError(t, s.Refresh(ctx, refreshed.ID))

	clock.Advance(11 * time.Minute)
	gone, err := s.Resolve(ctx, touched.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	n, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	active, err := s.FindActiveSessions(ctx, false, 10)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, refreshed.ID, active[0].ID)
}
