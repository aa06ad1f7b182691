package session

import (
	"sync"
	"testing"
	"time"

	"github.com/pdf-tools/backend/internal/flow"
	"github.com/pdf-tools/backend/internal/models"
	"github.com/pdf-tools/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func newTestManager(t *testing.T, maxSessions int) (*Manager, *fakeClock, *testutil.ManualTimers) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	timers := testutil.NewManualTimers()
	m := NewManager(Config{
		MaxSessions:  maxSessions,
		ProcessDelay: 2 * time.Second,
		AfterFunc:    timers.AfterFunc,
		Now:          clock.Now,
	})
	t.Cleanup(m.CloseAll)
	return m, clock, timers
}

func TestSessionManager(t *testing.T) {
	m, _, timers := newTestManager(t, 10)

	sess, err := m.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, models.PhaseIdle, sess.Controller.Snapshot().Phase)
	assert.Equal(t, 2*time.Second, sess.Controller.Delay())

	got, ok := m.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	c, err := m.Controller(sess.ID)
	require.NoError(t, err)
	_, err = c.SelectTool(models.ToolMerge)
	require.NoError(t, err)
	_, err = c.ChooseFiles(testutil.FileRefs("a.pdf"))
	require.NoError(t, err)
	_, err = c.Process()
	require.NoError(t, err)

	timers.FireAll()
	assert.True(t, c.Snapshot().Completed)

	other, err := m.Create()
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, other.ID)
	assert.Equal(t, models.PhaseIdle, other.Controller.Snapshot().Phase, "sessions do not share state")
	assert.Equal(t, 2, m.Len())
}

func TestControllerNotFound(t *testing.T) {
	m, _, _ := newTestManager(t, 10)

	_, err := m.Controller("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, m.Touch("missing"))
	assert.ErrorIs(t, m.Close("missing"), ErrSessionNotFound)
}

func TestCloseStopsController(t *testing.T) {
	m, _, timers := newTestManager(t, 10)

	sess, err := m.Create()
	require.NoError(t, err)
	_, _ = sess.Controller.SelectTool(models.ToolSplit)
	_, _ = sess.Controller.ChooseFiles(testutil.FileRefs("a.pdf"))
	_, _ = sess.Controller.Process()

	require.NoError(t, m.Close(sess.ID))
	_, ok := m.Get(sess.ID)
	assert.False(t, ok)
	assert.Zero(t, timers.Pending())

	_, err = sess.Controller.SelectTool(models.ToolMerge)
	assert.ErrorIs(t, err, flow.ErrClosed)
}

func TestTouchAndList(t *testing.T) {
	m, clock, _ := newTestManager(t, 10)

	first, _ := m.Create()
	clock.Advance(time.Minute)
	second, _ := m.Create()

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	clock.Advance(time.Minute)
	require.True(t, m.Touch(first.ID))

	list = m.List()
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, clock.Now(), list[0].LastAccessed)
}

func TestCleanupIdleSessions(t *testing.T) {
	m, clock, _ := newTestManager(t, 10)

	idle, _ := m.Create()
	busy, _ := m.Create()
	_, _ = busy.Controller.SelectTool(models.ToolMerge)
	_, _ = busy.Controller.ChooseFiles(testutil.FileRefs("a.pdf"))
	_, _ = busy.Controller.Process()

	clock.Advance(20 * time.Minute)
	fresh, _ := m.Create()

	clock.Advance(15 * time.Minute)
	removed := m.CleanupIdleSessions(30 * time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := m.Get(idle.ID)
	assert.False(t, ok, "idle session removed")
	_, ok = m.Get(busy.ID)
	assert.True(t, ok, "processing session kept")
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok, "recent session kept")

	_, err := idle.Controller.SelectTool(models.ToolMerge)
	assert.ErrorIs(t, err, flow.ErrClosed)
}

func TestCreateEvictsOldestIdle(t *testing.T) {
	m, clock, _ := newTestManager(t, 2)

	oldest, _ := m.Create()
	clock.Advance(time.Minute)
	newer, _ := m.Create()

	clock.Advance(10 * time.Minute)
	third, err := m.Create()
	require.NoError(t, err)

	_, ok := m.Get(oldest.ID)
	assert.False(t, ok)
	_, ok = m.Get(newer.ID)
	assert.True(t, ok)
	_, ok = m.Get(third.ID)
	assert.True(t, ok)
	assert.Equal(t, 2, m.Len())
}

func TestCreateFailsWhenAllSessionsActive(t *testing.T) {
	m, _, _ := newTestManager(t, 2)

	_, err := m.Create()
	require.NoError(t, err)
	_, err = m.Create()
	require.NoError(t, err)

	_, err = m.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Equal(t, 2, m.Len())
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(Config{})
	defer m.CloseAll()

	assert.Equal(t, DefaultMaxSessions, m.maxSessions)
	assert.Equal(t, flow.DefaultProcessDelay, m.processDelay)
	assert.NotNil(t, m.catalog)
}
