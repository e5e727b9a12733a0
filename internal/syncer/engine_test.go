package syncer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmirror/internal/service"
	"taskmirror/internal/store"
	"taskmirror/internal/syncer"
	"taskmirror/internal/testutil"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

type harness struct {
	store  *store.Store
	remote *testutil.FakeService
	obs    *testutil.RecordingObserver
	engine *syncer.Engine
}

func newHarness(t *testing.T, opts ...syncer.Option) *harness {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, store.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.SaveSettings(ctx, service.Settings{
		BackendType: service.BackendNotion,
		Notion:      service.NotionCredentials{APIKey: "secret", DatabaseID: "db"},
	}))

	h := &harness{store: s, remote: testutil.NewFakeService(), obs: &testutil.RecordingObserver{}}
	opts = append([]syncer.Option{syncer.WithObserver(h.obs)}, opts...)
	h.engine = syncer.New(s, h.remote.Factory(), opts...)
	require.NoError(t, h.engine.Load(ctx))
	return h
}

func remoteTask(id string, created time.Time) service.Task {
	return service.Task{
		ID:               id,
		SourceID:         id,
		Source:           service.SourceNotion,
		Title:            "remote " + id,
		CreatedAt:        created,
		UpdatedAt:        created,
		SyncedWithNotion: true,
	}
}

func (h *harness) settings(t *testing.T) service.Settings {
	t.Helper()
	s, err := h.store.GetSettings(context.Background())
	require.NoError(t, err)
	return s
}

func (h *harness) count(t *testing.T) int {
	t.Helper()
	all, err := h.store.GetAll(context.Background())
	require.NoError(t, err)
	return len(all)
}

func TestSync_FirstRefreshIsUnfiltered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		h.remote.AddTask(remoteTask(string(rune('a'+i-1)), at(i)))
	}

	res, err := h.engine.Sync(ctx, syncer.Refresh)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 3, res.Inserted)

	require.Len(t, h.remote.Filters, 1)
	assert.Nil(t, h.remote.Filters[0])

	settings := h.settings(t)
	require.NotNil(t, settings.NewestTaskCreatedAt)
	require.NotNil(t, settings.OldestTaskCreatedAt)
	assert.True(t, at(3).Equal(*settings.NewestTaskCreatedAt))
	assert.True(t, at(1).Equal(*settings.OldestTaskCreatedAt))

	published := h.obs.LastTasks()
	require.Len(t, published, 3)
	assert.Equal(t, "c", published[0].ID)

	pubSettings, ok := h.obs.LastSettings()
	require.True(t, ok)
	assert.True(t, at(3).Equal(*pubSettings.NewestTaskCreatedAt))

	notices := h.obs.Notices()
	require.NotEmpty(t, notices)
	last := notices[len(notices)-1]
	assert.Equal(t, syncer.LevelSuccess, last.Level)
	assert.Equal(t, "Synced 3 items", last.Message)
	assert.Equal(t, syncer.Idle, h.engine.State().Phase)
}

func TestSync_SamePageTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.AddTask(remoteTask("a", at(1)))
	h.remote.AddTask(remoteTask("b", at(2)))

	_, err := h.engine.Sync(ctx, syncer.Refresh)
	require.NoError(t, err)

	stored, err := h.store.GetByID(ctx, "a")
	require.NoError(t, err)
	stored.Read = true
	stored.Stocked = true
	require.NoError(t, h.store.Upsert(ctx, stored, true))

	// Forget the sync position so the next refresh refetches the same page.
	settings := h.settings(t)
	settings.ResetSyncPosition()
	require.NoError(t, h.store.SaveSettings(ctx, settings))

	res, err := h.engine.Sync(ctx, syncer.Refresh)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 2, h.count(t))

	got, err := h.store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.Read)
	assert.True(t, got.Stocked)
	assert.False(t, got.SyncedWithNotion)
	assert.Len(t, h.engine.Tasks(), 2)
}

func TestSync_LocalFlagsSurviveRefetch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	local := remoteTask("x", at(1))
	local.Title = "old title"
	local.Read = true
	local.Stocked = true
	require.NoError(t, h.store.Insert(ctx, local))

	fresh := remoteTask("x", at(1))
	fresh.Title = "new title"
	fresh.Description = "new description"
	fresh.Author = "bob"
	h.remote.AddTask(fresh)

	_, err := h.engine.Sync(ctx, syncer.Refresh)
	require.NoError(t, err)

	got, err := h.store.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.True(t, got.Read)
	assert.True(t, got.Stocked)
	assert.Equal(t, "new title", got.Title)
	assert.Equal(t, "new description", got.Description)
	assert.Equal(t, "bob", got.Author)
}

func TestSync_DateRangeMonotonicity(t *testing.T) {
	h := newHarness(t, syncer.WithPageSize(2))
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		h.remote.AddTask(remoteTask(string(rune('a'+i-1)), at(i)))
	}

	// Newest two: e, d.
	_, err := h.engine.Sync(ctx, syncer.Refresh)
	require.NoError(t, err)
	s := h.settings(t)
	assert.True(t, at(5).Equal(*s.NewestTaskCreatedAt))
	assert.True(t, at(4).Equal(*s.OldestTaskCreatedAt))

	h.remote.AddTask(remoteTask("f", at(6)))
	h.remote.AddTask(remoteTask("g", at(7)))
	_, err = h.engine.Sync(ctx, syncer.Refresh)
	require.NoError(t, err)
	s = h.settings(t)
	assert.True(t, at(7).Equal(*s.NewestTaskCreatedAt))
	assert.True(t, at(4).Equal(*s.OldestTaskCreatedAt))

	last := h.remote.Filters[len(h.remote.Filters)-1]
	require.NotNil(t, last)
	assert.Equal(t, service.FilterAfter, last.Type)
	assert.True(t, at(5).Equal(last.Date))

	// Older two: c, b.
	res, err := h.engine.Sync(ctx, syncer.LoadMore)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fetched)
	assert.True(t, res.HasMore)
	s = h.settings(t)
	assert.True(t, at(7).Equal(*s.NewestTaskCreatedAt))
	assert.True(t, at(2).Equal(*s.OldestTaskCreatedAt))

	last = h.remote.Filters[len(h.remote.Filters)-1]
	require.NotNil(t, last)
	assert.Equal(t, service.FilterBefore, last.Type)
	assert.True(t, at(4).Equal(last.Date))
	assert.Equal(t, 6, h.count(t))
}

func TestSync_LoadMoreWithoutPositionMakesNoCall(t *testing.T) {
	h := newHarness(t)
	h.remote.AddTask(remoteTask("a", at(1)))

	res, err := h.engine.Sync(context.Background(), syncer.LoadMore)
	require.NoError(t, err)
	assert.False(t, res.HasMore)
	assert.False(t, h.engine.State().HasMore)
	assert.Equal(t, 0, h.remote.FetchCalls)
}

func TestSync_EmptyLoadMoreEndsHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.AddTask(remoteTask("a", at(1)))

	_, err := h.engine.Sync(ctx, syncer.Refresh)
	require.NoError(t, err)
	assert.True(t, h.engine.State().HasMore)

	res, err := h.engine.Sync(ctx, syncer.LoadMore)
	require.NoError(t, err)
	assert.False(t, res.HasMore)
	assert.False(t, h.engine.State().HasMore)
}

func TestSync_EmptyRefreshKeepsHasMore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.engine.Sync(ctx, syncer.Refresh)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Fetched)
	assert.True(t, res.HasMore)
	assert.True(t, h.engine.State().HasMore)

	notices := h.obs.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, syncer.LevelInfo, notices[0].Level)
	assert.Equal(t, "No new items", notices[0].Message)

	assert.Nil(t, h.settings(t).NewestTaskCreatedAt)
}

func TestSync_TimeoutIsClassifiedAndReturnsToIdle(t *testing.T) {
	h := newHarness(t, syncer.WithTimeout(50*time.Millisecond))
	h.remote.FetchHook = func(ctx context.Context) { <-ctx.Done() }
	h.remote.AddTask(remoteTask("a", at(1)))

	_, err := h.engine.Sync(context.Background(), syncer.Refresh)
	require.Error(t, err)

	var serr *syncer.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, syncer.KindTimeout, serr.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, syncer.Idle, h.engine.State().Phase)
	assert.Equal(t, 0, h.count(t))

	notices := h.obs.Notices()
	require.NotEmpty(t, notices)
	assert.Equal(t, syncer.LevelError, notices[len(notices)-1].Level)
	assert.Equal(t, syncer.KindTimeout.Title(), notices[len(notices)-1].Message)
}

func TestSync_CanceledByCallerIsNotANetworkError(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.remote.FetchHook = func(context.Context) { cancel() }
	h.remote.AddTask(remoteTask("a", at(1)))

	_, err := h.engine.Sync(ctx, syncer.Refresh)

	var serr *syncer.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, syncer.KindCanceled, serr.Kind)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "within")
	assert.NotContains(t, serr.Detail(), syncer.KindNetwork.Remediation())
	assert.Equal(t, syncer.Idle, h.engine.State().Phase)
	assert.Equal(t, 0, h.count(t))

	notices := h.obs.Notices()
	require.NotEmpty(t, notices)
	assert.Equal(t, "Sync canceled", notices[len(notices)-1].Message)
}

// lockedStore fails every merge the way a busy SQLite file does.
type lockedStore struct {
	*store.Store
}

func (lockedStore) AddTask(context.Context, service.Task) (bool, error) {
	return false, errors.New("database is locked")
}

func TestSync_StoreFailureIsNotClassifiedByTaskID(t *testing.T) {
	h := newHarness(t)
	engine := syncer.New(lockedStore{h.store}, h.remote.Factory(), syncer.WithObserver(h.obs))
	h.remote.AddTask(remoteTask("1a2b4041-0000", at(1)))

	_, err := engine.Sync(context.Background(), syncer.Refresh)

	var serr *syncer.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, syncer.KindUnknown, serr.Kind)
	assert.Contains(t, err.Error(), "1a2b4041-0000")
	assert.Contains(t, err.Error(), "database is locked")
}

func TestSync_UnconfiguredBackendMakesNoCall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.SaveSettings(ctx, service.Settings{}))

	_, err := h.engine.Sync(ctx, syncer.Refresh)
	var serr *syncer.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, syncer.KindConfiguration, serr.Kind)
	assert.ErrorIs(t, err, service.ErrConfiguration)
	assert.Equal(t, 0, h.remote.FetchCalls)
	assert.Equal(t, syncer.Idle, h.engine.State().Phase)
}

func TestSync_AdapterErrorIsClassified(t *testing.T) {
	h := newHarness(t)
	h.remote.FetchErr = errors.New("notion api error 401: API token is invalid.")

	_, err := h.engine.Sync(context.Background(), syncer.Refresh)
	var serr *syncer.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, syncer.KindAuthentication, serr.Kind)

	notices := h.obs.Notices()
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Detail, "API token is invalid.")
	assert.Contains(t, notices[0].Detail, syncer.KindAuthentication.Remediation())
}

func TestSync_RejectsWhileBusy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	release := make(chan struct{})
	h.remote.FetchHook = func(context.Context) { <-release }
	h.remote.AddTask(remoteTask("a", at(1)))

	done := make(chan error, 1)
	go func() {
		_, err := h.engine.Sync(ctx, syncer.Refresh)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return h.engine.State().Phase == syncer.Syncing
	}, time.Second, 5*time.Millisecond)

	_, err := h.engine.Sync(ctx, syncer.LoadMore)
	assert.ErrorIs(t, err, syncer.ErrBusy)

	started, err := h.engine.OnScroll(ctx, syncer.ScrollMetrics{Offset: 900, Viewport: 100, Content: 1000})
	require.NoError(t, err)
	assert.False(t, started)

	assert.ErrorIs(t, h.engine.ClearData(ctx), syncer.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, syncer.Idle, h.engine.State().Phase)
	assert.Equal(t, 1, h.count(t))
}

func TestClearData_ResetsPositionAndHasMore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.AddTask(remoteTask("a", at(1)))

	_, err := h.engine.Sync(ctx, syncer.Refresh)
	require.NoError(t, err)
	_, err = h.engine.Sync(ctx, syncer.LoadMore)
	require.NoError(t, err)
	require.False(t, h.engine.State().HasMore)

	require.NoError(t, h.engine.ClearData(ctx))

	assert.Equal(t, 0, h.count(t))
	assert.Empty(t, h.engine.Tasks())
	assert.True(t, h.engine.State().HasMore)
	s := h.settings(t)
	assert.Nil(t, s.NewestTaskCreatedAt)
	assert.Nil(t, s.OldestTaskCreatedAt)
	assert.Equal(t, service.BackendNotion, s.BackendType)
	assert.Empty(t, h.obs.LastTasks())
}

func TestLoad_PublishesStoredState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.Insert(ctx, remoteTask("a", at(1))))
	require.NoError(t, h.store.Insert(ctx, remoteTask("b", at(2))))

	require.NoError(t, h.engine.Load(ctx))
	tasks := h.engine.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "b", tasks[0].ID)
	assert.Equal(t, service.BackendNotion, h.engine.Settings().BackendType)
	assert.Len(t, h.obs.LastTasks(), 2)
}

func TestReplaceAndRemoveTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.Insert(ctx, remoteTask("a", at(1))))
	require.NoError(t, h.engine.Load(ctx))

	task := h.engine.Tasks()[0]
	task.Read = true
	h.engine.ReplaceTask(task)
	assert.True(t, h.engine.Tasks()[0].Read)
	assert.True(t, h.obs.LastTasks()[0].Read)

	h.engine.RemoveTask("a")
	assert.Empty(t, h.engine.Tasks())
	assert.Empty(t, h.obs.LastTasks())
}
