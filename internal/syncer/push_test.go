package syncer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmirror/internal/service"
	"taskmirror/internal/syncer"
)

func (h *harness) seedUnsynced(t *testing.T, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for i, id := range ids {
		task := remoteTask(id, at(i+1))
		h.remote.AddTask(task)
		task.Read = true
		task.SyncedWithNotion = false
		require.NoError(t, h.store.Insert(ctx, task))
	}
	require.NoError(t, h.engine.Load(ctx))
}

func TestPush_IsolatesFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUnsynced(t, "one", "two", "three")
	h.remote.UpdateTaskErr["two"] = errors.New("notion api error 500: boom")

	res, err := h.engine.PushUnsyncedChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "two", res.Failures[0].TaskID)
	assert.Equal(t, syncer.KindPushBack, res.Failures[0].Err.Kind)

	for id, want := range map[string]bool{"one": true, "two": false, "three": true} {
		got, err := h.store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.SyncedWithNotion, id)
	}
	assert.ElementsMatch(t, []string{"one", "two", "three"}, h.remote.UpdateCalls)

	remote, ok := h.remote.Task("one")
	require.True(t, ok)
	assert.True(t, remote.Read)

	notices := h.obs.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, syncer.LevelError, notices[0].Level)
	assert.Contains(t, notices[0].Detail, "boom")
	assert.NotContains(t, notices[0].Detail, "PATCH")
}

func TestPush_ProxyHintOnFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s, err := h.store.GetSettings(ctx)
	require.NoError(t, err)
	s.ProxyServerURL = "https://relay.example/"
	require.NoError(t, h.store.SaveSettings(ctx, s))

	h.seedUnsynced(t, "one")
	h.remote.UpdateTaskErr["one"] = errors.New("notion fetch failed: connection reset")

	res, err := h.engine.PushUnsyncedChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	notices := h.obs.Notices()
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Detail, "PATCH")
}

func TestPush_NothingPendingMakesNoCall(t *testing.T) {
	h := newHarness(t)
	res, err := h.engine.PushUnsyncedChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, syncer.PushResult{}, res)
	assert.Empty(t, h.remote.UpdateCalls)
}

func TestPush_UpdatesInMemoryCollection(t *testing.T) {
	h := newHarness(t)
	h.seedUnsynced(t, "one")

	_, err := h.engine.PushUnsyncedChanges(context.Background())
	require.NoError(t, err)

	tasks := h.engine.Tasks()
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].SyncedWithNotion)
}

func TestPush_RequiresNotionBackend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUnsynced(t, "one")
	require.NoError(t, h.store.SaveSettings(ctx, service.Settings{
		BackendType: service.BackendGoogleTasks,
		GoogleTasks: service.GoogleTasksCredentials{TaskListID: "@default"},
	}))

	_, err := h.engine.PushUnsyncedChanges(ctx)
	var serr *syncer.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, syncer.KindConfiguration, serr.Kind)
	assert.Empty(t, h.remote.UpdateCalls)
}
