package syncer

import (
	"context"
	"fmt"
	"strings"

	"taskmirror/internal/service"
)

// PushFailure records one task that could not be pushed.
type PushFailure struct {
	TaskID string
	Err    *Error
}

// PushResult counts pushed and failed tasks.
type PushResult struct {
	Success  int
	Failed   int
	Failures []PushFailure
}

// proxyPatchHint is appended when pushes fail behind a proxy. Some relays
// only forward GET and POST.
const proxyPatchHint = "A proxy is configured. Notion updates use PATCH; check that the proxy forwards PATCH requests."

// PushUnsyncedChanges sends every Notion task with local edits back to Notion,
// one at a time. A failing task is counted and skipped; only loading the
// pending list or resolving the adapter returns an error.
func (e *Engine) PushUnsyncedChanges(ctx context.Context) (PushResult, error) {
	pending, err := e.store.GetUnsynced(ctx)
	if err != nil {
		return PushResult{}, storeErrorf("failed to load unsynced tasks: %w", err)
	}
	if len(pending) == 0 {
		return PushResult{}, nil
	}

	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		return PushResult{}, storeErrorf("failed to load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return PushResult{}, Classify(err)
	}
	if settings.BackendType != service.BackendNotion {
		return PushResult{}, Classify(fmt.Errorf("%w: %d notion tasks have local edits but the notion backend is not selected",
			service.ErrConfiguration, len(pending)))
	}

	src, err := e.sources(ctx, settings)
	if err != nil {
		return PushResult{}, Classify(err)
	}

	var res PushResult
	for _, task := range pending {
		if err := e.pushOne(ctx, src, task); err != nil {
			res.Failed++
			res.Failures = append(res.Failures, PushFailure{TaskID: task.ID, Err: &Error{Kind: KindPushBack, Err: err}})
			e.log.Warn(ctx, "push failed", "task_id", task.ID, "error", err)
			continue
		}
		res.Success++
	}

	e.log.Info(ctx, "push finished", "success", res.Success, "failed", res.Failed)
	if res.Failed > 0 {
		e.obs.Notify(Notice{
			Level:   LevelError,
			Message: fmt.Sprintf("%s (%d of %d failed)", KindPushBack.Title(), res.Failed, len(pending)),
			Detail:  pushDetail(res, settings.ProxyServerURL != ""),
		})
	}
	return res, nil
}

func (e *Engine) pushOne(ctx context.Context, src service.Service, task service.Task) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if _, err := src.UpdateTask(ctx, task); err != nil {
		return err
	}
	task.SyncedWithNotion = true
	if err := e.store.Upsert(ctx, task, false); err != nil {
		return fmt.Errorf("failed to mark task synced: %w", err)
	}
	e.ReplaceTask(task)
	return nil
}

func pushDetail(res PushResult, behindProxy bool) string {
	var b strings.Builder
	for _, f := range res.Failures {
		fmt.Fprintf(&b, "%s: %v\n", f.TaskID, f.Err.Err)
	}
	b.WriteString(KindPushBack.Remediation())
	if behindProxy {
		b.WriteString("\n")
		b.WriteString(proxyPatchHint)
	}
	return b.String()
}
