package cli_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"taskmirror/internal/app"
	"taskmirror/internal/cli"
	"taskmirror/internal/commands"
	"taskmirror/internal/config"
	"taskmirror/internal/exitcode"
	"taskmirror/internal/service"
	"taskmirror/internal/syncer"
	"taskmirror/internal/testutil"
)

// memClipboard records clipboard writes.
type memClipboard struct{ text string }

func (c *memClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

// testFactory creates an app factory backed by the given FakeService.
func testFactory(svc *testutil.FakeService, clip *memClipboard) cli.AppFactory {
	return func(ctx context.Context, cfg *config.Config, obs syncer.Observer) (*app.App, error) {
		return app.New(ctx, cfg, obs, app.Options{
			Sources:   svc.Factory(),
			Clipboard: clip,
			LogStderr: io.Discard,
		})
	}
}

type harness struct {
	t          *testing.T
	dir        string
	svc        *testutil.FakeService
	clip       *memClipboard
	dispatcher *cli.Dispatcher
}

func newHarness(t *testing.T) *harness {
	h := &harness{t: t, dir: t.TempDir(), svc: testutil.NewFakeService(), clip: &memClipboard{}}
	h.dispatcher = cli.NewDispatcher(commands.DefaultRegistry, testFactory(h.svc, h.clip))
	return h
}

// run dispatches args with --config pointing at the harness directory.
func (h *harness) run(args ...string) (stdout, stderr string, code int) {
	h.t.Helper()
	if len(args) > 0 {
		args = append([]string{args[0], "--config", h.dir}, args[1:]...)
	}
	var outBuf, errBuf bytes.Buffer
	code = h.dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func (h *harness) configureNotion() {
	h.t.Helper()
	_, stderr, code := h.run("configure", "--backend", "notion", "--notion-key", "secret", "--notion-database", "db1")
	if code != exitcode.Success {
		h.t.Fatalf("configure failed: %d %s", code, stderr)
	}
}

func notionTask(id, title string, day int) service.Task {
	return service.Task{
		ID:               id,
		Title:            title,
		Source:           service.SourceNotion,
		CreatedAt:        time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		SyncedWithNotion: true,
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	h := newHarness(t)

	var stdout, stderr bytes.Buffer
	code := h.dispatcher.Run(context.Background(), []string{"unknowncmd"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	h := newHarness(t)

	var stdout, stderr bytes.Buffer
	code := h.dispatcher.Run(context.Background(), []string{"--quiet"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	h := newHarness(t)

	stdout, stderr, code := h.run("help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	h := newHarness(t)

	stdout, stderr, code := h.run("version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "taskmirror 0.1.0\n" {
		t.Errorf("expected 'taskmirror 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("list", "--page")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -page\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NoArgsListsEmptyMirror(t *testing.T) {
	h := newHarness(t)

	var stdout, stderr bytes.Buffer
	t.Setenv("XDG_CONFIG_HOME", h.dir)
	code := h.dispatcher.Run(context.Background(), nil, &stdout, &stderr)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr.String())
	}
	if stdout.String() != "no tasks found\n" {
		t.Errorf("expected 'no tasks found', got %q", stdout.String())
	}
}

func TestDispatcher_SyncWithoutBackendIsConfigError(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("sync")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: Backend is not configured\n") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if h.svc.FetchCalls != 0 {
		t.Errorf("expected no fetch, got %d", h.svc.FetchCalls)
	}
}

func TestDispatcher_EndToEnd(t *testing.T) {
	h := newHarness(t)
	h.svc.AddTask(notionTask("page-a", "Alpha", 1))
	h.svc.AddTask(notionTask("page-b", "Beta", 2))
	h.configureNotion()

	stdout, stderr, code := h.run("sync")
	if code != exitcode.Success {
		t.Fatalf("sync failed: %d %s", code, stderr)
	}
	if stdout != "Synced 2 items\n" {
		t.Errorf("unexpected sync output %q", stdout)
	}

	// State persists in the database between invocations.
	stdout, _, code = h.run("list")
	if code != exitcode.Success {
		t.Fatalf("list failed: %d", code)
	}
	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 2 tasks and a footer, got %q", stdout)
	}
	if lines[0] != "   1  *   Beta" || lines[1] != "   2  *   Alpha" {
		t.Errorf("unexpected rows %q", lines[:2])
	}
	if lines[3] != "page 1 of 1, 2 unread" {
		t.Errorf("unexpected footer %q", lines[3])
	}

	stdout, stderr, code = h.run("read", "1")
	if code != exitcode.Success {
		t.Fatalf("read failed: %d %s", code, stderr)
	}
	if stdout != "Marked as read\n" {
		t.Errorf("unexpected read output %q", stdout)
	}
	remote, _ := h.svc.Task("page-b")
	if !remote.Read {
		t.Error("expected the read flag to be pushed to the remote")
	}

	stdout, _, _ = h.run("list", "--filter", "unread")
	if !strings.HasPrefix(stdout, "   1  *   Alpha\n") {
		t.Errorf("unexpected filtered list %q", stdout)
	}

	stdout, _, code = h.run("share", "--print", "page-a")
	if code != exitcode.Success || stdout != "Alpha\n" {
		t.Errorf("unexpected share output %d %q", code, stdout)
	}

	_, _, code = h.run("share", "--quiet", "page-a")
	if code != exitcode.Success || h.clip.text != "Alpha" {
		t.Errorf("expected clipboard copy, got %d %q", code, h.clip.text)
	}

	_, _, code = h.run("rm", "--search", "alpha", "1")
	if code != exitcode.Success {
		t.Fatalf("rm failed: %d", code)
	}
	stdout, _, _ = h.run("list", "--quiet")
	if stdout != "   1      Beta\n" {
		t.Errorf("unexpected list after rm %q", stdout)
	}
}
