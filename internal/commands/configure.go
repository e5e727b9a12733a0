package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmirror/internal/app"
	"taskmirror/internal/config"
	"taskmirror/internal/exitcode"
	"taskmirror/internal/output"
	"taskmirror/internal/service"
	"taskmirror/internal/syncer"
)

func init() {
	Register(&ConfigureCmd{})
}

// optString is a string flag that remembers whether it was given, so an
// explicit empty value can clear a setting.
type optString struct {
	set   bool
	value string
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(s string) error {
	o.set = true
	o.value = s
	return nil
}

// ConfigureCmd implements the configure command.
// Without flags it prints the current settings.
type ConfigureCmd struct {
	backend   optString
	notionKey optString
	notionDB  optString
	taskList  optString
	proxy     optString
	check     bool
}

func (c *ConfigureCmd) Name() string      { return "configure" }
func (c *ConfigureCmd) Aliases() []string { return []string{"settings"} }
func (c *ConfigureCmd) Synopsis() string  { return "Show or change backend settings" }
func (c *ConfigureCmd) Usage() string {
	return "taskmirror configure [--backend notion|google-tasks] [--notion-key <key>] [--notion-database <id>] [--task-list <id>] [--proxy <url>] [--check]"
}
func (c *ConfigureCmd) NeedsApp() bool { return true }

func (c *ConfigureCmd) RegisterFlags(fs *flag.FlagSet) {
	*c = ConfigureCmd{}
	fs.Var(&c.backend, "backend", "")
	fs.Var(&c.notionKey, "notion-key", "")
	fs.Var(&c.notionDB, "notion-database", "")
	fs.Var(&c.taskList, "task-list", "")
	fs.Var(&c.proxy, "proxy", "")
	fs.BoolVar(&c.check, "check", false, "")
}

func (c *ConfigureCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	settings := a.Engine.Settings()
	changed, err := c.apply(&settings)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if changed {
		if err := a.Engine.SaveSettings(ctx, settings); err != nil {
			return printError(errOut, err)
		}
		if !cfg.Quiet {
			fmt.Fprintln(out, "ok")
		}
		// Incomplete settings are saved so they can be filled in over several calls.
		if err := settings.Validate(); err != nil && !cfg.Quiet {
			fmt.Fprintf(errOut, "warning: %v\n", err)
		}
	}

	if c.check {
		return c.authenticate(ctx, cfg, a, settings, out, errOut)
	}
	if !changed {
		output.FormatSettings(out, settings)
	}
	return exitcode.Success
}

// apply copies the given flags into s. Switching backends resets the sync
// position, since the bounds of one source mean nothing to another.
func (c *ConfigureCmd) apply(s *service.Settings) (bool, error) {
	changed := false
	if c.backend.set {
		bt, err := service.ParseBackendType(c.backend.value)
		if err != nil {
			return false, err
		}
		if bt != s.BackendType {
			s.BackendType = bt
			s.ResetSyncPosition()
		}
		changed = true
	}
	for _, f := range []struct {
		opt *optString
		dst *string
	}{
		{&c.notionKey, &s.Notion.APIKey},
		{&c.notionDB, &s.Notion.DatabaseID},
		{&c.taskList, &s.GoogleTasks.TaskListID},
		{&c.proxy, &s.ProxyServerURL},
	} {
		if f.opt.set {
			*f.dst = f.opt.value
			changed = true
		}
	}
	return changed, nil
}

func (c *ConfigureCmd) authenticate(ctx context.Context, cfg *config.Config, a *app.App, s service.Settings, out, errOut io.Writer) int {
	if err := s.Validate(); err != nil {
		return printError(errOut, syncer.Classify(err))
	}

	if cfg.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.SyncTimeout)
		defer cancel()
	}

	src, err := a.Sources(ctx, s)
	if err != nil {
		return printError(errOut, syncer.Classify(err))
	}
	if _, err := src.Authenticate(ctx); err != nil {
		return printError(errOut, syncer.Classify(err))
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "credentials ok")
	}
	return exitcode.Success
}
