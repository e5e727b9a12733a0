// Package backend selects the remote source adapter for the configured backend.
package backend

import (
	"context"
	"fmt"

	"taskmirror/internal/backend/googletasks"
	"taskmirror/internal/backend/notion"
	"taskmirror/internal/config"
	"taskmirror/internal/service"
)

// New returns the adapter for settings.BackendType.
// Settings are validated first; an incomplete configuration never reaches the network.
func New(ctx context.Context, cfg *config.Config, settings service.Settings) (service.Service, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	switch settings.BackendType {
	case service.BackendNotion:
		c, err := notion.New(settings, notion.DefaultProperties().WithOverrides(cfg.NotionProperties))
		if err != nil {
			return nil, err
		}
		return c, nil
	case service.BackendGoogleTasks:
		c, err := googletasks.New(ctx, cfg, settings)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", service.ErrConfiguration, settings.BackendType)
	}
}
