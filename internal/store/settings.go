package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"taskmirror/internal/service"
)

// settingsKey is the fixed key of the singleton settings record.
const settingsKey = "app_settings"

// GetSettings returns the persisted settings, or the default (no backend
// selected) when none have been saved.
func (s *Store) GetSettings(ctx context.Context) (service.Settings, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingsKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Settings{}, nil
	}
	if err != nil {
		return service.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	var settings service.Settings
	if err := json.Unmarshal(value, &settings); err != nil {
		return service.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

// SaveSettings upserts the singleton settings record.
func (s *Store) SaveSettings(ctx context.Context, settings service.Settings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, settingsKey, value)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
