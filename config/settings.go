package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings — локальные настройки оператора, хранимые одним JSON-файлом.
// Повреждённый или отсутствующий файл не считается ошибкой: возвращаются
// значения по умолчанию, выведенные из Config.
type Settings struct {
	ProviderUserID  string   `json:"provider_user_id"`
	ProviderAPIKey  string   `json:"provider_api_key"`
	OverlayURL      string   `json:"overlay_url"`
	OverlayPassword string   `json:"overlay_password"`
	DefaultArenas   []string `json:"default_arenas"`

	TournamentPollIntervalMS int `json:"tournament_poll_interval_ms"`
	AssignmentPollIntervalMS int `json:"assignment_poll_interval_ms"`
}

// DefaultSettings строит настройки по умолчанию из конфигурации окружения.
func DefaultSettings(cfg *Config) Settings {
	return Settings{
		ProviderUserID:           cfg.ProviderUserID,
		ProviderAPIKey:           cfg.ProviderAPIKey,
		OverlayURL:               cfg.OverlayURL,
		OverlayPassword:          cfg.OverlayPassword,
		DefaultArenas:            cfg.DefaultArenas,
		TournamentPollIntervalMS: int(cfg.TournamentPollInterval / time.Millisecond),
		AssignmentPollIntervalMS: int(cfg.AssignmentPollInterval / time.Millisecond),
	}
}

// LoadSettings читает файл настроек и накладывает его поверх значений по
// умолчанию. Любая ошибка чтения или разбора приводит к откату на defaults.
func LoadSettings(path string, defaults Settings) Settings {
	if path == "" {
		return defaults
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults
	}

	settings := defaults
	if err := json.Unmarshal(data, &settings); err != nil {
		return defaults
	}

	if settings.TournamentPollIntervalMS <= 0 {
		settings.TournamentPollIntervalMS = defaults.TournamentPollIntervalMS
	}
	if settings.AssignmentPollIntervalMS <= 0 {
		settings.AssignmentPollIntervalMS = defaults.AssignmentPollIntervalMS
	}

	return settings
}

// SaveSettings записывает настройки в файл, создавая каталог при необходимости.
func SaveSettings(path string, settings Settings) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// TournamentPollInterval возвращает интервал опроса снимков турнира.
func (s Settings) TournamentPollInterval() time.Duration {
	return time.Duration(s.TournamentPollIntervalMS) * time.Millisecond
}

// AssignmentPollInterval возвращает интервал опроса списка назначений.
func (s Settings) AssignmentPollInterval() time.Duration {
	return time.Duration(s.AssignmentPollIntervalMS) * time.Millisecond
}
