package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	// Провайдер турнирной сетки (read-only API)
	ProviderBaseURL string
	ProviderUserID  string
	ProviderAPIKey  string

	// Леджер назначений
	LedgerBaseURL string

	// Управление оверлеем (websocket)
	OverlayURL      string
	OverlayPassword string

	// Арены по умолчанию, если турнир не несёт своих локаций
	DefaultArenas []string

	// Интервалы опроса
	TournamentPollInterval time.Duration
	AssignmentPollInterval time.Duration

	// Путь к файлу локальных настроек оператора
	SettingsPath string

	DatabaseURL string
	ServerPort  int
}

const (
	defaultProviderBaseURL = "https://truefinals.com/api"
	defaultOverlayURL      = "ws://localhost:4455"
	defaultPollInterval    = 2 * time.Second
)

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
// Учётные данные провайдера и адрес леджера здесь не считаются обязательными:
// их отсутствие — ConfigurationError соответствующего клиента, а не отказ
// запуска всего процесса.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ProviderBaseURL: getEnvOrDefault("PROVIDER_BASE_URL", defaultProviderBaseURL),
		ProviderUserID:  os.Getenv("PROVIDER_USER_ID"),
		ProviderAPIKey:  os.Getenv("PROVIDER_API_KEY"),
		LedgerBaseURL:   os.Getenv("LEDGER_BASE_URL"),
		OverlayURL:      getEnvOrDefault("OVERLAY_URL", defaultOverlayURL),
		OverlayPassword: os.Getenv("OVERLAY_PASSWORD"),
		SettingsPath:    os.Getenv("SETTINGS_PATH"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
	}

	cfg.DefaultArenas = splitList(os.Getenv("DEFAULT_ARENAS"))

	var err error
	cfg.TournamentPollInterval, err = getEnvDuration("TOURNAMENT_POLL_INTERVAL", defaultPollInterval)
	if err != nil {
		return nil, err
	}
	cfg.AssignmentPollInterval, err = getEnvDuration("ASSIGNMENT_POLL_INTERVAL", defaultPollInterval)
	if err != nil {
		return nil, err
	}

	portStr := getEnvOrDefault("SERVER_PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	return cfg, nil
}

// RequireDatabaseURL проверяет наличие DATABASE_URL (обязателен для ledgerd).
func (c *Config) RequireDatabaseURL() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
