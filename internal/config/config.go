package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every configuration section of the service and client.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Upstream UpstreamConfig
	Chat     ChatConfig
	Redis    RedisConfig
	Widget   WidgetConfig
	Client   ClientConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	upstream, err := loadUpstreamConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	widget, err := loadWidgetConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Log:      LogConfig{Mode: getEnvOrDefault("APP_ENV", "development")},
		Upstream: upstream,
		Chat:     chat,
		Redis: RedisConfig{
			Addr:    strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Channel: getEnvOrDefault("REDIS_ESCALATION_CHANNEL", "campus-sarthi:escalations"),
		},
		Widget: widget,
		Client: client,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr         string
	AdminEnabled bool
}

func loadServerConfig() (ServerConfig, error) {
	adminEnabled, err := parseBoolEnv("ADMIN_ENABLED", true)
	if err != nil {
		return ServerConfig{}, err
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are accepted verbatim.
		return ServerConfig{Addr: port, AdminEnabled: adminEnabled}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AdminEnabled: adminEnabled}, nil
}

// LogConfig selects the zap encoder preset.
type LogConfig struct {
	Mode string
}

// Answer modes understood by the query gateway.
const (
	ModeMock   = "mock"
	ModePython = "python"
)

// UpstreamConfig describes the external answer service.
type UpstreamConfig struct {
	Mode    string
	BaseURL string
	Timeout time.Duration
	Branch  string
	Year    string
	TopK    int
}

func loadUpstreamConfig() (UpstreamConfig, error) {
	mode := strings.ToLower(getEnvOrDefault("ANSWER_MODE", ModeMock))
	if mode != ModeMock && mode != ModePython {
		return UpstreamConfig{}, fmt.Errorf("invalid ANSWER_MODE value: %q", mode)
	}

	timeoutSeconds := 15
	if override, err := parseOptionalIntEnv("UPSTREAM_TIMEOUT"); err != nil {
		return UpstreamConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return UpstreamConfig{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT value: %d", *override)
		}
		timeoutSeconds = *override
	}

	topK := 5
	if override, err := parseOptionalIntEnv("UPSTREAM_TOP_K"); err != nil {
		return UpstreamConfig{}, err
	} else if override != nil && *override > 0 {
		topK = *override
	}

	baseURL := strings.TrimRight(getEnvOrDefault("PYTHON_API_URL", "http://localhost:8000"), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return UpstreamConfig{}, fmt.Errorf("invalid PYTHON_API_URL value %q: %w", baseURL, err)
	}

	return UpstreamConfig{
		Mode:    mode,
		BaseURL: baseURL,
		Timeout: time.Duration(timeoutSeconds) * time.Second,
		Branch:  getEnvOrDefault("UPSTREAM_BRANCH", "all"),
		Year:    getEnvOrDefault("UPSTREAM_YEAR", "all"),
		TopK:    topK,
	}, nil
}

// ChatConfig lists the languages the chat surface offers.
type ChatConfig struct {
	DefaultLanguage  string
	EnabledLanguages []string
}

// DefaultLanguages is the enabled set shipped with the campus deployment.
var DefaultLanguages = []string{"en", "pa", "te", "bn"}

// Supports reports whether code is an enabled language.
func (c ChatConfig) Supports(code string) bool {
	for _, lang := range c.EnabledLanguages {
		if lang == code {
			return true
		}
	}
	return false
}

func loadChatConfig() (ChatConfig, error) {
	enabled := parseListEnv("ENABLED_LANGUAGES")
	if len(enabled) == 0 {
		enabled = append([]string(nil), DefaultLanguages...)
	}

	cfg := ChatConfig{
		DefaultLanguage:  strings.ToLower(getEnvOrDefault("DEFAULT_LANGUAGE", "en")),
		EnabledLanguages: enabled,
	}
	if !cfg.Supports(cfg.DefaultLanguage) {
		return ChatConfig{}, fmt.Errorf("DEFAULT_LANGUAGE %q is not in ENABLED_LANGUAGES %v", cfg.DefaultLanguage, enabled)
	}
	return cfg, nil
}

// RedisConfig is optional; an empty Addr disables Redis notifications.
type RedisConfig struct {
	Addr    string
	Channel string
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// WidgetConfig governs the embeddable widget relay.
type WidgetConfig struct {
	Host           string
	AllowedOrigins []string
}

func loadWidgetConfig() (WidgetConfig, error) {
	host := strings.TrimRight(getEnvOrDefault("WIDGET_HOST", "http://localhost:8080"), "/")
	if _, err := url.ParseRequestURI(host); err != nil {
		return WidgetConfig{}, fmt.Errorf("invalid WIDGET_HOST value %q: %w", host, err)
	}

	origins := parseListEnv("WIDGET_ALLOWED_ORIGINS")
	if len(origins) == 0 {
		origins = []string{host}
	}
	return WidgetConfig{Host: host, AllowedOrigins: origins}, nil
}

// ClientConfig is consumed by the terminal chat client.
type ClientConfig struct {
	APIHost   string
	StorePath string
	ASRURL    string
}

func loadClientConfig() (ClientConfig, error) {
	storePath := strings.TrimSpace(os.Getenv("CLIENT_STORE_PATH"))
	if storePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ClientConfig{}, fmt.Errorf("resolve home directory: %w", err)
		}
		storePath = filepath.Join(home, ".campus-sarthi", "client.db")
	}

	return ClientConfig{
		APIHost:   strings.TrimRight(getEnvOrDefault("API_HOST", "http://localhost:8080"), "/"),
		StorePath: storePath,
		ASRURL:    strings.TrimSpace(os.Getenv("ASR_WS_URL")),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
