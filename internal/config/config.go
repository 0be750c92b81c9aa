package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kmares/pkg/runtime"
	"kmares/pkg/x/llm"
)

const (
	DefaultListenAddr   = ":8787"
	DefaultTimezone     = "+07:00"
	DefaultPollSeconds  = 30
	DefaultAITimeoutSec = 75
	DefaultProxyPath    = "/functions/v1/ai-assistant"
)

type AIConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type ReminderConfig struct {
	DataDir string `yaml:"data_dir"`
	// Timezone accepts an IANA name ("Asia/Ho_Chi_Minh") or a fixed offset
	// ("+07:00", "UTC+7", "+0700").
	Timezone    string `yaml:"timezone"`
	PollSeconds int    `yaml:"poll_seconds"`
}

type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type ClientConfig struct {
	// ProxyURL is the assistant endpoint used by the chat command.
	ProxyURL string `yaml:"proxy_url"`
}

type Config struct {
	AI       AIConfig       `yaml:"ai"`
	Server   ServerConfig   `yaml:"server"`
	Reminder ReminderConfig `yaml:"reminder"`
	Notify   NotifyConfig   `yaml:"notify"`
	Client   ClientConfig   `yaml:"client"`
	// HTTPProxy routes outbound requests (upstream AI, webhooks, content
	// fetches). See httpx.ClientOptions.Proxy.
	HTTPProxy string `yaml:"http_proxy"`
}

func Defaults() Config {
	return Config{
		AI: AIConfig{
			BaseURL:        llm.DefaultBaseURL,
			Model:          llm.DefaultModel,
			TimeoutSeconds: DefaultAITimeoutSec,
		},
		Server:   ServerConfig{ListenAddr: DefaultListenAddr},
		Reminder: ReminderConfig{Timezone: DefaultTimezone, PollSeconds: DefaultPollSeconds},
	}
}

// Load builds the config from defaults, the optional YAML file at path,
// then environment variables. Call runtime.LoadDotEnv first so .env values
// are visible here.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("trailing documents")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.AI.BaseURL, "KMARES_AI_BASE_URL")
	setString(&cfg.AI.APIKey, "LOVABLE_API_KEY")
	setString(&cfg.AI.APIKey, "KMARES_AI_API_KEY")
	setString(&cfg.AI.Model, "KMARES_AI_MODEL")
	setString(&cfg.Server.ListenAddr, "KMARES_LISTEN_ADDR")
	setString(&cfg.Reminder.DataDir, "KMARES_DATA_DIR")
	setString(&cfg.Reminder.Timezone, "KMARES_TIMEZONE")
	setString(&cfg.Notify.WebhookURL, "KMARES_NOTIFY_WEBHOOK_URL")
	setString(&cfg.Client.ProxyURL, "KMARES_PROXY_URL")
	setString(&cfg.HTTPProxy, "KMARES_HTTP_PROXY")

	if err := setPositiveInt(&cfg.Reminder.PollSeconds, "KMARES_REMINDER_POLL_SECONDS"); err != nil {
		return err
	}
	return setPositiveInt(&cfg.AI.TimeoutSeconds, "KMARES_AI_TIMEOUT_SECONDS")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setPositiveInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid %s: %q", key, v)
	}
	*dst = n
	return nil
}

func (c Config) Validate() error {
	if c.Reminder.PollSeconds <= 0 {
		return fmt.Errorf("reminder.poll_seconds must be positive")
	}
	if _, err := ResolveTimezoneLocation(c.Reminder.Timezone); err != nil {
		return err
	}
	if u := strings.TrimSpace(c.Notify.WebhookURL); u != "" {
		if err := runtime.ValidateHTTPURL(u); err != nil {
			return fmt.Errorf("notify.webhook_url: %w", err)
		}
	}
	if u := strings.TrimSpace(c.Client.ProxyURL); u != "" {
		if err := runtime.ValidateHTTPURL(u); err != nil {
			return fmt.Errorf("client.proxy_url: %w", err)
		}
	}
	if err := runtime.ValidateHTTPURL(c.AI.BaseURL); err != nil {
		return fmt.Errorf("ai.base_url: %w", err)
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	return ResolveTimezoneLocation(c.Reminder.Timezone)
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Reminder.PollSeconds) * time.Second
}

func (c Config) LLMConfig() llm.ChatConfig {
	return llm.ChatConfig{
		BaseURL:        c.AI.BaseURL,
		APIKey:         c.AI.APIKey,
		Model:          c.AI.Model,
		RequestTimeout: time.Duration(c.AI.TimeoutSeconds) * time.Second,
	}
}

// AssistantURL is where the chat command sends requests. Without an
// explicit proxy_url it targets the local serve listener.
func (c Config) AssistantURL() string {
	if u := strings.TrimSpace(c.Client.ProxyURL); u != "" {
		return u
	}
	addr := strings.TrimSpace(c.Server.ListenAddr)
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + DefaultProxyPath
}
