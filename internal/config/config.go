package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultLineAPIBase    = "https://api.line.me/v2/bot"
	DefaultOpenAIBaseURL  = "https://api.openai.com/v1"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultTimeoutSeconds = 30
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "linerelay"
	DefaultPGSSLMode      = "disable"
)

// Environment variables that override the config file. Secrets are expected
// to arrive this way in deployment; the file is for everything else.
const (
	EnvChannelSecret = "LINE_CHANNEL_SECRET"
	EnvAccessToken   = "LINE_CHANNEL_ACCESS_TOKEN"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvLiffAppURL    = "LIFF_APP_URL"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Line     LineConfig     `toml:"line"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Postgres PostgresConfig `toml:"postgres"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr" validate:"required"`
}

// LineConfig holds Messaging API credentials. Both secrets may be empty:
// an empty channel secret disables signature verification and an empty
// access token makes every outbound call fail at the transport layer.
type LineConfig struct {
	ChannelSecret      string `toml:"channel_secret"`
	ChannelAccessToken string `toml:"channel_access_token"`
	APIBase            string `toml:"api_base" validate:"required,url"`
	LiffAppURL         string `toml:"liff_app_url" validate:"omitempty,url"`
	TimeoutSeconds     int    `toml:"timeout_seconds" validate:"gte=0"`
}

type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url" validate:"required,url"`
	Model          string `toml:"model" validate:"required"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=0"`
}

type PostgresConfig struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"required,gt=0"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	Database string `toml:"database" validate:"required"`
	SSLMode  string `toml:"sslmode" validate:"required"`
}

// Load reads the TOML config at path, falling back to defaults when the file
// does not exist, then applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Line: LineConfig{
			APIBase:        DefaultLineAPIBase,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		OpenAI: OpenAIConfig{
			BaseURL:        DefaultOpenAIBaseURL,
			Model:          DefaultOpenAIModel,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvChannelSecret); v != "" {
		cfg.Line.ChannelSecret = v
	}
	if v := os.Getenv(EnvAccessToken); v != "" {
		cfg.Line.ChannelAccessToken = v
	}
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv(EnvLiffAppURL); v != "" {
		cfg.Line.LiffAppURL = v
	}
}
