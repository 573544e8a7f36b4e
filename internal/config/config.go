package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// AppName is used for the config directory, env prefix and user agent.
const AppName = "agency-chat"

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("%s version %s, commit %s, built at %s", AppName, version, commit, date)
}

// Version returns the bare version string.
func Version() string {
	return version
}

type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Google    GoogleConfig    `mapstructure:"google"`
	Session   SessionConfig   `mapstructure:"session"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	DevServer DevServerConfig `mapstructure:"devserver"`
}

// APIConfig describes the chat backend the client talks to.
type APIConfig struct {
	BaseURL string            `mapstructure:"base_url"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Headers map[string]string `mapstructure:"headers"`
	// APIKey, when set, is sent on every call in the APIKeyHeader header,
	// next to the session token.
	APIKey       string `mapstructure:"api_key"`
	APIKeyHeader string `mapstructure:"api_key_header"`
}

type GoogleConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Issuer       string   `mapstructure:"issuer"`
	Scopes       []string `mapstructure:"scopes"`
	RedirectHost string   `mapstructure:"redirect_host"`
	RedirectPort int      `mapstructure:"redirect_port"` // 0 picks a free port
	// SkipVerify disables local ID token verification; the backend verifies it anyway.
	SkipVerify bool `mapstructure:"skip_verify"`
}

type SessionConfig struct {
	TokenFile string `mapstructure:"token_file"`
	// Watch reloads the token when another process changes the token file.
	Watch bool `mapstructure:"watch"`
}

type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// MCPMode selects the transport of the MCP bridge.
type MCPMode string

const (
	MCPModeSTDIO MCPMode = "stdio"
	MCPModeHTTP  MCPMode = "http"
)

type MCPConfig struct {
	Mode MCPMode `mapstructure:"mode"`
	Host string  `mapstructure:"host"`
	Port int     `mapstructure:"port"`
}

// Addr returns host:port for the HTTP transport.
func (c MCPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DevServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	SigningKey   string        `mapstructure:"signing_key"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

// Addr returns host:port for the development backend.
func (c DevServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// InitFlags registers the global command line flags on fs (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("api-url", "", "Base URL of the chat API")
	fs.String("google-client-id", "", "Google OAuth client id used for sign-in")
	fs.String("token-file", "", "Path of the persisted session token")
	fs.String("log-level", "", "Log level (debug|info|warn|error)")
}

var flagKeys = map[string]string{
	"api-url":          "api.base_url",
	"google-client-id": "google.client_id",
	"token-file":       "session.token_file",
	"log-level":        "logging.level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.api_key", "")
	v.SetDefault("api.api_key_header", "X-API-Key")
	v.SetDefault("google.issuer", "https://accounts.google.com")
	v.SetDefault("google.scopes", []string{"openid", "profile", "email"})
	v.SetDefault("google.redirect_host", "127.0.0.1")
	v.SetDefault("google.redirect_port", 0)
	v.SetDefault("session.watch", false)
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.disable_stacktrace", true)
	v.SetDefault("mcp.mode", string(MCPModeSTDIO))
	v.SetDefault("mcp.host", "127.0.0.1")
	v.SetDefault("mcp.port", 8085)
	v.SetDefault("devserver.host", "127.0.0.1")
	v.SetDefault("devserver.port", 5000)
	v.SetDefault("devserver.token_ttl", time.Hour)
	v.SetDefault("devserver.allow_origins", []string{"http://localhost:3000"})
}

// DefaultDir returns the per-user directory holding the token and logs.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName)
}

// Load reads configuration from defaults, an optional config file, .env,
// the environment and flags, in increasing order of precedence. An empty
// configFile searches the usual locations and tolerates a missing file.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AGENCY_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// the website's public env names keep working
	if err := v.BindEnv("api.base_url", "AGENCY_CHAT_API_BASE_URL", "NEXT_PUBLIC_API_URL"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("google.client_id", "AGENCY_CHAT_GOOGLE_CLIENT_ID", "NEXT_PUBLIC_GOOGLE_CLIENT_ID"); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDir())
		v.AddConfigPath("/etc/" + AppName)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Session.TokenFile == "" {
		cfg.Session.TokenFile = filepath.Join(DefaultDir(), "session.json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q; set it in the config, pass --api-url or AGENCY_CHAT_API_BASE_URL", c.API.BaseURL)
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit must be positive")
	}
	switch c.MCP.Mode {
	case MCPModeSTDIO, MCPModeHTTP:
	default:
		return fmt.Errorf("mcp.mode must be %q or %q, got %q", MCPModeSTDIO, MCPModeHTTP, c.MCP.Mode)
	}
	if c.DevServer.TokenTTL <= 0 {
		return fmt.Errorf("devserver.token_ttl must be positive")
	}
	return nil
}
