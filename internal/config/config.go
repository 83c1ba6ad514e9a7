// Package config provides the configuration structure for the tts-batch-service.
//
// Settings are resolved once at start-up: built-in defaults, overridden by
// environment variables, overridden by the keys an optional TOML file sets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"
)

// Environment variable names.
const (
	EnvConfigFile   = "CONFIG_FILE"
	EnvAzureKey     = "AZURE_TTS_KEY"
	EnvAzureRegion  = "AZURE_TTS_REGION"
	EnvAzureVoice   = "AZURE_TTS_VOICE"
	EnvOutputDir    = "AUDIO_OUTPUT_DIR"
	EnvServerHost   = "SERVER_HOST"
	EnvServerPort   = "SERVER_PORT"
	EnvServerDebug  = "SERVER_DEBUG"
	EnvFlaskDebug   = "FLASK_DEBUG"
	EnvStaticDir    = "STATIC_DIR"
	EnvLogsDir      = "LOGS_DIR"
	EnvNATSURL      = "NATS_URL"
	EnvNATSSubject  = "NATS_AUDIO_CREATED_SUBJECT"
	DefaultFileName = "config.toml"
)

// Default values.
const (
	DefaultVoice        = "zh-CN-XiaoxiaoNeural"
	DefaultOutputFormat = "audio-16khz-128kbitrate-mono-mp3"
	DefaultOutputDir    = "audio_output"
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 5000
	DefaultStaticDir    = "static"
	DefaultNATSSubject  = "tts.audio.created"

	maxPort = 65535
)

// ErrInvalidPort indicates that the configured port is not a usable TCP port.
var ErrInvalidPort = errors.New("invalid server port")

// AzureTTSConfig holds the credentials and voice for the speech backend.
type AzureTTSConfig struct {
	SubscriptionKey string `toml:"subscription_key"`
	Region          string `toml:"region"`
	VoiceName       string `toml:"voice_name"`
	OutputFormat    string `toml:"output_format"`
	Endpoint        string `toml:"endpoint"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// OutputConfig holds the location of generated audio files.
type OutputConfig struct {
	Directory string `toml:"directory"`
}

// HTTPServerConfig holds the bind address and front-end settings.
type HTTPServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Debug     bool   `toml:"debug"`
	StaticDir string `toml:"static_dir"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// NATSConfig holds the optional notification bus settings. An empty URL
// disables notifications.
type NATSConfig struct {
	URL                 string `toml:"url"`
	AudioCreatedSubject string `toml:"audio_created_subject"`
}

// Config is the root configuration structure.
type Config struct {
	Azure  AzureTTSConfig   `toml:"azure_tts"`
	Output OutputConfig     `toml:"output"`
	Server HTTPServerConfig `toml:"http_server"`
	Paths  PathsConfig      `toml:"paths"`
	NATS   NATSConfig       `toml:"nats"`
}

// Addr returns the host:port pair the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load resolves the configuration. When path is empty, $CONFIG_FILE and then
// ./config.toml are tried. Only the implicit ./config.toml may be absent; a
// named file that does not exist is an error.
func Load(path string, log *logger.Logger) (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		if !explicit && errors.Is(readErr, os.ErrNotExist) {
			log.Info("No configuration file at %s, using environment and defaults", path)

			return cfg, nil
		}

		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, readErr)
	}

	mergeErr := Merge(cfg, data)
	if mergeErr != nil {
		return nil, fmt.Errorf("failed to merge configuration file %s: %w", path, mergeErr)
	}

	log.Info("Configuration file %s merged over environment", path)

	return cfg, nil
}

// FromEnv builds the defaults with environment overrides applied.
func FromEnv() (*Config, error) {
	port, err := envInt(EnvServerPort, DefaultPort)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPort, EnvServerPort, err)
	}

	portErr := checkPort(port)
	if portErr != nil {
		return nil, fmt.Errorf("%s: %w", EnvServerPort, portErr)
	}

	debug := strings.EqualFold(envString(EnvFlaskDebug, "false"), "true") ||
		strings.EqualFold(envString(EnvServerDebug, "false"), "true")

	return &Config{
		Azure: AzureTTSConfig{
			SubscriptionKey: envString(EnvAzureKey, ""),
			Region:          envString(EnvAzureRegion, ""),
			VoiceName:       envString(EnvAzureVoice, DefaultVoice),
			OutputFormat:    DefaultOutputFormat,
			Endpoint:        "",
			TimeoutSeconds:  0,
		},
		Output: OutputConfig{
			Directory: envString(EnvOutputDir, DefaultOutputDir),
		},
		Server: HTTPServerConfig{
			Host:      envString(EnvServerHost, DefaultHost),
			Port:      port,
			Debug:     debug,
			StaticDir: envString(EnvStaticDir, DefaultStaticDir),
		},
		Paths: PathsConfig{
			BaseLogsDir: envString(EnvLogsDir, os.TempDir()),
		},
		NATS: NATSConfig{
			URL:                 envString(EnvNATSURL, ""),
			AudioCreatedSubject: envString(EnvNATSSubject, DefaultNATSSubject),
		},
	}, nil
}

// Merge decodes TOML data over cfg. Only keys present in data are replaced, so
// each section is shallow-merged over what cfg already holds.
func Merge(cfg *Config, data []byte) error {
	err := toml.Unmarshal(data, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML: %w", err)
	}

	return checkPort(cfg.Server.Port)
}

func checkPort(port int) error {
	if port <= 0 || port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	return nil
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func envInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %q: %w", value, err)
	}

	return parsed, nil
}
