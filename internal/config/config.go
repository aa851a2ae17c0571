package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide snowdesk configuration. It is constructed once
// in main and passed by reference into every handler; nothing mutates it
// after load.
type Config struct {
	// ServiceNow credentials and connection settings.
	SnowUser     string `yaml:"snow_user"`
	SnowPassword string `yaml:"snow_pw"`
	SnowInstance string `yaml:"snow_instance"`

	// LocalMode suppresses every outbound call to ServiceNow and simulates
	// ticket creation instead.
	LocalMode bool `yaml:"localmode"`

	// UseProfileEmail includes an email address in generated mock profiles.
	UseProfileEmail bool `yaml:"use_profile_email"`

	// RasaXURL is the diagnostics endpoint base queried by action_version.
	RasaXURL string `yaml:"rasa_x_url"`

	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds the action server's listen settings and data directory.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

// Default returns the configuration used when no credential file exists.
// Local mode defaults to on so a bare checkout never calls out.
func Default() *Config {
	return &Config{
		LocalMode:       true,
		UseProfileEmail: true,
		RasaXURL:        getenv("SNOWDESK_RASA_X_URL", "http://rasa-x:5002"),
		Server: ServerConfig{
			Host:    getenv("SNOWDESK_HOST", "0.0.0.0"),
			Port:    getenvInt("SNOWDESK_PORT", 5055),
			DataDir: getenv("SNOWDESK_DATA_DIR", "data"),
		},
	}
}

// Load reads the credential file at path on top of the defaults. A missing
// file is not an error: the contract is empty/default configuration rather
// than startup failure.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a credential document from memory, for tests and for
// `snowdeskctl config validate`.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	cfg.expandEnv()
	return cfg, nil
}

// BaseAPIURL is the ServiceNow REST base for the configured instance.
func (c *Config) BaseAPIURL() string {
	return fmt.Sprintf("https://%s/api/now", c.SnowInstance)
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// expandEnv substitutes ${VAR} references in credential fields so secrets
// can stay out of the file itself.
func (c *Config) expandEnv() {
	c.SnowUser = expand(c.SnowUser)
	c.SnowPassword = expand(c.SnowPassword)
	c.SnowInstance = expand(c.SnowInstance)
}

func expand(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
