package config

import "time"

// Config holds runtime settings for the CLI.
type Config struct {
	ServerURL      string        `env:"AUTHCLI_SERVER_URL"`
	RequestTimeout time.Duration `env:"AUTHCLI_REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000"
	c.RequestTimeout = 5 * time.Second
}

// LoadConfig applies defaults, then the JSON file, environment and flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
