package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept both
// strings such as "1h" and integer nanoseconds. Only keys present in the file
// override the current values.
type FileConfig struct {
	EndpointAddrHTTP                  string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC                  string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                       string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                         string         `json:"secret_key" yaml:"secret_key"`
	Audience                          string         `json:"audience" yaml:"audience"`
	AccessTokenValidityDuration       timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration      timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration timex.Duration `json:"verification_token_validity_duration" yaml:"verification_token_validity_duration"`
	AppURL                            string         `json:"app_url" yaml:"app_url"`
	MailTransport                     string         `json:"mail_transport" yaml:"mail_transport"`
	SMTPHost                          string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort                          int            `json:"smtp_port" yaml:"smtp_port"`
	SMTPUsername                      string         `json:"smtp_username" yaml:"smtp_username"`
	SMTPPassword                      string         `json:"smtp_password" yaml:"smtp_password"`
	SMTPFrom                          string         `json:"smtp_from" yaml:"smtp_from"`
	S3RootUser                        string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword                    string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                          string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                          string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint                    string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	NATSURL                           string         `json:"nats_url" yaml:"nats_url"`
	LogLevel                          string         `json:"log_level" yaml:"log_level"`
	Tracing                           *bool          `json:"tracing" yaml:"tracing"`
}

// parseFile loads the file named by -c/-config into config. Files ending in
// .yaml or .yml are read as YAML, anything else as JSON. A missing flag
// means no file; an unreadable or invalid file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Audience, c.Audience)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.VerificationTokenValidityDuration.Duration != 0 {
		config.VerificationTokenValidityDuration = c.VerificationTokenValidityDuration.Duration
	}
	setString(&config.AppURL, c.AppURL)
	setString(&config.MailTransport, c.MailTransport)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.NATSURL, c.NATSURL)
	setString(&config.LogLevel, c.LogLevel)
	if c.Tracing != nil {
		config.Tracing = *c.Tracing
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
