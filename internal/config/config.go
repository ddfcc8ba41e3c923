package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Provider holds the connection settings for one OpenAI-compatible
// endpoint. An empty APIKey means the provider is not configured.
type Provider struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

func (p Provider) Configured() bool { return p.APIKey != "" }

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	AI struct {
		RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds"`

		Transcription struct {
			Primary  Provider `yaml:"primary"`
			Fallback Provider `yaml:"fallback"`
		} `yaml:"transcription"`

		Safety struct {
			Mode     string `yaml:"mode"` // off | log | strict
			Provider `yaml:",inline"`
		} `yaml:"safety"`

		Extraction Provider `yaml:"extraction"`
	} `yaml:"ai"`

	Pipeline struct {
		MaxReasonableQuantity int `yaml:"maxReasonableQuantity"`
	} `yaml:"pipeline"`
}

// Load reads the config.yaml file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.AI.Safety.Mode == "" {
		cfg.AI.Safety.Mode = "log"
	}
	return &cfg, nil
}

// PostgresDSN builds the connection string
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}

// Validate checks the settings once at startup. It returns warnings for
// degraded-but-runnable configurations so the caller can log them; the one
// place that decision is made.
func (c *Config) Validate() ([]string, error) {
	switch c.AI.Safety.Mode {
	case "off", "log", "strict":
	default:
		return nil, fmt.Errorf("invalid safety mode %q (want off, log, or strict)", c.AI.Safety.Mode)
	}

	var warnings []string
	if c.AI.Safety.Mode != "off" && !c.AI.Safety.Configured() {
		warnings = append(warnings, fmt.Sprintf(
			"safety API key is not set and safety mode is %q; content safety checks will be skipped until a key is provided",
			c.AI.Safety.Mode))
	}
	if !c.AI.Transcription.Primary.Configured() && !c.AI.Transcription.Fallback.Configured() {
		warnings = append(warnings, "no transcription providers configured; voice interactions will fail")
	}
	if !c.AI.Extraction.Configured() {
		warnings = append(warnings, "extraction API key is not set; all interactions will fail")
	}
	return warnings, nil
}
