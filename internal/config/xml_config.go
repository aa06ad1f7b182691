// Package config provides XML-based configuration management.
package config

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"PDFTools"`

	Server     ServerConfig     `xml:"Server"`
	Processing ProcessingConfig `xml:"Processing"`
	Upload     UploadConfig     `xml:"Upload"`
	Catalog    CatalogConfig    `xml:"Catalog"`
	Advanced   AdvancedConfig   `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// ProcessingConfig contains session and simulated processing settings
type ProcessingConfig struct {
	ProcessDelayMs         int  `xml:"ProcessDelayMs"`
	MaxSessions            int  `xml:"MaxSessions"`
	SessionTimeoutMinutes  int  `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes"`
	StreamTimeoutSeconds   int  `xml:"StreamTimeoutSeconds"`
	EnableCompression      bool `xml:"EnableCompression"`
	CompressionLevel       int  `xml:"CompressionLevel"`
}

// UploadConfig describes the file picker hint sent to clients. It is advisory only.
type UploadConfig struct {
	AcceptFilter  string `xml:"AcceptFilter"`
	AllowMultiple bool   `xml:"AllowMultiple"`
}

// CatalogConfig points at an optional YAML tool catalog. Empty uses the built-in one.
type CatalogConfig struct {
	Path string `xml:"Path"`
}

// AdvancedConfig contains logging options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	LogFormat            string `xml:"LogFormat"` // "text" or "json"
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "200M",
		},
		Processing: ProcessingConfig{
			ProcessDelayMs:         2000,
			MaxSessions:            100,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			StreamTimeoutSeconds:   300,
			EnableCompression:      true,
			CompressionLevel:       5,
		},
		Upload: UploadConfig{
			AcceptFilter:  ".pdf",
			AllowMultiple: true,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "text",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from an XML file, creating it with
// defaults when it does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	var config *AppConfig

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config = DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config = DefaultConfig()
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- PDF Tools Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that would make the server unusable.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Processing.ProcessDelayMs <= 0 {
		return fmt.Errorf("invalid process delay: %dms", c.Processing.ProcessDelayMs)
	}
	if c.Processing.SessionTimeoutMinutes <= 0 {
		return fmt.Errorf("invalid session timeout: %d minutes", c.Processing.SessionTimeoutMinutes)
	}
	if c.Processing.MaxSessions <= 0 {
		return fmt.Errorf("invalid max sessions: %d", c.Processing.MaxSessions)
	}
	switch strings.ToLower(c.Advanced.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Advanced.LogFormat)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if delay := os.Getenv("PDFTOOLS_PROCESS_DELAY_MS"); delay != "" {
		if d, err := strconv.Atoi(delay); err == nil {
			c.Processing.ProcessDelayMs = d
		}
	}

	if max := os.Getenv("PDFTOOLS_MAX_SESSIONS"); max != "" {
		if n, err := strconv.Atoi(max); err == nil {
			c.Processing.MaxSessions = n
		}
	}

	if level := os.Getenv("PDFTOOLS_LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if c.Catalog.Path != "" && !filepath.IsAbs(c.Catalog.Path) {
		c.Catalog.Path = filepath.Join(configDir, c.Catalog.Path)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// ProcessDelay returns the simulated processing delay.
func (c *AppConfig) ProcessDelay() time.Duration {
	return time.Duration(c.Processing.ProcessDelayMs) * time.Millisecond
}

// SessionTimeout returns how long an unused session is kept.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Processing.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often idle sessions are swept.
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Processing.CleanupIntervalMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(c.Processing.CleanupIntervalMinutes) * time.Minute
}

// StreamTimeout bounds a single SSE progress stream.
func (c *AppConfig) StreamTimeout() time.Duration {
	if c.Processing.StreamTimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Processing.StreamTimeoutSeconds) * time.Second
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Advanced.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AllowOriginList splits AllowOrigins, falling back to "*".
func (c *AppConfig) AllowOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
