package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	BaseURL       string              `yaml:"base_url"`
	Scraper       ScraperConfig       `yaml:"scraper"`
	Storage       StorageConfig       `yaml:"storage"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ScraperConfig struct {
	RenderEnabled     bool   `yaml:"render_enabled"`
	ChromePath        string `yaml:"chrome_path"`
	PageTimeoutS      int    `yaml:"page_timeout_s"`
	SettleDelayS      int    `yaml:"settle_delay_s"`
	UserAgent         string `yaml:"user_agent"`
	HTTPTimeoutS      int    `yaml:"http_timeout_s"`
	RequestDelayMinMS int    `yaml:"request_delay_min_ms"`
	RequestDelayMaxMS int    `yaml:"request_delay_max_ms"`
	MaxResultsBasic   int    `yaml:"max_results_basic"`
	MaxResultsRender  int    `yaml:"max_results_render"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type SMTPConfig struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	Sender   string `yaml:"sender"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

type SchedulerConfig struct {
	CheckIntervalMin   int `yaml:"check_interval_min"`
	CleanupIntervalHrs int `yaml:"cleanup_interval_hrs"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type ObservabilityConfig struct {
	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`
}

// Validation
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must start with http:// or https://")
	}
	if c.Scraper.UserAgent == "" {
		return fmt.Errorf("scraper.user_agent is required")
	}
	if c.Scraper.HTTPTimeoutS <= 0 {
		return fmt.Errorf("scraper.http_timeout_s must be > 0")
	}
	if c.Scraper.RequestDelayMinMS < 0 {
		return fmt.Errorf("scraper.request_delay_min_ms must be >= 0")
	}
	if c.Scraper.RequestDelayMaxMS < c.Scraper.RequestDelayMinMS {
		return fmt.Errorf("scraper.request_delay_max_ms must be >= scraper.request_delay_min_ms")
	}
	if c.Scraper.MaxResultsBasic <= 0 {
		return fmt.Errorf("scraper.max_results_basic must be > 0")
	}
	if c.Scraper.MaxResultsRender <= 0 {
		return fmt.Errorf("scraper.max_results_render must be > 0")
	}
	if c.Scraper.RenderEnabled {
		if c.Scraper.PageTimeoutS <= 0 {
			return fmt.Errorf("scraper.page_timeout_s must be > 0 when render is enabled")
		}
		if c.Scraper.SettleDelayS < 0 {
			return fmt.Errorf("scraper.settle_delay_s must be >= 0")
		}
	}
	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "mssql" {
		return fmt.Errorf("storage.driver must be 'sqlite' or 'mssql'")
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required")
	}
	if c.Storage.CommandTimeoutMS <= 0 {
		return fmt.Errorf("storage.command_timeout_ms must be > 0")
	}
	if c.SMTP.Server == "" {
		return fmt.Errorf("smtp.server is required")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port must be between 1 and 65535")
	}
	if c.SMTP.Sender == "" {
		return fmt.Errorf("smtp.sender is required")
	}
	if c.Scheduler.CheckIntervalMin <= 0 {
		return fmt.Errorf("scheduler.check_interval_min must be > 0")
	}
	if c.Scheduler.CleanupIntervalHrs <= 0 {
		return fmt.Errorf("scheduler.cleanup_interval_hrs must be > 0")
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Observability.LogPath == "" {
		return fmt.Errorf("observability.log_path is required")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	return nil
}

// Getters
func (c *Config) GetHTTPTimeout() time.Duration {
	return time.Duration(c.Scraper.HTTPTimeoutS) * time.Second
}

func (c *Config) GetPageTimeout() time.Duration {
	return time.Duration(c.Scraper.PageTimeoutS) * time.Second
}

func (c *Config) GetSettleDelay() time.Duration {
	return time.Duration(c.Scraper.SettleDelayS) * time.Second
}

func (c *Config) GetRequestDelayMin() time.Duration {
	return time.Duration(c.Scraper.RequestDelayMinMS) * time.Millisecond
}

func (c *Config) GetRequestDelayMax() time.Duration {
	return time.Duration(c.Scraper.RequestDelayMaxMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetCheckInterval() time.Duration {
	return time.Duration(c.Scheduler.CheckIntervalMin) * time.Minute
}

func (c *Config) GetCleanupInterval() time.Duration {
	return time.Duration(c.Scheduler.CleanupIntervalHrs) * time.Hour
}
