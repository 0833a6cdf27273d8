package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"barberq/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Queue      QueueConfig      `yaml:"queue"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Messaging  MessagingConfig  `yaml:"messaging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// QueueConfig управляет сеткой слотов и свипером очереди.
type QueueConfig struct {
	BusinessStart       string `yaml:"business_start"` // HH:MM
	BusinessEnd         string `yaml:"business_end"`   // HH:MM, полуинтервал
	SlotInterval        int    `yaml:"slot_interval"`  // минуты
	PeakMorningStart    int    `yaml:"peak_morning_start"`
	PeakMorningEnd      int    `yaml:"peak_morning_end"`
	PeakAfternoonStart  int    `yaml:"peak_afternoon_start"`
	PeakAfternoonEnd    int    `yaml:"peak_afternoon_end"`
	ServiceEstimate     int    `yaml:"service_estimate"`       // минуты на клиента в обслуживании
	GridWaitPerCustomer int    `yaml:"grid_wait_per_customer"` // минуты на клиента для сетки
	SweepInterval       int    `yaml:"sweep_interval"`         // секунды
	SweepAttempts       int    `yaml:"sweep_attempts"`
	SweepRetryDelay     int    `yaml:"sweep_retry_delay"` // секунды
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// RegistrationsPerHour лимит регистраций с одного номера телефона
	RegistrationsPerHour int `yaml:"registrations_per_hour"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	QueueSpreadSheetID    string `yaml:"queue_spreadsheet_id"`
}

type MessagingConfig struct {
	CountryCode string `yaml:"country_code"`
}

func Load(configPath string) (*Config, error) {
	// .env не обязателен: в контейнере переменные приходят из окружения
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	start, err := ParseClock(c.Queue.BusinessStart)
	if err != nil {
		return fmt.Errorf("queue.business_start: %w", err)
	}
	end, err := ParseClock(c.Queue.BusinessEnd)
	if err != nil {
		return fmt.Errorf("queue.business_end: %w", err)
	}
	if end <= start {
		return errors.New("queue.business_end must be after queue.business_start")
	}

	if c.Queue.SlotInterval <= 0 {
		return errors.New("queue.slot_interval must be positive")
	}

	if c.Queue.PeakMorningEnd < c.Queue.PeakMorningStart ||
		c.Queue.PeakAfternoonEnd < c.Queue.PeakAfternoonStart {
		return errors.New("peak window end must not precede its start")
	}

	return nil
}

// ParseClock разбирает "HH:MM" в минуты от полуночи.
func ParseClock(value string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", value)
	}
	return h*60 + m, nil
}

// SweepIntervalDuration возвращает период свипера.
func (q QueueConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(q.SweepInterval) * time.Second
}

// SweepRetryDelayDuration возвращает задержку между попытками свипера.
func (q QueueConfig) SweepRetryDelayDuration() time.Duration {
	return time.Duration(q.SweepRetryDelay) * time.Second
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	// Queue defaults
	if c.Queue.BusinessStart == "" {
		c.Queue.BusinessStart = models.DefaultBusinessStart
	}
	if c.Queue.BusinessEnd == "" {
		c.Queue.BusinessEnd = models.DefaultBusinessEnd
	}
	if c.Queue.SlotInterval == 0 {
		c.Queue.SlotInterval = models.DefaultSlotInterval
	}
	if c.Queue.PeakMorningStart == 0 && c.Queue.PeakMorningEnd == 0 {
		c.Queue.PeakMorningStart = models.DefaultPeakMorningStart
		c.Queue.PeakMorningEnd = models.DefaultPeakMorningEnd
	}
	if c.Queue.PeakAfternoonStart == 0 && c.Queue.PeakAfternoonEnd == 0 {
		c.Queue.PeakAfternoonStart = models.DefaultPeakAfternoonStart
		c.Queue.PeakAfternoonEnd = models.DefaultPeakAfternoonEnd
	}
	if c.Queue.ServiceEstimate == 0 {
		c.Queue.ServiceEstimate = models.DefaultServiceEstimate
	}
	if c.Queue.GridWaitPerCustomer == 0 {
		c.Queue.GridWaitPerCustomer = models.DefaultGridWaitPerCustomer
	}
	if c.Queue.SweepInterval == 0 {
		c.Queue.SweepInterval = models.DefaultSweepInterval
	}
	if c.Queue.SweepAttempts == 0 {
		c.Queue.SweepAttempts = models.DefaultSweepAttempts
	}
	if c.Queue.SweepRetryDelay == 0 {
		c.Queue.SweepRetryDelay = models.DefaultSweepRetryDelay
	}

	if c.Messaging.CountryCode == "" {
		c.Messaging.CountryCode = models.DefaultCountryCode
	}
}
