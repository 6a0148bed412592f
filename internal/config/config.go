// Package config 从 YAML 文件加载配置，再依次应用 .env、STOCKDASH_* 环境变量与默认值。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// 配置路径
const (
	DefaultPath   = "configs/stockdash.yaml"
	EnvConfigPath = "STOCKDASH_CONFIG"
	dotEnvFile    = ".env"
)

// 环境变量名（覆盖文件配置）
const (
	envAddr          = "STOCKDASH_ADDR"
	envGatewayURL    = "STOCKDASH_GATEWAY_URL"
	envGatewayRPS    = "STOCKDASH_API_RPS"
	envMaxConcurrent = "STOCKDASH_API_MAX_CONCURRENT"
	envLaunchGateway = "STOCKDASH_LAUNCH_GATEWAY"
	envPython        = "STOCKDASH_PYTHON"
	envGatewayPort   = "STOCKDASH_GATEWAY_PORT"
	envSnapshotCron  = "STOCKDASH_SNAPSHOT_CRON"
	envSQLitePath    = "STOCKDASH_SQLITE_PATH"
	envLogLevel      = "STOCKDASH_LOG_LEVEL"
	envLogJSON       = "STOCKDASH_LOG_JSON"
	envSMTPServer    = "STOCKDASH_SMTP_SERVER"
	envSMTPPort      = "STOCKDASH_SMTP_PORT"
	envSMTPUser      = "STOCKDASH_SMTP_USER"
	envSMTPPassword  = "STOCKDASH_SMTP_PASSWORD"
	envSMTPFrom      = "STOCKDASH_SMTP_FROM"
	envSMTPTo        = "STOCKDASH_SMTP_TO"
)

// 默认值
const (
	defaultAddr            = ":8000"
	defaultGatewayPort     = 8080
	defaultGatewayTimeout  = 15 * time.Second
	defaultRequestsPerSec  = 5
	defaultMaxRetries      = 3
	defaultPython          = "python"
	defaultReadyTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultZoomBars        = 365
	defaultUpColor         = "#FD1050"
	defaultDownColor       = "#0CF49B"
	defaultConcurrency     = 4
	defaultSQLitePath      = "data/stockdash.db"
	defaultLogLevel        = "info"
)

var defaultWindows = []int{5, 10, 20}

type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Gateway struct {
		BaseURL        string        `yaml:"base_url"`
		Timeout        time.Duration `yaml:"timeout"`
		RequestsPerSec float64       `yaml:"requests_per_sec"`
		MaxRetries     int           `yaml:"max_retries"`
	} `yaml:"gateway"`
	Launcher struct {
		Enabled      bool          `yaml:"enabled"`
		Python       string        `yaml:"python"`
		Port         int           `yaml:"port"`
		ReadyTimeout time.Duration `yaml:"ready_timeout"`
	} `yaml:"launcher"`
	Chart struct {
		Windows   []int  `yaml:"windows"`
		ZoomBars  int    `yaml:"zoom_bars"`
		UpColor   string `yaml:"up_color"`
		DownColor string `yaml:"down_color"`
	} `yaml:"chart"`
	Scan struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"scan"`
	Snapshot struct {
		Cron       string `yaml:"cron"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"snapshot"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
	// Mail 扫描结果邮件，server/from/to 齐全才发送。密码建议只放在环境变量或 .env。
	Mail struct {
		Server   string `yaml:"server"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		To       string `yaml:"to"`
	} `yaml:"mail"`
}

// Path 配置文件路径：STOCKDASH_CONFIG 优先，否则 DefaultPath。
func Path() string {
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return DefaultPath
}

// Load 读 YAML（文件不存在视为空配置），加载 .env（不覆盖已有环境变量），应用环境变量覆盖与默认值。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotEnvFile, err)
	}
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(envGatewayURL); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv(envGatewayRPS); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envGatewayRPS, err)
		}
		c.Gateway.RequestsPerSec = f
	}
	if v := os.Getenv(envMaxConcurrent); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envMaxConcurrent, err)
		}
		c.Scan.Concurrency = n
	}
	if v := os.Getenv(envLaunchGateway); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envLaunchGateway, err)
		}
		c.Launcher.Enabled = b
	}
	if v := os.Getenv(envPython); v != "" {
		c.Launcher.Python = v
	}
	if v := os.Getenv(envGatewayPort); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envGatewayPort, err)
		}
		c.Launcher.Port = n
	}
	if v := os.Getenv(envSnapshotCron); v != "" {
		c.Snapshot.Cron = v
	}
	if v := os.Getenv(envSQLitePath); v != "" {
		c.Snapshot.SQLitePath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(envLogJSON); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envLogJSON, err)
		}
		c.Log.JSON = b
	}
	if v := os.Getenv(envSMTPServer); v != "" {
		c.Mail.Server = v
	}
	if v := os.Getenv(envSMTPPort); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envSMTPPort, err)
		}
		c.Mail.Port = n
	}
	if v := os.Getenv(envSMTPUser); v != "" {
		c.Mail.User = v
	}
	if v := os.Getenv(envSMTPPassword); v != "" {
		c.Mail.Password = v
	}
	if v := os.Getenv(envSMTPFrom); v != "" {
		c.Mail.From = v
	}
	if v := os.Getenv(envSMTPTo); v != "" {
		c.Mail.To = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Launcher.Port == 0 {
		c.Launcher.Port = defaultGatewayPort
	}
	if c.Launcher.Python == "" {
		c.Launcher.Python = defaultPython
	}
	if c.Launcher.ReadyTimeout == 0 {
		c.Launcher.ReadyTimeout = defaultReadyTimeout
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = fmt.Sprintf("http://127.0.0.1:%d", c.Launcher.Port)
	}
	c.Gateway.BaseURL = strings.TrimRight(c.Gateway.BaseURL, "/")
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = defaultGatewayTimeout
	}
	if c.Gateway.RequestsPerSec == 0 {
		c.Gateway.RequestsPerSec = defaultRequestsPerSec
	}
	if c.Gateway.MaxRetries == 0 {
		c.Gateway.MaxRetries = defaultMaxRetries
	}
	if len(c.Chart.Windows) == 0 {
		c.Chart.Windows = append([]int(nil), defaultWindows...)
	}
	if c.Chart.ZoomBars == 0 {
		c.Chart.ZoomBars = defaultZoomBars
	}
	if c.Chart.UpColor == "" {
		c.Chart.UpColor = defaultUpColor
	}
	if c.Chart.DownColor == "" {
		c.Chart.DownColor = defaultDownColor
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = defaultConcurrency
	}
	if c.Snapshot.SQLitePath == "" {
		c.Snapshot.SQLitePath = defaultSQLitePath
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
}

// CronParser 与调度器一致的表达式解析（6 段，含秒）。
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate 检查取值范围与格式。
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	u, err := url.Parse(c.Gateway.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("gateway.base_url %q must be an http(s) URL", c.Gateway.BaseURL)
	}
	if c.Gateway.RequestsPerSec < 0 {
		return fmt.Errorf("gateway.requests_per_sec must not be negative")
	}
	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("gateway.max_retries must not be negative")
	}
	if c.Launcher.Port <= 0 || c.Launcher.Port > 65535 {
		return fmt.Errorf("launcher.port %d out of range", c.Launcher.Port)
	}
	for _, w := range c.Chart.Windows {
		if w <= 0 {
			return fmt.Errorf("chart.windows: window %d must be positive", w)
		}
	}
	if c.Chart.ZoomBars < 0 {
		return fmt.Errorf("chart.zoom_bars must not be negative")
	}
	for name, color := range map[string]string{"chart.up_color": c.Chart.UpColor, "chart.down_color": c.Chart.DownColor} {
		if !strings.HasPrefix(color, "#") {
			return fmt.Errorf("%s %q must be a #RRGGBB color", name, color)
		}
	}
	if c.Scan.Concurrency < 0 {
		return fmt.Errorf("scan.concurrency must not be negative")
	}
	if c.Mail.Port < 0 || c.Mail.Port > 65535 {
		return fmt.Errorf("mail.port %d out of range", c.Mail.Port)
	}
	if c.Snapshot.Cron != "" {
		if _, err := CronParser.Parse(c.Snapshot.Cron); err != nil {
			return fmt.Errorf("snapshot.cron %q: %w", c.Snapshot.Cron, err)
		}
	}
	return nil
}
