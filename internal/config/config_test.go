package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "stockdash.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != defaultAddr || cfg.Gateway.BaseURL != "http://127.0.0.1:8080" {
		t.Errorf("addr=%q base=%q", cfg.Server.Addr, cfg.Gateway.BaseURL)
	}
	if !reflect.DeepEqual(cfg.Chart.Windows, []int{5, 10, 20}) || cfg.Chart.ZoomBars != 365 {
		t.Errorf("chart = %+v", cfg.Chart)
	}
	if cfg.Launcher.Enabled {
		t.Error("launcher should be disabled by default")
	}
	if cfg.Snapshot.Cron != "" {
		t.Errorf("snapshot cron = %q", cfg.Snapshot.Cron)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	p := writeConfig(t, `
server:
  addr: ":9000"
  shutdown_timeout: 3s
gateway:
  base_url: "http://10.0.0.2:8081/"
  requests_per_sec: 2.5
launcher:
  enabled: true
  port: 8081
chart:
  windows: [5, 30]
  up_color: "#ff0000"
snapshot:
  cron: "0 */5 9-15 * * 1-5"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Gateway.BaseURL != "http://10.0.0.2:8081" || cfg.Gateway.RequestsPerSec != 2.5 {
		t.Errorf("gateway = %+v", cfg.Gateway)
	}
	if !cfg.Launcher.Enabled || cfg.Launcher.Port != 8081 || cfg.Launcher.Python != defaultPython {
		t.Errorf("launcher = %+v", cfg.Launcher)
	}
	if !reflect.DeepEqual(cfg.Chart.Windows, []int{5, 30}) || cfg.Chart.UpColor != "#ff0000" || cfg.Chart.DownColor != defaultDownColor {
		t.Errorf("chart = %+v", cfg.Chart)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	p := writeConfig(t, "server:\n  addr: \":9000\"\nlog:\n  level: warn\n")
	t.Setenv(envAddr, ":7000")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envLaunchGateway, "true")
	t.Setenv(envGatewayPort, "18080")
	t.Setenv(envMaxConcurrent, "8")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7000" || cfg.Log.Level != "debug" {
		t.Errorf("addr=%q level=%q", cfg.Server.Addr, cfg.Log.Level)
	}
	if !cfg.Launcher.Enabled || cfg.Gateway.BaseURL != "http://127.0.0.1:18080" {
		t.Errorf("launcher=%+v base=%q", cfg.Launcher, cfg.Gateway.BaseURL)
	}
	if cfg.Scan.Concurrency != 8 {
		t.Errorf("concurrency = %d", cfg.Scan.Concurrency)
	}
}

func TestMailFromEnv(t *testing.T) {
	p := writeConfig(t, "mail:\n  server: smtp.example.com\n  from: bot@example.com\n")
	t.Setenv(envSMTPPassword, "secret")
	t.Setenv(envSMTPTo, "a@example.com,b@example.com")
	t.Setenv(envSMTPPort, "465")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m := cfg.Mail
	if m.Server != "smtp.example.com" || m.From != "bot@example.com" || m.Password != "secret" || m.Port != 465 {
		t.Errorf("mail = %+v", m)
	}
	if m.To != "a@example.com,b@example.com" {
		t.Errorf("to = %q", m.To)
	}

	t.Setenv(envSMTPPort, "smtp")
	if _, err := Load(p); err == nil || !strings.Contains(err.Error(), envSMTPPort) {
		t.Errorf("err = %v", err)
	}
}

func TestEnvOverrideInvalid(t *testing.T) {
	t.Setenv(envLogJSON, "maybe")
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil || !strings.Contains(err.Error(), envLogJSON) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	p := writeConfig(t, "server: [unclosed")
	if _, err := Load(p); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "bad url", mutate: func(c *Config) { c.Gateway.BaseURL = "127.0.0.1:8080" }, want: "gateway.base_url"},
		{name: "bad window", mutate: func(c *Config) { c.Chart.Windows = []int{5, 0} }, want: "chart.windows"},
		{name: "bad color", mutate: func(c *Config) { c.Chart.UpColor = "red" }, want: "chart.up_color"},
		{name: "bad cron", mutate: func(c *Config) { c.Snapshot.Cron = "*/5 * * * *" }, want: "snapshot.cron"},
		{name: "bad port", mutate: func(c *Config) { c.Launcher.Port = 70000 }, want: "launcher.port"},
		{name: "bad mail port", mutate: func(c *Config) { c.Mail.Port = -1 }, want: "mail.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
