package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/apikit/health"
)

// neutralizeEnv blanks variables that would otherwise override top-level
// keys from the test's config files.
func neutralizeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"NAME", "ENVIRONMENT", "VERSION", "DEBUG", "API", "HEALTH", "LOGGING", "OBSERVABILITY"} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const clientYAML = `
name: billing-worker
environment: staging
version: 1.4.0
logging:
  level: warn
api:
  base_url: https://billing.example.com
  timeout: 5s
  headers:
    x-tenant: acme
health:
  path: /status
  stale_after: 5m
observability:
  sample_rate: 0.5
`

func TestLoadClient_FromYAML(t *testing.T) {
	neutralizeEnv(t)
	path := writeFile(t, t.TempDir(), "config.yml", clientYAML)

	cfg, err := LoadClient("billing-worker", WithConfigFile(path), WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}

	if cfg.Name != "billing-worker" || cfg.Environment != "staging" || cfg.Version != "1.4.0" {
		t.Errorf("service = %+v", cfg.ServiceConfig)
	}
	if cfg.Debug {
		t.Error("staging should not enable debug")
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.API.BaseURL != "https://billing.example.com" || cfg.API.Timeout != 5*time.Second {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.API.Name != "billing-worker" {
		t.Errorf("api.name = %q, want the service name", cfg.API.Name)
	}
	if cfg.API.Headers["x-tenant"] != "acme" {
		t.Errorf("api.headers = %v", cfg.API.Headers)
	}
	if cfg.Health.Path != "/status" || cfg.Health.StaleAfter != 5*time.Minute {
		t.Errorf("health = %+v", cfg.Health)
	}
	if cfg.Observability.ServiceName != "billing-worker" || cfg.Observability.ServiceVersion != "1.4.0" {
		t.Errorf("observability = %+v", cfg.Observability)
	}
	if cfg.Observability.SampleRate != 0.5 {
		t.Errorf("sample_rate = %v", cfg.Observability.SampleRate)
	}
}

func TestLoadClient_Defaults(t *testing.T) {
	neutralizeEnv(t)
	path := writeFile(t, t.TempDir(), "config.yml", "api:\n  base_url: http://localhost:8080\n")

	cfg, err := LoadClient("worker", WithConfigFile(path), WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if cfg.Name != "worker" {
		t.Errorf("Name = %q, want the application name", cfg.Name)
	}
	if cfg.Environment != "development" || !cfg.Debug || cfg.Logging.Level != "debug" {
		t.Errorf("service defaults = %+v", cfg.ServiceConfig)
	}
	if cfg.Health.StaleAfter != health.DefaultStaleAfter {
		t.Errorf("health.stale_after = %v, want %v", cfg.Health.StaleAfter, health.DefaultStaleAfter)
	}
	if cfg.Health.Path != health.DefaultPath {
		t.Errorf("health.path = %q, want %q", cfg.Health.Path, health.DefaultPath)
	}
}

func TestLoadClient_EnvOverrides(t *testing.T) {
	neutralizeEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", clientYAML)
	envPath := writeFile(t, dir, ".env", "HEALTH_PATH=/from-dotenv\n")

	t.Setenv("API_BASE_URL", "https://override.example.com")
	t.Setenv("HEALTH_STALE_AFTER", "90s")
	// Registered for restore, then removed so the .env file can set it.
	t.Setenv("HEALTH_PATH", "")
	os.Unsetenv("HEALTH_PATH")

	cfg, err := LoadClient("billing-worker", WithConfigFile(path), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if cfg.API.BaseURL != "https://override.example.com" {
		t.Errorf("api.base_url = %q", cfg.API.BaseURL)
	}
	if cfg.Health.StaleAfter != 90*time.Second {
		t.Errorf("health.stale_after = %v, want 90s", cfg.Health.StaleAfter)
	}
	if cfg.Health.Path != "/from-dotenv" {
		t.Errorf("health.path = %q, want the .env value", cfg.Health.Path)
	}
}

func TestLoadClient_IgnoresUnrelatedEnv(t *testing.T) {
	neutralizeEnv(t)
	path := writeFile(t, t.TempDir(), "config.yml", clientYAML)

	t.Setenv("API_TIMEOUT_MS", "3000")
	t.Setenv("HEALTH_PATH_PREFIX", "/internal")
	t.Setenv("API", "legacy")
	t.Setenv("API_HEADERS_X_TRACE", "on")

	cfg, err := LoadClient("billing-worker", WithConfigFile(path), WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("api.timeout = %v, want 5s", cfg.API.Timeout)
	}
	if cfg.API.BaseURL != "https://billing.example.com" {
		t.Errorf("api.base_url = %q", cfg.API.BaseURL)
	}
	if cfg.Health.Path != "/status" {
		t.Errorf("health.path = %q, want /status", cfg.Health.Path)
	}
	if cfg.API.Headers["x_trace"] != "on" || cfg.API.Headers["x-tenant"] != "acme" {
		t.Errorf("api.headers = %v", cfg.API.Headers)
	}
}

func TestKeySet_Accepts(t *testing.T) {
	keys := keysOf(&ClientConfig{})

	tests := []struct {
		key  string
		want bool
	}{
		{"name", true},
		{"logging.level", true},
		{"api.base_url", true},
		{"api.timeout", true},
		{"api.tls.ca_file", true},
		{"health.stale_after", true},
		{"observability.sample_rate", true},
		{"api.headers.x_tenant", true},
		{"api", false},
		{"api.timeout.ms", false},
		{"api.headers", false},
		{"api.headers.x.tenant", false},
		{"service_config.name", false},
		{"path", false},
	}
	for _, tt := range tests {
		if got := keys.accepts(tt.key); got != tt.want {
			t.Errorf("accepts(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}

	var untyped *keySet
	if !untyped.accepts("anything.at.all") {
		t.Error("nil key set should accept every key")
	}
	if keysOf(map[string]any{}) != nil {
		t.Error("keysOf(map) should be nil")
	}
}

func TestLoadClient_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad environment", "name: x\nenvironment: qa\n", "config.environment"},
		{"bad base url", "name: x\napi:\n  base_url: not a url\n", "config.api"},
		{"bad health path", "name: x\nhealth:\n  path: status\n", "config.health"},
		{"bad sample rate", "name: x\nobservability:\n  sample_rate: 2\n", "config.observability"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			neutralizeEnv(t)
			path := writeFile(t, t.TempDir(), "config.yml", tt.yaml)
			_, err := LoadClient("x", WithConfigFile(path), WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "api: [unterminated\n")
	var cfg ClientConfig
	if err := LoadConfig("x", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected an error for a malformed config file")
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logging.ApplyDefaults()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

type fakeFS map[string]bool

func (f fakeFS) Exists(path string) bool   { return f[path] }
func (f fakeFS) LoadEnv(path string) error { return nil }

func TestResolver_ResolveFiles(t *testing.T) {
	tests := []struct {
		name       string
		fs         fakeFS
		opts       LoaderConfig
		wantConfig string
		wantEnv    string
	}{
		{
			name:       "cmd directory wins",
			fs:         fakeFS{"./cmd/worker/config.yml": true, "./config.yml": true, "./cmd/worker/.env": true},
			wantConfig: "./cmd/worker/config.yml",
			wantEnv:    "./cmd/worker/.env",
		},
		{
			name:       "named env file before plain",
			fs:         fakeFS{"./config/worker.yml": true, "./.env": true, "./.env.worker": true},
			wantConfig: "./config/worker.yml",
			wantEnv:    "./.env.worker",
		},
		{
			name:       "explicit paths",
			fs:         fakeFS{"./config.yml": true},
			opts:       LoaderConfig{ConfigFile: "/etc/worker.yml", EnvFile: "/etc/worker.env"},
			wantConfig: "/etc/worker.yml",
			wantEnv:    "/etc/worker.env",
		},
		{
			name: "nothing found",
			fs:   fakeFS{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{FileSystem: tt.fs}
			got := r.ResolveFiles("worker", tt.opts)
			if got.ConfigFile != tt.wantConfig || got.EnvFile != tt.wantEnv {
				t.Errorf("ResolveFiles() = %+v, want config %q env %q", got, tt.wantConfig, tt.wantEnv)
			}
		})
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"PORT", []string{"port"}},
		{"API_TIMEOUT", []string{"api_timeout", "api.timeout"}},
		{"API_BASE_URL", []string{"api_base_url", "api.base.url", "api.base_url"}},
		{"HEALTH_PROBE_TIMEOUT", []string{"health_probe_timeout", "health.probe.timeout", "health.probe_timeout"}},
	}
	for _, tt := range tests {
		if got := generateEnvKeyVariants(tt.key); !slices.Equal(got, tt.want) {
			t.Errorf("generateEnvKeyVariants(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
