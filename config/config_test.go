package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestUploaderConfigSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    UploaderConfig
		expected UploaderConfig
	}{
		{
			name: "zero values get defaults",
			input: UploaderConfig{
				Concurrency: 0,
				MaxAttempts: 0,
			},
			expected: UploaderConfig{
				Concurrency:    1,
				MaxAttempts:    1,
				RetryBaseDelay: 500 * time.Millisecond,
				RetryMaxDelay:  500 * time.Millisecond,
				ReportDir:      ".",
			},
		},
		{
			name: "negative concurrency clamped to one",
			input: UploaderConfig{
				Concurrency:    -3,
				MaxAttempts:    3,
				RetryBaseDelay: time.Second,
				RetryMaxDelay:  8 * time.Second,
				ReportDir:      "out",
			},
			expected: UploaderConfig{
				Concurrency:    1,
				MaxAttempts:    3,
				RetryBaseDelay: time.Second,
				RetryMaxDelay:  8 * time.Second,
				ReportDir:      "out",
			},
		},
		{
			name: "max delay raised to base delay",
			input: UploaderConfig{
				Concurrency:    4,
				MaxAttempts:    3,
				RetryBaseDelay: 2 * time.Second,
				RetryMaxDelay:  time.Second,
				ReportDir:      ".",
			},
			expected: UploaderConfig{
				Concurrency:    4,
				MaxAttempts:    3,
				RetryBaseDelay: 2 * time.Second,
				RetryMaxDelay:  2 * time.Second,
				ReportDir:      ".",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			cfg.Sanitize()
			if cfg != tt.expected {
				t.Errorf("Sanitize() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestPortalConfigSanitize(t *testing.T) {
	cfg := PortalConfig{
		BaseURL:       " https://portal.example.com/ ",
		AuthStateFile: "  ",
	}
	cfg.Sanitize()

	if cfg.BaseURL != "https://portal.example.com" {
		t.Errorf("BaseURL = %q, want trimmed URL without trailing slash", cfg.BaseURL)
	}
	if cfg.AuthStateFile != "auth.json" {
		t.Errorf("AuthStateFile = %q, want default auth.json", cfg.AuthStateFile)
	}
	if cfg.LoginTimeout != 15*time.Second {
		t.Errorf("LoginTimeout = %v, want 15s default", cfg.LoginTimeout)
	}
	if cfg.SubmitTimeout != 30*time.Second {
		t.Errorf("SubmitTimeout = %v, want 30s default", cfg.SubmitTimeout)
	}
}

func TestPortalConfigValidateCredentials(t *testing.T) {
	cfg := PortalConfig{Username: "user", Password: "pass"}
	if err := cfg.ValidateCredentials(); err != nil {
		t.Errorf("ValidateCredentials() with both set = %v, want nil", err)
	}

	cfg.Password = ""
	if err := cfg.ValidateCredentials(); err == nil {
		t.Error("ValidateCredentials() with missing password = nil, want error")
	}
}

func TestObservabilityMetricsSanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "   "}
	cfg.Sanitize()
	if cfg.IsEnabled() {
		t.Error("IsEnabled() = true with empty address, want false")
	}
	if cfg.StatsdPrefix != defaultMetricsPrefix {
		t.Errorf("StatsdPrefix = %q, want default", cfg.StatsdPrefix)
	}
}

func TestAppConfigEnvDefaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("env.Parse() error = %v", err)
	}
	cfg.Sanitize()

	if cfg.Uploader.Concurrency != 4 {
		t.Errorf("default Concurrency = %d, want 4", cfg.Uploader.Concurrency)
	}
	if cfg.Uploader.MaxAttempts != 3 {
		t.Errorf("default MaxAttempts = %d, want 3", cfg.Uploader.MaxAttempts)
	}
	if !cfg.Portal.Headless {
		t.Error("default Headless = false, want true")
	}
}

func TestAppConfigEnvOverrides(t *testing.T) {
	t.Setenv("UPLOADER_CONCURRENCY", "8")
	t.Setenv("UPLOADER_RETRY_BASE_DELAY", "250ms")
	t.Setenv("PORTAL_BASE_URL", "https://qa-portal.example.com/")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("env.Parse() error = %v", err)
	}
	cfg.Sanitize()

	if cfg.Uploader.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Uploader.Concurrency)
	}
	if cfg.Uploader.RetryBaseDelay != 250*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 250ms", cfg.Uploader.RetryBaseDelay)
	}
	if cfg.Portal.BaseURL != "https://qa-portal.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash stripped", cfg.Portal.BaseURL)
	}
}
