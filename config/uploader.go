package config

import (
	"strings"
	"time"
)

// UploaderConfig contains worker pool and retry configuration for the
// upload pipeline.
type UploaderConfig struct {
	// Concurrency is the maximum number of rows uploading at once.
	// The --concurrency CLI flag overrides this.
	Concurrency int `env:"UPLOADER_CONCURRENCY" envDefault:"4"`

	// MaxAttempts is the total number of attempts for a row whose
	// submission keeps failing transiently. The first attempt counts.
	MaxAttempts int `env:"UPLOADER_MAX_ATTEMPTS" envDefault:"3"`

	// RetryBaseDelay is the backoff before the first retry; it doubles
	// per attempt up to RetryMaxDelay.
	RetryBaseDelay time.Duration `env:"UPLOADER_RETRY_BASE_DELAY" envDefault:"500ms"`

	// RetryMaxDelay caps the exponential backoff.
	RetryMaxDelay time.Duration `env:"UPLOADER_RETRY_MAX_DELAY" envDefault:"8s"`

	// ReportDir is where run-<timestamp>.csv report files are written.
	ReportDir string `env:"UPLOADER_REPORT_DIR" envDefault:"."`
}

// Sanitize applies guardrails to uploader configuration values.
func (c *UploaderConfig) Sanitize() {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		c.RetryMaxDelay = c.RetryBaseDelay
	}
	c.ReportDir = strings.TrimSpace(c.ReportDir)
	if c.ReportDir == "" {
		c.ReportDir = "."
	}
}
