package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - portal.go: Portal endpoint and credential configuration
//   - uploader.go: Worker pool and retry configuration
//   - observability.go: Metrics configuration
type AppConfig struct {
	// Portal endpoint, credentials, and browser settings.
	Portal PortalConfig

	// Upload pipeline settings (concurrency, retries, report output).
	Uploader UploaderConfig

	// Metrics emission settings.
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Portal.Sanitize()
	c.Uploader.Sanitize()
	c.Observability.Sanitize()
}
