package config

import (
	"errors"
	"strings"
	"time"
)

// PortalConfig contains everything needed to reach and authenticate
// against the customer portal.
type PortalConfig struct {
	// BaseURL is the root URL of the portal.
	BaseURL string `env:"PORTAL_BASE_URL" envDefault:"https://placeholder-portal.example.com"`

	// Username and Password are the portal login credentials.
	Username string `env:"PORTAL_USERNAME"`
	Password string `env:"PORTAL_PASSWORD"`

	// AuthStateFile holds the persisted browser storage state between runs.
	// Delete the file to force a fresh login.
	AuthStateFile string `env:"PORTAL_AUTH_STATE_FILE" envDefault:"auth.json"`

	// Headless controls browser visibility. The --headed CLI flag flips this off.
	Headless bool `env:"PORTAL_HEADLESS" envDefault:"true"`

	// LoginTimeout bounds the login form flow.
	LoginTimeout time.Duration `env:"PORTAL_LOGIN_TIMEOUT" envDefault:"15s"`

	// SubmitTimeout bounds a single invoice submission attempt.
	SubmitTimeout time.Duration `env:"PORTAL_SUBMIT_TIMEOUT" envDefault:"30s"`
}

// Sanitize normalises portal configuration values.
func (c *PortalConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.AuthStateFile = strings.TrimSpace(c.AuthStateFile)
	if c.AuthStateFile == "" {
		c.AuthStateFile = "auth.json"
	}
	if c.LoginTimeout <= 0 {
		c.LoginTimeout = 15 * time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 30 * time.Second
	}
}

// ValidateCredentials checks that both credential values are present.
// Called before any login attempt so a misconfigured run fails at startup.
func (c *PortalConfig) ValidateCredentials() error {
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
		return errors.New("missing portal credentials: set PORTAL_USERNAME and PORTAL_PASSWORD")
	}
	return nil
}
