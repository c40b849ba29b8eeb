// Package passkey implements the WebAuthn registration and authentication
// ceremonies for voters.
package passkey

import (
	"net/url"
	"strings"
	"time"

	"github.com/aptsaicuf/election-service/internal/platform/config"
)

const (
	defaultSiteURL       = "http://localhost:8080"
	defaultRPDisplayName = "Election Service"

	minChallengeTTL = time.Minute
	maxChallengeTTL = 5 * time.Minute
)

// Config controls WebAuthn relying party settings.
//
// RPID and RPOrigins default from SiteURL so a single-origin deployment only
// sets ELECTION_SITE_URL; the explicit overrides exist for multi-origin
// deployments.
type Config struct {
	SiteURL       string        `env:"ELECTION_SITE_URL"                  envDefault:"http://localhost:8080"`
	RPDisplayName string        `env:"ELECTION_WEBAUTHN_RP_DISPLAY_NAME"`
	RPID          string        `env:"ELECTION_WEBAUTHN_RP_ID"`
	RPOrigins     []string      `env:"ELECTION_WEBAUTHN_RP_ORIGINS"       envSeparator:","`
	ChallengeTTL  time.Duration `env:"ELECTION_WEBAUTHN_CHALLENGE_TTL"    envDefault:"2m"`
}

// LoadConfigFromEnv returns passkey configuration with defaults.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		cfg = Config{SiteURL: defaultSiteURL, ChallengeTTL: 2 * time.Minute}
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.SiteURL) == "" {
		c.SiteURL = defaultSiteURL
	}
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	if c.RPDisplayName == "" {
		c.RPDisplayName = defaultRPDisplayName
	}
	if c.RPID == "" {
		if parsed, err := url.Parse(c.SiteURL); err == nil && parsed.Hostname() != "" {
			c.RPID = parsed.Hostname()
		} else {
			c.RPID = "localhost"
		}
	}
	if len(c.RPOrigins) == 0 {
		c.RPOrigins = []string{c.SiteURL}
	}
	// Challenges must outlive a slow authenticator prompt but stay short
	// enough that a leaked challenge is useless.
	if c.ChallengeTTL < minChallengeTTL {
		c.ChallengeTTL = minChallengeTTL
	}
	if c.ChallengeTTL > maxChallengeTTL {
		c.ChallengeTTL = maxChallengeTTL
	}
}
