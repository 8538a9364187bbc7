package compose

import (
	"strings"
	"time"
)

const (
	defaultImageConstant             = "cwrdd-app:local"
	defaultPostgresContainerConstant = "cwrdd-postgres"
	defaultReadinessAttemptsConstant = 30
	defaultReadinessIntervalConstant = 2 * time.Second
)

// Configuration captures the container settings used by up, down, and logs.
type Configuration struct {
	Image             string        `mapstructure:"image" yaml:"image"`
	PostgresContainer string        `mapstructure:"postgres_container" yaml:"postgres_container"`
	ReadinessAttempts int           `mapstructure:"readiness_attempts" yaml:"readiness_attempts"`
	ReadinessInterval time.Duration `mapstructure:"readiness_interval" yaml:"readiness_interval"`
}

// DefaultConfiguration provides baseline compose configuration values.
func DefaultConfiguration() Configuration {
	return Configuration{
		Image:             defaultImageConstant,
		PostgresContainer: defaultPostgresContainerConstant,
		ReadinessAttempts: defaultReadinessAttemptsConstant,
		ReadinessInterval: defaultReadinessIntervalConstant,
	}
}

// Sanitize trims names and restores defaults for unusable values.
// A zero interval is kept and retries readiness without pausing.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := Configuration{
		Image:             strings.TrimSpace(configuration.Image),
		PostgresContainer: strings.TrimSpace(configuration.PostgresContainer),
		ReadinessAttempts: configuration.ReadinessAttempts,
		ReadinessInterval: configuration.ReadinessInterval,
	}
	if len(sanitized.Image) == 0 {
		sanitized.Image = defaults.Image
	}
	if len(sanitized.PostgresContainer) == 0 {
		sanitized.PostgresContainer = defaults.PostgresContainer
	}
	if sanitized.ReadinessAttempts <= 0 {
		sanitized.ReadinessAttempts = defaults.ReadinessAttempts
	}
	if sanitized.ReadinessInterval < 0 {
		sanitized.ReadinessInterval = defaults.ReadinessInterval
	}
	return sanitized
}
