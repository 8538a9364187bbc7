package migrate

import (
	"fmt"
	"strings"
)

const (
	jdbcURLTemplateConstant         = "jdbc:postgresql://%s:%d/%s"
	defaultDatabaseHostConstant     = "localhost"
	defaultDatabasePortConstant     = 5432
	defaultDatabaseNameConstant     = "cwrdd_dev"
	defaultDatabaseUserConstant     = "cwrdd_user"
	defaultDatabasePasswordConstant = "cwrdd_password"
)

// DatabaseConfiguration describes the development PostgreSQL instance started by compose.
type DatabaseConfiguration struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Name     string `mapstructure:"name" yaml:"name"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
}

// DefaultDatabaseConfiguration provides the credentials baked into the compose file.
func DefaultDatabaseConfiguration() DatabaseConfiguration {
	return DatabaseConfiguration{
		Host:     defaultDatabaseHostConstant,
		Port:     defaultDatabasePortConstant,
		Name:     defaultDatabaseNameConstant,
		User:     defaultDatabaseUserConstant,
		Password: defaultDatabasePasswordConstant,
	}
}

// Sanitize trims values and restores defaults for empty connection fields and a non-positive port.
// The password is kept verbatim, including empty.
func (configuration DatabaseConfiguration) Sanitize() DatabaseConfiguration {
	defaults := DefaultDatabaseConfiguration()
	sanitized := DatabaseConfiguration{
		Host:     strings.TrimSpace(configuration.Host),
		Port:     configuration.Port,
		Name:     strings.TrimSpace(configuration.Name),
		User:     strings.TrimSpace(configuration.User),
		Password: configuration.Password,
	}
	if len(sanitized.Host) == 0 {
		sanitized.Host = defaults.Host
	}
	if sanitized.Port <= 0 {
		sanitized.Port = defaults.Port
	}
	if len(sanitized.Name) == 0 {
		sanitized.Name = defaults.Name
	}
	if len(sanitized.User) == 0 {
		sanitized.User = defaults.User
	}
	return sanitized
}

// JDBCURL renders the PostgreSQL JDBC connection string.
func (configuration DatabaseConfiguration) JDBCURL() string {
	return fmt.Sprintf(jdbcURLTemplateConstant, configuration.Host, configuration.Port, configuration.Name)
}
