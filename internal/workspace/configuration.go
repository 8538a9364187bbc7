package workspace

import "strings"

// DefaultRepositoryPathConstant is the checkout location assumed when nothing is configured.
const DefaultRepositoryPathConstant = "~/Projects/cwrdd"

// Configuration captures the repository location consumed by every workflow command.
type Configuration struct {
	RepositoryPath string `mapstructure:"repo_path" yaml:"repo_path"`
}

// DefaultConfiguration provides baseline workspace configuration values.
func DefaultConfiguration() Configuration {
	return Configuration{RepositoryPath: DefaultRepositoryPathConstant}
}

// Sanitize trims configuration values and restores the default repository path when empty.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.RepositoryPath = strings.TrimSpace(configuration.RepositoryPath)
	if len(sanitized.RepositoryPath) == 0 {
		sanitized.RepositoryPath = DefaultRepositoryPathConstant
	}
	return sanitized
}

// Layout resolves the configured repository path into a Layout.
func (configuration Configuration) Layout() (Layout, error) {
	return NewLayout(configuration.Sanitize().RepositoryPath)
}
