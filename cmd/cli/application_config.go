package cli

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwrdd/cwrdd-make/internal/compose"
	"github.com/cwrdd/cwrdd-make/internal/migrate"
	"github.com/cwrdd/cwrdd-make/internal/utils"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

//go:embed default_config.yaml
var embeddedDefaultConfiguration []byte

// EmbeddedDefaultConfiguration returns the configuration document compiled into the binary and its type.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	copied := make([]byte, len(embeddedDefaultConfiguration))
	copy(copied, embeddedDefaultConfiguration)
	return copied, configurationTypeConstant
}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common    ApplicationCommonConfiguration `mapstructure:"common" yaml:"common"`
	Workspace workspace.Configuration        `mapstructure:"workspace" yaml:"workspace"`
	Compose   compose.Configuration          `mapstructure:"compose" yaml:"compose"`
	Database  migrate.DatabaseConfiguration  `mapstructure:"database" yaml:"database"`
}

// ApplicationCommonConfiguration stores logging defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Sanitize restores defaults for every section left empty.
func (configuration ApplicationConfiguration) Sanitize() ApplicationConfiguration {
	sanitized := configuration
	sanitized.Common.LogLevel = strings.TrimSpace(configuration.Common.LogLevel)
	if len(sanitized.Common.LogLevel) == 0 {
		sanitized.Common.LogLevel = string(utils.LogLevelError)
	}
	sanitized.Common.LogFormat = strings.TrimSpace(configuration.Common.LogFormat)
	if len(sanitized.Common.LogFormat) == 0 {
		sanitized.Common.LogFormat = string(utils.LogFormatConsole)
	}
	sanitized.Workspace = configuration.Workspace.Sanitize()
	sanitized.Compose = configuration.Compose.Sanitize()
	sanitized.Database = configuration.Database.Sanitize()
	return sanitized
}

type composeDocument struct {
	Image             string `yaml:"image"`
	PostgresContainer string `yaml:"postgres_container"`
	ReadinessAttempts int    `yaml:"readiness_attempts"`
	ReadinessInterval string `yaml:"readiness_interval"`
}

type configurationDocument struct {
	Common    ApplicationCommonConfiguration `yaml:"common"`
	Workspace workspace.Configuration        `yaml:"workspace"`
	Compose   composeDocument                `yaml:"compose"`
	Database  migrate.DatabaseConfiguration  `yaml:"database"`
}

// RenderConfiguration encodes the configuration as YAML with durations in their string form.
func RenderConfiguration(configuration ApplicationConfiguration) ([]byte, error) {
	document := configurationDocument{
		Common:    configuration.Common,
		Workspace: configuration.Workspace,
		Compose: composeDocument{
			Image:             configuration.Compose.Image,
			PostgresContainer: configuration.Compose.PostgresContainer,
			ReadinessAttempts: configuration.Compose.ReadinessAttempts,
			ReadinessInterval: configuration.Compose.ReadinessInterval.String(),
		},
		Database: configuration.Database,
	}
	rendered, marshalError := yaml.Marshal(document)
	if marshalError != nil {
		return nil, fmt.Errorf(configurationRenderErrorTemplateConstant, marshalError)
	}
	return rendered, nil
}

type configurationInitializationPlan struct {
	DirectoryPath string
	FilePath      string
}

func (application *Application) resolveConfigurationInitializationPlan(initializationScope string) (configurationInitializationPlan, error) {
	normalizedScope := strings.ToLower(strings.TrimSpace(initializationScope))
	switch normalizedScope {
	case "", configurationInitializationScopeLocalConstant:
		workingDirectoryPath, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return configurationInitializationPlan{}, fmt.Errorf(configurationInitializationWorkingDirectoryErrorTemplateConstant, workingDirectoryError)
		}

		trimmedWorkingDirectoryPath := strings.TrimSpace(workingDirectoryPath)
		if len(trimmedWorkingDirectoryPath) == 0 {
			return configurationInitializationPlan{}, fmt.Errorf(
				configurationInitializationWorkingDirectoryErrorTemplateConstant,
				errors.New(configurationInitializationWorkingDirectoryEmptyErrorConstant),
			)
		}

		return configurationInitializationPlan{
			DirectoryPath: trimmedWorkingDirectoryPath,
			FilePath:      filepath.Join(trimmedWorkingDirectoryPath, configurationFileNameConstant),
		}, nil
	case configurationInitializationScopeUserConstant:
		configurationDirectoryPath, directoryError := application.resolveUserConfigurationDirectory()
		if directoryError != nil {
			return configurationInitializationPlan{}, directoryError
		}

		return configurationInitializationPlan{
			DirectoryPath: configurationDirectoryPath,
			FilePath:      filepath.Join(configurationDirectoryPath, configurationFileNameConstant),
		}, nil
	default:
		return configurationInitializationPlan{}, fmt.Errorf(configurationInitializationUnsupportedScopeTemplateConstant, strings.TrimSpace(initializationScope))
	}
}

// resolveUserConfigurationDirectory prefers $XDG_CONFIG_HOME/cwrdd-make and falls back to $HOME/.cwrdd-make.
func (application *Application) resolveUserConfigurationDirectory() (string, error) {
	xdgConfigHome := strings.TrimSpace(os.Getenv(xdgConfigHomeEnvironmentVariableConstant))
	if len(xdgConfigHome) > 0 {
		return filepath.Join(xdgConfigHome, applicationNameConstant), nil
	}

	userHomeDirectoryPath, userHomeDirectoryError := os.UserHomeDir()
	if userHomeDirectoryError != nil {
		return "", fmt.Errorf(configurationInitializationHomeDirectoryErrorTemplateConstant, userHomeDirectoryError)
	}

	trimmedHomeDirectoryPath := strings.TrimSpace(userHomeDirectoryPath)
	if len(trimmedHomeDirectoryPath) == 0 {
		return "", fmt.Errorf(
			configurationInitializationHomeDirectoryErrorTemplateConstant,
			errors.New(configurationInitializationHomeDirectoryEmptyErrorConstant),
		)
	}

	return filepath.Join(trimmedHomeDirectoryPath, userConfigurationDirectoryNameConstant), nil
}

func writeConfigurationFile(initializationPlan configurationInitializationPlan, configurationContent []byte, force bool) error {
	if len(configurationContent) == 0 {
		return errors.New(configurationInitializationContentUnavailableErrorConstant)
	}

	var parsed ApplicationConfiguration
	if parseError := yaml.Unmarshal(configurationContent, &parsed); parseError != nil {
		return fmt.Errorf(configurationInitializationInvalidContentTemplateConstant, parseError)
	}

	directoryPath := strings.TrimSpace(initializationPlan.DirectoryPath)
	if len(directoryPath) == 0 {
		return fmt.Errorf(
			configurationInitializationDirectoryErrorTemplateConstant,
			initializationPlan.DirectoryPath,
			errors.New(configurationInitializationWorkingDirectoryEmptyErrorConstant),
		)
	}

	directoryInfo, directoryStatError := os.Stat(directoryPath)
	switch {
	case directoryStatError == nil:
		if !directoryInfo.IsDir() {
			return fmt.Errorf(configurationInitializationDirectoryConflictTemplateConstant, directoryPath)
		}
	case errors.Is(directoryStatError, os.ErrNotExist):
		if createError := os.MkdirAll(directoryPath, configurationDirectoryPermissionConstant); createError != nil {
			return fmt.Errorf(configurationInitializationDirectoryErrorTemplateConstant, directoryPath, createError)
		}
	default:
		return fmt.Errorf(configurationInitializationDirectoryErrorTemplateConstant, directoryPath, directoryStatError)
	}

	fileInfo, fileStatError := os.Stat(initializationPlan.FilePath)
	switch {
	case fileStatError == nil:
		if fileInfo.IsDir() {
			return fmt.Errorf(configurationInitializationExistingDirectoryTemplateConstant, initializationPlan.FilePath)
		}
		if !force {
			return fmt.Errorf(configurationInitializationExistingFileTemplateConstant, initializationPlan.FilePath)
		}
	case errors.Is(fileStatError, os.ErrNotExist):
	default:
		return fmt.Errorf(configurationInitializationWriteErrorTemplateConstant, initializationPlan.FilePath, fileStatError)
	}

	if writeError := os.WriteFile(initializationPlan.FilePath, configurationContent, configurationFilePermissionConstant); writeError != nil {
		return fmt.Errorf(configurationInitializationWriteErrorTemplateConstant, initializationPlan.FilePath, writeError)
	}

	return nil
}
