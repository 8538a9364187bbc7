package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorConstant           = "_"
	configurationKeySeparatorConstant         = "."
	embeddedConfigurationReadErrorTemplate    = "unable to read embedded configuration: %w"
	embeddedConfigurationMergeErrorTemplate   = "unable to merge embedded configuration: %w"
	configurationFileMergeErrorTemplate       = "unable to read configuration file %s: %w"
	configurationUnmarshalErrorTemplate       = "unable to decode configuration: %w"
	configurationSearchErrorTemplate          = "unable to inspect configuration candidate %s: %w"
	configurationTargetMissingMessageConstant = "configuration target not provided"
	homeDirectoryPrefixConstant               = "~"
	homeDirectoryPathPrefixConstant           = "~/"
	configurationSliceSeparatorConstant       = ","
)

// SupportedConfigurationExtensions lists the file extensions tried in each search path, in order.
var SupportedConfigurationExtensions = []string{"yaml", "yml", "json", "toml"}

// LoadedConfiguration reports metadata about a configuration load.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader layers built-in defaults, an embedded document, a configuration file, and
// environment variables, in increasing order of precedence.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	embeddedConfiguration     []byte
	embeddedConfigurationType string
	alternateFileNames        []string
	keyRelocations            map[string]string
}

// NewConfigurationLoader constructs a loader searching searchPaths for name.<extension>.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	copiedSearchPaths := make([]string, 0, len(searchPaths))
	copiedSearchPaths = append(copiedSearchPaths, searchPaths...)
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       copiedSearchPaths,
	}
}

// SetEmbeddedConfiguration registers a document merged above defaults and below files.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(data []byte, configurationType string) {
	loader.embeddedConfiguration = data
	loader.embeddedConfigurationType = configurationType
}

// SetAlternateFileNames registers complete file names tried in each search path after name.<extension>.
func (loader *ConfigurationLoader) SetAlternateFileNames(fileNames ...string) {
	loader.alternateFileNames = append([]string(nil), fileNames...)
}

// SetKeyRelocations moves top-level keys read from a configuration file onto dotted keys.
// A relocated value never replaces one the file already sets under the dotted key.
func (loader *ConfigurationLoader) SetKeyRelocations(relocations map[string]string) {
	loader.keyRelocations = make(map[string]string, len(relocations))
	for legacyKey, targetKey := range relocations {
		loader.keyRelocations[strings.ToLower(legacyKey)] = strings.ToLower(targetKey)
	}
}

// SearchPaths returns a copy of the configured search directories.
func (loader *ConfigurationLoader) SearchPaths() []string {
	copied := make([]string, len(loader.searchPaths))
	copy(copied, loader.searchPaths)
	return copied
}

// LoadConfiguration decodes the layered configuration into target. An explicit configurationFilePath
// bypasses the search paths and must exist.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	if target == nil {
		return LoadedConfiguration{}, errors.New(configurationTargetMissingMessageConstant)
	}

	viperInstance := viper.New()
	for key, value := range defaultValues {
		viperInstance.SetDefault(key, value)
	}

	if len(loader.embeddedConfiguration) > 0 {
		embeddedInstance := viper.New()
		embeddedInstance.SetConfigType(loader.resolveEmbeddedType())
		if readError := embeddedInstance.ReadConfig(bytes.NewReader(loader.embeddedConfiguration)); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationReadErrorTemplate, readError)
		}
		if mergeError := viperInstance.MergeConfigMap(embeddedInstance.AllSettings()); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationMergeErrorTemplate, mergeError)
		}
	}

	resolvedFilePath := strings.TrimSpace(configurationFilePath)
	if len(resolvedFilePath) == 0 {
		discoveredFilePath, discoveryError := loader.discoverConfigurationFile()
		if discoveryError != nil {
			return LoadedConfiguration{}, discoveryError
		}
		resolvedFilePath = discoveredFilePath
	}

	metadata := LoadedConfiguration{}
	if len(resolvedFilePath) > 0 {
		fileInstance := viper.New()
		fileInstance.SetConfigFile(resolvedFilePath)
		if !isSupportedExtension(filepath.Ext(resolvedFilePath)) {
			fileInstance.SetConfigType(loader.configurationType)
		}
		if readError := fileInstance.ReadInConfig(); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationFileMergeErrorTemplate, resolvedFilePath, readError)
		}
		fileSettings := fileInstance.AllSettings()
		loader.relocateKeys(fileSettings)
		if mergeError := viperInstance.MergeConfigMap(fileSettings); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationFileMergeErrorTemplate, resolvedFilePath, mergeError)
		}
		metadata.ConfigFileUsed = fileInstance.ConfigFileUsed()
	}

	if len(loader.environmentPrefix) > 0 {
		viperInstance.SetEnvPrefix(loader.environmentPrefix)
	}
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
	viperInstance.AutomaticEnv()

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(configurationSliceSeparatorConstant),
	))
	if unmarshalError := viperInstance.Unmarshal(target, decodeHook); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplate, unmarshalError)
	}

	return metadata, nil
}

func (loader *ConfigurationLoader) discoverConfigurationFile() (string, error) {
	for _, searchPath := range loader.searchPaths {
		trimmedSearchPath := strings.TrimSpace(searchPath)
		if len(trimmedSearchPath) == 0 {
			continue
		}
		for _, candidateName := range loader.candidateFileNames() {
			candidatePath := filepath.Join(trimmedSearchPath, candidateName)
			fileInfo, statError := os.Stat(candidatePath)
			if statError == nil {
				if fileInfo.IsDir() {
					continue
				}
				if absolutePath, absoluteError := filepath.Abs(candidatePath); absoluteError == nil {
					return absolutePath, nil
				}
				return candidatePath, nil
			}
			if errors.Is(statError, fs.ErrNotExist) || errors.Is(statError, fs.ErrPermission) {
				continue
			}
			return "", fmt.Errorf(configurationSearchErrorTemplate, candidatePath, statError)
		}
	}
	return "", nil
}

func (loader *ConfigurationLoader) candidateFileNames() []string {
	candidateNames := make([]string, 0, len(SupportedConfigurationExtensions)+len(loader.alternateFileNames))
	for _, extension := range SupportedConfigurationExtensions {
		candidateNames = append(candidateNames, loader.configurationName+configurationKeySeparatorConstant+extension)
	}
	for _, alternateFileName := range loader.alternateFileNames {
		if trimmedName := strings.TrimSpace(alternateFileName); len(trimmedName) > 0 {
			candidateNames = append(candidateNames, trimmedName)
		}
	}
	return candidateNames
}

func (loader *ConfigurationLoader) relocateKeys(settings map[string]any) {
	for legacyKey, targetKey := range loader.keyRelocations {
		value, found := settings[legacyKey]
		if !found {
			continue
		}
		delete(settings, legacyKey)
		placeSetting(settings, strings.Split(targetKey, configurationKeySeparatorConstant), value)
	}
}

func placeSetting(settings map[string]any, keyPath []string, value any) {
	if len(keyPath) == 1 {
		if _, exists := settings[keyPath[0]]; !exists {
			settings[keyPath[0]] = value
		}
		return
	}
	child, isSection := settings[keyPath[0]].(map[string]any)
	if !isSection {
		if _, exists := settings[keyPath[0]]; exists {
			return
		}
		child = map[string]any{}
		settings[keyPath[0]] = child
	}
	placeSetting(child, keyPath[1:], value)
}

func (loader *ConfigurationLoader) resolveEmbeddedType() string {
	if len(strings.TrimSpace(loader.embeddedConfigurationType)) > 0 {
		return loader.embeddedConfigurationType
	}
	return loader.configurationType
}

func isSupportedExtension(extension string) bool {
	trimmedExtension := strings.TrimPrefix(strings.ToLower(extension), configurationKeySeparatorConstant)
	for _, supported := range SupportedConfigurationExtensions {
		if trimmedExtension == supported {
			return true
		}
	}
	return false
}

// ExpandHomeDirectory replaces a leading "~" or "~/" with the current user's home directory.
func ExpandHomeDirectory(path string) (string, error) {
	if path != homeDirectoryPrefixConstant && !strings.HasPrefix(path, homeDirectoryPathPrefixConstant) {
		return path, nil
	}
	homeDirectory, homeDirectoryError := os.UserHomeDir()
	if homeDirectoryError != nil {
		return "", homeDirectoryError
	}
	if path == homeDirectoryPrefixConstant {
		return homeDirectory, nil
	}
	return filepath.Join(homeDirectory, strings.TrimPrefix(path, homeDirectoryPathPrefixConstant)), nil
}
