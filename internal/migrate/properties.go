package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/magiconair/properties"
)

const (
	propertyURLKeyConstant              = "url"
	propertyUsernameKeyConstant         = "username"
	propertyPasswordKeyConstant         = "password"
	propertyNotFoundMessageConstant     = "property not found"
	propertyNotFoundTemplateConstant    = "%w: %q"
	propertiesReadErrorTemplateConstant = "unable to read %s: %w"
	databaseNameMissingMessageConstant  = "database name missing from JDBC URL"
	databaseNameMissingTemplateConstant = "%w: %s"
	urlPathSeparatorConstant            = "/"
	urlQuerySeparatorConstant           = "?"
)

var (
	// ErrPropertyNotFound indicates a required key is absent from liquibase.properties.
	ErrPropertyNotFound = errors.New(propertyNotFoundMessageConstant)
	// ErrDatabaseNameMissing indicates the JDBC URL does not end in a database name.
	ErrDatabaseNameMissing = errors.New(databaseNameMissingMessageConstant)
)

// Properties is a parsed Java properties document.
type Properties struct {
	document *properties.Properties
}

// LoadProperties reads a UTF-8 properties file. ${key} references are left unexpanded, and a repeated key keeps its last value.
func LoadProperties(path string) (Properties, error) {
	loader := properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	document, loadError := loader.LoadFile(path)
	if loadError != nil {
		return Properties{}, loadError
	}
	return Properties{document: document}, nil
}

// Value returns the property or an error wrapping ErrPropertyNotFound.
func (parsed Properties) Value(key string) (string, error) {
	if parsed.document != nil {
		if value, exists := parsed.document.Get(key); exists {
			return value, nil
		}
	}
	return "", fmt.Errorf(propertyNotFoundTemplateConstant, ErrPropertyNotFound, key)
}

// Len reports the number of distinct keys.
func (parsed Properties) Len() int {
	if parsed.document == nil {
		return 0
	}
	return parsed.document.Len()
}

// ConnectionProperties are the Liquibase connection settings reused for psql.
type ConnectionProperties struct {
	URL          string
	Username     string
	Password     string
	DatabaseName string
}

// ReadConnectionProperties loads url, username, and password from a liquibase.properties file.
func ReadConnectionProperties(path string) (ConnectionProperties, error) {
	connectionSettings, loadError := LoadProperties(path)
	if loadError != nil {
		return ConnectionProperties{}, fmt.Errorf(propertiesReadErrorTemplateConstant, path, loadError)
	}

	connection := ConnectionProperties{}
	for _, field := range []struct {
		key    string
		target *string
	}{
		{key: propertyURLKeyConstant, target: &connection.URL},
		{key: propertyUsernameKeyConstant, target: &connection.Username},
		{key: propertyPasswordKeyConstant, target: &connection.Password},
	} {
		value, valueError := connectionSettings.Value(field.key)
		if valueError != nil {
			return ConnectionProperties{}, fmt.Errorf(propertiesReadErrorTemplateConstant, path, valueError)
		}
		*field.target = value
	}

	databaseName, nameError := DatabaseNameFromJDBCURL(connection.URL)
	if nameError != nil {
		return ConnectionProperties{}, fmt.Errorf(propertiesReadErrorTemplateConstant, path, nameError)
	}
	connection.DatabaseName = databaseName
	return connection, nil
}

// DatabaseNameFromJDBCURL returns the last path segment of the URL with any query string removed.
func DatabaseNameFromJDBCURL(jdbcURL string) (string, error) {
	segments := strings.Split(jdbcURL, urlPathSeparatorConstant)
	lastSegment := segments[len(segments)-1]
	databaseName, _, _ := strings.Cut(lastSegment, urlQuerySeparatorConstant)
	if len(strings.TrimSpace(databaseName)) == 0 {
		return "", fmt.Errorf(databaseNameMissingTemplateConstant, ErrDatabaseNameMissing, jdbcURL)
	}
	return databaseName, nil
}
