package workspace

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/cwrdd/cwrdd-make/internal/utils"
)

const (
	applicationDirectoryNameConstant     = "app"
	databaseDirectoryNameConstant        = "db"
	schemaDirectoryNameConstant          = "schema"
	migrationsDirectoryNameConstant      = "migrations"
	scriptsDirectoryNameConstant         = "scripts"
	seedScriptFileNameConstant           = "seed-dev-data.sql"
	liquibasePropertiesFileNameConstant  = "liquibase.properties"
	configurationDirectoryNameConstant   = "config"
	certificatesDirectoryNameConstant    = "certs"
	certificateFileNameConstant          = "cert.pem"
	privateKeyFileNameConstant           = "key.pem"
	repositoryRootMissingMessageConstant = "workspace repository path not configured"
)

// ErrRepositoryRootMissing indicates the layout was requested without a repository path.
var ErrRepositoryRootMissing = errors.New(repositoryRootMissingMessageConstant)

// Layout derives the well-known cwrdd directories from the repository root.
type Layout struct {
	root string
}

// NewLayout expands a leading "~" and resolves the repository root to an absolute path.
func NewLayout(repositoryPath string) (Layout, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return Layout{}, ErrRepositoryRootMissing
	}
	expandedPath, expandError := utils.ExpandHomeDirectory(trimmedPath)
	if expandError != nil {
		return Layout{}, expandError
	}
	absolutePath, absoluteError := filepath.Abs(expandedPath)
	if absoluteError != nil {
		return Layout{}, absoluteError
	}
	return Layout{root: absolutePath}, nil
}

// Root returns the repository root.
func (layout Layout) Root() string {
	return layout.root
}

// ApplicationDirectory returns <root>/app.
func (layout Layout) ApplicationDirectory() string {
	return filepath.Join(layout.root, applicationDirectoryNameConstant)
}

// DatabaseDirectory returns <root>/db, the working directory for Liquibase.
func (layout Layout) DatabaseDirectory() string {
	return filepath.Join(layout.root, databaseDirectoryNameConstant)
}

// SchemaDirectory returns <root>/db/schema.
func (layout Layout) SchemaDirectory() string {
	return filepath.Join(layout.DatabaseDirectory(), schemaDirectoryNameConstant)
}

// MigrationsDirectory returns <root>/db/migrations.
func (layout Layout) MigrationsDirectory() string {
	return filepath.Join(layout.DatabaseDirectory(), migrationsDirectoryNameConstant)
}

// SeedScriptPath returns <root>/db/scripts/seed-dev-data.sql.
func (layout Layout) SeedScriptPath() string {
	return filepath.Join(layout.DatabaseDirectory(), scriptsDirectoryNameConstant, seedScriptFileNameConstant)
}

// LiquibasePropertiesPath returns <root>/db/liquibase.properties.
func (layout Layout) LiquibasePropertiesPath() string {
	return filepath.Join(layout.DatabaseDirectory(), liquibasePropertiesFileNameConstant)
}

// CertificatesDirectory returns <root>/config/certs.
func (layout Layout) CertificatesDirectory() string {
	return filepath.Join(layout.root, configurationDirectoryNameConstant, certificatesDirectoryNameConstant)
}

// CertificatePath returns the self-signed certificate path.
func (layout Layout) CertificatePath() string {
	return filepath.Join(layout.CertificatesDirectory(), certificateFileNameConstant)
}

// PrivateKeyPath returns the self-signed certificate key path.
func (layout Layout) PrivateKeyPath() string {
	return filepath.Join(layout.CertificatesDirectory(), privateKeyFileNameConstant)
}
