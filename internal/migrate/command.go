package migrate

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

type commandDefinition struct {
	use              string
	shortDescription string
	longDescription  string
	run              func(*Service, context.Context) error
}

var (
	diffCommandDefinition = commandDefinition{
		use:              "migrate-diff",
		shortDescription: "Generate migration from schema diff",
		longDescription:  "migrate-diff compares the reference database with db/schema/*.sql and writes a timestamped Liquibase changeset under db/migrations.",
		run:              (*Service).Diff,
	}
	applyCommandDefinition = commandDefinition{
		use:              "migrate",
		shortDescription: "Apply pending migrations",
		longDescription:  "migrate runs liquibase update in the db directory.",
		run:              (*Service).Apply,
	}
	statusCommandDefinition = commandDefinition{
		use:              "migrate-status",
		shortDescription: "Show migration status",
		longDescription:  "migrate-status runs liquibase status --verbose in the db directory.",
		run:              (*Service).Status,
	}
	rollbackCommandDefinition = commandDefinition{
		use:              "rollback",
		shortDescription: "Rollback last migration",
		longDescription:  "rollback reverts the most recently applied changeset with liquibase rollbackCount 1.",
		run:              (*Service).Rollback,
	}
	seedCommandDefinition = commandDefinition{
		use:              "seed",
		shortDescription: "Seed database with development data",
		longDescription:  "seed loads db/scripts/seed-dev-data.sql with psql using the connection settings from db/liquibase.properties.",
		run:              (*Service).Seed,
	}
)

// CommandBuilder assembles the migration Cobra commands.
type CommandBuilder struct {
	workspace.CommandDependencies
	DatabaseConfigurationProvider func() DatabaseConfiguration
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	return builder.build(applyCommandDefinition), nil
}

// BuildDiff constructs the migrate-diff command.
func (builder *CommandBuilder) BuildDiff() (*cobra.Command, error) {
	return builder.build(diffCommandDefinition), nil
}

// BuildStatus constructs the migrate-status command.
func (builder *CommandBuilder) BuildStatus() (*cobra.Command, error) {
	return builder.build(statusCommandDefinition), nil
}

// BuildRollback constructs the rollback command.
func (builder *CommandBuilder) BuildRollback() (*cobra.Command, error) {
	return builder.build(rollbackCommandDefinition), nil
}

// BuildSeed constructs the seed command.
func (builder *CommandBuilder) BuildSeed() (*cobra.Command, error) {
	return builder.build(seedCommandDefinition), nil
}

// NewService resolves dependencies for command and constructs a migration Service.
func (builder *CommandBuilder) NewService(command *cobra.Command) (*Service, error) {
	resolved, resolveError := builder.Resolve(command)
	if resolveError != nil {
		return nil, resolveError
	}
	database := DefaultDatabaseConfiguration()
	if builder.DatabaseConfigurationProvider != nil {
		database = builder.DatabaseConfigurationProvider()
	}
	return NewService(Dependencies{
		Layout:             resolved.Layout,
		Database:           database,
		TaskExecutor:       resolved.TaskExecutor,
		InspectionExecutor: resolved.InspectionExecutor,
		ToolLocator:        resolved.ToolLocator,
		Output:             resolved.Output,
		Errors:             resolved.Errors,
	})
}

func (builder *CommandBuilder) build(definition commandDefinition) *cobra.Command {
	return &cobra.Command{
		Use:           definition.use,
		Short:         definition.shortDescription,
		Long:          definition.longDescription,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			service, serviceError := builder.NewService(command)
			if serviceError != nil {
				return serviceError
			}
			return definition.run(service, command.Context())
		},
	}
}
