package certs_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwrdd/cwrdd-make/internal/certs"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/internal/workspace/workspacetest"
)

func TestCertificateCommands(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		untrust              bool
		certificateInstalled bool
		expectedUse          string
		expectedCommandLines func(certificatePath string, trustedPath string) []string
		expectedOutput       string
	}{
		{
			name:        "trust",
			expectedUse: "trust-cert",
			expectedCommandLines: func(certificatePath string, trustedPath string) []string {
				return []string{"sudo cp " + certificatePath + " " + trustedPath, "sudo update-ca-certificates"}
			},
			expectedOutput: "Certificate trusted system-wide!",
		},
		{
			name:                 "untrust_installed",
			untrust:              true,
			certificateInstalled: true,
			expectedUse:          "untrust-cert",
			expectedCommandLines: func(_ string, trustedPath string) []string {
				return []string{"sudo rm " + trustedPath, "sudo update-ca-certificates --fresh"}
			},
			expectedOutput: "Certificate removed from system trust store",
		},
		{
			name:        "untrust_absent",
			untrust:     true,
			expectedUse: "untrust-cert",
			expectedCommandLines: func(string, string) []string {
				return []string{}
			},
			expectedOutput: "Certificate was not installed",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryRoot := testInstance.TempDir()
			layout, layoutError := workspace.NewLayout(repositoryRoot)
			require.NoError(testInstance, layoutError)
			writeFile(testInstance, layout.CertificatePath())

			trustedPath := filepath.Join(testInstance.TempDir(), "cwrdd-dev.crt")
			if testCase.certificateInstalled {
				writeFile(testInstance, trustedPath)
			}

			executor := &workspacetest.RecordingTaskExecutor{}
			builder := certs.CommandBuilder{
				CommandDependencies: workspace.CommandDependencies{
					ConfigurationProvider: func() workspace.Configuration {
						return workspace.Configuration{RepositoryPath: repositoryRoot}
					},
					TaskExecutor: executor,
				},
				TrustedCertificatePath: trustedPath,
			}

			command, buildError := builder.Build()
			if testCase.untrust {
				command, buildError = builder.BuildUntrust()
			}
			require.NoError(testInstance, buildError)
			require.Equal(testInstance, testCase.expectedUse, command.Use)

			output := &bytes.Buffer{}
			command.SetOut(output)
			command.SetErr(&bytes.Buffer{})
			command.SetArgs([]string{})
			require.NoError(testInstance, command.ExecuteContext(context.Background()))

			require.Equal(testInstance, testCase.expectedCommandLines(layout.CertificatePath(), trustedPath), executor.CommandLines())
			require.Contains(testInstance, output.String(), testCase.expectedOutput)
		})
	}
}

func TestTrustCommandRejectsArguments(testInstance *testing.T) {
	builder := certs.CommandBuilder{CommandDependencies: workspace.CommandDependencies{
		ConfigurationProvider: func() workspace.Configuration {
			return workspace.Configuration{RepositoryPath: testInstance.TempDir()}
		},
		TaskExecutor: &workspacetest.RecordingTaskExecutor{},
	}}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{"extra"})
	require.Error(testInstance, command.ExecuteContext(context.Background()))
}
