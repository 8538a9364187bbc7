package install

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

// BinaryNameConstant is the file name the executable is installed under.
const BinaryNameConstant = "cwrdd-make"

const (
	installBannerConstant               = "📦 Installing cwrdd-make to your PATH\n\n"
	currentExecutableTemplateConstant   = "Current executable: %s\n"
	installDirectoryTemplateConstant    = "Installation directory: %s\n"
	targetPathTemplateConstant          = "Target path: %s\n\n"
	directoryInPathTemplateConstant     = "✓ %s is in your PATH\n"
	directoryNotInPathTemplateConstant  = "⚠️  %s is not in your PATH\n   (This is okay, we'll show you how to add it after installation)\n"
	creatingDirectoryTemplateConstant   = "Creating directory: %s\n"
	copyingMessageConstant              = "Copying binary...\n"
	alreadyInstalledMessageConstant     = "Running from the installation target; nothing to copy.\n"
	installedMessageConstant            = "✅ cwrdd-make installed successfully!\n\n"
	installLocationTemplateConstant     = "Installation location: %s\n"
	usageHintsMessageConstant           = "\nYou can now run:\n  cwrdd-make --help\n  cwrdd-make build\n  cwrdd-make migrate\n  etc.\n\n"
	executableErrorTemplateConstant     = "unable to determine current executable: %w"
	homeErrorTemplateConstant           = "unable to determine home directory: %w"
	createErrorTemplateConstant         = "unable to create directory %s: %w"
	copyErrorTemplateConstant           = "unable to copy binary from %s to %s: %w"
	localBinDirectoryConstant           = ".local"
	binDirectoryConstant                = "bin"
	installedBinaryPermissionsConstant  = 0o755
	installDirectoryPermissionsConstant = 0o755
	installedLogMessageConstant         = "installed executable"
	sourceFieldNameConstant             = "source"
	targetFieldNameConstant             = "target"
)

const pathInstructionsTemplateConstant = `📝 To add %[1]s to your PATH:

For bash, add this to ~/.bashrc:
  export PATH="%[1]s:$PATH"

For zsh, add this to ~/.zshrc:
  export PATH="%[1]s:$PATH"

For fish, run:
  fish_add_path %[1]s

Then reload your shell or run:
  source ~/.bashrc   # or ~/.zshrc
`

// ErrHomeDirectoryUnavailable indicates no home directory could be determined.
var ErrHomeDirectoryUnavailable = errors.New("home directory not set")

// Dependencies describes the process facts the installer reads.
type Dependencies struct {
	Executable    func() (string, error)
	HomeDirectory func() (string, error)
	SearchPath    func() string
	Output        io.Writer
	Logger        *zap.Logger
}

// Service copies the running executable into the user's bin directory.
type Service struct {
	executable    func() (string, error)
	homeDirectory func() (string, error)
	searchPath    func() string
	output        io.Writer
	logger        *zap.Logger
}

// NewService constructs a Service backed by the process environment for unset dependencies.
func NewService(dependencies Dependencies) *Service {
	service := &Service{
		executable:    dependencies.Executable,
		homeDirectory: dependencies.HomeDirectory,
		searchPath:    dependencies.SearchPath,
		output:        dependencies.Output,
		logger:        dependencies.Logger,
	}
	if service.executable == nil {
		service.executable = os.Executable
	}
	if service.homeDirectory == nil {
		service.homeDirectory = os.UserHomeDir
	}
	if service.searchPath == nil {
		service.searchPath = func() string { return os.Getenv("PATH") }
	}
	if service.output == nil {
		service.output = io.Discard
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service
}

// Install copies the current executable to <install dir>/cwrdd-make with mode 0755 and explains how to put it on PATH.
func (service *Service) Install() error {
	fmt.Fprint(service.output, installBannerConstant)

	sourcePath, executableError := service.executable()
	if executableError != nil {
		return workspace.Wrap(workspace.OperationInstall, "", fmt.Errorf(executableErrorTemplateConstant, executableError))
	}
	fmt.Fprintf(service.output, currentExecutableTemplateConstant, sourcePath)

	homeDirectory, homeError := service.homeDirectory()
	if homeError == nil && len(homeDirectory) == 0 {
		homeError = ErrHomeDirectoryUnavailable
	}
	if homeError != nil {
		return workspace.Wrap(workspace.OperationInstall, "", fmt.Errorf(homeErrorTemplateConstant, homeError))
	}

	searchPath := service.searchPath()
	installDirectory := ResolveInstallDirectory(homeDirectory, searchPath)
	targetPath := filepath.Join(installDirectory, BinaryNameConstant)
	fmt.Fprintf(service.output, installDirectoryTemplateConstant, installDirectory)
	fmt.Fprintf(service.output, targetPathTemplateConstant, targetPath)

	onPath := InPath(installDirectory, searchPath)
	if onPath {
		fmt.Fprintf(service.output, directoryInPathTemplateConstant, installDirectory)
	} else {
		fmt.Fprintf(service.output, directoryNotInPathTemplateConstant, installDirectory)
	}

	if _, statError := os.Stat(installDirectory); errors.Is(statError, os.ErrNotExist) {
		fmt.Fprintf(service.output, creatingDirectoryTemplateConstant, installDirectory)
		if createError := os.MkdirAll(installDirectory, installDirectoryPermissionsConstant); createError != nil {
			return workspace.Wrap(workspace.OperationInstall, installDirectory, fmt.Errorf(createErrorTemplateConstant, installDirectory, createError))
		}
	}

	if sameFile(sourcePath, targetPath) {
		fmt.Fprint(service.output, alreadyInstalledMessageConstant)
	} else {
		fmt.Fprint(service.output, copyingMessageConstant)
		if copyError := copyExecutable(sourcePath, targetPath); copyError != nil {
			return workspace.Wrap(workspace.OperationInstall, targetPath, fmt.Errorf(copyErrorTemplateConstant, sourcePath, targetPath, copyError))
		}
		service.logger.Debug(installedLogMessageConstant, zap.String(sourceFieldNameConstant, sourcePath), zap.String(targetFieldNameConstant, targetPath))
	}

	fmt.Fprint(service.output, installedMessageConstant)
	fmt.Fprintf(service.output, installLocationTemplateConstant, targetPath)
	fmt.Fprint(service.output, usageHintsMessageConstant)

	if !onPath {
		fmt.Fprint(service.output, PathInstructions(installDirectory))
	}
	return nil
}

// ResolveInstallDirectory prefers ~/.local/bin. An existing ~/bin already on PATH is used when ~/.local/bin is not on PATH.
func ResolveInstallDirectory(homeDirectory string, searchPath string) string {
	localBin := filepath.Join(homeDirectory, localBinDirectoryConstant, binDirectoryConstant)
	if InPath(localBin, searchPath) {
		return localBin
	}
	homeBin := filepath.Join(homeDirectory, binDirectoryConstant)
	if info, statError := os.Stat(homeBin); statError == nil && info.IsDir() && InPath(homeBin, searchPath) {
		return homeBin
	}
	return localBin
}

// InPath reports whether directory is one of the entries of searchPath.
func InPath(directory string, searchPath string) bool {
	cleanedDirectory := filepath.Clean(directory)
	for _, entry := range filepath.SplitList(searchPath) {
		if len(entry) == 0 {
			continue
		}
		if filepath.Clean(entry) == cleanedDirectory {
			return true
		}
	}
	return false
}

// PathInstructions renders shell snippets that add directory to PATH.
func PathInstructions(directory string) string {
	return fmt.Sprintf(pathInstructionsTemplateConstant, directory)
}

func sameFile(firstPath string, secondPath string) bool {
	firstInfo, firstError := os.Stat(firstPath)
	if firstError != nil {
		return false
	}
	secondInfo, secondError := os.Stat(secondPath)
	if secondError != nil {
		return false
	}
	return os.SameFile(firstInfo, secondInfo)
}

func copyExecutable(sourcePath string, targetPath string) (err error) {
	source, openError := os.Open(sourcePath)
	if openError != nil {
		return openError
	}
	defer source.Close()

	target, createError := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, installedBinaryPermissionsConstant)
	if createError != nil {
		return createError
	}
	defer func() {
		if closeError := target.Close(); closeError != nil && err == nil {
			err = closeError
		}
	}()

	if _, copyError := io.Copy(target, source); copyError != nil {
		return copyError
	}
	return os.Chmod(targetPath, installedBinaryPermissionsConstant)
}
