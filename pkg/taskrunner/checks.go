package taskrunner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

const (
	directoryNotFoundMessageConstant   = "directory does not exist"
	notDirectoryMessageConstant        = "path is not a directory"
	directoryErrorTemplateConstant     = "%w: %s"
	directoryStatErrorTemplateConstant = "unable to inspect %s: %w"
)

var (
	// ErrDirectoryNotFound indicates the verified path does not exist.
	ErrDirectoryNotFound = errors.New(directoryNotFoundMessageConstant)
	// ErrNotDirectory indicates the verified path exists but is not a directory.
	ErrNotDirectory = errors.New(notDirectoryMessageConstant)
)

// CommandExists reports whether name resolves to an executable on PATH.
func CommandExists(name string) bool {
	if len(strings.TrimSpace(name)) == 0 {
		return false
	}
	_, lookupError := exec.LookPath(name)
	return lookupError == nil
}

// VerifyDirectory fails unless directoryPath exists and is a directory.
func VerifyDirectory(directoryPath string) error {
	fileInfo, statError := os.Stat(directoryPath)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return fmt.Errorf(directoryErrorTemplateConstant, ErrDirectoryNotFound, directoryPath)
		}
		return fmt.Errorf(directoryStatErrorTemplateConstant, directoryPath, statError)
	}
	if !fileInfo.IsDir() {
		return fmt.Errorf(directoryErrorTemplateConstant, ErrNotDirectory, directoryPath)
	}
	return nil
}
