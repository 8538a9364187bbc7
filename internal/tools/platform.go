package tools

import (
	"bufio"
	"bytes"
	"os"
	"runtime"
	"strings"
)

// Platform identifies a host operating system with a known install plan.
type Platform string

// Supported and recognized platforms.
const (
	PlatformUbuntu  Platform = "ubuntu"
	PlatformDebian  Platform = "debian"
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformUnknown Platform = "unknown"
)

const (
	osReleasePathConstant   = "/etc/os-release"
	linuxGOOSConstant       = "linux"
	darwinGOOSConstant      = "darwin"
	identifierKeyConstant   = "ID"
	identifierLikeConstant  = "ID_LIKE"
	quoteCharactersConstant = "\"'"
)

// ReadOSRelease returns the contents of /etc/os-release.
func ReadOSRelease() ([]byte, error) {
	return os.ReadFile(osReleasePathConstant)
}

// DetectHostPlatform classifies the running host.
func DetectHostPlatform() Platform {
	return DetectPlatform(runtime.GOOS, ReadOSRelease)
}

// DetectPlatform maps goos to a Platform. Linux hosts are refined through the ID and ID_LIKE fields of os-release.
func DetectPlatform(goos string, readOSRelease func() ([]byte, error)) Platform {
	switch strings.ToLower(goos) {
	case darwinGOOSConstant:
		return PlatformMacOS
	case linuxGOOSConstant:
		if readOSRelease == nil {
			return PlatformLinux
		}
		content, readError := readOSRelease()
		if readError != nil {
			return PlatformLinux
		}
		return classifyOSRelease(content)
	default:
		return PlatformUnknown
	}
}

func classifyOSRelease(content []byte) Platform {
	identifiers := make([]string, 0, 4)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		key, value, found := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !found || (key != identifierKeyConstant && key != identifierLikeConstant) {
			continue
		}
		identifiers = append(identifiers, strings.Fields(strings.ToLower(strings.Trim(value, quoteCharactersConstant)))...)
	}

	for _, candidate := range []Platform{PlatformUbuntu, PlatformDebian} {
		for _, identifier := range identifiers {
			if identifier == string(candidate) {
				return candidate
			}
		}
	}
	return PlatformLinux
}
