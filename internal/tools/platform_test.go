package tools_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwrdd/cwrdd-make/internal/tools"
)

func TestDetectPlatform(testInstance *testing.T) {
	testCases := []struct {
		name             string
		goos             string
		osRelease        string
		osReleaseError   error
		expectedPlatform tools.Platform
	}{
		{name: "ubuntu", goos: "linux", osRelease: "NAME=\"Ubuntu\"\nID=ubuntu\nID_LIKE=debian\n", expectedPlatform: tools.PlatformUbuntu},
		{name: "debian", goos: "linux", osRelease: "PRETTY_NAME=\"Debian GNU/Linux 12\"\nID=debian\n", expectedPlatform: tools.PlatformDebian},
		{name: "ubuntu_derivative", goos: "linux", osRelease: "ID=pop\nID_LIKE=\"ubuntu debian\"\n", expectedPlatform: tools.PlatformUbuntu},
		{name: "debian_derivative", goos: "linux", osRelease: "ID=raspbian\nID_LIKE=debian\n", expectedPlatform: tools.PlatformDebian},
		{name: "other_linux", goos: "linux", osRelease: "ID=fedora\n", expectedPlatform: tools.PlatformLinux},
		{name: "missing_os_release", goos: "linux", osReleaseError: errors.New("not found"), expectedPlatform: tools.PlatformLinux},
		{name: "macos", goos: "darwin", expectedPlatform: tools.PlatformMacOS},
		{name: "windows", goos: "windows", expectedPlatform: tools.PlatformUnknown},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			readOSRelease := func() ([]byte, error) {
				return []byte(testCase.osRelease), testCase.osReleaseError
			}
			require.Equal(testInstance, testCase.expectedPlatform, tools.DetectPlatform(testCase.goos, readOSRelease))
		})
	}
}

func TestDetectPlatformWithoutReader(testInstance *testing.T) {
	require.Equal(testInstance, tools.PlatformLinux, tools.DetectPlatform("linux", nil))
}
