package sqsd

import (
	"os"
	"strings"
)

// initCgroupPath is the control-group descriptor of the init process,
// consulted to recognize containerized environments.
const initCgroupPath = "/proc/1/cgroup"

// DockerHostAddr returns the address daemon traffic arrives from when the
// process runs inside a Docker container, or "" outside one. Call it once
// at startup and pass the result to Options.BridgeAddr; it is a filesystem
// probe, not something to evaluate per request.
func DockerHostAddr() string {
	return dockerHostAddr(initCgroupPath)
}

func dockerHostAddr(cgroupPath string) string {
	data, err := os.ReadFile(cgroupPath)
	if err != nil {
		// No readable cgroup descriptor: assume no container and trust
		// loopback only.
		return ""
	}
	if strings.Contains(string(data), "docker") {
		return DockerHostIP
	}
	return ""
}
