package container

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/pkg/types"
)

// minMatchGroups is the minimum regex group count for a captured ID:
// the full match plus the ID group.
const minMatchGroups = 2

// dockerContainerPattern matches a 64-character hexadecimal Docker
// container ID in cgroup data (e.g. "11:pids:/docker/abc...def").
var dockerContainerPattern = regexp.MustCompile(`[0-9]+:.*:/docker/([a-f0-9]{64})`)

// readFileFunc allows mocking file reads in tests; defaults to os.ReadFile.
var readFileFunc = os.ReadFile

// DetectSelfID resolves the orchestrator's own container identity.
//
// It reads /proc/<pid>/cgroup first; on cgroup v2 hosts where the docker
// path is absent it falls back to the container hostname, which Docker
// sets to the short container ID unless overridden. An empty ID means the
// process does not appear to run inside a container.
//
// Returns:
//   - types.ContainerID: Own container ID, possibly in 12-character short form.
func DetectSelfID() types.ContainerID {
	selfID, err := runningContainerID()
	if err == nil {
		logrus.WithField("container_id", selfID.ShortID()).
			Debug("Detected own container ID from cgroup")

		return selfID
	}

	logrus.WithError(err).Debug("Cgroup detection failed, falling back to hostname")

	hostname, err := os.Hostname()
	if err != nil || !looksLikeContainerID(hostname) {
		logrus.Debug("Not running inside a container, self-protection covers nothing")

		return ""
	}

	return types.ContainerID(hostname)
}

// runningContainerID extracts the container ID from the process's cgroup file.
func runningContainerID() (types.ContainerID, error) {
	filePath := fmt.Sprintf("/proc/%d/cgroup", os.Getpid())

	file, err := readFileFunc(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errReadCgroupFile, err)
	}

	return containerIDFromCgroup(string(file))
}

// containerIDFromCgroup extracts a Docker container ID from cgroup data.
func containerIDFromCgroup(cgroupString string) (types.ContainerID, error) {
	for line := range strings.Lines(cgroupString) {
		matches := dockerContainerPattern.FindStringSubmatch(strings.TrimRight(line, "\n"))
		if len(matches) >= minMatchGroups {
			return types.ContainerID(matches[1]), nil
		}
	}

	return "", fmt.Errorf("%w: %q", errNoValidContainerID, cgroupString)
}

// looksLikeContainerID reports whether a hostname has the shape of a
// Docker short container ID (12 hex characters).
func looksLikeContainerID(hostname string) bool {
	if len(hostname) != 12 {
		return false
	}

	for _, r := range hostname {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}

	return true
}

// MatchesSelf reports whether a full container ID refers to the identity
// returned by DetectSelfID, accounting for the short-form fallback.
func MatchesSelf(selfID, candidate types.ContainerID) bool {
	if selfID == "" {
		return false
	}

	return candidate == selfID || strings.HasPrefix(string(candidate), string(selfID))
}
