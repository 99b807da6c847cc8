package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boingbasti/docker-update-commander/pkg/types"
)

func TestContainerIDFromCgroup(t *testing.T) {
	t.Parallel()

	fullID := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	tests := []struct {
		name    string
		cgroup  string
		want    types.ContainerID
		wantErr error
	}{
		{
			name:   "docker cgroup line",
			cgroup: "12:pids:/docker/" + fullID + "\n11:cpu:/docker/" + fullID + "\n",
			want:   types.ContainerID(fullID),
		},
		{
			name:   "id on later line",
			cgroup: "1:name=systemd:/init.scope\n2:pids:/docker/" + fullID + "\n",
			want:   types.ContainerID(fullID),
		},
		{
			name:    "no docker path",
			cgroup:  "0::/init.scope\n",
			wantErr: errNoValidContainerID,
		},
		{
			name:    "id too short",
			cgroup:  "2:pids:/docker/abc123\n",
			wantErr: errNoValidContainerID,
		},
		{
			name:    "empty input",
			cgroup:  "",
			wantErr: errNoValidContainerID,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := containerIDFromCgroup(test.cgroup)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestRunningContainerIDReadFailure(t *testing.T) {
	originalReadFile := readFileFunc
	defer func() { readFileFunc = originalReadFile }()

	readFileFunc = func(string) ([]byte, error) {
		return nil, assert.AnError
	}

	_, err := runningContainerID()
	require.ErrorIs(t, err, errReadCgroupFile)
}

func TestLooksLikeContainerID(t *testing.T) {
	t.Parallel()

	assert.True(t, looksLikeContainerID("abc123def456"))
	assert.False(t, looksLikeContainerID("my-hostname!"))
	assert.False(t, looksLikeContainerID("abc123"))
	assert.False(t, looksLikeContainerID("ABC123DEF456"))
}

func TestMatchesSelf(t *testing.T) {
	t.Parallel()

	fullID := types.ContainerID(
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	)

	// Full self ID from cgroup detection.
	assert.True(t, MatchesSelf(fullID, fullID))
	assert.False(t, MatchesSelf(fullID, "another-id"))

	// Short self ID from hostname fallback matches the full candidate.
	assert.True(t, MatchesSelf("0123456789ab", fullID))

	// Empty self ID means not containerized, nothing matches.
	assert.False(t, MatchesSelf("", fullID))
}
