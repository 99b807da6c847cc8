package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerIDShortID(t *testing.T) {
	t.Parallel()

	assert.Equal(
		t,
		"0123456789ab",
		ContainerID("0123456789abcdef0123456789abcdef").ShortID(),
	)
	assert.Equal(
		t,
		"0123456789ab",
		ContainerID("sha256:0123456789abcdef0123456789abcdef").ShortID(),
	)
	assert.Equal(t, "short", ContainerID("short").ShortID())
}

func TestImageIDShortID(t *testing.T) {
	t.Parallel()

	assert.Equal(
		t,
		"19d07168491a",
		ImageID("sha256:19d07168491a3f9e2798a1da39a2741d958e297d7e5e8e1b0bbcc07dfd4a7a98").ShortID(),
	)
}

func TestRecordCurrentDigest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record Record
		want   string
	}{
		{
			name: "single repo digest",
			record: Record{
				RepoDigests: []string{"nginx@sha256:abcdef012345"},
			},
			want: "abcdef012345",
		},
		{
			name:   "no repo digests",
			record: Record{},
			want:   "",
		},
		{
			name: "malformed digest",
			record: Record{
				RepoDigests: []string{"nginx-no-digest"},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.record.CurrentDigest())
		})
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "update_available", StateUpdateAvailable.String())
	assert.Equal(t, "local_only", StateLocalOnly.String())
	assert.Equal(t, "unknown", State(99).String())
}
