package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRegistryAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		imageRef string
		want     string
		wantErr  bool
	}{
		{name: "bare image", imageRef: "nginx", want: "index.docker.io"},
		{name: "docker hub namespace", imageRef: "containrrr/watchtower:latest", want: "index.docker.io"},
		{name: "explicit docker.io", imageRef: "docker.io/library/alpine:3.20", want: "index.docker.io"},
		{name: "ghcr", imageRef: "ghcr.io/acme/widget:1.2", want: "ghcr.io"},
		{name: "private registry with port", imageRef: "registry.local:5000/app:dev", want: "registry.local:5000"},
		{name: "invalid reference", imageRef: "UPPERCASE_NOT_ALLOWED::", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := GetRegistryAddress(tt.imageRef)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDigest(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc123", NormalizeDigest("sha256:abc123"))
	assert.Equal(t, "abc123", NormalizeDigest("abc123"))
	assert.Equal(t, "", NormalizeDigest(""))
}
