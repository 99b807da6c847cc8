package types

import (
	"strings"
)

// ContainerID is the host-assigned identifier of a container instance.
type ContainerID string

// ImageID is a hash string identifying a container image.
type ImageID string

// ShortID returns the 12-character short form of a container ID.
//
// Returns:
//   - string: Shortened ID without "sha256:" prefix.
func (id ContainerID) ShortID() string {
	return shortID(string(id))
}

// ShortID returns the 12-character short form of an image ID.
//
// Returns:
//   - string: Shortened ID without "sha256:" prefix.
func (id ImageID) ShortID() string {
	return shortID(string(id))
}

// shortID shortens a hash string to 12 characters, accounting for an
// optional algorithm prefix such as "sha256:".
func shortID(longID string) string {
	prefixSep := strings.IndexRune(longID, ':')
	offset := 0
	length := 12

	if prefixSep >= 0 {
		if longID[0:prefixSep] == "sha256" {
			offset = prefixSep + 1
		} else {
			length += prefixSep + 1
		}
	}

	if len(longID) >= offset+length {
		return longID[offset : offset+length]
	}

	return longID
}
