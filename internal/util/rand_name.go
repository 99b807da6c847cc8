package util

import (
	"crypto/rand"
	"math/big"
)

// randomNameLength sets the length of random container name suffixes.
const randomNameLength = 12

// letters defines the character set for random names.
var letters = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

// RandName generates a random Docker-compatible name suffix for one-off
// updater containers.
//
// Returns:
//   - string: Random lowercase alphanumeric string.
func RandName() string {
	nameBuffer := make([]rune, randomNameLength)
	for i := range nameBuffer {
		// Use crypto/rand for secure randomness.
		index, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		nameBuffer[i] = letters[index.Int64()]
	}

	return string(nameBuffer)
}
