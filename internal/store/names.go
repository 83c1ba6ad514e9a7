package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// File extension constants.
const (
	extAAC  = ".aac"
	extFLAC = ".flac"
	extM4A  = ".m4a"
	extMP3  = ".mp3"
	extOGG  = ".ogg"
	extWAV  = ".wav"
)

// ErrInvalidName is returned for names that would escape the store directory.
var ErrInvalidName = errors.New("invalid file name")

// ValidateName rejects names that are empty, contain a path separator or
// refer to the current or parent directory.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case filepath.Base(name) != name:
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return nil
}

// IsAudioFile checks if a filename has a common audio file extension.
func IsAudioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case extWAV, extMP3, extFLAC, extOGG, extM4A, extAAC:
		return true
	default:
		return false
	}
}
