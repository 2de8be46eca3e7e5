package main

import (
	"errors"
	"path/filepath"
	"strings"
)

var ErrAccessDenied = errors.New("access denied")

// secureJoin resolves name against root and rejects any result that escapes
// the root directory (traversal via "..", absolute paths, empty names).
// It performs no filesystem access beyond resolving the paths to absolute form.
func secureJoin(root, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", ErrAccessDenied
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	candidate, err := filepath.Abs(filepath.Join(absRoot, name))
	if err != nil {
		return "", err
	}

	if candidate != absRoot && !strings.HasPrefix(candidate, absRoot+string(filepath.Separator)) {
		return "", ErrAccessDenied
	}

	return candidate, nil
}
