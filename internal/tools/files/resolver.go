// Package files implements the registry's built-in file tools: read,
// hashline-anchored edit, write, and unified-diff patch application, all
// scoped to a workspace root via Resolver.
package files

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Resolver confines every tool operation to a workspace root.
type Resolver struct {
	Root string
}

// Resolve cleans and joins path against Root, rejecting anything that
// would escape it.
func (r Resolver) Resolve(path string) (string, error) {
	rootAbs, err := filepath.Abs(r.Root)
	if err != nil {
		return "", err
	}
	targetAbs, err := filepath.Abs(filepath.Join(rootAbs, path))
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", path)
	}
	return targetAbs, nil
}
