package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"hive/pkg/protocol"
)

// ProjectKey derives a stable project identity. An explicit key wins;
// otherwise the key is computed from the absolute form of dir, so the
// same project directory always resolves to the same store no matter
// where the caller runs from.
func ProjectKey(explicit, dir string) (string, error) {
	if explicit != "" {
		if err := validateKey(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project path %s: %w", dir, err)
	}
	sum := sha256.Sum256([]byte(abs))
	return "p-" + hex.EncodeToString(sum[:])[:12], nil
}

// validateKey rejects keys that would be unsafe as file names or
// ambiguous in CLI output.
func validateKey(key string) error {
	if len(key) > 64 {
		return &protocol.ValidationError{Field: "project key", Reason: "longer than 64 characters"}
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return &protocol.ValidationError{
				Field:  "project key",
				Reason: fmt.Sprintf("character %q not allowed (use a-z, 0-9, - and _)", r),
			}
		}
	}
	return nil
}

// ResolveHome returns the hive home directory from the HIVE_HOME env
// var or ~/.hive.
func ResolveHome() (string, error) {
	if v := os.Getenv("HIVE_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, protocol.HiveDir), nil
}

// DBPath returns the database file path for a project key, honoring
// the HIVE_DB_PATH override.
func DBPath(home, projectKey string) string {
	if v := os.Getenv("HIVE_DB_PATH"); v != "" {
		return v
	}
	return filepath.Join(home, projectKey+".db")
}
