// Package creds loads per-host tracker credentials from a YAML file.
package creds

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Credentials maps hostnames to their authentication settings, e.g. token,
// api_key or user. A host with no entry is queried anonymously.
type Credentials map[string]map[string]string

// DefaultPath returns the default credentials file location.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "bugme", "creds.yaml")
}

// Load reads the credentials file. The file holds secrets, so a mode that
// lets group or others read it is rejected. A missing file at the default
// location is not an error: everything is anonymous then.
func Load(path string) (Credentials, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat credentials file: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("%w: %s has mode %04o", ErrPermissions, path, info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var credentials Credentials
	if err := yaml.Unmarshal(data, &credentials); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return credentials, nil
}
