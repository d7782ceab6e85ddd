package configstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EnvFileStore edits KEY=value pairs in a deployment env file in place.
// Writes go through a temp file and atomic rename so a crash mid-write never
// leaves a half-edited configuration behind.
type EnvFileStore struct {
	path string
}

// NewEnvFileStore creates a store backed by the given env file. The file must
// already exist: the controller edits deployment configuration, it does not
// create it.
func NewEnvFileStore(path string) (*EnvFileStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("deployment env file not accessible: %w", err)
	}
	return &EnvFileStore{path: path}, nil
}

// Get returns the value for key, or an error if the key is absent.
func (s *EnvFileStore) Get(key string) (string, error) {
	lines, err := s.readLines()
	if err != nil {
		return "", err
	}
	for _, line := range lines {
		k, v, ok := splitPair(line)
		if ok && k == key {
			return v, nil
		}
	}
	return "", fmt.Errorf("key not set in %s: %s", s.path, key)
}

// Set replaces the value for key, appending the pair if the key is absent.
func (s *EnvFileStore) Set(key, value string) error {
	lines, err := s.readLines()
	if err != nil {
		return err
	}

	replaced := false
	for i, line := range lines {
		k, _, ok := splitPair(line)
		if ok && k == key {
			lines[i] = key + "=" + value
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, key+"="+value)
	}

	return s.writeLines(lines)
}

func (s *EnvFileStore) Percentage() (int, error) {
	v, err := s.Get(KeyPercentage)
	if err != nil {
		return 0, err
	}
	pct, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", KeyPercentage, v, err)
	}
	return pct, nil
}

func (s *EnvFileStore) SetPercentage(pct int) error {
	return s.Set(KeyPercentage, strconv.Itoa(pct))
}

func (s *EnvFileStore) Enabled() (bool, error) {
	v, err := s.Get(KeyEnabled)
	if err != nil {
		return false, err
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", KeyEnabled, v, err)
	}
	return enabled, nil
}

func (s *EnvFileStore) SetEnabled(enabled bool) error {
	return s.Set(KeyEnabled, strconv.FormatBool(enabled))
}

func (s *EnvFileStore) ImageTag() (string, error) {
	return s.Get(KeyImageTag)
}

func (s *EnvFileStore) SetImageTag(tag string) error {
	return s.Set(KeyImageTag, tag)
}

func (s *EnvFileStore) readLines() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	lines := strings.Split(string(data), "\n")
	// Drop a single trailing empty line so Set doesn't grow the file.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines, nil
}

func (s *EnvFileStore) writeLines(lines []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".env-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write env file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace env file: %w", err)
	}
	return nil
}

// splitPair parses one env file line. Comments and blank lines are not pairs.
func splitPair(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	idx := strings.Index(trimmed, "=")
	if idx <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(trimmed[:idx]), strings.TrimSpace(trimmed[idx+1:]), true
}
