package configstore

import (
	"fmt"
	"strconv"
	"sync"
)

// Keys edited in the deployment configuration.
const (
	KeyPercentage = "CANARY_PERCENTAGE"
	KeyEnabled    = "CANARY_TESTING_ENABLED"
	KeyImageTag   = "APP_IMAGE_TAG"
)

// Store is the deployment configuration the controller mutates. The live
// system reads the same keys, so every write here changes real traffic split
// once the workload restarts.
type Store interface {
	Percentage() (int, error)
	SetPercentage(pct int) error
	Enabled() (bool, error)
	SetEnabled(enabled bool) error
	ImageTag() (string, error)
	SetImageTag(tag string) error
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemStore creates a MemStore seeded with the given values.
func NewMemStore(values map[string]string) *MemStore {
	m := &MemStore{values: make(map[string]string)}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemStore) get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("key not set: %s", key)
	}
	return v, nil
}

func (m *MemStore) set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemStore) Percentage() (int, error) {
	v, err := m.get(KeyPercentage)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (m *MemStore) SetPercentage(pct int) error {
	return m.set(KeyPercentage, strconv.Itoa(pct))
}

func (m *MemStore) Enabled() (bool, error) {
	v, err := m.get(KeyEnabled)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(v)
}

func (m *MemStore) SetEnabled(enabled bool) error {
	return m.set(KeyEnabled, strconv.FormatBool(enabled))
}

func (m *MemStore) ImageTag() (string, error) {
	return m.get(KeyImageTag)
}

func (m *MemStore) SetImageTag(tag string) error {
	return m.set(KeyImageTag, tag)
}
