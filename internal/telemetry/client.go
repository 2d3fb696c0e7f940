// Package telemetry reads robot values published to a NetworkTables style key-value store.
package telemetry

import (
	"strings"
	"sync"
)

// Client reads string values by key, returning def when the key is absent.
type Client interface {
	GetString(key, def string) string
}

// Key builds the full key of an entry in a table, e.g. Key("SmartDashboard", "[DriveTrain] pose")
// returns "/SmartDashboard/[DriveTrain] pose".
func Key(table, name string) string {
	return "/" + strings.Trim(table, "/") + "/" + name
}

// Table is an in-memory Client. It backs the static telemetry source and tests.
type Table struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{values: make(map[string]string)}
}

// GetString returns the value stored under key, or def.
func (t *Table) GetString(key, def string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.values[key]; ok {
		return v
	}
	return def
}

// PutString stores value under key.
func (t *Table) PutString(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[key] = value
}

// Delete removes key.
func (t *Table) Delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.values, key)
}

// Len returns the number of stored keys.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}
