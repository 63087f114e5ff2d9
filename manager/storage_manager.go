// Package manager holds the process-wide storage manager and the meta
// tables describing catalog state.
package manager

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dot5enko/column-query-engine/storage"
)

var (
	ErrTableNotFound      = fmt.Errorf("table not found")
	ErrTableAlreadyExists = fmt.Errorf("table already exists")
)

// StorageManager owns all named tables. One instance exists per
// process, created by Get on first use and torn down by Reset.
type StorageManager struct {
	lock   sync.RWMutex
	tables map[string]*storage.Table
}

var (
	instance     *StorageManager
	instanceLock sync.Mutex
)

// Get returns the process-wide manager, creating it on first use.
func Get() *StorageManager {
	instanceLock.Lock()
	defer instanceLock.Unlock()
	if instance == nil {
		instance = &StorageManager{tables: map[string]*storage.Table{}}
	}
	return instance
}

// Reset drops the singleton with everything in it. Mainly for tests.
func Reset() {
	instanceLock.Lock()
	defer instanceLock.Unlock()
	instance = nil
}

func (m *StorageManager) AddTable(name string, table *storage.Table) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, exists := m.tables[name]; exists {
		return fmt.Errorf("%w: %s", ErrTableAlreadyExists, name)
	}
	m.tables[name] = table
	return nil
}

func (m *StorageManager) DropTable(name string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, exists := m.tables[name]; !exists {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	delete(m.tables, name)
	return nil
}

func (m *StorageManager) GetTable(name string) (*storage.Table, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	table, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return table, nil
}

func (m *StorageManager) HasTable(name string) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	_, ok := m.tables[name]
	return ok
}

// TableNames lists all tables in name order.
func (m *StorageManager) TableNames() []string {
	m.lock.RLock()
	defer m.lock.RUnlock()

	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tables snapshots the catalog.
func (m *StorageManager) Tables() map[string]*storage.Table {
	m.lock.RLock()
	defer m.lock.RUnlock()

	out := make(map[string]*storage.Table, len(m.tables))
	for name, table := range m.tables {
		out[name] = table
	}
	return out
}
