package migrate

import "sync"

// nameLocks hands out one mutex per destination repository name and forgets it once no worker holds it.
type nameLocks struct {
	mutex   sync.Mutex
	entries map[string]*nameLockEntry
}

type nameLockEntry struct {
	mutex   sync.Mutex
	holders int
}

func newNameLocks() *nameLocks {
	return &nameLocks{entries: make(map[string]*nameLockEntry)}
}

// Lock blocks until name is free and returns the matching unlock function.
func (locks *nameLocks) Lock(name string) func() {
	locks.mutex.Lock()
	entry, exists := locks.entries[name]
	if !exists {
		entry = &nameLockEntry{}
		locks.entries[name] = entry
	}
	entry.holders++
	locks.mutex.Unlock()

	entry.mutex.Lock()
	return func() {
		entry.mutex.Unlock()
		locks.mutex.Lock()
		entry.holders--
		if entry.holders == 0 {
			delete(locks.entries, name)
		}
		locks.mutex.Unlock()
	}
}
