package core

import (
	"fmt"
	"sort"
	"sync"
)

// KeyedLocker is an arena of per-key mutexes. Entries are created on first use and
// dropped when the last holder or waiter releases them, so the arena stays proportional
// to in-flight work.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedLocker returns an empty arena.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until every key is held by the caller and returns the release function.
// Keys are deduplicated and taken in sorted order so overlapping key sets cannot deadlock.
// Callers that lock in several phases must take the phases in the same order everywhere.
func (k *KeyedLocker) Lock(keys ...string) (unlock func()) {
	keys = dedupSorted(keys)
	entries := make([]*keyedEntry, len(keys))

	k.mu.Lock()
	for i, key := range keys {
		e, ok := k.locks[key]
		if !ok {
			e = &keyedEntry{}
			k.locks[key] = e
		}
		e.refs++
		entries[i] = e
	}
	k.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(entries) - 1; i >= 0; i-- {
				entries[i].mu.Unlock()
			}
			k.mu.Lock()
			for i, key := range keys {
				entries[i].refs--
				if entries[i].refs == 0 {
					delete(k.locks, key)
				}
			}
			k.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (k *KeyedLocker) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func stockKey(productID int64, warehouseCode string) string {
	return fmt.Sprintf("stock:%d:%s", productID, warehouseCode)
}

func productKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}

func poolKey(poolID int64) string {
	return fmt.Sprintf("pool:%d", poolID)
}

func dedupSorted(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
