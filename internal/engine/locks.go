// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package engine

import (
	"slices"
	"sync"
)

// keyedMutex serializes work per address. Locks for several keys are always
// taken in sorted order so two callers locking overlapping key sets cannot
// deadlock.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the locks for keys and returns the function releasing them.
// Empty and duplicate keys are ignored.
func (k *keyedMutex) Lock(keys ...string) (unlock func()) {
	ordered := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			ordered = append(ordered, key)
		}
	}
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]*refMutex, 0, len(ordered))
	for _, key := range ordered {
		m := k.acquire(key)
		m.mu.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.release(ordered[i])
		}
	}
}

func (k *keyedMutex) acquire(key string) *refMutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	return m
}

func (k *keyedMutex) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	m := k.locks[key]
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
}

// size returns the number of live key entries.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
