// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.Lock("b", "a", "", "a")
	assert.Equal(t, 2, k.size())
	unlock()
	assert.Equal(t, 0, k.size())
}

func TestKeyedMutex_OverlappingSetsDoNotDeadlock(t *testing.T) {
	k := newKeyedMutex()
	counter := map[string]int{}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := k.Lock("x", "y")
			counter["x"]++
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := k.Lock("y", "x")
			counter["x"]++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, counter["x"])
	assert.Equal(t, 0, k.size())
}
