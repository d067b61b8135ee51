package system

import (
	"sort"
	"sync"
)

// KeyedMutex serializes work per key. Keys that are not held cost nothing.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires every key and returns the matching release function. Keys
// are taken in sorted order so overlapping callers cannot deadlock.
func (k *KeyedMutex) Lock(keys ...string) func() {
	sorted := dedupe(keys)
	held := make([]*keyedLock, 0, len(sorted))
	for _, key := range sorted {
		l := k.acquire(key)
		l.mu.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.release(sorted[i])
		}
	}
}

func (k *KeyedMutex) acquire(key string) *keyedLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *KeyedMutex) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

func dedupe(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, key := range out {
		if i > 0 && key == out[n-1] {
			continue
		}
		out[n] = key
		n++
	}
	return out[:n]
}
