package converter

import (
	"path/filepath"
	"slices"
	"sync"
)

var dirLocks sync.Map // cleaned path -> *sync.Mutex

// lockDirs serialises work on the given directories within this process.
// Locks are taken in sorted order so overlapping callers cannot deadlock.
func lockDirs(paths ...string) (unlock func()) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		keys = append(keys, filepath.Clean(p))
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		v, _ := dirLocks.LoadOrStore(k, &sync.Mutex{})
		mu := v.(*sync.Mutex)
		mu.Lock()
		held = append(held, mu)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
