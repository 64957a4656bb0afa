package ratelimit

import "sync"

const maxIdleKeys = 1024

// Keyed holds one Window per key, created on first use.
type Keyed struct {
	opts Options

	mu      sync.Mutex
	windows map[string]*Window
}

// NewKeyed returns a Keyed limiter whose windows share opts.
func NewKeyed(opts Options) *Keyed {
	return &Keyed{opts: opts, windows: make(map[string]*Window)}
}

// Allow records an event for key if its window has room.
func (k *Keyed) Allow(key string) bool {
	return k.window(key).TryAcquire()
}

func (k *Keyed) window(key string) *Window {
	k.mu.Lock()
	defer k.mu.Unlock()
	if w, ok := k.windows[key]; ok {
		return w
	}
	if len(k.windows) >= maxIdleKeys {
		for id, w := range k.windows {
			if w.Len() == 0 {
				delete(k.windows, id)
			}
		}
	}
	w := NewWindow(k.opts)
	k.windows[key] = w
	return w
}
